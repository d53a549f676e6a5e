package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server/backend"
)

// handlePostNotificate queues a message for the named subscribers of the caller's own topic.
func (s *Server) handlePostNotificate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postman.SendNotificationReq

		if err := c.BindJSON(&req); err != nil {
			return
		}

		if err := s.v.Struct(req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, postman.APIError{
				Code:    postman.InvalidValue,
				Message: err.Error(),
			})

			return
		}

		topicID := c.Query("id")

		if topicID != c.GetString("TopicID") {
			c.AbortWithStatusJSON(http.StatusForbidden, postman.APIError{
				Code:    postman.Forbidden,
				Message: "Topic belongs to another producer",
			})

			return
		}

		queued, err := s.b.Notify(c.Request.Context(), topicID, req.Recipients, req.Message)
		if err != nil {
			if errors.Is(err, backend.ErrNoSuchTopic) {
				c.AbortWithStatusJSON(http.StatusNotFound, postman.APIError{
					Code:    postman.NotFound,
					Message: err.Error(),
				})
			} else {
				_ = c.AbortWithError(http.StatusInternalServerError, err)
			}

			return
		}

		c.JSON(http.StatusOK, postman.DispatchResult{
			Status: fmt.Sprintf("queued for %d subscribers", queued),
		})
	}
}
