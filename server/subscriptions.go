package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server/backend"
	"github.com/sirupsen/logrus"
)

func (s *Server) handlePostSaveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postman.PushSubscription

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

		sub, err := s.b.SaveSubscriber(c.Param("topicID"), c.Query("name"), req)
		if err != nil {
			status, code := http.StatusBadRequest, postman.InvalidValue

			if errors.Is(err, backend.ErrNoSuchTopic) {
				status, code = http.StatusNotFound, postman.NotFound
			}

			c.AbortWithStatusJSON(status, postman.APIError{
				Code:    code,
				Message: err.Error(),
			})

			return
		}

		if err := s.b.Confirm(c.Request.Context(), sub); err != nil {
			logrus.WithField("pkg", "server").WithError(err).Warn("Failed to queue confirmation push")
		}

		c.JSON(http.StatusOK, gin.H{
			"id": sub.ID,
		})
	}
}

// handlePostUnsubscribe removes a subscription by endpoint. Unknown endpoints are not an error.
func (s *Server) handlePostUnsubscribe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postman.DeleteSubscriptionReq

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

		s.b.DeleteSubscriber(req.Endpoint)

		c.JSON(http.StatusOK, gin.H{
			"Code": postman.SuccessCode,
		})
	}
}
