package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
)

// handleGetKey returns the VAPID public key. A topic given in the query must exist.
func (s *Server) handleGetKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if topicID := c.Query("id"); topicID != "" && !s.b.HasTopic(topicID) {
			c.AbortWithStatusJSON(http.StatusNotFound, postman.APIError{
				Code:    postman.NotFound,
				Message: "No such topic",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"key": s.b.GetPublicKey(),
		})
	}
}

func (s *Server) handleGetCurrentID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id": c.GetString("TopicID"),
		})
	}
}

func (s *Server) handleGetPing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Code": postman.SuccessCode,
		})
	}
}
