package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server/backend"
)

func (s *Server) handlePostFormRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postman.AuthReq

		if err := c.BindJSON(&req); err != nil {
			return
		}

		if _, err := s.b.CreateAccount(req.Username, []byte(req.Password)); err != nil {
			if errors.Is(err, backend.ErrAccountExists) {
				c.AbortWithStatusJSON(http.StatusConflict, postman.APIError{
					Code:    postman.AlreadyExists,
					Message: err.Error(),
				})
			} else {
				c.AbortWithStatusJSON(http.StatusBadRequest, postman.APIError{
					Code:    postman.InvalidValue,
					Message: err.Error(),
				})
			}

			return
		}

		s.login(c, req)
	}
}

func (s *Server) handlePostFormLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postman.AuthReq

		if err := c.BindJSON(&req); err != nil {
			return
		}

		s.login(c, req)
	}
}

// handleGetAuth exchanges the refresh cookie for a new access cookie.
func (s *Server) handleGetAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		refresh, err := c.Cookie(refreshCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, postman.APIError{
				Code:    postman.Unauthorized,
				Message: "No refresh token",
			})

			return
		}

		tokens, err := s.b.RefreshSession(refresh)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, postman.APIError{
				Code:    postman.Unauthorized,
				Message: "Invalid refresh token",
			})

			return
		}

		c.SetCookie(accessCookie, tokens.Access, int(tokens.AccessLife.Seconds()), "/", "", false, true)

		c.JSON(http.StatusOK, postman.AuthStatus{Status: "refreshed"})
	}
}

func (s *Server) handleGetAuthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		access, err := c.Cookie(accessCookie)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		if _, err := s.b.VerifySession(access); err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.JSON(http.StatusOK, postman.AuthStatus{Status: "active"})
	}
}

func (s *Server) handleGetLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokens []string

		for _, name := range []string{accessCookie, refreshCookie} {
			if token, err := c.Cookie(name); err == nil {
				tokens = append(tokens, token)
			}
		}

		s.b.DeleteSession(tokens...)

		c.SetCookie(accessCookie, "", -1, "/", "", false, true)
		c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
		c.SetCookie(authTypeCookie, "", -1, "/", "", false, true)

		c.JSON(http.StatusOK, postman.AuthStatus{Status: "logged out"})
	}
}

func (s *Server) login(c *gin.Context, req postman.AuthReq) {
	topicID, tokens, err := s.b.NewSession(req.Username, []byte(req.Password))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, postman.APIError{
			Code:    postman.Unauthorized,
			Message: err.Error(),
		})

		return
	}

	c.SetCookie(accessCookie, tokens.Access, int(tokens.AccessLife.Seconds()), "/", "", false, true)
	c.SetCookie(refreshCookie, tokens.Refresh, int(tokens.RefreshLife.Seconds()), "/", "", false, true)
	c.SetCookie(authTypeCookie, "base", int(tokens.RefreshLife.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{"id": topicID})
}
