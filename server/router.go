package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
)

const (
	accessCookie   = "ACCESS_TOKEN"
	refreshCookie  = "REFRESH_TOKEN"
	authTypeCookie = "AUTH_TYPE"
)

func initRouter(s *Server) {
	s.r.Use(
		s.requireValidAppVersion(),
	)

	// These routes are not protected by authentication.
	s.r.POST("/form-register", s.handlePostFormRegister())
	s.r.POST("/form-login", s.handlePostFormLogin())
	s.r.GET("/auth", s.handleGetAuth())
	s.r.GET("/auth_check", s.handleGetAuthCheck())
	s.r.GET("/logout", s.handleGetLogout())

	// These routes require auth.
	if api := s.r.Group("", s.requireAuth()); api != nil {
		api.GET("/get_key", s.handleGetKey())
		api.GET("/get_currentId", s.handleGetCurrentID())
		api.POST("/save-subscription/:topicID", s.handlePostSaveSubscription())
		api.POST("/unsubscribe", s.handlePostUnsubscribe())
		api.POST("/notificate", s.handlePostNotificate())
	}

	// Test routes don't need authentication.
	if tests := s.r.Group("/tests"); tests != nil {
		tests.GET("/ping", s.handleGetPing())
	}
}

func (s *Server) requireValidAppVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		appVersion := c.Request.Header.Get("x-pn-appversion")

		if appVersion == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, postman.APIError{
				Code:    postman.AppVersionMissingCode,
				Message: "Missing x-pn-appversion header",
			})
		} else if ok := s.validateAppVersion(appVersion); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, postman.APIError{
				Code:    postman.AppVersionBadCode,
				Message: "This version of the app is no longer supported, please update to continue using the app",
			})
		}
	}
}

func (s *Server) logCalls() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := io.ReadAll(c.Request.Body)
		if err != nil {
			panic(err)
		} else {
			c.Request.Body = io.NopCloser(bytes.NewReader(req))
		}

		res, err := newBodyWriter(c.Writer)
		if err != nil {
			panic(err)
		} else {
			c.Writer = res
		}

		c.Next()

		s.callWatchersLock.RLock()
		defer s.callWatchersLock.RUnlock()

		for _, call := range s.callWatchers {
			if call.isWatching(c.Request.URL.Path) {
				call.publish(Call{
					URL:    c.Request.URL,
					Method: c.Request.Method,
					Status: c.Writer.Status(),

					RequestHeader: c.Request.Header,
					RequestBody:   req,

					ResponseHeader: c.Writer.Header(),
					ResponseBody:   res.bytes(),
				})
			}
		}
	}
}

func (s *Server) handleOffline() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.offline.Load() {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
	}
}

// requireAuth accepts the request only with a valid access cookie and records the caller's topic.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		access, err := c.Cookie(accessCookie)
		if err != nil || access == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, postman.APIError{
				Code:    postman.Unauthorized,
				Message: "Not logged in",
			})

			return
		}

		topicID, err := s.b.VerifySession(access)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, postman.APIError{
				Code:    postman.Unauthorized,
				Message: "Invalid access token",
			})

			return
		}

		c.Set("TopicID", topicID)
	}
}

func (s *Server) validateAppVersion(appVersion string) bool {
	s.minAppVersionLock.RLock()
	defer s.minAppVersionLock.RUnlock()

	if s.minAppVersion == nil {
		return true
	}

	split := strings.Split(appVersion, "_")

	if len(split) != 2 {
		return false
	}

	version, err := semver.NewVersion(split[1])
	if err != nil {
		return false
	}

	return !version.LessThan(s.minAppVersion)
}
