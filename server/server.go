package server

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server/backend"
)

type Server struct {
	// r is the gin router.
	r *gin.Engine

	// s is the underlying server.
	s *httptest.Server

	// b is the server backend, which manages accounts, sessions, subscribers and deliveries.
	b *backend.Backend

	// v validates request bodies.
	v *validator.Validate

	// callWatchers records callWatchers received by the server.
	callWatchers     []callWatcher
	callWatchersLock sync.RWMutex

	// minAppVersion is the minimum app version that the server will accept.
	minAppVersion     *semver.Version
	minAppVersionLock sync.RWMutex

	// rateLimit is the optional limit on calls made to the server.
	rateLimit *rateLimiter

	// offline is whether to pretend the server is offline and return 5xx errors.
	offline atomic.Bool
}

func New(opts ...Option) *Server {
	builder := newServerBuilder()

	for _, opt := range opts {
		opt.config(builder)
	}

	return builder.build()
}

func (s *Server) GetHostURL() string {
	return s.s.URL
}

func (s *Server) AddCallWatcher(fn func(Call), paths ...string) {
	s.callWatchersLock.Lock()
	defer s.callWatchersLock.Unlock()

	s.callWatchers = append(s.callWatchers, newCallWatcher(fn, paths...))
}

// CreateProducer registers a producer account and returns its topic ID.
func (s *Server) CreateProducer(username string, password []byte) (string, error) {
	return s.b.CreateAccount(username, password)
}

// GetPublicKey returns the VAPID public key handed out by /get_key.
func (s *Server) GetPublicKey() string {
	return s.b.GetPublicKey()
}

// GetSubscribers returns the stored subscribers of a topic, oldest first.
func (s *Server) GetSubscribers(topicID string) []postman.Subscriber {
	return s.b.GetSubscribers(topicID)
}

// ExpireSessions invalidates all access tokens; refresh tokens keep working.
func (s *Server) ExpireSessions() {
	s.b.ExpireSessions()
}

// RevokeSessions invalidates all tokens, so refreshing fails too.
func (s *Server) RevokeSessions() {
	s.b.RevokeSessions()
}

func (s *Server) SetAuthLife(authLife time.Duration) {
	s.b.SetAuthLife(authLife)
}

func (s *Server) SetMinAppVersion(version *semver.Version) {
	s.minAppVersionLock.Lock()
	defer s.minAppVersionLock.Unlock()

	s.minAppVersion = version
}

func (s *Server) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *Server) Close() {
	s.s.Close()
	s.b.Close()
}
