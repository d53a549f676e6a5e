package server

import (
	"io"
	"net"
	"net/http/httptest"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/postman-push/go-postman-api/server/backend"
)

type serverBuilder struct {
	withTLS       bool
	listener      net.Listener
	logger        io.Writer
	minAppVersion *semver.Version
	rateLimiter   *rateLimiter
	backend       backend.Config
}

func newServerBuilder() *serverBuilder {
	var logger io.Writer

	if os.Getenv("POSTMAN_SERVER_LOGGER_ENABLED") != "" {
		logger = gin.DefaultWriter
	} else {
		logger = io.Discard
	}

	return &serverBuilder{
		withTLS: true,
		logger:  logger,
		backend: backend.Config{
			AuthLife:    5 * time.Minute,
			RefreshLife: 30 * 24 * time.Hour,
		},
	}
}

func (builder *serverBuilder) build() *Server {
	gin.SetMode(gin.ReleaseMode)

	b, err := backend.New(builder.backend)
	if err != nil {
		panic(err)
	}

	s := &Server{
		r: gin.New(),
		b: b,
		v: validator.New(),

		minAppVersion: builder.minAppVersion,
		rateLimit:     builder.rateLimiter,
	}

	s.s = httptest.NewUnstartedServer(s.r)

	if builder.listener != nil {
		s.s.Listener.Close()
		s.s.Listener = builder.listener
	}

	if builder.withTLS {
		s.s.StartTLS()
	} else {
		s.s.Start()
	}

	s.r.Use(
		gin.LoggerWithConfig(gin.LoggerConfig{Output: builder.logger}),
		gin.Recovery(),
		s.logCalls(),
		s.handleOffline(),
		s.handleRateLimit(),
	)

	initRouter(s)

	return s
}

// Option represents a type that can be used to configure the server.
type Option interface {
	config(*serverBuilder)
}

// WithTLS controls whether the server should serve over TLS.
func WithTLS(tls bool) Option {
	return &withTLS{
		withTLS: tls,
	}
}

type withTLS struct {
	withTLS bool
}

func (opt withTLS) config(builder *serverBuilder) {
	builder.withTLS = opt.withTLS
}

// WithListener makes the server accept connections on l instead of a random local port.
func WithListener(l net.Listener) Option {
	return &withListener{
		listener: l,
	}
}

type withListener struct {
	listener net.Listener
}

func (opt withListener) config(builder *serverBuilder) {
	builder.listener = opt.listener
}

// WithLogger controls where Gin logs to.
func WithLogger(logger io.Writer) Option {
	return &withLogger{
		logger: logger,
	}
}

type withLogger struct {
	logger io.Writer
}

func (opt withLogger) config(builder *serverBuilder) {
	builder.logger = opt.logger
}

// WithMinAppVersion makes the server refuse clients older than version.
func WithMinAppVersion(version *semver.Version) Option {
	return &withMinAppVersion{
		version: version,
	}
}

type withMinAppVersion struct {
	version *semver.Version
}

func (opt withMinAppVersion) config(builder *serverBuilder) {
	builder.minAppVersion = opt.version
}

func WithRateLimit(limit int, window time.Duration) Option {
	return &withRateLimit{
		limit:  limit,
		window: window,
	}
}

type withRateLimit struct {
	limit  int
	window time.Duration
}

func (opt withRateLimit) config(builder *serverBuilder) {
	builder.rateLimiter = newRateLimiter(opt.limit, opt.window)
}

// WithAuthLife sets how long access tokens stay valid.
func WithAuthLife(authLife time.Duration) Option {
	return &withAuthLife{
		authLife: authLife,
	}
}

type withAuthLife struct {
	authLife time.Duration
}

func (opt withAuthLife) config(builder *serverBuilder) {
	builder.backend.AuthLife = opt.authLife
}

// WithSigningKey sets the key session tokens are signed with.
func WithSigningKey(key []byte) Option {
	return &withSigningKey{
		key: key,
	}
}

type withSigningKey struct {
	key []byte
}

func (opt withSigningKey) config(builder *serverBuilder) {
	builder.backend.SigningKey = opt.key
}

// WithVAPIDKeys sets the key pair the server identifies itself with to push services.
func WithVAPIDKeys(publicKey, privateKey, subscriber string) Option {
	return &withVAPIDKeys{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

type withVAPIDKeys struct {
	publicKey  string
	privateKey string
	subscriber string
}

func (opt withVAPIDKeys) config(builder *serverBuilder) {
	builder.backend.VAPIDPublicKey = opt.publicKey
	builder.backend.VAPIDPrivateKey = opt.privateKey
	builder.backend.VAPIDSubscriber = opt.subscriber
}

// WithPusher replaces the Web Push sender.
func WithPusher(pusher backend.Pusher) Option {
	return &withPusher{
		pusher: pusher,
	}
}

type withPusher struct {
	pusher backend.Pusher
}

func (opt withPusher) config(builder *serverBuilder) {
	builder.backend.Pusher = opt.pusher
}

// WithDispatch sets the number of delivery workers and the deliveries allowed per second.
func WithDispatch(workers, ratePerSec int) Option {
	return &withDispatch{
		workers:    workers,
		ratePerSec: ratePerSec,
	}
}

type withDispatch struct {
	workers    int
	ratePerSec int
}

func (opt withDispatch) config(builder *serverBuilder) {
	builder.backend.Workers = opt.workers
	builder.backend.RatePerSec = opt.ratePerSec
}
