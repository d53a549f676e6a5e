package postman

import (
	"errors"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultHostURL is the default host of the notification API.
	DefaultHostURL = "http://localhost:8081"

	// DefaultAppVersion is the default app version used to communicate with the API.
	DefaultAppVersion = "go-postman-api"
)

type managerBuilder struct {
	hostURL       string
	authURL       string
	appVersion    string
	transport     http.RoundTripper
	cookieJar     http.CookieJar
	retryCount    int
	logger        resty.Logger
	debug         bool
	panicHandler  PanicHandler
	errorsToRetry []int
}

func newManagerBuilder() *managerBuilder {
	return &managerBuilder{
		hostURL:       DefaultHostURL,
		appVersion:    DefaultAppVersion,
		transport:     http.DefaultTransport,
		cookieJar:     nil,
		retryCount:    3,
		logger:        nil,
		debug:         false,
		panicHandler:  NoopPanicHandler{},
		errorsToRetry: []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
	}
}

func (builder *managerBuilder) build() *Manager {
	m := &Manager{
		rc: resty.New(),

		authURL: builder.authURL,
		status:  StatusUp,

		panicHandler: builder.panicHandler,
	}

	// The session lives in cookies, so every manager needs a jar of its own.
	if builder.cookieJar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			panic(err)
		}

		builder.cookieJar = jar
	}

	// Auth calls go to the notification host unless told otherwise.
	if m.authURL == "" {
		m.authURL = builder.hostURL
	}

	// Set the API host.
	m.rc.SetBaseURL(builder.hostURL)

	// Set the transport.
	m.rc.SetTransport(builder.transport)

	// Set the cookie jar.
	m.rc.SetCookieJar(builder.cookieJar)

	// Set the logger.
	if builder.logger != nil {
		m.rc.SetLogger(builder.logger)
	}

	// Set the debug flag.
	m.rc.SetDebug(builder.debug)

	// Set app version in header.
	m.rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("x-pn-appversion", builder.appVersion)
		return nil
	})

	// Set middleware.
	m.rc.OnAfterResponse(m.checkConnUp)
	m.rc.OnAfterResponse(catchAPIError)
	m.rc.OnError(m.checkConnDown)

	// Configure retry mechanism. Once conditions are set, resty retries only when one of them agrees,
	// and both refuse requests marked withoutRetry.
	m.rc.SetRetryCount(builder.retryCount)
	m.rc.SetRetryMaxWaitTime(time.Minute)
	m.rc.AddRetryCondition(builder.catchErrorsToRetry)
	m.rc.AddRetryCondition(catchDialError)
	m.rc.SetRetryAfter(builder.catchRetryAfter)

	// Set the data type of API errors.
	m.rc.SetError(&APIError{})

	return m
}

func (builder *managerBuilder) catchErrorsToRetry(res *resty.Response, _ error) bool {
	if res == nil || !isRetryable(res) {
		return false
	}

	for _, err := range builder.errorsToRetry {
		if err == res.StatusCode() {
			return true
		}
	}

	return false
}

// nolint:gosec
func (builder *managerBuilder) catchRetryAfter(_ *resty.Client, res *resty.Response) (time.Duration, error) {
	// 0 and no error means default behaviour which is exponential backoff with jitter.
	if !builder.catchErrorsToRetry(res, errors.New("")) {
		return 0, nil
	}

	// Parse the Retry-After header, or fallback to 10 seconds.
	after, err := strconv.Atoi(res.Header().Get("Retry-After"))
	if err != nil {
		after = 10
	}

	// Add some jitter to the delay.
	after += rand.Intn(10)

	logrus.WithFields(logrus.Fields{
		"pkg":    "go-postman-api",
		"status": res.StatusCode(),
		"url":    res.Request.URL,
		"method": res.Request.Method,
		"after":  after,
	}).Warn("Too many requests, retrying after delay")

	return time.Duration(after) * time.Second, nil
}
