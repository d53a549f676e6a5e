package postman

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

type Code int

const (
	SuccessCode           Code = 1000
	InvalidValue          Code = 2001
	AlreadyExists         Code = 2500
	NotFound              Code = 2501
	Forbidden             Code = 2011
	AppVersionMissingCode Code = 5001
	AppVersionBadCode     Code = 5003
	Unauthorized          Code = 10013
	TooManyRequestsCode   Code = 85131
)

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	// Status is the HTTP status code.
	Status int `json:"-"`

	// Code is the API error code, if the body carried one.
	Code Code

	// Message is the error message, or the HTTP status text.
	Message string `json:"Error"`
}

func (err APIError) Error() string {
	return fmt.Sprintf("%v (Code=%v, Status=%v)", err.Message, err.Code, err.Status)
}

// NetError is returned when the API could not be reached at all.
type NetError struct {
	// Cause is the underlying error which caused the network error.
	Cause error

	// Message is an optional message describing the error.
	Message string
}

func newNetError(err error, message string) *NetError {
	return &NetError{Cause: err, Message: message}
}

func (err *NetError) Error() string {
	return fmt.Sprintf("%s: %v", err.Message, err.Cause)
}

func (err *NetError) Unwrap() error {
	return err.Cause
}

// IsSessionFailure reports whether err means the session was rejected.
// A request that got no response at all is treated the same as an explicit 401.
func IsSessionFailure(err error) bool {
	if err == nil {
		return false
	}

	if apiErr := new(APIError); errors.As(err, apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}

	if netErr := new(NetError); errors.As(err, &netErr) {
		return true
	}

	return false
}

func catchAPIError(_ *resty.Client, res *resty.Response) error {
	if !res.IsError() {
		return nil
	}

	var apiErr APIError

	if err, ok := res.Error().(*APIError); ok && err != nil {
		apiErr = *err
	}

	apiErr.Status = res.StatusCode()

	if apiErr.Message == "" {
		apiErr.Message = res.Status()
	}

	return apiErr
}

func catchDialError(res *resty.Response, _ error) bool {
	if res != nil && !isRetryable(res) {
		return false
	}

	return res == nil || res.RawResponse == nil
}

// isRetryable reports whether the request behind res may be sent again.
func isRetryable(res *resty.Response) bool {
	if res.Request == nil {
		return true
	}

	return retryAllowed(res.Request.Context())
}
