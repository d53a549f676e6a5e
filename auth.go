package postman

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// CheckSession asks the authentication service whether the current session cookie is still valid.
func (c *Client) CheckSession(ctx context.Context) bool {
	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(c.m.authURL + "/auth_check")
	}); err != nil {
		logrus.WithField("pkg", "go-postman-api").WithError(err).Debug("Session is not valid")
		return false
	}

	return true
}

// RefreshSession exchanges the refresh cookie for a new access cookie.
func (c *Client) RefreshSession(ctx context.Context) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(c.m.authURL + "/auth")
	})
}

// Logout clears the session cookies.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(c.m.authURL + "/logout")
	})
}

// GetCurrentID returns the topic ID of the logged-in producer.
func (c *Client) GetCurrentID(ctx context.Context) (string, error) {
	var res struct {
		ID string `json:"id"`
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Get("/get_currentId")
	}); err != nil {
		return "", err
	}

	return res.ID, nil
}
