package postman

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// clientID is a unique identifier for a client.
var clientID uint64

// Handler is a generic function that can be registered for a certain event (e.g. deauth).
type Handler func()

// Client is the postman client. Its session lives in the manager's cookie jar.
type Client struct {
	m *Manager

	// clientID is this client's unique ID.
	clientID uint64

	deauthHandlers []Handler
	hookLock       sync.RWMutex

	deauthOnce sync.Once
}

func newClient(m *Manager) *Client {
	return &Client{
		m:        m,
		clientID: atomic.AddUint64(&clientID, 1),
	}
}

// AddDeauthHandler registers a handler called once when the session is lost for good.
// This is where the caller redirects the user to the login flow.
func (c *Client) AddDeauthHandler(handler Handler) {
	c.hookLock.Lock()
	defer c.hookLock.Unlock()

	c.deauthHandlers = append(c.deauthHandlers, handler)
}

func (c *Client) AddPreRequestHook(hook resty.RequestMiddleware) {
	c.hookLock.Lock()
	defer c.hookLock.Unlock()

	c.m.rc.OnBeforeRequest(func(rc *resty.Client, r *resty.Request) error {
		if clientID, ok := ClientIDFromContext(r.Context()); !ok || clientID != c.clientID {
			return nil
		}

		return hook(rc, r)
	})
}

func (c *Client) AddPostRequestHook(hook resty.ResponseMiddleware) {
	c.hookLock.Lock()
	defer c.hookLock.Unlock()

	c.m.rc.OnAfterResponse(func(rc *resty.Client, r *resty.Response) error {
		if clientID, ok := ClientIDFromContext(r.Request.Context()); !ok || clientID != c.clientID {
			return nil
		}

		return hook(rc, r)
	})
}

func (c *Client) Close() {
	c.hookLock.Lock()
	defer c.hookLock.Unlock()

	c.deauthHandlers = nil
}

func (c *Client) do(ctx context.Context, fn func(*resty.Request) (*resty.Response, error)) error {
	if _, err := c.doRes(ctx, fn); err != nil {
		return err
	}

	return nil
}

func (c *Client) doRes(ctx context.Context, fn func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	// Perform the request.
	res, err := fn(c.m.r(WithClient(ctx, c.clientID)))

	// If we receive no response, we can't do anything.
	if res == nil || res.RawResponse == nil {
		return nil, newNetError(err, "received no response from API")
	}

	return res, err
}

func (c *Client) deauth() {
	c.deauthOnce.Do(func() {
		c.hookLock.RLock()
		defer c.hookLock.RUnlock()

		for _, handler := range c.deauthHandlers {
			handler()
		}
	})
}
