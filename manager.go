package postman

import (
	"context"
	"errors"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Manager owns the HTTP transport and the cookie jar shared by its clients.
// One manager stands for one browser profile.
type Manager struct {
	rc *resty.Client

	authURL string

	status     Status
	observers  []StatusObserver
	statusLock sync.Mutex

	panicHandler PanicHandler
}

func New(opts ...Option) *Manager {
	builder := newManagerBuilder()

	for _, opt := range opts {
		opt.config(builder)
	}

	return builder.build()
}

// NewClient returns a client riding on whatever session the cookie jar currently holds.
func (m *Manager) NewClient() *Client {
	return newClient(m)
}

// NewClientWithLogin logs in through the form login endpoint and returns a client using the new session.
func (m *Manager) NewClientWithLogin(ctx context.Context, username string, password []byte) (*Client, error) {
	if err := m.formAuth(ctx, "/form-login", username, password); err != nil {
		return nil, err
	}

	return newClient(m), nil
}

// NewClientWithRegister registers a new producer account and returns a client using the new session.
func (m *Manager) NewClientWithRegister(ctx context.Context, username string, password []byte) (*Client, error) {
	if err := m.formAuth(ctx, "/form-register", username, password); err != nil {
		return nil, err
	}

	return newClient(m), nil
}

func (m *Manager) Ping(ctx context.Context) error {
	if res, err := m.r(ctx).Get("/tests/ping"); err != nil {
		if res != nil && res.RawResponse != nil {
			return err
		}

		return newNetError(err, "failed to ping")
	}

	return nil
}

func (m *Manager) AddStatusObserver(observer StatusObserver) {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	m.observers = append(m.observers, observer)
}

func (m *Manager) Close() {
	m.rc.GetClient().CloseIdleConnections()
}

func (m *Manager) formAuth(ctx context.Context, path, username string, password []byte) error {
	if _, err := m.r(ctx).SetBody(AuthReq{
		Username: username,
		Password: string(password),
	}).Post(m.authURL + path); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"pkg":  "go-postman-api",
		"user": username,
	}).Debug("Session established")

	return nil
}

func (m *Manager) r(ctx context.Context) *resty.Request {
	return m.rc.R().SetContext(ctx)
}

func (m *Manager) onConnUp() {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	if m.status == StatusUp {
		return
	}

	m.status = StatusUp

	for _, observer := range m.observers {
		observer(m.status)
	}
}

func (m *Manager) onConnDown() {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	if m.status == StatusDown {
		return
	}

	m.status = StatusDown

	for _, observer := range m.observers {
		observer(m.status)
	}
}

func (m *Manager) checkConnUp(_ *resty.Client, _ *resty.Response) error {
	m.onConnUp()

	return nil
}

func (m *Manager) checkConnDown(_ *resty.Request, err error) {
	// The server answered; whatever went wrong, the connection itself is fine.
	if resErr := new(resty.ResponseError); errors.As(err, &resErr) && resErr.Response != nil && resErr.Response.RawResponse != nil {
		return
	}

	m.onConnDown()
}
