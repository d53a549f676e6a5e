package postman_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

// newTestClient registers a producer on s and returns a client logged in as it, with its topic ID.
func newTestClient(t *testing.T, s *server.Server, opts ...postman.Option) (*postman.Manager, *postman.Client, string) {
	t.Helper()

	m := postman.New(append([]postman.Option{
		postman.WithHostURL(s.GetHostURL()),
		postman.WithTransport(postman.InsecureTransport()),
	}, opts...)...)

	c, err := m.NewClientWithRegister(context.Background(), uuid.NewString(), []byte("password"))
	require.NoError(t, err)

	topicID, err := c.GetCurrentID(context.Background())
	require.NoError(t, err)

	return m, c, topicID
}

// countCalls counts the calls made to each of the given paths.
func countCalls(s *server.Server, paths ...string) func(string) int {
	var (
		counts = make(map[string]int)
		lock   sync.Mutex
	)

	s.AddCallWatcher(func(call server.Call) {
		lock.Lock()
		defer lock.Unlock()

		counts[call.URL.Path]++
	}, paths...)

	return func(path string) int {
		lock.Lock()
		defer lock.Unlock()

		return counts[path]
	}
}

// pushService is a fake push service that accepts every message with the configured status.
type pushService struct {
	ts *httptest.Server

	status   atomic.Int32
	received atomic.Int32

	headers     []http.Header
	headersLock sync.Mutex
}

func newPushService(t *testing.T) *pushService {
	ps := &pushService{}

	ps.status.Store(http.StatusCreated)

	ps.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.headersLock.Lock()
		ps.headers = append(ps.headers, r.Header.Clone())
		ps.headersLock.Unlock()

		ps.received.Add(1)

		w.WriteHeader(int(ps.status.Load()))
	}))

	t.Cleanup(ps.ts.Close)

	return ps
}

func (ps *pushService) newEndpoint() string {
	return ps.ts.URL + "/push/" + uuid.NewString()
}

// newSubscriptionKeys returns a real P-256 public key and auth secret, as a browser would.
func newSubscriptionKeys(t *testing.T) postman.SubscriptionKeys {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)

	_, err = rand.Read(auth)
	require.NoError(t, err)

	return postman.SubscriptionKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

type fakePermissions struct {
	state  postman.PermissionState
	answer postman.PermissionState

	prompts int
}

func (p *fakePermissions) Permission() postman.PermissionState {
	return p.state
}

func (p *fakePermissions) RequestPermission(context.Context) (postman.PermissionState, error) {
	p.prompts++
	p.state = p.answer

	return p.state, nil
}

type fakePushManager struct {
	t  *testing.T
	ps *pushService

	sub *postman.PushSubscription

	subscribeErr error

	subscribes   int
	unsubscribes int

	lock sync.Mutex
}

func (pm *fakePushManager) GetSubscription(context.Context) (postman.PushSubscription, bool, error) {
	pm.lock.Lock()
	defer pm.lock.Unlock()

	if pm.sub == nil {
		return postman.PushSubscription{}, false, nil
	}

	return *pm.sub, true, nil
}

func (pm *fakePushManager) Subscribe(_ context.Context, opts postman.SubscribeOptions) (postman.PushSubscription, error) {
	pm.lock.Lock()
	defer pm.lock.Unlock()

	pm.subscribes++

	if pm.subscribeErr != nil {
		return postman.PushSubscription{}, pm.subscribeErr
	}

	if !opts.UserVisibleOnly {
		return postman.PushSubscription{}, errors.New("subscriptions must be user visible")
	}

	key := postman.PublicKeyMaterial(base64.RawURLEncoding.EncodeToString(opts.ApplicationServerKey))

	if pm.sub != nil && pm.sub.ServerKey == key {
		return *pm.sub, nil
	}

	pm.sub = &postman.PushSubscription{
		Endpoint:  pm.ps.newEndpoint(),
		Keys:      newSubscriptionKeys(pm.t),
		ServerKey: key,
	}

	return *pm.sub, nil
}

func (pm *fakePushManager) Unsubscribe(context.Context) error {
	pm.lock.Lock()
	defer pm.lock.Unlock()

	pm.unsubscribes++
	pm.sub = nil

	return nil
}

type fakeHandle struct {
	scope string
	pm    *fakePushManager
}

func (h *fakeHandle) Scope() string {
	return h.scope
}

func (h *fakeHandle) PushManager() postman.PushManager {
	return h.pm
}

type fakeRegistrar struct {
	pm *fakePushManager

	handle        *fakeHandle
	registrations int
	registerErr   error

	lock sync.Mutex
}

func (r *fakeRegistrar) GetRegistration(context.Context, string) (postman.ContextHandle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.handle == nil {
		return nil, nil
	}

	return r.handle, nil
}

func (r *fakeRegistrar) Register(_ context.Context, _, scope string) (postman.ContextHandle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.registerErr != nil {
		return nil, r.registerErr
	}

	r.registrations++
	r.handle = &fakeHandle{scope: scope, pm: r.pm}

	return r.handle, nil
}

// browser is a fake browser profile able to hold one push subscription.
type browser struct {
	perms     *fakePermissions
	pm        *fakePushManager
	registrar *fakeRegistrar
}

func newBrowser(t *testing.T, ps *pushService, answer postman.PermissionState) *browser {
	pm := &fakePushManager{t: t, ps: ps}

	return &browser{
		perms:     &fakePermissions{state: postman.PermissionDefault, answer: answer},
		pm:        pm,
		registrar: &fakeRegistrar{pm: pm},
	}
}

type shownNotification struct {
	title string
	opts  postman.NotificationOptions
}

type fakeDisplay struct {
	shown []shownNotification
	err   error
}

func (d *fakeDisplay) ShowNotification(_ context.Context, title string, opts postman.NotificationOptions) error {
	if d.err != nil {
		return d.err
	}

	d.shown = append(d.shown, shownNotification{title: title, opts: opts})

	return nil
}

type fakeNotification struct {
	closed bool
}

func (n *fakeNotification) Close() {
	n.closed = true
}

type fakeWindow struct {
	url     string
	focused int
}

func (w *fakeWindow) URL() string {
	return w.url
}

func (w *fakeWindow) Focus(context.Context) error {
	w.focused++
	return nil
}

type fakeWindows struct {
	windows []*fakeWindow
	opened  []string

	matchOpts postman.MatchOptions
}

func (w *fakeWindows) MatchAll(_ context.Context, opts postman.MatchOptions) ([]postman.WindowClient, error) {
	w.matchOpts = opts

	clients := make([]postman.WindowClient, 0, len(w.windows))

	for _, window := range w.windows {
		clients = append(clients, window)
	}

	return clients, nil
}

func (w *fakeWindows) OpenWindow(_ context.Context, url string) error {
	w.opened = append(w.opened, url)
	return nil
}

// failingRoundTripper fails the first n requests with a dial-like error.
type failingRoundTripper struct {
	http.RoundTripper

	fail, cur int
}

func newFailingRoundTripper(fail int) http.RoundTripper {
	return &failingRoundTripper{
		RoundTripper: http.DefaultTransport,
		fail:         fail,
	}
}

func (rt *failingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.cur++; rt.cur <= rt.fail {
		return nil, errors.New("simulating network error")
	}

	return rt.RoundTripper.RoundTrip(req)
}

// lossyRoundTripper loses the responses of the first lose requests to path; a negative lose loses them all.
// If forward is set, the lost requests still reach the server.
type lossyRoundTripper struct {
	http.RoundTripper

	path    string
	lose    int32
	forward bool

	tries atomic.Int32
}

func newLossyRoundTripper(path string, lose int32, forward bool) *lossyRoundTripper {
	return &lossyRoundTripper{
		RoundTripper: postman.InsecureTransport(),
		path:         path,
		lose:         lose,
		forward:      forward,
	}
}

func (rt *lossyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path != rt.path {
		return rt.RoundTripper.RoundTrip(req)
	}

	if n := rt.tries.Add(1); rt.lose >= 0 && n > rt.lose {
		return rt.RoundTripper.RoundTrip(req)
	}

	if rt.forward {
		if res, err := rt.RoundTripper.RoundTrip(req); err == nil {
			res.Body.Close()
		}
	}

	return nil, errors.New("connection reset by peer")
}
