package postman_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server"
	"github.com/stretchr/testify/require"
)

type registryEnv struct {
	s  *server.Server
	m  *postman.Manager
	c  *postman.Client
	ps *pushService
	b  *browser
	r  *postman.Registry

	topicID string
}

func newRegistryEnv(t *testing.T, answer postman.PermissionState, opts ...postman.Option) *registryEnv {
	s := server.New()
	t.Cleanup(s.Close)

	m, c, topicID := newTestClient(t, s, opts...)
	t.Cleanup(m.Close)

	ps := newPushService(t)
	b := newBrowser(t, ps, answer)

	return &registryEnv{
		s:       s,
		m:       m,
		c:       c,
		ps:      ps,
		b:       b,
		r:       postman.NewRegistry(c, postman.NewSessionGuard(c), postman.RegistryConfig{TopicID: topicID}, b.perms, b.registrar),
		topicID: topicID,
	}
}

func TestRegistry_Mount(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())
	require.NoError(t, state.Err)
	require.NoError(t, state.KeyErr)
	require.True(t, state.CanSubscribe())
	require.False(t, state.Subscribed)
	require.Equal(t, postman.DefaultScope, state.Handle.Scope())
	require.Equal(t, env.s.GetPublicKey(), string(state.Key))

	// Mounting again reuses the registered context.
	state = env.r.Mount(context.Background())
	require.NoError(t, state.Err)
	require.Equal(t, 1, env.b.registrar.registrations)
}

func TestRegistry_Mount_KeyUnavailable(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted, postman.WithRetryCount(0))

	env.s.SetOffline(true)

	state := env.r.Mount(context.Background())
	require.ErrorIs(t, state.KeyErr, postman.ErrKeyUnavailable)
	require.NotNil(t, state.Handle)
	require.False(t, state.CanSubscribe())
}

func TestRegistry_Mount_RegistrationFails(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	env.b.registrar.registerErr = errors.New("no service workers here")

	state := env.r.Mount(context.Background())
	require.ErrorIs(t, state.Err, postman.ErrRegistration)
	require.False(t, state.CanSubscribe())
}

func TestRegistry_Subscribe(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())
	require.True(t, state.CanSubscribe())

	sub, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "  alice ")
	require.NoError(t, err)
	require.True(t, sub.Persisted)
	require.Equal(t, "alice", sub.OwnerName)
	require.Equal(t, env.topicID, sub.TopicID)
	require.Equal(t, state.Key, sub.ServerKey)

	// The permission prompt was shown once.
	require.Equal(t, 1, env.b.perms.prompts)

	subs := env.s.GetSubscribers(env.topicID)
	require.Len(t, subs, 1)
	require.Equal(t, "alice", subs[0].Name)
	require.Equal(t, sub.Endpoint, subs[0].Subscription.Endpoint)

	// The server confirms the new subscription with a push.
	require.Eventually(t, func() bool { return env.ps.received.Load() == 1 }, waitFor, tick)

	// The subscription is now current.
	state = env.r.Mount(context.Background())
	require.True(t, state.Subscribed)
	require.Equal(t, sub.Endpoint, state.Current.Endpoint)
}

func TestRegistry_Subscribe_PermissionDenied(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionDenied)

	calls := countCalls(env.s, "/save-subscription/"+env.topicID)

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.ErrorIs(t, err, postman.ErrPermissionDenied)
	require.True(t, env.r.Denied())

	// Nothing was asked of the provider or the server.
	require.Zero(t, env.b.pm.subscribes)
	require.Zero(t, calls("/save-subscription/"+env.topicID))
}

func TestRegistry_Subscribe_PermissionDismissed(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionDefault)

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.ErrorIs(t, err, postman.ErrPermissionDenied)
	require.Zero(t, env.b.pm.subscribes)
}

func TestRegistry_Subscribe_KeyMissing(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, "", "alice")
	require.ErrorIs(t, err, postman.ErrKeyMissing)

	_, err = env.r.Subscribe(context.Background(), nil, state.Key, "alice")
	require.ErrorIs(t, err, postman.ErrKeyMissing)

	require.Zero(t, env.b.pm.subscribes)
}

func TestRegistry_Subscribe_ProviderFails(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	env.b.pm.subscribeErr = errors.New("push service unreachable")

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.ErrorIs(t, err, postman.ErrProvider)
	require.Empty(t, env.s.GetSubscribers(env.topicID))
}

func TestRegistry_Subscribe_BlankName(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	calls := countCalls(env.s, "/save-subscription/"+env.topicID)

	state := env.r.Mount(context.Background())

	sub, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "   ")
	require.NoError(t, err)
	require.False(t, sub.Persisted)
	require.NotEmpty(t, sub.Endpoint)

	// A subscription without a name stays local.
	require.Zero(t, calls("/save-subscription/"+env.topicID))
}

func TestRegistry_Subscribe_PersistFails(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	env.s.RevokeSessions()

	sub, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)
	require.False(t, sub.Persisted)

	// The local subscription survives.
	_, ok, err := env.b.pm.GetSubscription(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, env.s.GetSubscribers(env.topicID))
}

func TestRegistry_Subscribe_ExpiredSession(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	calls := countCalls(env.s, "/auth")

	state := env.r.Mount(context.Background())

	env.s.ExpireSessions()

	sub, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)
	require.True(t, sub.Persisted)
	require.Equal(t, 1, calls("/auth"))
}

func TestRegistry_Subscribe_Idempotent(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	first, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)

	second, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)

	require.Equal(t, first.Endpoint, second.Endpoint)
	require.Zero(t, env.b.pm.unsubscribes)
	require.Len(t, env.s.GetSubscribers(env.topicID), 1)
}

func TestRegistry_Subscribe_Supersedes(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	first, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)

	// The server now hands out another key.
	_, otherKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	second, err := env.r.Subscribe(context.Background(), state.Handle, postman.PublicKeyMaterial(otherKey), "alice")
	require.NoError(t, err)

	require.NotEqual(t, first.Endpoint, second.Endpoint)
	require.Equal(t, 1, env.b.pm.unsubscribes)
	require.Equal(t, postman.PublicKeyMaterial(otherKey), second.ServerKey)

	// The superseded record is gone from the server.
	subs := env.s.GetSubscribers(env.topicID)
	require.Len(t, subs, 1)
	require.Equal(t, second.Endpoint, subs[0].Subscription.Endpoint)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)
	require.Len(t, env.s.GetSubscribers(env.topicID), 1)

	res, err := env.r.Unsubscribe(context.Background(), state.Handle)
	require.NoError(t, err)
	require.Equal(t, postman.Unsubscribed, res)
	require.Empty(t, env.s.GetSubscribers(env.topicID))

	_, ok, err := env.b.pm.GetSubscription(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistry_Unsubscribe_ExpiredSession(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)

	calls := countCalls(env.s, "/auth", "/unsubscribe")

	env.s.ExpireSessions()

	res, err := env.r.Unsubscribe(context.Background(), state.Handle)
	require.NoError(t, err)
	require.Equal(t, postman.Unsubscribed, res)

	// The session is refreshed first, so the server record is removed too.
	require.Equal(t, 1, calls("/auth"))
	require.Equal(t, 1, calls("/unsubscribe"))
	require.Empty(t, env.s.GetSubscribers(env.topicID))
}

func TestRegistry_Unsubscribe_NoSubscription(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted)

	calls := countCalls(env.s, "/unsubscribe")

	state := env.r.Mount(context.Background())

	res, err := env.r.Unsubscribe(context.Background(), state.Handle)
	require.NoError(t, err)
	require.Equal(t, postman.NoActiveSubscription, res)

	res, err = env.r.Unsubscribe(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, postman.NoActiveSubscription, res)

	// Nothing to cancel means no network call.
	require.Zero(t, calls("/unsubscribe"))
}

func TestRegistry_Unsubscribe_ServerFails(t *testing.T) {
	env := newRegistryEnv(t, postman.PermissionGranted, postman.WithRetryCount(0))

	state := env.r.Mount(context.Background())

	_, err := env.r.Subscribe(context.Background(), state.Handle, state.Key, "alice")
	require.NoError(t, err)

	env.s.SetOffline(true)

	res, err := env.r.Unsubscribe(context.Background(), state.Handle)
	require.NoError(t, err)
	require.Equal(t, postman.Unsubscribed, res)

	// The local subscription is gone; the server record is left behind.
	_, ok, err := env.b.pm.GetSubscription(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, env.s.GetSubscribers(env.topicID), 1)
}
