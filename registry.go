package postman

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	DefaultScriptURL = "/service-worker.js"
	DefaultScope     = "/"
)

// Registry owns the single push subscription of a browser context and keeps the server store in sync.
type Registry struct {
	c     *Client
	guard *SessionGuard
	cfg   RegistryConfig

	perms     PermissionProvider
	registrar ContextRegistrar

	// writeLock makes subscribe and unsubscribe the single writer of the subscription slot.
	writeLock sync.Mutex
}

func NewRegistry(
	c *Client,
	guard *SessionGuard,
	cfg RegistryConfig,
	perms PermissionProvider,
	registrar ContextRegistrar,
) *Registry {
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = DefaultScriptURL
	}

	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}

	return &Registry{
		c:         c,
		guard:     guard,
		cfg:       cfg,
		perms:     perms,
		registrar: registrar,
	}
}

// Mount registers the execution context, looks up the current subscription and fetches the public key.
// The lookup and the key exchange run concurrently.
func (r *Registry) Mount(ctx context.Context) MountState {
	type current struct {
		handle ContextHandle
		sub    PushSubscription
		ok     bool
	}

	curJob := NewFuture(r.c.m.panicHandler, func() (current, error) {
		handle, err := r.RegisterExecutionContext(ctx)
		if err != nil {
			return current{}, err
		}

		sub, ok, err := r.GetCurrentSubscription(ctx, handle)
		if err != nil {
			return current{handle: handle}, err
		}

		return current{handle: handle, sub: sub, ok: ok}, nil
	})

	keyJob := NewFuture(r.c.m.panicHandler, func() (PublicKeyMaterial, error) {
		return r.c.GetPublicKey(ctx, r.cfg.TopicID)
	})

	cur, err := curJob.Get()
	key, keyErr := keyJob.Get()

	if err != nil {
		r.log().WithError(err).Error("Failed to prepare the execution context")
	}

	if keyErr != nil {
		r.log().WithError(keyErr).Error("Failed to fetch the public key")
	}

	return MountState{
		Handle:     cur.handle,
		Current:    cur.sub,
		Subscribed: cur.ok,
		Key:        key,
		Err:        err,
		KeyErr:     keyErr,
	}
}

// RegisterExecutionContext installs the push-handling context, or returns the one already installed.
func (r *Registry) RegisterExecutionContext(ctx context.Context) (ContextHandle, error) {
	handle, err := r.registrar.GetRegistration(ctx, r.cfg.Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	if handle != nil {
		return handle, nil
	}

	if handle, err = r.registrar.Register(ctx, r.cfg.ScriptURL, r.cfg.Scope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	r.log().WithField("scope", handle.Scope()).Info("Execution context registered")

	return handle, nil
}

// GetCurrentSubscription returns the active subscription of the context, if there is one.
func (r *Registry) GetCurrentSubscription(ctx context.Context, handle ContextHandle) (PushSubscription, bool, error) {
	if handle == nil {
		return PushSubscription{}, false, nil
	}

	sub, ok, err := handle.PushManager().GetSubscription(ctx)
	if err != nil {
		return PushSubscription{}, false, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if !ok {
		return PushSubscription{}, false, nil
	}

	sub.TopicID = r.cfg.TopicID

	return sub, true, nil
}

// Denied reports whether the user blocked notifications.
func (r *Registry) Denied() bool {
	return r.perms.Permission() == PermissionDenied
}

// Subscribe creates a push subscription bound to key and, if ownerName is not blank, stores it server side.
// The steps run strictly in order: permission, preconditions, provider, persistence.
// A persistence failure leaves the local subscription in place with Persisted set to false.
func (r *Registry) Subscribe(ctx context.Context, handle ContextHandle, key PublicKeyMaterial, ownerName string) (PushSubscription, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if err := r.requestPermission(ctx); err != nil {
		return PushSubscription{}, err
	}

	if handle == nil || key.IsZero() {
		return PushSubscription{}, ErrKeyMissing
	}

	sub, err := r.mint(ctx, handle.PushManager(), key)
	if err != nil {
		return PushSubscription{}, err
	}

	sub.OwnerName = strings.TrimSpace(ownerName)
	sub.TopicID = r.cfg.TopicID

	if sub.OwnerName == "" {
		return sub, nil
	}

	if err := r.persist(ctx, sub); err != nil {
		r.log().WithError(err).WithField("endpoint", sub.Endpoint).Warn("Subscribed locally but failed to store the subscription")
		return sub, nil
	}

	sub.Persisted = true

	return sub, nil
}

// Unsubscribe cancels the local subscription and then tells the server, best effort, after making sure
// the session is valid.
// With no active subscription it does nothing and makes no network call.
func (r *Registry) Unsubscribe(ctx context.Context, handle ContextHandle) (UnsubscribeResult, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if handle == nil {
		return NoActiveSubscription, nil
	}

	pm := handle.PushManager()

	sub, ok, err := pm.GetSubscription(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if !ok {
		return NoActiveSubscription, nil
	}

	if err := pm.Unsubscribe(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	// The server record may be left dangling here; that is accepted.
	if err := r.forget(ctx, sub.Endpoint); err != nil {
		r.log().WithError(err).WithField("endpoint", sub.Endpoint).Warn("Unsubscribed locally but failed to remove the server record")
	}

	return Unsubscribed, nil
}

func (r *Registry) requestPermission(ctx context.Context) error {
	state := r.perms.Permission()

	if state == PermissionDefault {
		var err error

		if state, err = r.perms.RequestPermission(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}

	if state != PermissionGranted {
		return ErrPermissionDenied
	}

	return nil
}

// mint asks the provider for a subscription bound to key, replacing one bound to another key.
func (r *Registry) mint(ctx context.Context, pm PushManager, key PublicKeyMaterial) (PushSubscription, error) {
	appKey, err := key.Bytes()
	if err != nil {
		return PushSubscription{}, fmt.Errorf("%w: malformed public key: %w", ErrProvider, err)
	}

	if cur, ok, err := pm.GetSubscription(ctx); err != nil {
		return PushSubscription{}, fmt.Errorf("%w: %w", ErrProvider, err)
	} else if ok && cur.ServerKey != key {
		if err := pm.Unsubscribe(ctx); err != nil {
			return PushSubscription{}, fmt.Errorf("%w: %w", ErrProvider, err)
		}

		r.log().WithField("endpoint", cur.Endpoint).Info("Superseded subscription bound to a previous key")

		if err := r.c.DeleteSubscription(ctx, cur.Endpoint); err != nil {
			r.log().WithError(err).WithField("endpoint", cur.Endpoint).Warn("Failed to remove the superseded server record")
		}
	}

	sub, err := pm.Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: appKey,
	})
	if err != nil {
		return PushSubscription{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if err := sub.Validate(); err != nil {
		return PushSubscription{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	sub.ServerKey = key

	return sub, nil
}

func (r *Registry) persist(ctx context.Context, sub PushSubscription) error {
	if _, err := r.guard.EnsureSession(ctx); err != nil {
		return err
	}

	return r.c.SaveSubscription(ctx, r.cfg.TopicID, sub.OwnerName, sub)
}

func (r *Registry) forget(ctx context.Context, endpoint string) error {
	if _, err := r.guard.EnsureSession(ctx); err != nil {
		return err
	}

	return r.c.DeleteSubscription(ctx, endpoint)
}

func (r *Registry) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"pkg":   "go-postman-api",
		"topic": r.cfg.TopicID,
	})
}
