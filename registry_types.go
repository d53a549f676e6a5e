package postman

import "context"

type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PermissionProvider is the browser's notification permission.
type PermissionProvider interface {
	// Permission returns the current decision without prompting.
	Permission() PermissionState

	// RequestPermission prompts the user. It may block until the user answers.
	RequestPermission(ctx context.Context) (PermissionState, error)
}

type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushManager is the push provider of one execution context.
// Subscriptions it returns carry the ServerKey they were minted with.
type PushManager interface {
	GetSubscription(ctx context.Context) (PushSubscription, bool, error)
	Subscribe(ctx context.Context, opts SubscribeOptions) (PushSubscription, error)
	Unsubscribe(ctx context.Context) error
}

// ContextHandle is an installed push-handling execution context.
type ContextHandle interface {
	Scope() string
	PushManager() PushManager
}

// ContextRegistrar installs push-handling execution contexts for the browser profile.
type ContextRegistrar interface {
	// GetRegistration returns the context registered for scope, or nil if there is none.
	GetRegistration(ctx context.Context, scope string) (ContextHandle, error)

	Register(ctx context.Context, scriptURL, scope string) (ContextHandle, error)
}

type RegistryConfig struct {
	// TopicID is the producer whose subscriber list this registry feeds.
	TopicID string

	// ScriptURL is the script run by the execution context.
	ScriptURL string

	// Scope is the scope the execution context controls.
	Scope string
}

type UnsubscribeResult int

const (
	Unsubscribed UnsubscribeResult = iota + 1
	NoActiveSubscription
)

func (res UnsubscribeResult) String() string {
	switch res {
	case Unsubscribed:
		return "unsubscribed"

	case NoActiveSubscription:
		return "no active subscription"

	default:
		return "unknown"
	}
}

// MountState is what the subscription UI knows after mounting.
type MountState struct {
	Handle     ContextHandle
	Current    PushSubscription
	Subscribed bool
	Key        PublicKeyMaterial

	// Err is the context registration or lookup failure, if any.
	Err error

	// KeyErr is the key exchange failure, if any.
	KeyErr error
}

// CanSubscribe reports whether both the context handle and the key are known.
// The subscribe action must stay disabled until it does.
func (state MountState) CanSubscribe() bool {
	return state.Handle != nil && !state.Key.IsZero()
}
