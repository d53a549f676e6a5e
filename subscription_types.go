package postman

import (
	"errors"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// SubscriptionKeys are the two opaque values needed to encrypt a push message for an endpoint.
type SubscriptionKeys struct {
	// P256dh is the subscriber's public Diffie-Hellman key, base64url encoded.
	P256dh string `json:"p256dh" validate:"required"`

	// Auth is the subscriber's authentication secret, base64url encoded.
	Auth string `json:"auth" validate:"required"`
}

// PushSubscription is one browser endpoint able to receive push messages.
type PushSubscription struct {
	Endpoint string           `json:"endpoint" validate:"required,url"`
	Keys     SubscriptionKeys `json:"keys"`

	// OwnerName is the optional human label given by the subscriber.
	OwnerName string `json:"-"`

	// TopicID identifies the producer this subscription is tied to.
	TopicID string `json:"-"`

	// ServerKey is the public key the subscription was minted with.
	ServerKey PublicKeyMaterial `json:"-"`

	// Persisted is whether the server accepted the subscription.
	Persisted bool `json:"-"`
}

// Validate checks that the subscription could ever be used to deliver a message.
func (sub PushSubscription) Validate() error {
	if sub.Endpoint == "" {
		return errors.New("subscription has no endpoint")
	}

	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errors.New("subscription is missing its keys")
	}

	return nil
}

// ToWebPush converts the subscription into the Web Push wire type.
func (sub PushSubscription) ToWebPush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}
}

type DeleteSubscriptionReq struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// Subscriber is a named push subscription as stored by the server.
type Subscriber struct {
	ID      string
	TopicID string
	Name    string

	Subscription PushSubscription
	CreatedAt    time.Time
}
