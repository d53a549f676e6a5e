package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const defaultTTL = 60 * 60 * 24

// Pusher delivers one encrypted message to one subscription.
// The returned status is the push service's answer, or zero if none was received.
type Pusher interface {
	Push(ctx context.Context, sub *webpush.Subscription, payload []byte) (int, error)
}

// PushError is returned when the push service refused a message.
type PushError struct {
	Status int
	Body   string
}

func (err *PushError) Error() string {
	return fmt.Sprintf("push service answered %v: %v", err.Status, err.Body)
}

// WebPusher sends VAPID-signed, encrypted Web Push messages.
type WebPusher struct {
	publicKey  string
	privateKey string
	subscriber string

	client webpush.HTTPClient
}

func NewWebPusher(publicKey, privateKey, subscriber string, client webpush.HTTPClient) *WebPusher {
	if client == nil {
		client = http.DefaultClient
	}

	if subscriber == "" {
		subscriber = "postman@localhost"
	}

	return &WebPusher{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		client:     client,
	}
}

func (p *WebPusher) Push(ctx context.Context, sub *webpush.Subscription, payload []byte) (int, error) {
	res, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.subscriber,
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		TTL:             defaultTTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))

		return res.StatusCode, &PushError{Status: res.StatusCode, Body: string(body)}
	}

	return res.StatusCode, nil
}

// GenerateVAPIDKeys returns a new private and public VAPID key pair.
func GenerateVAPIDKeys() (string, string, error) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate VAPID keys: %w", err)
	}

	return priv, pub, nil
}
