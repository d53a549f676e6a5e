package postman

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	DefaultNotificationTitle = "📢 Notification"
	DefaultNotificationBody  = "New message"
)

// DefaultVibratePattern is the tactile feedback played with every notification.
var DefaultVibratePattern = []int{100, 50, 100}

// InboundPushPayload is what a push event asks to show.
type InboundPushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ParsePushPayload turns raw push data into a payload with a non-empty title and body.
// Structured data overrides the defaults field by field; data that is not a JSON object becomes the body;
// absent data yields the defaults.
func ParsePushPayload(data []byte, hasData bool) InboundPushPayload {
	payload := InboundPushPayload{
		Title: DefaultNotificationTitle,
		Body:  DefaultNotificationBody,
	}

	if !hasData {
		return payload
	}

	var fields map[string]any

	if err := json.Unmarshal(data, &fields); err != nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			payload.Body = text
		}

		return payload
	}

	if title, ok := fields["title"].(string); ok && strings.TrimSpace(title) != "" {
		payload.Title = title
	}

	if body, ok := fields["body"].(string); ok && strings.TrimSpace(body) != "" {
		payload.Body = body
	}

	return payload
}

// PushEvent is one inbound push. Data is nil-safe: HasData is false when the push carried nothing.
type PushEvent struct {
	Data    []byte
	HasData bool
}

type NotificationOptions struct {
	Body    string
	Vibrate []int
}

// NotificationDisplay shows system notifications from the execution context.
type NotificationDisplay interface {
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
}

// Notification is a notification currently on screen.
type Notification interface {
	Close()
}

type NotificationClickEvent struct {
	Notification Notification
}

type ClientType string

const ClientTypeWindow ClientType = "window"

type MatchOptions struct {
	Type                ClientType
	IncludeUncontrolled bool
}

// WindowClient is an open application window or tab.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
}

// WindowManager enumerates and opens application windows.
type WindowManager interface {
	MatchAll(ctx context.Context, opts MatchOptions) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
}

type PushHandlerConfig struct {
	// Origin is the absolute application origin, e.g. "https://app.example". It is required.
	Origin string

	// HomeRoute is the route focused or opened on click. Defaults to "/".
	HomeRoute string
}
