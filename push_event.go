package postman

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
)

// PushEventHandler handles events delivered to the detached execution context.
// It holds only its injected capabilities: nothing is remembered from one event to the next.
type PushEventHandler struct {
	display NotificationDisplay
	windows WindowManager
	homeURL string
}

// NewPushEventHandler returns a handler whose home URL is cfg.HomeRoute resolved against cfg.Origin.
// The origin is required and must be absolute.
func NewPushEventHandler(display NotificationDisplay, windows WindowManager, cfg PushHandlerConfig) (*PushEventHandler, error) {
	homeURL, err := resolveHomeURL(cfg)
	if err != nil {
		return nil, err
	}

	return &PushEventHandler{
		display: display,
		windows: windows,
		homeURL: homeURL,
	}, nil
}

// HomeURL is the absolute URL focused or opened on click.
func (h *PushEventHandler) HomeURL() string {
	return h.homeURL
}

// OnPush shows a notification for the event. It never fails: errors and panics are logged and dropped.
func (h *PushEventHandler) OnPush(ctx context.Context, event PushEvent) {
	defer h.recover("push")

	payload := ParsePushPayload(event.Data, event.HasData)

	if err := h.display.ShowNotification(ctx, payload.Title, NotificationOptions{
		Body:    payload.Body,
		Vibrate: DefaultVibratePattern,
	}); err != nil {
		h.log().WithError(err).Error("Failed to show notification")
		return
	}

	h.log().WithField("title", payload.Title).Debug("Notification shown")
}

// OnNotificationClick dismisses the notification and focuses the home window, opening one if none is open.
func (h *PushEventHandler) OnNotificationClick(ctx context.Context, event NotificationClickEvent) {
	defer h.recover("notificationclick")

	if event.Notification != nil {
		event.Notification.Close()
	}

	clients, err := h.windows.MatchAll(ctx, MatchOptions{
		Type:                ClientTypeWindow,
		IncludeUncontrolled: true,
	})
	if err != nil {
		h.log().WithError(err).Warn("Failed to list windows, opening a new one")
	}

	for _, client := range clients {
		if client.URL() != h.homeURL {
			continue
		}

		if err := client.Focus(ctx); err != nil {
			h.log().WithError(err).Error("Failed to focus window")
		}

		return
	}

	if err := h.windows.OpenWindow(ctx, h.homeURL); err != nil {
		h.log().WithError(err).Error("Failed to open window")
	}
}

func (h *PushEventHandler) recover(event string) {
	if r := recover(); r != nil {
		h.log().WithField("event", event).Errorf("Recovered from panic: %v", r)
	}
}

func (h *PushEventHandler) log() *logrus.Entry {
	return logrus.WithField("pkg", "go-postman-api/push")
}

func resolveHomeURL(cfg PushHandlerConfig) (string, error) {
	route := cfg.HomeRoute
	if route == "" {
		route = "/"
	}

	ref, err := url.Parse(route)
	if err != nil {
		return "", fmt.Errorf("%w: invalid home route %q: %w", ErrValidation, route, err)
	}

	// Window clients report absolute URLs, so a relative home URL would never match one.
	base, err := url.Parse(cfg.Origin)
	if err != nil {
		return "", fmt.Errorf("%w: invalid origin %q: %w", ErrValidation, cfg.Origin, err)
	}

	if !base.IsAbs() || base.Host == "" {
		return "", fmt.Errorf("%w: origin %q is not an absolute URL", ErrValidation, cfg.Origin)
	}

	return base.ResolveReference(ref).String(), nil
}
