package postman

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultSessionAttempts is the number of times a protected call is submitted at most:
// the first attempt plus one retry after a session refresh.
const DefaultSessionAttempts = 2

// Authenticator is the authentication service as seen by the session guard.
type Authenticator interface {
	// CheckSession reports whether the current session is valid.
	CheckSession(ctx context.Context) bool

	// RefreshSession tries once to obtain a fresh session.
	RefreshSession(ctx context.Context) error
}

// SessionGuard makes sure a valid session exists before a protected call.
// It keeps no verdict between calls: every protected operation pays one validity check.
type SessionGuard struct {
	auth Authenticator
}

func NewSessionGuard(auth Authenticator) *SessionGuard {
	return &SessionGuard{auth: auth}
}

// EnsureSession checks the session and refreshes it once if it is invalid.
// If the refresh fails too, ErrUnauthenticated is returned and the caller must send the user to login.
func (g *SessionGuard) EnsureSession(ctx context.Context) (SessionState, error) {
	if g.auth.CheckSession(ctx) {
		return SessionActive, nil
	}

	if err := g.Refresh(ctx); err != nil {
		g.deauth()
		return 0, err
	}

	return SessionRefreshed, nil
}

// Refresh performs exactly one refresh attempt.
func (g *SessionGuard) Refresh(ctx context.Context) error {
	if err := g.auth.RefreshSession(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return nil
}

func (g *SessionGuard) deauth() {
	if d, ok := g.auth.(interface{ deauth() }); ok {
		d.deauth()
	}
}

// WithSessionRetry runs op and, each time it fails with a session failure, refreshes the session once
// and runs op again, up to maxAttempts runs in total. Other errors are returned at once.
// The resubmission happens even if the refresh failed; if the last run still fails,
// the refresh error (ErrUnauthenticated) is joined to the returned error.
func WithSessionRetry[T any](
	ctx context.Context,
	guard *SessionGuard,
	maxAttempts int,
	op func(context.Context) (T, error),
) (T, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		val        T
		err        error
		refreshErr error
	)

	for attempt := 1; ; attempt++ {
		if val, err = op(ctx); err == nil {
			return val, nil
		}

		if !IsSessionFailure(err) || attempt >= maxAttempts || ctx.Err() != nil {
			break
		}

		logrus.WithFields(logrus.Fields{
			"pkg":     "go-postman-api",
			"attempt": attempt,
		}).WithError(err).Info("Session rejected, refreshing before retry")

		if refreshErr = guard.Refresh(ctx); refreshErr != nil {
			logrus.WithField("pkg", "go-postman-api").WithError(refreshErr).Warn("Session refresh failed")
		}
	}

	if refreshErr != nil {
		guard.deauth()
		return val, errors.Join(err, refreshErr)
	}

	return val, err
}
