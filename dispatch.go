package postman

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// SendNotification submits a notification to the dispatch endpoint of the given topic, once.
// The request is never resent by the transport, even if its response is lost.
func (c *Client) SendNotification(ctx context.Context, topicID string, req SendNotificationReq) (DispatchResult, error) {
	var res DispatchResult

	if err := c.do(withoutRetry(ctx), func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("id", topicID).SetBody(req).SetResult(&res).Post("/notificate")
	}); err != nil {
		return DispatchResult{}, err
	}

	return res, nil
}

// Dispatcher delivers notification jobs, recovering from an expired session with one bounded retry.
type Dispatcher struct {
	c     *Client
	guard *SessionGuard

	maxAttempts int
}

func NewDispatcher(c *Client, guard *SessionGuard) *Dispatcher {
	return &Dispatcher{
		c:           c,
		guard:       guard,
		maxAttempts: DefaultSessionAttempts,
	}
}

// Send validates the job and submits it. If the session is rejected, it is refreshed once and the
// identical job is submitted once more; a second failure is reported as ErrDispatchFailed.
func (d *Dispatcher) Send(ctx context.Context, job NotificationJob) (DispatchResult, error) {
	if err := job.Validate(); err != nil {
		return DispatchResult{}, err
	}

	job = job.Normalize()

	req := SendNotificationReq{
		Recipients: job.Recipients,
		Message:    job.Message,
	}

	var attempts int

	res, err := WithSessionRetry(ctx, d.guard, d.maxAttempts, func(ctx context.Context) (DispatchResult, error) {
		attempts++
		return d.c.SendNotification(ctx, job.TopicID, req)
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"pkg":        "go-postman-api",
			"topic":      job.TopicID,
			"recipients": len(job.Recipients),
			"attempts":   attempts,
		}).WithError(err).Error("Failed to dispatch notification")

		return DispatchResult{Attempts: attempts}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	res.Attempts = attempts

	return res, nil
}
