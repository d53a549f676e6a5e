package postman

import (
	"fmt"
	"strings"

	"github.com/bradenaw/juniper/xslices"
)

// NotificationJob is one request to notify a named set of subscribers with a single message.
type NotificationJob struct {
	TopicID    string
	Message    string
	Recipients []string
}

// Normalize trims the recipients and drops the empty ones. Duplicates are kept.
func (job NotificationJob) Normalize() NotificationJob {
	recipients := xslices.Map(job.Recipients, strings.TrimSpace)

	job.Recipients = xslices.Filter(recipients, func(name string) bool {
		return name != ""
	})

	return job
}

// Validate checks the job client side; a job failing it is never sent.
func (job NotificationJob) Validate() error {
	if strings.TrimSpace(job.TopicID) == "" {
		return fmt.Errorf("%w: no topic", ErrValidation)
	}

	if strings.TrimSpace(job.Message) == "" {
		return fmt.Errorf("%w: empty message", ErrValidation)
	}

	if len(job.Normalize().Recipients) == 0 {
		return fmt.Errorf("%w: no recipients", ErrValidation)
	}

	return nil
}

type SendNotificationReq struct {
	Recipients []string `json:"recipients" validate:"min=1"`
	Message    string   `json:"message" validate:"required"`
}

// DispatchResult is the outcome of a delivered job.
type DispatchResult struct {
	// Status is the server's status for the job, passed through untouched.
	Status string `json:"status"`

	// Attempts is how many times the job was submitted.
	Attempts int `json:"-"`
}
