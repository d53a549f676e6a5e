package postman

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// SaveSubscription stores the subscription server side under the given topic and owner name.
// A subscription without both keys is refused before any request is made.
func (c *Client) SaveSubscription(ctx context.Context, topicID, name string, sub PushSubscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(sub).SetPathParam("topicID", topicID).SetQueryParam("name", name).Post("/save-subscription/{topicID}")
	})
}

// DeleteSubscription removes the server record of the subscription with the given endpoint.
func (c *Client) DeleteSubscription(ctx context.Context, endpoint string) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(DeleteSubscriptionReq{Endpoint: endpoint}).Post("/unsubscribe")
	})
}
