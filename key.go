package postman

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// GetPublicKey fetches the server's push public key for the given topic.
// It does not retry; any failure is reported as ErrKeyUnavailable and no subscription may be attempted.
func (c *Client) GetPublicKey(ctx context.Context, topicID string) (PublicKeyMaterial, error) {
	var res struct {
		Key PublicKeyMaterial `json:"key"`
	}

	if err := c.do(withoutRetry(ctx), func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("id", topicID).SetResult(&res).Get("/get_key")
	}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}

	if res.Key.IsZero() {
		return "", fmt.Errorf("%w: server returned an empty key", ErrKeyUnavailable)
	}

	return res.Key, nil
}
