package gateway_service

import (
	"context"
	"net/http"
)

// Logout notifies the backend. It carries no token; callers treat failure
// as non-blocking.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/logout/", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}
