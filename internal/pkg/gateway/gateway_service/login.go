package gateway_service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// InitiateLogin asks the backend for the Google authorization URL.
func (c *Client) InitiateLogin(ctx context.Context) (string, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/google-login/", nil)
	if err != nil {
		return "", err
	}

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := decode(body, &resp); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", fmt.Errorf("%w: auth_url is empty", ErrMalformedResponse)
	}
	if _, err := url.ParseRequestURI(resp.AuthURL); err != nil {
		return "", fmt.Errorf("%w: auth_url: %v", ErrMalformedResponse, err)
	}
	return resp.AuthURL, nil
}

// ExchangeCode hands an authorization code to the backend. The backend may
// answer with the session directly; otherwise the result is empty.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*CallbackResult, error) {
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "authorization code is empty"}
	}

	req, err := c.newJSONRequest(ctx, http.MethodGet, "/google-callback/?code="+url.QueryEscape(code), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{}
	if err := json.Unmarshal(body, result); err != nil {
		c.logger.Debug("code exchange returned a non-JSON body")
		return &CallbackResult{}, nil
	}
	return result, nil
}
