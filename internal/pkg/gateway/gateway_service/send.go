package gateway_service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"bulk_mail_client/internal/pkg/session/domain"
)

// SendBulkEmails asks the backend to send prompt to every row. Empty input
// and a missing session are refused without a request.
func (c *Client) SendBulkEmails(ctx context.Context, prompt string, rows []Row) (string, error) {
	if err := c.validateSend(prompt, rows); err != nil {
		return "", err
	}
	if c.session == nil || c.session.AccessToken() == "" {
		return "", domain.ErrNotAuthenticated
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/send-bulk-emails/", sendRequest{
		Prompt:  prompt,
		CSVRows: rows,
	})
	if err != nil {
		return "", err
	}

	body, err := c.authorized(ctx, req)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := decode(body, &resp); err != nil {
		return "", err
	}

	c.logger.Info("bulk emails sent", "rows", len(rows))
	return resp.Message, nil
}

func (c *Client) validateSend(prompt string, rows []Row) error {
	err := c.validate.Struct(sendRequest{
		Prompt:  strings.TrimSpace(prompt),
		CSVRows: rows,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	switch fieldErrs[0].Field() {
	case "Prompt":
		return &ValidationError{Field: "prompt", Message: "email template is empty"}
	case "CSVRows":
		return &ValidationError{Field: "csv_rows", Message: "no recipients: upload a CSV first"}
	}
	return &ValidationError{Field: fieldErrs[0].Field(), Message: fieldErrs[0].Error()}
}
