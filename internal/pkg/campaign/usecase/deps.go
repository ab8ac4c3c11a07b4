package usecase

import (
	"context"
	"io"

	"bulk_mail_client/internal/pkg/campaign/domain"
	"bulk_mail_client/internal/pkg/gateway/gateway_service"
	sessiondomain "bulk_mail_client/internal/pkg/session/domain"
)

type Gateway interface {
	UploadCSV(ctx context.Context, name string, r io.Reader) ([]gateway_service.Row, error)
	SendBulkEmails(ctx context.Context, prompt string, rows []gateway_service.Row) (string, error)
}

type Session interface {
	Email() string
	Subscribe(fn func(sessiondomain.Event)) func()
}

// Notifier is told about finished sends. Its errors never fail a send.
type Notifier interface {
	NotifySent(ctx context.Context, result domain.SendResult) error
}
