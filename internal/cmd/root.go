package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	campaigndomain "bulk_mail_client/internal/pkg/campaign/domain"
	"bulk_mail_client/internal/pkg/browser"
	"bulk_mail_client/internal/pkg/gateway/gateway_service"
	"bulk_mail_client/internal/pkg/session/domain"
	"bulk_mail_client/internal/pkg/session/usecase"
)

type options struct {
	apiBaseURL  string
	sessionFile string
	ephemeral   bool
}

// environment is what a command run touches outside the process.
type environment struct {
	out        io.Writer
	logOut     io.Writer
	fs         afero.Fs
	navigator  func(out io.Writer, logger *slog.Logger) usecase.Navigator
	telegram   telegramFactory
	loginGrace time.Duration
}

func defaultEnvironment() *environment {
	return &environment{
		out:    os.Stdout,
		logOut: os.Stderr,
		fs:     afero.NewOsFs(),
		navigator: func(out io.Writer, logger *slog.Logger) usecase.Navigator {
			return browser.NewNavigator(out, logger)
		},
		telegram:   newTelegramNotifier,
		loginGrace: 2 * time.Second,
	}
}

// Execute runs the client and returns the process exit code.
func Execute() int {
	env := defaultEnvironment()
	if err := newRootCommand(env).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		return 1
	}
	return 0
}

func newRootCommand(env *environment) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "bulk-mail",
		Short: "Send personalised emails to every row of a CSV file",
		Long: `bulk-mail signs you in with Google through the bulk email backend,
uploads a CSV of recipients and sends one rendered message per row.

Placeholders such as {name} in the message are replaced by the backend with
the matching column of each row.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.out)

	root.PersistentFlags().StringVar(&opts.apiBaseURL, "api", "", "backend base URL (default from API_BASE_URL)")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "where the session is kept (default from SESSION_FILE)")
	root.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")

	root.AddCommand(
		newLoginCommand(env, opts),
		newLogoutCommand(env, opts),
		newStatusCommand(env, opts),
		newUploadCommand(env, opts),
		newSendCommand(env, opts),
	)
	return root
}

// userMessage turns an error into the line shown to the user.
func userMessage(err error) string {
	var validationErr *gateway_service.ValidationError
	var apiErr *gateway_service.APIError

	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "Session expired. Please log in again."
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "Not signed in. Run `bulk-mail login` first."
	case errors.Is(err, domain.ErrLoginCancelled):
		return "Google sign-in was cancelled."
	case errors.Is(err, campaigndomain.ErrSendInProgress):
		return "A send is already in progress."
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return "Request failed: " + apiErr.Message
		}
		return fmt.Sprintf("Request failed with status %d.", apiErr.StatusCode)
	default:
		return "Error: " + err.Error()
	}
}
