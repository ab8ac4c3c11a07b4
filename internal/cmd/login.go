package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bulk_mail_client/internal/pkg/session/domain"
	"bulk_mail_client/internal/pkg/web_server/web_server_service"
)

var ErrLoginTimeout = errors.New("timed out waiting for Google sign-in")

func newLoginCommand(env *environment, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Long: `Starts a local callback listener, opens the Google consent page and waits
until the backend redirects back with a session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), env, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.login(cmd.Context(), env.loginGrace)
		},
	}
}

func (a *app) login(ctx context.Context, grace time.Duration) error {
	if current := a.manager.Current(); current.IsAuthenticated() {
		fmt.Fprintf(a.out, "Already signed in as %s.\n", current.Email)
		return nil
	}

	signedIn := make(chan domain.Session, 1)
	unsubscribe := a.manager.Subscribe(func(event domain.Event) {
		if event.Reason != domain.ReasonLogin {
			return
		}
		select {
		case signedIn <- event.Session:
		default:
		}
	})
	defer unsubscribe()

	ws := web_server_service.NewWebServer(a.manager, a.gateway, a.cfg.CallbackAddr, a.logger)
	if err := ws.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ws.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	if err := a.manager.Login(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(a.cfg.LoginTimeout)
	defer timer.Stop()

	select {
	case session := <-signedIn:
		fmt.Fprintf(a.out, "Signed in as %s.\n", session.Email)
		// Let the browser load the page it is redirected to.
		time.Sleep(grace)
		return nil
	case err := <-ws.Failures():
		return err
	case <-timer.C:
		return ErrLoginTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
