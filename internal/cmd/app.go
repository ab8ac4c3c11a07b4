package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	campaigndomain "bulk_mail_client/internal/pkg/campaign/domain"
	campaignusecase "bulk_mail_client/internal/pkg/campaign/usecase"
	"bulk_mail_client/internal/pkg/config"
	"bulk_mail_client/internal/pkg/gateway/gateway_service"
	"bulk_mail_client/internal/pkg/http_client"
	"bulk_mail_client/internal/pkg/logging"
	"bulk_mail_client/internal/pkg/notify/telegram_notifier"
	"bulk_mail_client/internal/pkg/session/file_storage"
	"bulk_mail_client/internal/pkg/session/postgres_storage"
	"bulk_mail_client/internal/pkg/session/usecase"
)

// app is the client wired for one command run.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	fs       afero.Fs
	telegram telegramFactory
	manager  *usecase.Manager
	gateway  *gateway_service.Client
	campaign *campaignusecase.Campaign
	closers  []func() error
}

func newApp(ctx context.Context, env *environment, opts *options) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.apiBaseURL != "" {
		cfg.APIBaseURL = opts.apiBaseURL
	}
	if opts.sessionFile != "" {
		cfg.SessionFile = opts.sessionFile
	}

	logger := logging.New(env.logOut, cfg.LogFormat, cfg.LogLevel)
	a := &app{cfg: cfg, logger: logger, out: env.out, fs: env.fs, telegram: env.telegram}

	storage, err := a.openStorage(ctx, opts.ephemeral)
	if err != nil {
		return nil, err
	}

	httpClient := http_client.NewLoggedClient(cfg.LogServerURL, cfg.HTTPTimeout, logger)
	a.manager = usecase.NewManager(storage, logger)
	a.gateway = gateway_service.NewClient(cfg.APIBaseURL, httpClient, a.manager, logger)
	a.manager.SetGateway(a.gateway, a.gateway)
	a.manager.SetNavigator(env.navigator(env.out, logger))

	a.campaign = campaignusecase.NewCampaign(a.gateway, a.manager, a.newNotifier(), logger)
	a.closers = append(a.closers, func() error {
		a.campaign.Close()
		return nil
	})

	if err := a.manager.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return a, nil
}

// openStorage picks where the session lives: memory, Postgres or a file.
func (a *app) openStorage(ctx context.Context, ephemeral bool) (usecase.Storage, error) {
	switch {
	case ephemeral:
		return usecase.NewMemoryStorage(), nil
	case a.cfg.SessionDatabaseURL != "":
		storage, err := postgres_storage.Open(ctx, a.cfg.SessionDatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, storage.Close)
		return storage, nil
	default:
		path := a.cfg.SessionFile
		if path == "" {
			defaultPath, err := file_storage.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = defaultPath
		}
		return file_storage.NewFileStorage(a.fs, path), nil
	}
}

func (a *app) newNotifier() campaignusecase.Notifier {
	if a.cfg.TelegramToken == "" {
		return telegram_notifier.Noop{}
	}
	return &lazyNotifier{build: func() campaignusecase.Notifier {
		notifier, err := a.telegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
		if err != nil {
			a.logger.Warn("telegram notifications disabled", "error", err)
			return telegram_notifier.Noop{}
		}
		return notifier
	}}
}

type telegramFactory func(token string, chatID int64) (campaignusecase.Notifier, error)

func newTelegramNotifier(token string, chatID int64) (campaignusecase.Notifier, error) {
	return telegram_notifier.New(token, chatID)
}

// lazyNotifier connects to the Bot API on the first notification, so only
// a command that actually sends pays for the handshake.
type lazyNotifier struct {
	build    func() campaignusecase.Notifier
	once     sync.Once
	notifier campaignusecase.Notifier
}

func (l *lazyNotifier) NotifySent(ctx context.Context, result campaigndomain.SendResult) error {
	l.once.Do(func() {
		l.notifier = l.build()
	})
	return l.notifier.NotifySent(ctx, result)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}
