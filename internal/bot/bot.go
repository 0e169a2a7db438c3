package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/middleware"
	"github.com/Proton-105/storefront-bot/pkg/config"
)

const (
	CommandStart = "/start"
	ModeWebhook  = "webhook"
)

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot     *telebot.Bot
	log         *slog.Logger
	router      *Router
	rateLimitMw *middleware.RateLimitMiddleware
}

// New builds a telegram bot instance configured according to the application settings.
func New(
	cfg config.BotConfig,
	log *slog.Logger,
	dispatcher *Dispatcher,
	reporter ErrorReporter,
	rateLimitMw *middleware.RateLimitMiddleware,
) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	tb, err := telebot.NewBot(settings(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot:     tb,
		log:         log,
		router:      NewRouter(dispatcher, log),
		rateLimitMw: rateLimitMw,
	}

	b.setupRouter(reporter)
	b.registerTelebotHandlers()

	return b, nil
}

func settings(cfg config.BotConfig, log *slog.Logger) telebot.Settings {
	s := telebot.Settings{
		Token: cfg.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == ModeWebhook {
		s.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		s.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	return s
}

// Start runs the telegram bot event loop until Stop is called.
func (b *Bot) Start(ctx context.Context) {
	if b.telebot == nil {
		return
	}

	b.router.SetBaseContext(ctx)
	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(reporter ErrorReporter) {
	b.router.Use(RecoveryMiddleware(b.log, reporter))
	b.router.Use(ErrorHandlingMiddleware(reporter))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)
}

func (b *Bot) registerTelebotHandlers() {
	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.telebot.Handle(CommandStart, b.router.Route)
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
