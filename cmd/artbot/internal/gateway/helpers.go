package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinyland-inc/artbot/cmd/artbot/internal"
	"github.com/tinyland-inc/artbot/pkg/batch"
	"github.com/tinyland-inc/artbot/pkg/bus"
	"github.com/tinyland-inc/artbot/pkg/catalog"
	"github.com/tinyland-inc/artbot/pkg/channels"
	"github.com/tinyland-inc/artbot/pkg/dialogue"
	"github.com/tinyland-inc/artbot/pkg/logger"
	"github.com/tinyland-inc/artbot/pkg/risk"
	"github.com/tinyland-inc/artbot/pkg/session"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is not configured")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres dsn is not configured")
	}

	store, err := session.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}
	defer store.Close()

	cat, err := catalog.ConnectPostgres(cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("error connecting to postgres: %w", err)
	}
	defer cat.Close()

	var lemma risk.Lemmatizer
	if cfg.Lemma.URL != "" {
		lemma = risk.NewHTTPLemmatizer(cfg.Lemma.URL, cfg.LemmaTimeout())
	} else {
		fmt.Println("⚠ No lemma service configured, using fold lemmatizer")
		lemma = risk.NewFoldLemmatizer(nil)
	}

	engine := dialogue.NewEngine(store, cat, batch.NewGenerator(cat), lemma, cfg)
	msgBus := bus.NewMessageBus()

	telegram, err := channels.NewTelegramChannel(cfg.Telegram.Token, msgBus)
	if err != nil {
		return fmt.Errorf("error creating telegram channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := telegram.Start(ctx); err != nil {
		return fmt.Errorf("error starting telegram channel: %w", err)
	}

	// Engine loop: each inbound event is an independent unit of work. The
	// engine serializes turns per participant internally.
	go func() {
		for {
			ev, ok := msgBus.ConsumeInbound(ctx)
			if !ok {
				return
			}
			go func() {
				payloads, err := engine.Handle(ctx, ev)
				if err != nil {
					logger.ErrorCF("gateway", "Turn aborted", map[string]any{
						"chat_id": ev.ChatID,
						"error":   err.Error(),
					})
					return
				}
				// payloads are published only after the session writes
				// behind them are committed
				for _, p := range payloads {
					if err := msgBus.PublishOutbound(ctx, p); err != nil {
						return
					}
				}
			}()
		}
	}()

	// Outbound dispatcher: delivery failures are logged, never retried;
	// the session write already happened.
	go func() {
		for {
			p, ok := msgBus.SubscribeOutbound(ctx)
			if !ok {
				return
			}
			if err := telegram.Send(ctx, p); err != nil {
				logger.ErrorCF("gateway", "Outbound delivery failed", map[string]any{
					"chat_id": p.ChatID,
					"error":   err.Error(),
				})
			}
		}
	}()

	fmt.Printf("%s Gateway started\n", internal.Logo)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	msgBus.Close()
	if err := telegram.Stop(context.Background()); err != nil {
		logger.ErrorCF("gateway", "Telegram stop failed", map[string]any{"error": err.Error()})
	}
	fmt.Println("✓ Gateway stopped")

	return nil
}
