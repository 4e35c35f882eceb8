// Package app provides the main Resumo application
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Resumo/common/retry"
	"github.com/bdobrica/Resumo/common/trace"
	"github.com/bdobrica/Resumo/internal/resumo/commands"
	"github.com/bdobrica/Resumo/internal/resumo/config"
	"github.com/bdobrica/Resumo/internal/resumo/digest"
	"github.com/bdobrica/Resumo/internal/resumo/generation"
	"github.com/bdobrica/Resumo/internal/resumo/matrix"
	"github.com/bdobrica/Resumo/internal/resumo/observability"
	"github.com/bdobrica/Resumo/internal/resumo/store"
)

// roomDirectory answers the room questions message handling depends on.
type roomDirectory interface {
	IsGroup(ctx context.Context, roomID string) (bool, error)
	DisplayName(ctx context.Context, roomID, userID string) string
}

// App is the main Resumo application
type App struct {
	config       config.Config
	store        *store.Store
	matrix       *matrix.Client
	rooms        roomDirectory
	service      *digest.Service
	router       *commands.Router
	handlers     *commands.Handlers
	redactor     *observability.Redactor
	healthServer *HealthServer
}

// New creates a new Resumo application
func New(cfg config.Config) (*App, error) {
	var st *store.Store
	if cfg.DatabasePath != "" {
		var err error
		st, err = store.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		cfg.Matrix.DB = st.DB()
	}

	matrixClient, err := matrix.New(&cfg.Matrix)
	if err != nil {
		closeStore(st)
		return nil, err
	}

	var provider generation.Provider
	if cfg.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is not set; summaries are disabled")
		provider = generation.Disabled()
	} else {
		provider = generation.New(cfg.LLM)
	}

	a, err := newApp(cfg, st, matrixClient, matrixClient, provider)
	if err != nil {
		closeStore(st)
		return nil, err
	}
	a.matrix = matrixClient
	return a, nil
}

func newApp(cfg config.Config, st *store.Store, rooms roomDirectory, sender commands.Sender, provider generation.Provider) (*App, error) {
	service, err := NewService(cfg)
	if err != nil {
		return nil, err
	}

	// A nil *store.Store must not become a non-nil interface.
	var auditor commands.Auditor
	var counter auditCounter
	if st != nil {
		auditor = st
		counter = st
		restoreTone(context.Background(), st, service)
	}

	redactor := observability.NewRedactor(cfg.Secrets()...)
	handlers := commands.NewHandlers(service, provider, sender, auditor, redactor, commands.Config{
		MaxMessageLength: cfg.Window.MaxMessageLength,
		SummaryRateLimit: cfg.SummaryRateLimit,
		Retry:            retry.DefaultConfig,
	})
	router := commands.NewRouter("/", botName(cfg.Matrix.UserID))
	handlers.Register(router)

	a := &App{
		config:   cfg,
		store:    st,
		rooms:    rooms,
		service:  service,
		router:   router,
		handlers: handlers,
		redactor: redactor,
	}
	if cfg.HTTPAddr != "" {
		a.healthServer = NewHealthServer(cfg.HTTPAddr, service, counter)
	}
	return a, nil
}

// Run starts the application and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start health/status HTTP server if configured.
	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	slog.Info("Resumo is running; press Ctrl+C to stop", "tone", a.service.CurrentTone())
	<-ctx.Done()

	slog.Info("shutting down")
	return nil
}

// Stop stops the Resumo application
func (a *App) Stop() {
	if a.matrix != nil {
		slog.Info("stopping Matrix client")
		a.matrix.Stop()
	}

	slog.Info("waiting for in-flight summaries")
	a.handlers.Wait()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	if a.store != nil {
		slog.Info("closing database")
		closeStore(a.store)
	}
}

// handleMessage routes commands and records every other group message in
// the room's window.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msg := evt.Content.AsMessage()
	if msg == nil {
		return
	}
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	roomID := evt.RoomID.String()
	log := observability.WithTrace(ctx).With("room", roomID)

	response, err := a.router.Route(ctx, msg.Body, evt)
	switch {
	case errors.Is(err, commands.ErrNotACommand):
		a.record(ctx, evt, msg.Body)
		return
	case errors.Is(err, commands.ErrUnknownCommand):
		// Commands meant for other bots share the room.
		log.Debug("ignoring unknown command", "err", err)
		return
	case err != nil:
		log.Error("command failed", "sender", evt.Sender, "err", a.redactor.Err(err))
		response = fmt.Sprintf("❌ Error: %s", a.redactor.Err(err))
	}

	if response != "" {
		if err := a.handlers.Reply(ctx, roomID, response); err != nil {
			log.Error("failed to send response", "err", err)
		}
	}
}

func (a *App) record(ctx context.Context, evt *event.Event, text string) {
	roomID := evt.RoomID.String()
	isGroup, err := a.rooms.IsGroup(ctx, roomID)
	if err != nil {
		slog.Warn("failed to classify room; message dropped", "room", roomID, "err", err)
		return
	}
	if !isGroup {
		slog.Debug("ignoring direct chat message", "room", roomID, "sender", evt.Sender)
		return
	}
	author := a.rooms.DisplayName(ctx, roomID, evt.Sender.String())
	a.service.OnMessage(roomID, author, text, isGroup)
}

// restoreTone selects the tone last chosen from chat, which takes precedence
// over DEFAULT_TONE.
func restoreTone(ctx context.Context, st *store.Store, service *digest.Service) {
	name, err := st.Setting(ctx, store.SettingTone)
	if errors.Is(err, store.ErrSettingNotFound) {
		return
	}
	if err != nil {
		slog.Warn("failed to read saved tone", "err", err)
		return
	}
	if _, err := service.SwitchTone(name); err != nil {
		slog.Warn("ignoring saved tone", "tone", name, "err", err)
		return
	}
	slog.Info("restored saved tone", "tone", name)
}

// botName is the name accepted in "/cmd@name" commands: the localpart of
// the bot's user ID.
func botName(userID string) string {
	local, _, err := id.UserID(userID).Parse()
	if err != nil {
		return ""
	}
	return local
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		slog.Warn("failed to close database", "err", err)
	}
}
