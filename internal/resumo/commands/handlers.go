package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"

	"github.com/bdobrica/Resumo/common/retry"
	"github.com/bdobrica/Resumo/common/trace"
	"github.com/bdobrica/Resumo/internal/resumo/digest"
	"github.com/bdobrica/Resumo/internal/resumo/generation"
	"github.com/bdobrica/Resumo/internal/resumo/observability"
	"github.com/bdobrica/Resumo/internal/resumo/store"
)

// RateLimitedMessage is the reply when a chat exceeds its summary quota.
const RateLimitedMessage = "⏱️ Calma, que el chisme no se va a ningún lado. Pide otro resumen en un minuto."

// typingTimeout bounds the typing indicator while a summary is generated.
const typingTimeout = 90 * time.Second

// Sender delivers replies to a room.
type Sender interface {
	SendMarkdown(ctx context.Context, roomID, text string) error
	SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error
}

// Auditor records command outcomes.
type Auditor interface {
	WriteAudit(ctx context.Context, traceID, roomID, actor, action, result string, payload store.AuditPayload, errorMsg string) error
}

// settingsWriter is implemented by auditors that can also persist the
// selected tone.
type settingsWriter interface {
	SetSetting(ctx context.Context, key, value string) error
}

// Config holds handler settings.
type Config struct {
	// MaxMessageLength is the chunk size, in characters, of long replies.
	MaxMessageLength int
	// SummaryRateLimit is the number of summaries per chat per minute;
	// zero disables the limit.
	SummaryRateLimit int
	Retry            retry.Config
}

// Handlers holds all command handlers and dependencies
type Handlers struct {
	service  *digest.Service
	provider generation.Provider
	sender   Sender
	audit    Auditor
	limiter  *Limiter
	redactor *observability.Redactor
	config   Config

	wg sync.WaitGroup
}

// NewHandlers creates a new Handlers instance. audit may be nil.
func NewHandlers(service *digest.Service, provider generation.Provider, sender Sender, audit Auditor, redactor *observability.Redactor, cfg Config) *Handlers {
	if redactor == nil {
		redactor = observability.NewRedactor()
	}
	return &Handlers{
		service:  service,
		provider: provider,
		sender:   sender,
		audit:    audit,
		limiter:  NewLimiter(cfg.SummaryRateLimit),
		redactor: redactor,
		config:   cfg,
	}
}

// Register wires every command into r.
func (h *Handlers) Register(r *Router) {
	r.Register(h.HandleStart, "start", "ayuda", "help")
	r.Register(h.HandleSummary, "resumen", "resumido", "summary")
	r.Register(h.HandleTone, "tono", "tone")
	r.Register(h.HandleTones, "tonos", "tones")
	r.Register(h.HandleMetrics, "metricas", "métricas", "metrics")
}

// Wait blocks until every in-flight summary generation has finished.
func (h *Handlers) Wait() {
	h.wg.Wait()
}

// HandleStart greets the room and lists the commands.
func (h *Handlers) HandleStart(ctx context.Context, cmd *Command, evt *event.Event) (string, error) {
	return fmt.Sprintf(`**Resumo** 🗞️

Leo el grupo y, cuando me lo pides, resumo los últimos mensajes.
Tono actual: **%s**

• /resumen (o /resumido): resume la conversación reciente
• /tono <%s>: cambia el tono
• /tonos: lista los tonos
• /metricas: estadísticas de la conversación
• /ayuda: muestra este mensaje`,
		h.service.CurrentTone(), strings.Join(h.service.Tones(), "|")), nil
}

// HandleSummary answers with the tone's intro right away and generates the
// digest in the background. Generation failures are reported to the room
// and never retried.
func (h *Handlers) HandleSummary(ctx context.Context, cmd *Command, evt *event.Event) (string, error) {
	ctx, traceID := trace.Ensure(ctx)
	roomID := evt.RoomID.String()
	actor := evt.Sender.String()
	log := observability.WithTrace(ctx).With("room", roomID)

	if !h.limiter.Allow(roomID) {
		h.writeAudit(ctx, traceID, roomID, actor, store.ActionSummary, store.ResultDenied, nil, "rate limited")
		return RateLimitedMessage, nil
	}

	req, err := h.service.BuildSummaryRequest(roomID)
	if err != nil {
		h.writeAudit(ctx, traceID, roomID, actor, store.ActionSummary, store.ResultError, nil, err.Error())
		var ue *digest.UserError
		if errors.As(err, &ue) {
			log.Warn("summary rejected", "err", err)
			return ue.Message, nil
		}
		return "", fmt.Errorf("failed to build summary: %w", err)
	}
	if req.Empty {
		h.writeAudit(ctx, traceID, roomID, actor, store.ActionSummary, store.ResultEmpty,
			store.AuditPayload{"tone": req.Tone}, "")
		return req.NoActivity, nil
	}

	if err := h.Reply(ctx, roomID, req.Intro); err != nil {
		return "", fmt.Errorf("failed to send intro: %w", err)
	}

	log.Info("generating summary", "request_id", req.ID, "tone", req.Tone, "messages", req.Messages)
	// Stop waits for in-flight summaries; the provider timeout bounds them.
	genCtx := context.WithoutCancel(ctx)
	h.wg.Go(func() {
		h.generate(genCtx, actor, req)
	})
	return "", nil
}

func (h *Handlers) generate(ctx context.Context, actor string, req digest.SummaryRequest) {
	traceID := trace.FromContext(ctx)
	log := observability.WithTrace(ctx).With("room", req.ChatID, "request_id", req.ID)

	if err := h.sender.SetTyping(ctx, req.ChatID, true, typingTimeout); err != nil {
		log.Debug("failed to set typing", "err", err)
	}
	start := time.Now()
	text, err := h.provider.Generate(ctx, req.Prompt)
	if err := h.sender.SetTyping(ctx, req.ChatID, false, 0); err != nil {
		log.Debug("failed to clear typing", "err", err)
	}

	payload := store.AuditPayload{
		"request_id":  req.ID,
		"tone":        req.Tone,
		"messages":    req.Messages,
		"chaos_level": req.Metrics.ChaosLevel,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		msg := h.redactor.Err(err)
		log.Error("summary generation failed", "err", msg)
		h.writeAudit(ctx, traceID, req.ChatID, actor, store.ActionSummary, store.ResultError, payload, msg)
		if err := h.Reply(ctx, req.ChatID, generation.UserMessage(err)); err != nil {
			log.Error("failed to send failure notice", "err", err)
		}
		return
	}

	chunks := Split(text, h.config.MaxMessageLength)
	payload["chunks"] = len(chunks)
	payload["characters"] = utf8.RuneCountInString(text)
	for i, chunk := range chunks {
		if err := h.Reply(ctx, req.ChatID, chunk); err != nil {
			log.Error("failed to send summary", "chunk", i+1, "of", len(chunks), "err", err)
			h.writeAudit(ctx, traceID, req.ChatID, actor, store.ActionSummary, store.ResultError, payload, err.Error())
			return
		}
	}
	log.Info("summary delivered", "chunks", len(chunks), "duration", time.Since(start))
	h.writeAudit(ctx, traceID, req.ChatID, actor, store.ActionSummary, store.ResultSuccess, payload, "")
}

// HandleTone switches the tone. A missing or unknown name answers with the
// usage text and leaves the current tone unchanged.
func (h *Handlers) HandleTone(ctx context.Context, cmd *Command, evt *event.Event) (string, error) {
	ctx, traceID := trace.Ensure(ctx)
	roomID := evt.RoomID.String()
	actor := evt.Sender.String()

	name, _ := cmd.Arg(0)
	if len(cmd.Args) > 1 {
		name = ""
	}
	previous := h.service.CurrentTone()
	confirmation, err := h.service.SwitchTone(name)
	if err != nil {
		var ue *digest.UserError
		if !errors.As(err, &ue) {
			return "", err
		}
		h.writeAudit(ctx, traceID, roomID, actor, store.ActionToneSwitch, store.ResultDenied,
			store.AuditPayload{"requested": name}, err.Error())
		return ue.Message, nil
	}

	current := h.service.CurrentTone()
	log := observability.WithTrace(ctx)
	log.Info("tone switched", "room", roomID, "actor", actor, "from", previous, "to", current)
	if sw, ok := h.audit.(settingsWriter); ok {
		if err := sw.SetSetting(ctx, store.SettingTone, current); err != nil {
			log.Warn("failed to persist tone", "err", err)
		}
	}
	h.writeAudit(ctx, traceID, roomID, actor, store.ActionToneSwitch, store.ResultSuccess,
		store.AuditPayload{"from": previous, "to": current}, "")
	return confirmation, nil
}

// HandleTones lists the available tones, marking the current one.
func (h *Handlers) HandleTones(ctx context.Context, cmd *Command, evt *event.Event) (string, error) {
	current := h.service.CurrentTone()
	var sb strings.Builder
	sb.WriteString("**Tonos disponibles**\n\n")
	for _, name := range h.service.Tones() {
		if name == current {
			fmt.Fprintf(&sb, "• **%s** (actual)\n", name)
		} else {
			fmt.Fprintf(&sb, "• %s\n", name)
		}
	}
	sb.WriteString("\nCambia con /tono <nombre>")
	return sb.String(), nil
}

// HandleMetrics replies with the analytics of the room's window without
// calling the generation service.
func (h *Handlers) HandleMetrics(ctx context.Context, cmd *Command, evt *event.Event) (string, error) {
	ctx, traceID := trace.Ensure(ctx)
	roomID := evt.RoomID.String()

	m := h.service.Metrics(roomID)
	h.writeAudit(ctx, traceID, roomID, evt.Sender.String(), store.ActionMetrics, store.ResultSuccess,
		store.AuditPayload{"messages": m.TotalMessages}, "")
	if m.TotalMessages == 0 {
		return "📭 No hay mensajes recientes que medir.", nil
	}

	var sb strings.Builder
	sb.WriteString("**📊 Métricas de la conversación**\n\n")
	fmt.Fprintf(&sb, "• Mensajes: %d\n", m.TotalMessages)
	fmt.Fprintf(&sb, "• Periodo: %s\n", m.TimeSpan)
	fmt.Fprintf(&sb, "• Más activos: %s\n", listOr(m.ActiveUsers, "nadie destaca"))
	fmt.Fprintf(&sb, "• Temas: %s\n", listOr(m.DominantTopics, "nada destaca"))
	fmt.Fprintf(&sb, "• Caos: %d/10\n", m.ChaosLevel)
	fmt.Fprintf(&sb, "• Negatividad: %.2f\n", m.Negativity)
	fmt.Fprintf(&sb, "• Diversidad de autores: %.2f", m.RepetitionRate)
	return sb.String(), nil
}

// Reply sends text to roomID, retrying transient failures. A homeserver
// refusal is not retried.
func (h *Handlers) Reply(ctx context.Context, roomID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return retry.Do(ctx, h.config.Retry, func() error {
		err := h.sender.SendMarkdown(ctx, roomID, text)
		if errors.Is(err, mautrix.MForbidden) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (h *Handlers) writeAudit(ctx context.Context, traceID, roomID, actor, action, result string, payload store.AuditPayload, errorMsg string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.WriteAudit(ctx, traceID, roomID, actor, action, result, payload, errorMsg); err != nil {
		slog.Warn("failed to write audit", "trace_id", traceID, "action", action, "err", err)
	}
}

// Split cuts text into chunks of at most size characters. size <= 0
// returns text as a single chunk.
func Split(text string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

func listOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
