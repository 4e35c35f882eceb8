package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Resumo/common/environment"
	"github.com/bdobrica/Resumo/internal/resumo/config"
	"github.com/bdobrica/Resumo/internal/resumo/store"
	"github.com/bdobrica/Resumo/internal/resumo/tone"
)

const testRoom = "!grupo:example.org"

type fakeRooms struct {
	groups map[string]bool
	names  map[string]string
	err    error
}

func (f *fakeRooms) IsGroup(_ context.Context, roomID string) (bool, error) {
	return f.groups[roomID], f.err
}

func (f *fakeRooms) DisplayName(_ context.Context, _, userID string) string {
	if n, ok := f.names[userID]; ok {
		return n
	}
	return userID
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendMarkdown(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) SetTyping(context.Context, string, bool, time.Duration) error { return nil }

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return "todo tranquilo", nil
}

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	base := map[string]string{
		"MATRIX_USER_ID": "@resumo:example.org",
		"RANDOM_SEED":    "1",
		"DATABASE_PATH":  filepath.Join(t.TempDir(), "resumo.db"),
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.Load(environment.NewWithLookup(environment.FromMap(base)))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

type testApp struct {
	*App
	rooms    *fakeRooms
	sender   *fakeSender
	provider *fakeProvider
}

func newTestApp(t *testing.T, cfg config.Config) *testApp {
	t.Helper()
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ta := &testApp{
		rooms: &fakeRooms{
			groups: map[string]bool{testRoom: true},
			names:  map[string]string{"@ana:example.org": "Ana", "@beto:example.org": "Beto"},
		},
		sender:   &fakeSender{},
		provider: &fakeProvider{},
	}
	a, err := newApp(cfg, st, ta.rooms, ta.sender, ta.provider)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	ta.App = a
	return ta
}

func (ta *testApp) say(roomID, sender, text string) {
	evt := &event.Event{
		RoomID: id.RoomID(roomID),
		Sender: id.UserID(sender),
		Type:   event.EventMessage,
		Content: event.Content{
			Parsed: &event.MessageEventContent{MsgType: event.MsgText, Body: text},
		},
	}
	ta.handleMessage(context.Background(), evt)
	ta.handlers.Wait()
}

func (ta *testApp) sent() []string {
	ta.sender.mu.Lock()
	defer ta.sender.mu.Unlock()
	return append([]string(nil), ta.sender.sent...)
}

func TestHandleMessage_RecordsGroupMessages(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))

	ta.say(testRoom, "@ana:example.org", "hola")
	ta.say(testRoom, "@beto:example.org", "qué tal")
	ta.say("!dm:example.org", "@ana:example.org", "secreto")

	if got := ta.service.Chats(); got != 1 {
		t.Errorf("chats: got %d, want 1", got)
	}
	if got := ta.service.Metrics(testRoom).TotalMessages; got != 2 {
		t.Errorf("messages: got %d, want 2", got)
	}
	if got := ta.service.Metrics("!dm:example.org").TotalMessages; got != 0 {
		t.Errorf("direct chat should not be recorded, got %d messages", got)
	}
	if len(ta.sent()) != 0 {
		t.Errorf("plain messages must not be answered, sent %v", ta.sent())
	}
}

func TestHandleMessage_RoomLookupFailureDrops(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))
	ta.rooms.err = errors.New("homeserver down")

	ta.say(testRoom, "@ana:example.org", "hola")

	if got := ta.service.Chats(); got != 0 {
		t.Errorf("chats: got %d, want 0", got)
	}
}

func TestHandleMessage_Summary(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))
	ta.say(testRoom, "@ana:example.org", "hola")
	ta.say(testRoom, "@beto:example.org", "qué tal")

	ta.say(testRoom, "@ana:example.org", "/resumen@resumo")

	sent := ta.sent()
	if len(sent) != 2 {
		t.Fatalf("expected intro and summary, got %v", sent)
	}
	if sent[1] != "todo tranquilo" {
		t.Errorf("got %q, want %q", sent[1], "todo tranquilo")
	}
	if len(ta.provider.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(ta.provider.prompts))
	}
	if !strings.Contains(ta.provider.prompts[0], "Mensajes analizados: 2") {
		t.Errorf("command text must not be recorded; prompt:\n%s", ta.provider.prompts[0])
	}

	n, err := ta.store.CountAudit(context.Background(), store.ActionSummary, store.ResultSuccess, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountAudit: %v", err)
	}
	if n != 1 {
		t.Errorf("audit: got %d successful summaries, want 1", n)
	}
}

func TestHandleMessage_EmptySummary(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))

	ta.say(testRoom, "@ana:example.org", "/resumen")

	sent := ta.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one no-activity reply, got %v", sent)
	}
	if len(ta.provider.prompts) != 0 {
		t.Error("empty window must not reach the generator")
	}
}

func TestHandleMessage_ToneSwitchAudited(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))

	ta.say(testRoom, "@ana:example.org", "/tono street")

	if got := ta.service.CurrentTone(); got != tone.Street {
		t.Errorf("tone: got %q, want %q", got, tone.Street)
	}
	entries, err := ta.store.RecentAudit(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != store.ActionToneSwitch || entries[0].Result != store.ResultSuccess {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
	if entries[0].TraceID == "" {
		t.Error("audit entry should carry the trace ID")
	}
}

func TestHandleMessage_UnknownCommandIgnored(t *testing.T) {
	ta := newTestApp(t, testConfig(t, nil))

	ta.say(testRoom, "@ana:example.org", "/giphy gato")
	ta.say(testRoom, "@ana:example.org", "/resumen@otrobot")

	if len(ta.sent()) != 0 {
		t.Errorf("unexpected replies: %v", ta.sent())
	}
	// The mention of another bot is plain text for us.
	if got := ta.service.Metrics(testRoom).TotalMessages; got != 1 {
		t.Errorf("messages: got %d, want 1", got)
	}
}

func TestBuildTones_PackAndOverrides(t *testing.T) {
	dir := t.TempDir()
	pack := filepath.Join(dir, "tones.yaml")
	content := `tones:
  - name: mystic
    confirmation: "Los astros obedecen."
`
	if err := os.WriteFile(pack, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, map[string]string{
		"TONES_FILE":        pack,
		"DEFAULT_TONE":      "street",
		"TONE_PROMPT_CYNIC": "Resume sin piedad:\n{{.Transcript}}\n{{.ChaosLevel}}",
	})
	reg, err := BuildTones(cfg)
	if err != nil {
		t.Fatalf("BuildTones: %v", err)
	}
	if got := reg.Current().Name(); got != tone.Street {
		t.Errorf("default: got %q, want %q", got, tone.Street)
	}
	mystic, _ := reg.Get(tone.Mystic)
	if got := mystic.Confirmation(); got != "Los astros obedecen." {
		t.Errorf("confirmation: got %q", got)
	}
}

func TestBuildTones_Errors(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.DefaultTone = "pirate"
	if _, err := BuildTones(cfg); !errors.Is(err, tone.ErrConfiguration) {
		t.Errorf("unknown default: got %v, want ErrConfiguration", err)
	}

	cfg = testConfig(t, map[string]string{"TONE_PROMPT_MYSTIC": "{{.Nope}}"})
	if _, err := BuildTones(cfg); !errors.Is(err, tone.ErrConfiguration) {
		t.Errorf("bad override: got %v, want ErrConfiguration", err)
	}

	cfg = testConfig(t, map[string]string{"TONES_FILE": filepath.Join(t.TempDir(), "missing.yaml")})
	if _, err := BuildTones(cfg); err == nil {
		t.Error("missing tone pack should fail")
	}
}

func TestBotName(t *testing.T) {
	if got := botName("@resumo:example.org"); got != "resumo" {
		t.Errorf("got %q, want %q", got, "resumo")
	}
	if got := botName("not-a-user-id"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestNewApp_RestoresSavedTone(t *testing.T) {
	cfg := testConfig(t, nil)
	first := newTestApp(t, cfg)
	first.say(testRoom, "@ana:example.org", "/tono mystic")

	second := newTestApp(t, cfg)
	if got := second.service.CurrentTone(); got != tone.Mystic {
		t.Errorf("tone after restart: got %q, want %q", got, tone.Mystic)
	}
}

func TestNewApp_IgnoresInvalidSavedTone(t *testing.T) {
	cfg := testConfig(t, nil)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if err := st.SetSetting(context.Background(), store.SettingTone, "pirate"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	st.Close()

	ta := newTestApp(t, cfg)
	if got := ta.service.CurrentTone(); got != tone.Cynic {
		t.Errorf("got %q, want default %q", got, tone.Cynic)
	}
}
