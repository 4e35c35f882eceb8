package window_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdobrica/Resumo/internal/resumo/window"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRecordAt_NeverExceedsLimit(t *testing.T) {
	b := window.New(window.Config{MaxMessages: 5})
	for i := 0; i < 50; i++ {
		b.RecordAt("room", "ana", fmt.Sprintf("msg %d", i), t0.Add(time.Duration(i)*time.Second))
		got := b.ReadAt("room", t0.Add(time.Duration(i)*time.Second))
		require.LessOrEqual(t, len(got), 5)
	}
	got := b.ReadAt("room", t0.Add(time.Minute))
	require.Len(t, got, 5)
	assert.Equal(t, "msg 45", got[0].Text)
	assert.Equal(t, "msg 49", got[4].Text)
}

func TestRecordAt_ThirtyFirstEvictsFirst(t *testing.T) {
	b := window.New(window.DefaultConfig())
	for i := 1; i <= 31; i++ {
		b.RecordAt("room", "beto", fmt.Sprintf("m%d", i), t0.Add(time.Duration(i)*time.Second))
	}
	got := b.ReadAt("room", t0.Add(time.Hour))
	require.Len(t, got, 30)
	assert.Equal(t, "m2", got[0].Text)
	assert.Equal(t, "m31", got[29].Text)
}

func TestRecordAt_TruncatesByCharacters(t *testing.T) {
	b := window.New(window.Config{MaxMessageLength: 4})
	msg := b.RecordAt("room", "ana", "ñandú feliz", t0)
	assert.Equal(t, "ñand", msg.Text)
	assert.Equal(t, "ñand", b.ReadAt("room", t0)[0].Text)
}

func TestRetention_ExpiredAbsentOnNextRead(t *testing.T) {
	b := window.New(window.Config{Retention: time.Hour})
	b.RecordAt("room", "ana", "viejo", t0)
	b.RecordAt("room", "beto", "nuevo", t0.Add(30*time.Minute))

	got := b.ReadAt("room", t0.Add(59*time.Minute))
	require.Len(t, got, 2)

	// Exactly at the horizon the first message is expired.
	got = b.ReadAt("room", t0.Add(time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, "nuevo", got[0].Text)

	// Recording evicts expired entries from storage too.
	b.RecordAt("room", "ana", "otro", t0.Add(2*time.Hour))
	got = b.ReadAt("room", t0.Add(2*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, "otro", got[0].Text)
}

func TestRecordAt_CountLimitAndRetentionTogether(t *testing.T) {
	type insert struct {
		text string
		at   time.Duration
	}
	tests := []struct {
		name   string
		in     []insert
		readAt time.Duration
		want   []string
	}{
		{
			name:   "fresh inserts past the limit",
			in:     []insert{{"a", 0}, {"b", time.Second}, {"c", 2 * time.Second}, {"d", 3 * time.Second}, {"e", 4 * time.Second}},
			readAt: 5 * time.Second,
			want:   []string{"c", "d", "e"},
		},
		{
			name:   "trim then expire leaves fewer than the limit",
			in:     []insert{{"a", 0}, {"b", 10 * time.Second}, {"c", 20 * time.Second}, {"d", 30 * time.Second}, {"e", 90 * time.Second}},
			readAt: 90 * time.Second,
			want:   []string{"e"},
		},
		{
			name:   "mixed expired and fresh",
			in:     []insert{{"a", 0}, {"b", 50 * time.Second}, {"c", 55 * time.Second}, {"d", 70 * time.Second}, {"e", 75 * time.Second}},
			readAt: 100 * time.Second,
			want:   []string{"c", "d", "e"},
		},
		{
			name:   "read after the horizon of the oldest kept",
			in:     []insert{{"a", 0}, {"b", 50 * time.Second}, {"c", 55 * time.Second}, {"d", 70 * time.Second}, {"e", 75 * time.Second}},
			readAt: 116 * time.Second,
			want:   []string{"d", "e"},
		},
	}

	const retention = time.Minute
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := window.New(window.Config{MaxMessages: 3, Retention: retention})
			for _, in := range tt.in {
				b.RecordAt("room", "ana", in.text, t0.Add(in.at))
				require.LessOrEqual(t, len(b.ReadAt("room", t0.Add(in.at))), 3)
			}

			now := t0.Add(tt.readAt)
			got := b.ReadAt("room", now)
			texts := make([]string, 0, len(got))
			for _, m := range got {
				assert.Less(t, now.Sub(m.Timestamp), retention, "expired message %q", m.Text)
				texts = append(texts, m.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestRetentionDisabled_KeepsOldMessages(t *testing.T) {
	b := window.New(window.Config{})
	b.RecordAt("room", "ana", "hola", t0)
	got := b.ReadAt("room", t0.Add(365*24*time.Hour))
	assert.Len(t, got, 1)
}

func TestReadAt_ReturnsCopy(t *testing.T) {
	b := window.New(window.Config{})
	b.RecordAt("room", "ana", "hola", t0)

	got := b.ReadAt("room", t0)
	got[0].Text = "mutated"

	assert.Equal(t, "hola", b.ReadAt("room", t0)[0].Text)
}

func TestReadAt_UnknownChatIsEmpty(t *testing.T) {
	b := window.New(window.Config{})
	got := b.ReadAt("nowhere", t0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, b.Chats(), "reading must not create a window")
}

func TestChatsAreIndependent(t *testing.T) {
	b := window.New(window.Config{MaxMessages: 2})
	b.RecordAt("a", "ana", "uno", t0)
	b.RecordAt("a", "ana", "dos", t0)
	b.RecordAt("a", "ana", "tres", t0)
	b.RecordAt("b", "beto", "solo", t0)

	assert.Len(t, b.ReadAt("a", t0), 2)
	assert.Len(t, b.ReadAt("b", t0), 1)
	assert.Equal(t, 2, b.Chats())
}

func TestRecord_UsesClock(t *testing.T) {
	now := t0
	b := window.New(window.Config{Retention: time.Minute, Now: func() time.Time { return now }})
	b.Record("room", "ana", "hola")
	require.Len(t, b.Read("room"), 1)

	now = now.Add(time.Minute)
	assert.Empty(t, b.Read("room"))
}

func TestNew_Defaults(t *testing.T) {
	cfg := window.New(window.Config{MaxMessages: -1, MaxMessageLength: 0, Retention: -time.Second}).Config()
	assert.Equal(t, 30, cfg.MaxMessages)
	assert.Equal(t, 3000, cfg.MaxMessageLength)
	assert.Zero(t, cfg.Retention)
}

func TestConcurrentRecord(t *testing.T) {
	b := window.New(window.Config{MaxMessages: 10})
	var wg sync.WaitGroup
	for c := 0; c < 4; c++ {
		chat := fmt.Sprintf("room-%d", c)
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					b.Record(chat, "ana", "hola")
					_ = b.Read(chat)
				}
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, 4, b.Chats())
	for c := 0; c < 4; c++ {
		assert.Len(t, b.Read(fmt.Sprintf("room-%d", c)), 10)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hola", 10, "hola"},
		{"hola", 4, "hola"},
		{"hola", 2, "ho"},
		{"añoño", 3, "año"},
		{"hola", 0, "hola"},
		{strings.Repeat("x", 5000), 3000, strings.Repeat("x", 3000)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, window.Truncate(tt.in, tt.max), "Truncate(%q, %d)", tt.in, tt.max)
	}
}
