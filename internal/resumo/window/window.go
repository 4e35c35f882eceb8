// Package window keeps the bounded, time-aware window of recent messages
// for every chat the bot has seen.
//
// A window is created lazily on the first message of a chat and lives for
// the lifetime of the process. It is mutated only by Record (append then
// eviction); readers always receive a copy.
package window

import (
	"sync"
	"time"
	"unicode/utf8"
)

// Message is a single chat message as retained by the buffer. It is never
// modified after creation.
type Message struct {
	Author    string
	Text      string
	Timestamp time.Time
}

// Config holds the buffer limits.
type Config struct {
	// MaxMessages is the maximum number of messages kept per chat. When
	// exceeded, the oldest messages are dropped. Default: 30.
	MaxMessages int

	// MaxMessageLength is the number of characters kept from each message
	// text; longer texts are truncated. Default: 3000.
	MaxMessageLength int

	// Retention, when positive, drops messages whose age is at least this
	// duration. Zero disables time-based eviction.
	Retention time.Duration

	// Now is the clock used by Record and Read. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessages:      30,
		MaxMessageLength: 3000,
	}
}

// Buffer holds one window per chat ID. It is safe for concurrent use:
// mutation of a single chat is serialized by that chat's own mutex, so
// traffic in one chat never blocks another.
type Buffer struct {
	mu      sync.RWMutex
	config  Config
	windows map[string]*chatWindow
}

type chatWindow struct {
	mu       sync.Mutex
	messages []Message
}

// New creates a Buffer. Non-positive limits fall back to DefaultConfig and a
// negative retention is treated as disabled.
func New(cfg Config) *Buffer {
	def := DefaultConfig()
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.Retention < 0 {
		cfg.Retention = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Buffer{
		config:  cfg,
		windows: make(map[string]*chatWindow),
	}
}

// Config returns the effective configuration.
func (b *Buffer) Config() Config {
	return b.config
}

// Record appends a message to the chat's window using the buffer clock and
// returns the stored message.
func (b *Buffer) Record(chatID, author, text string) Message {
	return b.RecordAt(chatID, author, text, b.config.Now())
}

// RecordAt appends a message stamped with now, then enforces the count
// limit followed by the retention horizon.
func (b *Buffer) RecordAt(chatID, author, text string, now time.Time) Message {
	msg := Message{
		Author:    author,
		Text:      Truncate(text, b.config.MaxMessageLength),
		Timestamp: now,
	}

	w := b.window(chatID)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, msg)

	if excess := len(w.messages) - b.config.MaxMessages; excess > 0 {
		// Copy so the dropped prefix does not pin the old backing array.
		kept := make([]Message, b.config.MaxMessages, b.config.MaxMessages+1)
		copy(kept, w.messages[excess:])
		w.messages = kept
	}

	if b.config.Retention > 0 {
		w.messages = b.fresh(w.messages, now, w.messages[:0])
	}

	return msg
}

// Read returns a copy of the chat's window as seen by the buffer clock.
func (b *Buffer) Read(chatID string) []Message {
	return b.ReadAt(chatID, b.config.Now())
}

// ReadAt returns a copy of the chat's window, oldest first. When retention
// is enabled, messages that have expired by now are left out of the copy;
// the stored window itself is not modified. Unknown chats yield an empty
// (non-nil) slice.
func (b *Buffer) ReadAt(chatID string, now time.Time) []Message {
	b.mu.RLock()
	w := b.windows[chatID]
	b.mu.RUnlock()
	if w == nil {
		return []Message{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Message, 0, len(w.messages))
	if b.config.Retention > 0 {
		return b.fresh(w.messages, now, out)
	}
	return append(out, w.messages...)
}

// Chats returns the number of chats with a window.
func (b *Buffer) Chats() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.windows)
}

// window returns the chat's window, creating it on first use.
func (b *Buffer) window(chatID string) *chatWindow {
	b.mu.RLock()
	w := b.windows[chatID]
	b.mu.RUnlock()
	if w != nil {
		return w
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if w = b.windows[chatID]; w == nil {
		w = &chatWindow{}
		b.windows[chatID] = w
	}
	return w
}

// fresh appends to dst the messages of src younger than the retention
// horizon at now. dst may alias src[:0].
func (b *Buffer) fresh(src []Message, now time.Time, dst []Message) []Message {
	for _, m := range src {
		if now.Sub(m.Timestamp) < b.config.Retention {
			dst = append(dst, m)
		}
	}
	return dst
}

// Truncate returns the first max characters (runes) of text. A non-positive
// max leaves text unchanged.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
