// Package matrix connects Resumo to a Matrix homeserver: it syncs room
// events, hands text messages to the bot and sends replies rendered from
// Markdown.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
	"maunium.net/go/mautrix/id"
)

// groupThreshold is the joined member count above which a room counts as a
// group chat. Two members (the bot and one person) is a direct chat.
const groupThreshold = 2

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms, when non-empty, restricts the bot to these room IDs. They are
	// joined at start.
	Rooms []string
	// AutoJoin accepts room invites.
	AutoJoin bool
	// DB persists the sync token across restarts. When nil an in-memory
	// store is used and history replays on restart (older events are still
	// ignored, see Client.accept).
	DB *sql.DB
}

// MessageHandler processes incoming text messages.
type MessageHandler func(ctx context.Context, evt *event.Event)

// Client wraps the mautrix client.
type Client struct {
	client    *mautrix.Client
	config    *Config
	startedAt time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once

	msgHandler MessageHandler

	mu    sync.Mutex
	rooms map[id.RoomID]map[id.UserID]string // joined members → display name
}

// New creates a Matrix client. It does not contact the homeserver.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client:    client,
		config:    config,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
		rooms:     make(map[id.RoomID]map[id.UserID]string),
	}

	if config.DB != nil {
		client.Store = NewDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store")
	}
	return c, nil
}

// Start joins the configured rooms and begins syncing in the background.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)
	syncer.OnEventType(event.StateMember, c.handleMember)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(ctx, id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	go c.syncLoop(ctx)
	return nil
}

// syncLoop keeps the sync running with exponential back-off so a transient
// homeserver error does not leave the bot deaf.
func (c *Client) syncLoop(ctx context.Context) {
	const (
		backoffMin = 2 * time.Second
		backoffMax = 5 * time.Minute
	)
	backoff := backoffMin
	for {
		err := c.client.SyncWithContext(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		select {
		case <-c.stopCh:
			return
		default:
		}

		slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// Stop stops syncing. It is safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.client.StopSync()
	})
}

// SendMarkdown sends text rendered from Markdown with a plain-text body.
func (c *Client) SendMarkdown(ctx context.Context, roomID, text string) error {
	content := format.RenderMarkdown(text, true, false)
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SetTyping toggles the typing indicator.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	if _, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, timeout); err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// IsGroup reports whether the room has more than two joined members. The
// member list is cached until a membership event arrives for the room.
func (c *Client) IsGroup(ctx context.Context, roomID string) (bool, error) {
	members, err := c.members(ctx, id.RoomID(roomID))
	if err != nil {
		return false, err
	}
	return len(members) > groupThreshold, nil
}

// DisplayName returns the user's display name in the room, falling back to
// the localpart of the user ID.
func (c *Client) DisplayName(ctx context.Context, roomID, userID string) string {
	members, err := c.members(ctx, id.RoomID(roomID))
	if err == nil {
		if name := members[id.UserID(userID)]; name != "" {
			return name
		}
	} else {
		slog.Debug("display name lookup failed", "room", roomID, "user", userID, "err", err)
	}
	return localpart(userID)
}

// Allowed reports whether the bot serves roomID.
func (c *Client) Allowed(roomID string) bool {
	return len(c.config.Rooms) == 0 || slices.Contains(c.config.Rooms, roomID)
}

func (c *Client) members(ctx context.Context, roomID id.RoomID) (map[id.UserID]string, error) {
	c.mu.Lock()
	cached, ok := c.rooms[roomID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := c.client.JoinedMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", roomID, err)
	}
	members := make(map[id.UserID]string, len(resp.Joined))
	for userID, m := range resp.Joined {
		members[userID] = m.DisplayName
	}

	c.mu.Lock()
	c.rooms[roomID] = members
	c.mu.Unlock()
	return members, nil
}

func (c *Client) forget(roomID id.RoomID) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// accept reports whether evt should reach the message handler.
func (c *Client) accept(evt *event.Event) bool {
	if evt.Sender == id.UserID(c.config.UserID) {
		return false
	}
	// Events from before this process started are history from the
	// initial sync.
	if evt.Timestamp < c.startedAt.UnixMilli() {
		return false
	}
	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return false
	}
	return c.Allowed(evt.RoomID.String())
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if !c.accept(evt) {
		return
	}
	if c.msgHandler != nil {
		c.msgHandler(ctx, evt)
	}
}

func (c *Client) handleMember(ctx context.Context, evt *event.Event) {
	c.forget(evt.RoomID)

	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}
	if evt.GetStateKey() != c.config.UserID || !c.config.AutoJoin || !c.Allowed(evt.RoomID.String()) {
		return
	}
	if err := c.joinRoom(ctx, evt.RoomID); err != nil {
		slog.Warn("failed to accept invite", "room", evt.RoomID, "inviter", evt.Sender, "err", err)
		return
	}
	slog.Info("accepted room invite", "room", evt.RoomID, "inviter", evt.Sender)
}

func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(ctx, roomID)
	if err != nil {
		// Homeservers answer M_FORBIDDEN when the bot is already a member.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}

// localpart returns "ana" for "@ana:example.org".
func localpart(userID string) string {
	local, _, err := id.UserID(userID).Parse()
	if err != nil || local == "" {
		return userID
	}
	return local
}
