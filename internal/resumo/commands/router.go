// Package commands provides command parsing and routing for Resumo.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"maunium.net/go/mautrix/event"
)

// Command represents a parsed command.
type Command struct {
	// Name is the lower-cased command without prefix or mention.
	Name string
	// Mention is the bot name of a "/cmd@bot" command, or "".
	Mention string
	Args    []string
	RawText string
}

// ErrNotACommand is returned by Parse when the message does not start with the
// command prefix, or when it is addressed to another bot. Callers should use
// errors.Is to distinguish this expected case from real errors.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// ErrUnknownCommand is returned by Route when no handler is registered for
// the command name.
var ErrUnknownCommand = errors.New("unknown command")

// Handler is a function that handles a command. A non-empty reply is sent
// back to the room by the caller.
type Handler func(ctx context.Context, cmd *Command, evt *event.Event) (string, error)

// Router routes commands to handlers
type Router struct {
	handlers map[string]Handler
	prefix   string
	botName  string
}

// NewRouter creates a new command router. botName is the name accepted in
// the "/cmd@botname" form; commands mentioning any other name are ignored.
func NewRouter(prefix, botName string) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		prefix:   prefix,
		botName:  strings.ToLower(botName),
	}
}

// Register registers handler under every given name.
func (r *Router) Register(handler Handler, names ...string) {
	for _, name := range names {
		r.handlers[strings.ToLower(name)] = handler
	}
}

// Parse parses a message into a command
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, r.prefix) {
		return nil, ErrNotACommand
	}

	text = strings.TrimPrefix(text, r.prefix)
	parts := strings.Fields(text)
	// "/ hola" or a lone "/" is ordinary text.
	if len(parts) == 0 || strings.HasPrefix(text, " ") {
		return nil, ErrNotACommand
	}

	name, mention, _ := strings.Cut(parts[0], "@")
	cmd := &Command{
		Name:    strings.ToLower(name),
		Mention: strings.ToLower(mention),
		Args:    parts[1:],
		RawText: text,
	}
	if cmd.Name == "" {
		return nil, ErrNotACommand
	}
	if cmd.Mention != "" && r.botName != "" && cmd.Mention != r.botName {
		return nil, ErrNotACommand
	}
	return cmd, nil
}

// Route parses and routes a command to its handler
func (r *Router) Route(ctx context.Context, text string, evt *event.Event) (string, error) {
	cmd, err := r.Parse(text)
	if err != nil {
		return "", err
	}

	handler, ok := r.handlers[cmd.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	return handler(ctx, cmd, evt)
}

// Arg returns an argument by index
func (c *Command) Arg(index int) (string, bool) {
	if index < 0 || index >= len(c.Args) {
		return "", false
	}
	return c.Args[index], true
}
