// Package command recognises "#lovebot <command>" messages and runs the matching handler.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/edgard/lovebot/internal/config"
	"github.com/edgard/lovebot/internal/domain/model"
	"github.com/edgard/lovebot/internal/logger"
	"github.com/edgard/lovebot/internal/moderation"
)

// Command is the closed set of commands the bot understands.
type Command string

const (
	Help     Command = "help"
	Pause    Command = "pause"
	Resume   Command = "resume"
	Settings Command = "settings"
	Feedback Command = "feedback"
)

// Commands lists every command in help order.
var Commands = []Command{Help, Pause, Resume, Settings, Feedback}

// ParseCommand maps a token to a Command, ignoring case.
func ParseCommand(token string) (Command, bool) {
	c := Command(strings.ToLower(token))
	for _, known := range Commands {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Request is a parsed command invocation.
type Request struct {
	Command Command
	Args    []string
	Message model.Message
	Replier Replier
}

// HandlerFunc runs one command.
type HandlerFunc func(ctx context.Context, req Request) error

// Router dispatches prefixed messages to command handlers.
type Router struct {
	prefix   string
	handlers map[Command]HandlerFunc
	logger   *slog.Logger
}

// NewRouter creates a Router with all commands registered.
func NewRouter(deps HandlerDeps) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Registry == nil {
		deps.Registry = moderation.NewRegistry()
	}
	if deps.Policy == nil {
		deps.Policy = moderation.NewThresholdPolicy(config.DefaultInterventionThreshold, deps.Registry)
	}
	return &Router{
		prefix:   deps.Prefix,
		handlers: RegisterAllCommands(deps),
		logger:   deps.Logger.With("component", "command_router"),
	}
}

// Parse splits content into a command and its arguments. It reports false when
// content does not start with the prefix followed by a known command token.
func (r *Router) Parse(content string) (Command, []string, bool) {
	return parse(r.prefix, content)
}

func parse(prefix, content string) (Command, []string, bool) {
	content = strings.TrimLeftFunc(content, unicode.IsSpace)
	if prefix == "" || len(content) < len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return "", nil, false
	}

	rest := content[len(prefix):]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) {
		return "", nil, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", nil, false
	}

	tokens := strings.Fields(rest)
	cmd, ok := ParseCommand(tokens[0])
	if !ok {
		return "", nil, false
	}
	args := tokens[1:]
	if args == nil {
		args = []string{}
	}
	return cmd, args, true
}

// TryHandle runs the command contained in msg, if any, and reports whether it did.
// Replies go through replier. Handler failures are logged; the message still counts as handled.
func (r *Router) TryHandle(ctx context.Context, msg model.Message, replier Replier) bool {
	cmd, args, ok := r.Parse(msg.Content)
	if !ok {
		return false
	}

	handler, exists := r.handlers[cmd]
	if !exists {
		return false
	}

	log := r.logger.With("command", string(cmd), "conversation_id", msg.ConversationID, "message_id", msg.ID)
	log.InfoContext(ctx, "Handling command", "args", len(args))

	if err := r.run(ctx, handler, Request{Command: cmd, Args: args, Message: msg, Replier: replier}); err != nil {
		log.ErrorContext(ctx, "Command handler failed", "error", err)
	}
	return true
}

func (r *Router) run(ctx context.Context, handler HandlerFunc, req Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s panicked: %v", req.Command, rec)
		}
	}()
	return handler(ctx, req)
}
