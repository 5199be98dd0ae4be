package telegraph

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// UserIdentity is the ServiceNow identity cached for a chat user.
type UserIdentity struct {
	CallerID    string
	UserName    string
	DisplayName string
	ResolvedAt  time.Time
}

// Accounts exposes cached identities and conversation state to the admin
// commands.
type Accounts interface {
	// WhoAmI returns the cached identity, or nil when none is cached.
	WhoAmI(ctx context.Context, platform, userID string) (*UserIdentity, error)
	// Logout forgets the cached identity.
	Logout(ctx context.Context, platform, userID string) error
	// Reset discards the user's dialog stack in a conversation.
	Reset(ctx context.Context, platform, conversationID, userID string) error
}

// CommandHandler processes "!bot" admin commands from chat. Commands are
// answered immediately and never enter the dialog engine.
type CommandHandler struct {
	accounts Accounts
	botName  string
}

// CommandHandlerOpts holds parameters for creating a CommandHandler.
type CommandHandlerOpts struct {
	Accounts Accounts
	BotName  string // defaults to "deskbot"
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(opts CommandHandlerOpts) (*CommandHandler, error) {
	if opts.Accounts == nil {
		return nil, fmt.Errorf("telegraph: command handler: accounts is required")
	}
	name := opts.BotName
	if name == "" {
		name = "deskbot"
	}
	return &CommandHandler{accounts: opts.Accounts, botName: name}, nil
}

// Execute parses and executes a "!bot" command string for the sender of msg.
// Returns the response text to send back to the chat channel.
func (ch *CommandHandler) Execute(ctx context.Context, msg InboundMessage, text string) string {
	args := parseCommand(text)
	if len(args) == 0 {
		return ch.helpText()
	}

	switch args[0] {
	case "whoami":
		return ch.cmdWhoAmI(ctx, msg)
	case "logout":
		return ch.cmdLogout(ctx, msg)
	case "reset":
		return ch.cmdReset(ctx, msg)
	case "help":
		return ch.helpText()
	default:
		return fmt.Sprintf("Unknown command: `%s`\n\n%s", args[0], ch.helpText())
	}
}

// parseCommand strips the "!bot" prefix and splits the remaining text.
func parseCommand(text string) []string {
	text = strings.TrimSpace(text)
	if text == commandPrefix {
		return nil
	}
	text = strings.TrimPrefix(text, commandPrefix+" ")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Fields(strings.ToLower(text))
}

func (ch *CommandHandler) cmdWhoAmI(ctx context.Context, msg InboundMessage) string {
	id, err := ch.accounts.WhoAmI(ctx, msg.Platform, msg.UserID)
	if err != nil {
		log.Printf("telegraph: command: whoami %s/%s: %v", msg.Platform, msg.UserID, err)
		return "Error looking up your account."
	}
	if id == nil {
		return "I don't know your ServiceNow account yet. Ask me about your incidents and I'll look it up."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are signed in as *%s*", id.UserName)
	if id.DisplayName != "" {
		fmt.Fprintf(&b, " (%s)", id.DisplayName)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Caller ID: `%s`", id.CallerID)
	if !id.ResolvedAt.IsZero() {
		fmt.Fprintf(&b, "\nResolved: %s", id.ResolvedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func (ch *CommandHandler) cmdLogout(ctx context.Context, msg InboundMessage) string {
	if err := ch.accounts.Logout(ctx, msg.Platform, msg.UserID); err != nil {
		log.Printf("telegraph: command: logout %s/%s: %v", msg.Platform, msg.UserID, err)
		return "Error signing you out."
	}
	return "Done. I've forgotten your ServiceNow account; I'll ask again next time."
}

func (ch *CommandHandler) cmdReset(ctx context.Context, msg InboundMessage) string {
	if err := ch.accounts.Reset(ctx, msg.Platform, msg.ConversationID(), msg.UserID); err != nil {
		log.Printf("telegraph: command: reset %s/%s: %v", msg.Platform, msg.ConversationID(), err)
		return "Error resetting the conversation."
	}
	return "Conversation reset. What can I help you with?"
}

// helpText returns the list of available commands.
func (ch *CommandHandler) helpText() string {
	return fmt.Sprintf("*%s commands:*\n"+
		"`%s whoami`: show the ServiceNow account I use for you\n"+
		"`%s logout`: forget that account\n"+
		"`%s reset`: abandon the current conversation\n"+
		"`%s help`: show this help\n\n"+
		"Anything else is a question for me. Try: _what can you do?_",
		ch.botName, commandPrefix, commandPrefix, commandPrefix, commandPrefix)
}
