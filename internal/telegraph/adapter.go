// Package telegraph bridges the help-desk bot to chat platforms (Bot
// Framework, Slack, Discord, a local console).
package telegraph

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and message sending/receiving
// for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform   string    // channel id, e.g. "msteams", "slack", "discord", "console"
	ChannelID  string    // platform-specific channel or conversation identifier
	ThreadID   string    // thread identifier (empty if top-level)
	UserID     string    // platform-specific user identifier
	UserName   string    // human-readable username
	Text       string    // message text, mentions of the bot stripped by the router
	ServiceURL string    // Bot Framework service URL (empty on other platforms)
	Direct     bool      // direct message or explicit mention of the bot
	Timestamp  time.Time // when the message was sent
}

// ConversationID returns the key that scopes conversation state and
// serializes turns: the channel, qualified by thread when present.
func (m InboundMessage) ConversationID() string {
	if m.ThreadID == "" {
		return m.ChannelID
	}
	return m.ChannelID + "/" + m.ThreadID
}

// Layout controls how a reply's cards are arranged.
type Layout string

const (
	LayoutList     Layout = "list"
	LayoutCarousel Layout = "carousel"
)

// CardKind selects the card template.
type CardKind string

const (
	CardHero      CardKind = "hero"
	CardThumbnail CardKind = "thumbnail"
)

// ActionType is the behavior of a card button.
type ActionType string

const (
	// ActionOpenURL opens Value in a browser.
	ActionOpenURL ActionType = "openUrl"
	// ActionIMBack posts Value back to the bot as if the user typed it.
	ActionIMBack ActionType = "imBack"
)

// CardAction is a button on a card.
type CardAction struct {
	Type  ActionType
	Title string
	Value string
}

// Card is a rich attachment: title, subtitle, body text, an optional image
// and buttons.
type Card struct {
	Kind     CardKind
	Title    string
	Subtitle string
	Text     string
	ImageURL string
	Buttons  []CardAction
}

// Reply is the content of one bot message. Choices are rendered as quick
// replies where the platform supports them and as a numbered list otherwise.
type Reply struct {
	Text    string
	Cards   []Card
	Layout  Layout
	Choices []string
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string // target channel or conversation
	ThreadID  string // thread to reply in (empty for top-level)
	Reply
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}
