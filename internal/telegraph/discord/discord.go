// Package discord implements the telegraph Adapter for Discord using the Gateway WebSocket.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/deskbot/internal/telegraph"
)

// Platform is the InboundMessage.Platform value for Discord.
const Platform = "discord"

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
	// maxEmbeds is Discord's per-message embed limit.
	maxEmbeds = 10
	// maxContent is Discord's per-message content limit.
	maxContent = 2000
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	Channel(channelID string) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) Channel(channelID string) (*discordgo.Channel, error) {
	return r.s.State.Channel(channelID)
}
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// Adapter implements telegraph.Adapter for Discord via the Gateway WebSocket.
// Direct messages and mentions of the bot start conversations; other guild
// messages are forwarded as non-direct.
type Adapter struct {
	sess          session
	botToken      string
	channelID     string // if set, guild traffic outside it is ignored
	botUserID     string
	mu            sync.Mutex
	connected     bool
	closed        bool
	inbound       chan telegraph.InboundMessage
	cancelFunc    context.CancelFunc
	removeHandler func()
	baseBackoff   time.Duration
	maxBackoff    time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // Discord bot token
	ChannelID string // optional channel restriction; DMs are always accepted
	// For testing: inject a mock session instead of real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		sess:        opts.Session,
		botToken:    opts.BotToken,
		channelID:   opts.ChannelID,
		inbound:     make(chan telegraph.InboundMessage, 100),
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	// Capture the bot user ID on connect/reconnect.
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})
	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.connected = true
	return nil
}

// Listen returns a channel of inbound messages from Discord. Registers a
// message handler on the Gateway session. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	listenCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel
	a.removeHandler = a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if msg := a.convert(m); msg != nil {
			select {
			case a.inbound <- *msg:
			case <-listenCtx.Done():
			}
		}
	})
	return a.inbound, nil
}

// Send delivers a message to Discord. Cards become embeds (link buttons
// become link components); choices are appended as a numbered list.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	// In Discord, threads are channels. If ThreadID is set, send there directly.
	channelID := msg.ThreadID
	if channelID == "" {
		channelID = msg.ChannelID
	}
	if channelID == "" {
		return fmt.Errorf("discord: no channel specified")
	}

	data := buildMessageSend(msg)
	err := a.retryOnRateLimit(ctx, func() error {
		_, sendErr := a.sess.ChannelMessageSendComplex(channelID, data)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	if a.removeHandler != nil {
		a.removeHandler()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after the Ready event).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetBotUserID sets the bot user ID (used for self-message filtering).
func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
}

// convert turns a Discord message event into an InboundMessage, or nil for
// messages the bot must not see.
func (a *Adapter) convert(m *discordgo.MessageCreate) *telegraph.InboundMessage {
	if m.Author == nil || m.Author.Bot {
		return nil
	}
	a.mu.Lock()
	botID := a.botUserID
	a.mu.Unlock()
	if m.Author.ID == botID {
		return nil
	}

	direct := m.GuildID == ""
	if !direct && botID != "" {
		for _, u := range m.Mentions {
			if u != nil && u.ID == botID {
				direct = true
				break
			}
		}
	}

	// Threads are channels: a message inside a thread carries the thread's
	// channel ID, so resolve the parent from the state cache.
	channelID := m.ChannelID
	threadID := ""
	if ch, err := a.sess.Channel(m.ChannelID); err == nil && ch.IsThread() {
		channelID = ch.ParentID
		threadID = m.ChannelID
	}
	if m.GuildID != "" && a.channelID != "" && channelID != a.channelID {
		return nil
	}

	ts, _ := discordgo.SnowflakeTimestamp(m.ID)
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	return &telegraph.InboundMessage{
		Platform:  Platform,
		ChannelID: channelID,
		ThreadID:  threadID,
		UserID:    m.Author.ID,
		UserName:  name,
		Text:      m.Content,
		Direct:    direct,
		Timestamp: ts,
	}
}

// buildMessageSend translates an OutboundMessage into a Discord MessageSend.
func buildMessageSend(msg telegraph.OutboundMessage) *discordgo.MessageSend {
	content := msg.Text
	if len(msg.Choices) > 0 {
		if content != "" {
			content += "\n"
		}
		content += telegraph.FormatChoices(msg.Choices)
	}
	if len(content) > maxContent {
		content = content[:maxContent-3] + "..."
	}
	data := &discordgo.MessageSend{Content: content}

	var links []discordgo.MessageComponent
	for i, c := range msg.Cards {
		if i == maxEmbeds {
			break
		}
		embed, link := cardToEmbed(c)
		data.Embeds = append(data.Embeds, embed)
		if link != nil && len(links) < 5 {
			links = append(links, *link)
		}
	}
	if len(links) > 0 {
		data.Components = []discordgo.MessageComponent{discordgo.ActionsRow{Components: links}}
	}
	return data
}

// cardToEmbed converts a Card to a Discord Embed. The first openUrl button
// becomes the embed URL and a link button; quick replies are listed in the
// description.
func cardToEmbed(c telegraph.Card) (*discordgo.MessageEmbed, *discordgo.Button) {
	embed := &discordgo.MessageEmbed{
		Title: c.Title,
		Color: parseHexColor(telegraph.CardColor(c.Kind)),
	}
	var body []string
	if c.Subtitle != "" {
		body = append(body, "*"+c.Subtitle+"*")
	}
	if c.Text != "" {
		body = append(body, c.Text)
	}
	var link *discordgo.Button
	for _, btn := range c.Buttons {
		if btn.Type == telegraph.ActionOpenURL && link == nil {
			embed.URL = btn.Value
			link = &discordgo.Button{Label: btn.Title, Style: discordgo.LinkButton, URL: btn.Value}
			continue
		}
		body = append(body, telegraph.FormatAction(btn))
	}
	embed.Description = strings.Join(body, "\n")
	if c.ImageURL != "" {
		if c.Kind == telegraph.CardThumbnail {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.ImageURL}
		} else {
			embed.Image = &discordgo.MessageEmbedImage{URL: c.ImageURL}
		}
	}
	return embed, link
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	hex = strings.TrimPrefix(hex, "#")
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
