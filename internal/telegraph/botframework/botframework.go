// Package botframework implements the telegraph Adapter for the Bot
// Framework connector (Teams, Web Chat, the emulator). Activities arrive
// over HTTP and replies are posted back to the conversation's service URL.
package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zulandar/deskbot/internal/telegraph"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrNotListening is returned when an activity arrives before Listen or
	// after Close.
	ErrNotListening = errors.New("botframework: adapter is not listening")
)

// conversationRef is what a reply needs from the last inbound activity.
type conversationRef struct {
	serviceURL string
	activityID string
	bot        ChannelAccount
	user       ChannelAccount
}

// AdapterOpts holds parameters for creating an Adapter.
type AdapterOpts struct {
	AppID       string // empty disables outbound authentication (emulator)
	AppPassword string
	TokenURL    string
	Scope       string
	HTTPClient  *http.Client
	Now         func() time.Time
}

// Adapter implements telegraph.Adapter for the Bot Framework.
type Adapter struct {
	appID  string
	client *http.Client
	now    func() time.Time

	refsMu sync.Mutex
	refs   map[string]conversationRef

	mu        sync.RWMutex
	connected bool
	listening bool
	closed    bool
	inbound   chan telegraph.InboundMessage
	done      chan struct{}
	closeOnce sync.Once
}

// New creates an Adapter. When AppID and AppPassword are set, outbound
// requests carry a client-credentials bearer token.
func New(opts AdapterOpts) (*Adapter, error) {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	client := base
	if opts.AppID != "" || opts.AppPassword != "" {
		if opts.AppID == "" || opts.AppPassword == "" {
			return nil, fmt.Errorf("botframework: app id and app password must be set together")
		}
		if opts.TokenURL == "" {
			return nil, fmt.Errorf("botframework: token url is required")
		}
		cc := &clientcredentials.Config{
			ClientID:     opts.AppID,
			ClientSecret: opts.AppPassword,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		if opts.Scope != "" {
			cc.Scopes = []string{opts.Scope}
		}
		client = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Adapter{
		appID:   opts.AppID,
		client:  client,
		now:     opts.Now,
		refs:    make(map[string]conversationRef),
		inbound: make(chan telegraph.InboundMessage, 100),
		done:    make(chan struct{}),
	}, nil
}

// Connect marks the adapter ready. The connector is stateless; nothing is
// dialed.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("botframework: adapter already closed")
	}
	a.connected = true
	return nil
}

// Listen returns the channel fed by HandleActivity.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("botframework: not connected")
	}
	a.listening = true
	return a.inbound, nil
}

// HandleActivity accepts one inbound activity. Non-message activities are
// dropped.
func (a *Adapter) HandleActivity(ctx context.Context, act *Activity) error {
	if act.Type != ActivityMessage {
		return nil
	}
	if act.Conversation.ID == "" || act.ServiceURL == "" {
		return fmt.Errorf("botframework: activity missing conversation id or service url")
	}

	a.refsMu.Lock()
	a.refs[act.Conversation.ID] = conversationRef{
		serviceURL: act.ServiceURL,
		activityID: act.ID,
		bot:        act.Recipient,
		user:       act.From,
	}
	a.refsMu.Unlock()

	ts := a.now()
	if act.Timestamp != nil {
		ts = *act.Timestamp
	}
	msg := telegraph.InboundMessage{
		Platform:   act.ChannelID,
		ChannelID:  act.Conversation.ID,
		UserID:     act.From.ID,
		UserName:   act.From.Name,
		Text:       act.Text,
		ServiceURL: act.ServiceURL,
		Direct:     act.IsDirect(),
		Timestamp:  ts,
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.listening || a.closed {
		return ErrNotListening
	}
	select {
	case a.inbound <- msg:
		return nil
	case <-a.done:
		return ErrNotListening
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler is the gin handler for POST /api/messages.
func (a *Adapter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var act Activity
		if err := c.ShouldBindJSON(&act); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity"})
			return
		}
		if claims, ok := c.Get(claimsKey); ok {
			if cl, ok := claims.(*Claims); ok && cl.ServiceURL != "" && cl.ServiceURL != act.ServiceURL {
				c.JSON(http.StatusForbidden, gin.H{"error": "service url mismatch"})
				return
			}
		}
		if err := a.HandleActivity(c.Request.Context(), &act); err != nil {
			log.Printf("botframework: handle activity %s: %v", act.ID, err)
			if errors.Is(err, ErrNotListening) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	}
}

// Send posts a reply into the conversation named by msg.ChannelID.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.refsMu.Lock()
	ref, ok := a.refs[msg.ChannelID]
	a.refsMu.Unlock()
	if !ok {
		return fmt.Errorf("botframework: no conversation reference for %q", msg.ChannelID)
	}

	act := buildActivity(ref, msg.ChannelID, msg.Reply)
	act.ID = uuid.NewString()
	ts := a.now().UTC()
	act.Timestamp = &ts

	body, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("botframework: encode reply: %w", err)
	}
	endpoint := strings.TrimRight(ref.serviceURL, "/") + "/v3/conversations/" + url.PathEscape(msg.ChannelID) + "/activities"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("botframework: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("botframework: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("botframework: send: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// buildActivity converts a reply into an outbound message activity.
func buildActivity(ref conversationRef, conversationID string, reply telegraph.Reply) *Activity {
	act := &Activity{
		Type:         ActivityMessage,
		From:         ref.bot,
		Recipient:    ref.user,
		Conversation: ConversationAccount{ID: conversationID},
		ReplyToID:    ref.activityID,
		Text:         reply.Text,
		TextFormat:   "markdown",
	}
	for _, card := range reply.Cards {
		act.Attachments = append(act.Attachments, cardAttachment(card))
	}
	if len(act.Attachments) > 0 {
		layout := reply.Layout
		if layout == "" {
			layout = telegraph.LayoutList
		}
		act.AttachmentLayout = string(layout)
	}
	if len(reply.Choices) > 0 {
		sa := &SuggestedActions{To: []string{ref.user.ID}}
		for _, choice := range reply.Choices {
			sa.Actions = append(sa.Actions, CardAction{Type: string(telegraph.ActionIMBack), Title: choice, Value: choice})
		}
		act.SuggestedActions = sa
	}
	return act
}

func cardAttachment(card telegraph.Card) Attachment {
	content := RichCard{
		Title:    card.Title,
		Subtitle: card.Subtitle,
		Text:     card.Text,
	}
	if card.ImageURL != "" {
		content.Images = []CardImage{{URL: card.ImageURL}}
	}
	for _, b := range card.Buttons {
		content.Buttons = append(content.Buttons, CardAction{Type: string(b.Type), Title: b.Title, Value: b.Value})
	}
	contentType := ContentTypeHero
	if card.Kind == telegraph.CardThumbnail {
		contentType = ContentTypeThumbnail
	}
	return Attachment{ContentType: contentType, Content: content}
}

// Close stops accepting activities. Safe to call more than once.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.mu.Lock()
		a.closed = true
		a.connected = false
		close(a.inbound)
		a.mu.Unlock()
	})
	return nil
}
