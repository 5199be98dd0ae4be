package dialog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/telegraph"
)

// Turn is the context handed to every step of one inbound message: the
// message itself, the loaded conversation and user records, and the replies
// produced so far.
type Turn struct {
	ctx    context.Context
	engine *Engine

	Msg    telegraph.InboundMessage
	Intent recognizer.Intent
	Conv   *ConversationState
	User   *UserProfile

	userChanged bool
	replies     []telegraph.Reply
}

// Context returns the turn's context; external calls must use it.
func (t *Turn) Context() context.Context {
	return t.ctx
}

// Send queues a text reply.
func (t *Turn) Send(text string) {
	t.replies = append(t.replies, telegraph.Reply{Text: text})
}

// Sendf queues a formatted text reply.
func (t *Turn) Sendf(format string, args ...interface{}) {
	t.Send(fmt.Sprintf(format, args...))
}

// SendCards queues a reply carrying cards.
func (t *Turn) SendCards(layout telegraph.Layout, cards ...telegraph.Card) {
	if len(cards) == 0 {
		return
	}
	t.replies = append(t.replies, telegraph.Reply{Cards: cards, Layout: layout})
}

func (t *Turn) ask(p *Prompt) {
	t.replies = append(t.replies, telegraph.Reply{Text: p.Text, Choices: p.Choices})
}

// Get returns a value stored in the current frame.
func (t *Turn) Get(key string) string {
	fr := t.Conv.top()
	if fr == nil {
		return ""
	}
	return fr.Values[key]
}

// Set stores a value in the current frame. It is discarded with the frame.
func (t *Turn) Set(key, value string) {
	fr := t.Conv.top()
	if fr == nil {
		return
	}
	if fr.Values == nil {
		fr.Values = make(map[string]string)
	}
	fr.Values[key] = value
}

func (t *Turn) setJSON(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.Set(key, string(b))
	return nil
}

func (t *Turn) getJSON(key string, v interface{}) error {
	return json.Unmarshal([]byte(t.Get(key)), v)
}

// remember caches u as the user's ServiceNow caller.
func (t *Turn) remember(u servicenow.User) {
	*t.User = UserProfile{
		CallerID:    u.SysID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName(),
		ResolvedAt:  t.engine.now().UTC(),
	}
	t.userChanged = true
	t.Conv.Data.LoginAttempts = 0
}

// name is how the bot addresses the user.
func (t *Turn) name() string {
	switch {
	case t.Msg.UserName != "":
		return t.Msg.UserName
	case t.User.DisplayName != "":
		return t.User.DisplayName
	default:
		return "friend"
	}
}
