package telegraph

import (
	"context"
	"errors"
	"sync"
	"time"
)

type mockPhase int

const (
	mockIdle mockPhase = iota
	mockConnected
	mockClosed
)

// MockAdapter is an in-process Adapter for tests. Inbound traffic is
// injected with Deliver; everything the bot sends is kept so tests can
// inspect the text, cards and quick replies a turn produced.
type MockAdapter struct {
	mu        sync.Mutex
	phase     mockPhase
	inbound   chan InboundMessage
	sent      []OutboundMessage
	botUserID string
	sendErr   error
}

// NewMockAdapter returns an idle adapter; call Connect before Listen or Send.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{inbound: make(chan InboundMessage, 100)}
}

func (m *MockAdapter) BotUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID
}

func (m *MockAdapter) SetBotUserID(id string) {
	m.mu.Lock()
	m.botUserID = id
	m.mu.Unlock()
}

// SetSendError makes every later Send fail with err. Pass nil to recover.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	m.sendErr = err
	m.mu.Unlock()
}

func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == mockClosed {
		return errors.New("mock adapter: already closed")
	}
	m.phase = mockConnected
	return nil
}

func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != mockConnected {
		return nil, errors.New("mock adapter: not connected")
	}
	return m.inbound, nil
}

func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.phase != mockConnected:
		return errors.New("mock adapter: not connected")
	case m.sendErr != nil:
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close is idempotent and closes the channel returned by Listen.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == mockClosed {
		return nil
	}
	m.phase = mockClosed
	close(m.inbound)
	return nil
}

// Deliver pushes msg onto the inbound channel, stamping it with the current
// time when it carries none.
func (m *MockAdapter) Deliver(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.inbound <- msg
}

// LastSent reports the most recent outbound message, if any.
func (m *MockAdapter) LastSent() (OutboundMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.sent); n > 0 {
		return m.sent[n-1], true
	}
	return OutboundMessage{}, false
}

func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of every outbound message in send order.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.sent...)
}

// SentTo returns the messages addressed to one channel and thread.
func (m *MockAdapter) SentTo(channelID, threadID string) []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboundMessage
	for _, msg := range m.sent {
		if msg.ChannelID == channelID && msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out
}

// Cards flattens the cards of every sent reply in display order.
func (m *MockAdapter) Cards() []Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Card
	for _, msg := range m.sent {
		out = append(out, msg.Cards...)
	}
	return out
}

// LastChoices returns the quick replies of the most recent reply that
// offered any, or nil when no prompt has been sent.
func (m *MockAdapter) LastChoices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if c := m.sent[i].Choices; len(c) > 0 {
			return append([]string(nil), c...)
		}
	}
	return nil
}
