// Package console implements the telegraph Adapter over a terminal: lines
// read from an io.Reader are user messages and replies are written as
// plain text.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/deskbot/internal/telegraph"
	"golang.org/x/term"
)

// Platform is the InboundMessage.Platform value for the console.
const Platform = "console"

// ChannelID is the single conversation a console session carries.
const ChannelID = "local"

// Adapter implements telegraph.Adapter for a local terminal session.
type Adapter struct {
	in       io.Reader
	out      io.Writer
	userID   string
	userName string
	prompt   bool

	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan telegraph.InboundMessage
}

// AdapterOpts holds parameters for creating a console Adapter.
type AdapterOpts struct {
	In       io.Reader // defaults to os.Stdin
	Out      io.Writer // defaults to os.Stdout
	UserID   string    // defaults to $USER, then "local-user"
	UserName string    // defaults to UserID
}

// New creates a console Adapter. A "> " prompt is printed only when both
// ends are terminals.
func New(opts AdapterOpts) *Adapter {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	userID := opts.UserID
	if userID == "" {
		userID = os.Getenv("USER")
	}
	if userID == "" {
		userID = "local-user"
	}
	userName := opts.UserName
	if userName == "" {
		userName = userID
	}
	return &Adapter{
		in:       in,
		out:      out,
		userID:   userID,
		userName: userName,
		prompt:   isTerminal(in) && isTerminal(out),
		inbound:  make(chan telegraph.InboundMessage, 16),
	}
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Connect marks the adapter ready.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("console: adapter already closed")
	}
	a.connected = true
	return nil
}

// Listen starts reading lines. The inbound channel is closed at EOF.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.InboundMessage, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("console: not connected")
	}
	a.mu.Unlock()

	go a.readLoop(ctx)
	return a.inbound, nil
}

func (a *Adapter) readLoop(ctx context.Context) {
	defer a.Close()
	scanner := bufio.NewScanner(a.in)
	a.showPrompt()
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			a.showPrompt()
			continue
		}
		msg := telegraph.InboundMessage{
			Platform:  Platform,
			ChannelID: ChannelID,
			UserID:    a.userID,
			UserName:  a.userName,
			Text:      text,
			Direct:    true,
			Timestamp: time.Now(),
		}
		select {
		case a.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) showPrompt() {
	if a.prompt {
		fmt.Fprint(a.out, "> ")
	}
}

// Send writes the reply as plain text.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected && !a.closed {
		return fmt.Errorf("console: not connected")
	}
	text := telegraph.RenderText(msg.Reply)
	if text == "" {
		return nil
	}
	if _, err := fmt.Fprintf(a.out, "%s\n\n", text); err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	a.showPrompt()
	return nil
}

// Close closes the inbound channel. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	close(a.inbound)
	return nil
}
