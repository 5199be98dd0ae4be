package telegraph

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// commandPrefix is the prefix that triggers admin command handling.
const commandPrefix = "!bot"

// Bot runs one conversational turn and returns the replies to send, in
// order. Implementations may return no replies (e.g. a channel message not
// addressed to the bot while no conversation is in progress).
type Bot interface {
	HandleTurn(ctx context.Context, msg InboundMessage) ([]Reply, error)
}

// Router classifies inbound chat messages and routes them to the
// appropriate handler: the command handler for "!bot" commands, the bot
// for everything else, or ignore for the bot's own messages.
type Router struct {
	bot         Bot
	cmdHandler  *CommandHandler
	adapter     Adapter
	transcripts *TranscriptStore
	botUserID   string // the bot's own user ID (to filter self-messages)
	exec        *serialExecutor
	out         io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Bot         Bot
	CmdHandler  *CommandHandler  // optional; commands are passed to the bot when nil
	Adapter     Adapter
	Transcripts *TranscriptStore // optional
	BotUserID   string           // bot's user ID for self-message filtering
	Out         io.Writer        // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Bot == nil {
		return nil, fmt.Errorf("telegraph: router: bot is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: router: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		bot:         opts.Bot,
		cmdHandler:  opts.CmdHandler,
		adapter:     opts.Adapter,
		transcripts: opts.Transcripts,
		botUserID:   opts.BotUserID,
		exec:        newSerialExecutor(),
		out:         out,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Mentions of the bot are stripped from the text
//  3. Command prefix "!bot" → command handler
//  4. Everything else → handed to the bot
//
// Commands and turns share one queue per conversation, so a command never
// overlaps a turn in flight. Handle returns once the work is queued; use
// Wait to block until all queued work has finished.
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	// 1. Filter bot self-messages.
	if r.isSelfMessage(msg) {
		return
	}

	// 2. Strip mentions.
	msg.Text = stripMentions(msg.Text)
	fmt.Fprintf(r.out, "telegraph: router: recv [%s ch=%s thread=%s user=%s] %q\n",
		msg.Platform, msg.ChannelID, msg.ThreadID, msg.UserName, truncate(msg.Text, 80))

	key := msg.Platform + "/" + msg.ConversationID()

	// 3. Admin command.
	if r.cmdHandler != nil && isCommand(msg.Text) {
		fmt.Fprintf(r.out, "telegraph: router: → command\n")
		r.exec.Submit(key, func() {
			r.handleCommand(ctx, msg)
		})
		return
	}

	// 4. Conversational turn.
	r.exec.Submit(key, func() {
		r.turn(ctx, msg)
	})
}

// Wait blocks until every queued turn and command has completed.
func (r *Router) Wait() {
	r.exec.Wait()
}

// turn runs the bot for one message and sends its replies in order.
func (r *Router) turn(ctx context.Context, msg InboundMessage) {
	replies, err := r.bot.HandleTurn(ctx, msg)
	if err != nil {
		log.Printf("telegraph: router: turn [%s/%s]: %v", msg.Platform, msg.ConversationID(), err)
	}
	if len(replies) == 0 {
		return
	}
	r.record(ctx, msg, nil)
	for _, reply := range replies {
		if err := r.adapter.Send(ctx, OutboundMessage{
			ChannelID: msg.ChannelID,
			ThreadID:  msg.ThreadID,
			Reply:     reply,
		}); err != nil {
			log.Printf("telegraph: router: send reply: %v", err)
			return
		}
		r.record(ctx, msg, &reply)
	}
}

// record appends the user message (reply == nil) or a bot reply to the
// transcript, if one is configured. Failures are logged only.
func (r *Router) record(ctx context.Context, msg InboundMessage, reply *Reply) {
	if r.transcripts == nil {
		return
	}
	var err error
	if reply == nil {
		err = r.transcripts.RecordUser(ctx, msg)
	} else {
		err = r.transcripts.RecordBot(ctx, msg.Platform, msg.ConversationID(), *reply)
	}
	if err != nil {
		log.Printf("telegraph: router: transcript: %v", err)
	}
}

// handleCommand dispatches a "!bot" command and sends the response.
func (r *Router) handleCommand(ctx context.Context, msg InboundMessage) {
	response := r.cmdHandler.Execute(ctx, msg, msg.Text)
	if err := r.adapter.Send(ctx, OutboundMessage{
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		Reply:     Reply{Text: response},
	}); err != nil {
		log.Printf("telegraph: router: send command response: %v", err)
	}
}

// truncate returns s cut to at most maxLen bytes on a rune boundary, with
// "..." appended if anything was removed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// isSelfMessage returns true if the message is from the bot itself.
func (r *Router) isSelfMessage(msg InboundMessage) bool {
	return r.botUserID != "" && msg.UserID == r.botUserID
}

// isCommand returns true if the text starts with the command prefix.
func isCommand(text string) bool {
	return strings.HasPrefix(text, commandPrefix+" ") || text == commandPrefix
}

// Mention formats: Teams <at>Name</at>, Discord <@ID>/<@!ID>, Slack <@U123>.
var (
	teamsMentionRe = regexp.MustCompile(`<at>[^<]*</at>`)
	userMentionRe  = regexp.MustCompile(`<@!?[A-Za-z0-9]+>`)
)

// stripMentions removes platform mention markup and collapses whitespace.
func stripMentions(text string) string {
	text = teamsMentionRe.ReplaceAllString(text, " ")
	text = userMentionRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
