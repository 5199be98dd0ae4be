package dialog

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/state"
	"github.com/zulandar/deskbot/internal/telegraph"
)

// ServiceNow is the ticketing API used by the flows.
type ServiceNow interface {
	CreateIncident(ctx context.Context, in servicenow.NewIncident, callerID string) (*servicenow.Incident, error)
	GetIncidentsByCaller(ctx context.Context, callerID string) ([]servicenow.Incident, error)
	GetIncidentByNumber(ctx context.Context, number string) ([]servicenow.Incident, error)
	UpdateIncident(ctx context.Context, incidentID, comments, callerID string) error
	ResolveIncident(ctx context.Context, incidentID, callerID string) error
	ReopenIncident(ctx context.Context, incidentID, notes, callerID string) error
	SearchKnowledgeBase(ctx context.Context, query string) ([]servicenow.Article, error)
	GetUsersByName(ctx context.Context, firstName, lastName string) ([]servicenow.User, error)
	IncidentURL(sysID string) string
	ArticleURL(sysID string) string
	MyIncidentsURL() string
}

// TokenExchanger resolves the caller from the channel's conversation
// roster.
type TokenExchanger interface {
	Resolve(ctx context.Context, platform, serviceURL, conversationID string) (*servicenow.User, error)
}

var cancelRe = regexp.MustCompile(`(?i)^(cancel|goodbye|nevermind|never mind|exit|quit|start over)$`)

// IsCancel reports whether text is a cancellation phrase.
func IsCancel(text string) bool {
	return cancelRe.MatchString(strings.TrimSpace(text))
}

var cancelPrompt = Prompt{Kind: PromptChoice, Text: "Are you sure?", Choices: []string{"Yes", "No"}}

const (
	goodbyeText    = "Ok. Goodbye."
	stateErrorText = "Sorry, I couldn't load our conversation just now. Please try again in a moment."
	failureText    = "Sorry, something went wrong on my side. Let's start over."
)

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	State            *state.Manager        // required
	Recognizer       recognizer.Recognizer // required
	ServiceNow       ServiceNow            // required
	Identity         TokenExchanger        // optional; enables roster lookup on Teams
	MaxLoginAttempts int                   // credential prompts before giving up; 0 is unbounded
	BotName          string                // default "EcoBot"
	ImageURL         string
	Now              func() time.Time
}

// Engine drives conversations. It implements telegraph.Bot and
// telegraph.Accounts.
type Engine struct {
	state      *state.Manager
	recognizer recognizer.Recognizer
	snow       ServiceNow
	identity   TokenExchanger
	maxLogin   int
	botName    string
	imageURL   string
	now        func() time.Time

	flows    map[string]*Flow
	dispatch map[recognizer.Kind]string
}

// NewEngine validates opts and registers the built-in flows.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.State == nil {
		return nil, fmt.Errorf("dialog: state manager is required")
	}
	if opts.Recognizer == nil {
		return nil, fmt.Errorf("dialog: recognizer is required")
	}
	if opts.ServiceNow == nil {
		return nil, fmt.Errorf("dialog: servicenow client is required")
	}
	if opts.MaxLoginAttempts < 0 {
		return nil, fmt.Errorf("dialog: max login attempts must be >= 0")
	}
	if opts.BotName == "" {
		opts.BotName = "EcoBot"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		state:      opts.State,
		recognizer: opts.Recognizer,
		snow:       opts.ServiceNow,
		identity:   opts.Identity,
		maxLogin:   opts.MaxLoginAttempts,
		botName:    opts.BotName,
		imageURL:   opts.ImageURL,
		now:        opts.Now,
		flows:      make(map[string]*Flow),
	}
	for _, f := range e.builtinFlows() {
		e.register(f)
	}
	e.dispatch = dispatchTable()
	for kind, name := range e.dispatch {
		if _, ok := e.flows[name]; !ok {
			return nil, fmt.Errorf("dialog: intent %s dispatches to %w %q", kind, ErrUnknownFlow, name)
		}
	}
	return e, nil
}

func (e *Engine) register(f *Flow) {
	e.flows[f.Name] = f
}

// dispatchTable maps every intent kind to the flow that handles it.
func dispatchTable() map[recognizer.Kind]string {
	return map[recognizer.Kind]string{
		recognizer.KindNone:                flowNone,
		recognizer.KindGreeting:            flowGreeting,
		recognizer.KindThankYou:            flowThankYou,
		recognizer.KindServiceNowMenu:      flowMenu,
		recognizer.KindGetIncident:         flowGetIncidents,
		recognizer.KindCreateIncident:      flowCreateIncident,
		recognizer.KindUpdateIncident:      flowUpdateIncident,
		recognizer.KindResolveIncident:     flowResolveIncident,
		recognizer.KindReopenIncident:      flowReopenIncident,
		recognizer.KindSearchKnowledgeBase: flowSearchKnowledgeBase,
		recognizer.KindQnA:                 flowQnA,
	}
}

// HandleTurn processes one inbound message and returns the replies to
// send. Dialog state is private to the sender within the conversation, so
// in a shared channel only the user who started a flow can answer it.
// Group messages that do not address the bot are ignored unless the
// sender's own flow is waiting for an answer.
func (e *Engine) HandleTurn(ctx context.Context, msg telegraph.InboundMessage) ([]telegraph.Reply, error) {
	convKey := state.SessionKey(msg.Platform, msg.ConversationID(), msg.UserID)
	var conv ConversationState
	if _, err := e.state.Load(ctx, convKey, &conv); err != nil {
		return []telegraph.Reply{{Text: stateErrorText}}, fmt.Errorf("dialog: %w", err)
	}
	if !msg.Direct && !conv.Active() {
		return nil, nil
	}
	userKey := state.UserKey(msg.Platform, msg.UserID)
	var user UserProfile
	if _, err := e.state.Load(ctx, userKey, &user); err != nil {
		return []telegraph.Reply{{Text: stateErrorText}}, fmt.Errorf("dialog: %w", err)
	}

	t := &Turn{ctx: ctx, engine: e, Msg: msg, Conv: &conv, User: &user}
	err := e.process(t)
	if err != nil {
		err = fmt.Errorf("dialog: turn: %w", err)
		conv.Stack = nil
		conv.PendingCancel = false
		t.Send(failureText)
	}

	if saveErr := e.state.Save(ctx, convKey, &conv); saveErr != nil && err == nil {
		err = fmt.Errorf("dialog: %w", saveErr)
	}
	if t.userChanged {
		if saveErr := e.state.Save(ctx, userKey, &user); saveErr != nil && err == nil {
			err = fmt.Errorf("dialog: %w", saveErr)
		}
	}
	return t.replies, err
}

func (e *Engine) process(t *Turn) error {
	text := strings.TrimSpace(t.Msg.Text)
	conv := t.Conv
	if !conv.Active() {
		conv.PendingCancel = false
		return e.dispatchIntent(t, text)
	}
	if conv.PendingCancel {
		e.confirmCancel(t, text)
		return nil
	}
	if IsCancel(text) {
		conv.PendingCancel = true
		t.ask(&cancelPrompt)
		return nil
	}
	return e.resume(t, text)
}

func (e *Engine) confirmCancel(t *Turn, text string) {
	in, ok := cancelPrompt.match(text)
	if !ok {
		t.ask(&cancelPrompt)
		return
	}
	t.Conv.PendingCancel = false
	if in.Is(0) {
		t.Send(goodbyeText)
		t.Conv.Stack = nil
		return
	}
	if fr := t.Conv.top(); fr != nil && fr.Prompt != nil {
		t.ask(fr.Prompt)
	}
}

func (e *Engine) resume(t *Turn, text string) error {
	fr := t.Conv.top()
	if fr.Prompt == nil {
		return e.run(t, Input{Choice: -1})
	}
	in, ok := fr.Prompt.match(text)
	if !ok {
		t.ask(fr.Prompt)
		return nil
	}
	fr.Prompt = nil
	return e.run(t, in)
}

func (e *Engine) dispatchIntent(t *Turn, text string) error {
	intent, err := e.recognizer.Recognize(t.ctx, text)
	if err != nil {
		log.Printf("dialog: recognize %q: %v", text, err)
		t.Send(defaultReply(text, t.name()))
		return nil
	}
	name, ok := e.dispatch[intent.Kind]
	if !ok {
		t.Send(defaultReply(text, t.name()))
		return nil
	}
	t.Intent = intent
	t.Conv.Stack = []Frame{{Flow: name}}
	return e.run(t, Input{Choice: -1})
}

// run executes steps from the top frame until a flow suspends on a prompt
// or the stack empties.
func (e *Engine) run(t *Turn, in Input) error {
	conv := t.Conv
	for n := 0; ; n++ {
		if n >= maxTransitions {
			return ErrStepLimit
		}
		fr := conv.top()
		if fr == nil {
			return nil
		}
		flow, ok := e.flows[fr.Flow]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownFlow, fr.Flow)
		}
		if fr.Step >= len(flow.Steps) {
			conv.Stack = conv.Stack[:len(conv.Stack)-1]
			in = Input{Choice: -1}
			continue
		}

		act := flow.Steps[fr.Step].Run(t, in)
		in = Input{Choice: -1}
		fr = conv.top()

		switch act.kind {
		case actNext:
			fr.Step++
		case actPrompt:
			fr.Step++
			fr.Prompt = act.prompt
			t.ask(act.prompt)
			return nil
		case actEnd:
			conv.Stack = conv.Stack[:len(conv.Stack)-1]
		case actBegin:
			fr.Step++
			conv.Stack = append(conv.Stack, Frame{Flow: act.flow})
		case actReplace:
			next, ok := e.flows[act.flow]
			if !ok {
				return fmt.Errorf("%w %q", ErrUnknownFlow, act.flow)
			}
			idx := 0
			if act.step != "" {
				if idx = next.stepIndex(act.step); idx < 0 {
					return fmt.Errorf("%w step %s/%s", ErrUnknownFlow, act.flow, act.step)
				}
			}
			*fr = Frame{Flow: act.flow, Step: idx}
		case actEndConversation:
			conv.Stack = nil
			return nil
		}
	}
}

// WhoAmI returns the cached ServiceNow identity, or nil when none is cached.
func (e *Engine) WhoAmI(ctx context.Context, platform, userID string) (*telegraph.UserIdentity, error) {
	var user UserProfile
	found, err := e.state.Load(ctx, state.UserKey(platform, userID), &user)
	if err != nil {
		return nil, fmt.Errorf("dialog: whoami: %w", err)
	}
	if !found || !user.Resolved() {
		return nil, nil
	}
	return &telegraph.UserIdentity{
		CallerID:    user.CallerID,
		UserName:    user.UserName,
		DisplayName: user.DisplayName,
		ResolvedAt:  user.ResolvedAt,
	}, nil
}

// Logout forgets the user's cached identity.
func (e *Engine) Logout(ctx context.Context, platform, userID string) error {
	if err := e.state.Delete(ctx, state.UserKey(platform, userID)); err != nil {
		return fmt.Errorf("dialog: logout: %w", err)
	}
	return nil
}

// Reset discards the user's dialog stack and data in a conversation.
func (e *Engine) Reset(ctx context.Context, platform, conversationID, userID string) error {
	if err := e.state.Delete(ctx, state.SessionKey(platform, conversationID, userID)); err != nil {
		return fmt.Errorf("dialog: reset: %w", err)
	}
	return nil
}
