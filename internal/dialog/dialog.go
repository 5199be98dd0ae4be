// Package dialog runs the help-desk conversations: named flows made of
// ordered steps, a per-conversation dialog stack persisted between turns,
// prompts that suspend a flow until the next message, global cancellation
// and root intent dispatch.
package dialog

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// maxTransitions bounds the step transitions run for a single inbound
// message.
const maxTransitions = 64

var (
	// ErrStepLimit is returned when a turn runs maxTransitions steps
	// without suspending.
	ErrStepLimit = errors.New("dialog: step limit exceeded")
	// ErrUnknownFlow is returned when a frame names a flow or step that is
	// not registered.
	ErrUnknownFlow = errors.New("dialog: unknown flow")
)

// Flow is a named, ordered list of steps.
type Flow struct {
	Name  string
	Steps []Step
}

// Step is one stage of a flow. Run receives the answer to the prompt issued
// by the previous step, or a zero Input when the flow fell through.
type Step struct {
	Name string
	Run  func(t *Turn, in Input) Action
}

// stepIndex returns the position of the named step, or -1.
func (f *Flow) stepIndex(name string) int {
	for i, s := range f.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Input is a validated answer to a prompt.
type Input struct {
	Answered bool   // false when the step was reached without a prompt
	Text     string // the user's text, or the canonical choice text
	Choice   int    // index into the prompt's choices; -1 for text prompts
}

// Is reports whether the input selected the choice at index i.
func (in Input) Is(i int) bool {
	return in.Answered && in.Choice == i
}

// PromptKind distinguishes free-text prompts from choice prompts.
type PromptKind string

const (
	PromptText   PromptKind = "text"
	PromptChoice PromptKind = "choice"
)

// Prompt is a question waiting for the user's next message.
type Prompt struct {
	Kind    PromptKind `json:"kind"`
	Text    string     `json:"text"`
	Choices []string   `json:"choices,omitempty"`
}

// match validates text against the prompt. Choice prompts accept the
// choice text (case-insensitive) or its 1-based index.
func (p *Prompt) match(text string) (Input, bool) {
	text = strings.TrimSpace(text)
	if p.Kind != PromptChoice {
		if text == "" {
			return Input{}, false
		}
		return Input{Answered: true, Text: text, Choice: -1}, true
	}
	for i, c := range p.Choices {
		if strings.EqualFold(c, text) {
			return Input{Answered: true, Text: c, Choice: i}, true
		}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(p.Choices) {
		return Input{Answered: true, Text: p.Choices[n-1], Choice: n - 1}, true
	}
	return Input{}, false
}

type actionKind int

const (
	actNext actionKind = iota
	actPrompt
	actEnd
	actBegin
	actReplace
	actEndConversation
)

// Action tells the engine what to do after a step returns.
type Action struct {
	kind   actionKind
	prompt *Prompt
	flow   string
	step   string
}

// Next falls through to the following step.
func Next() Action { return Action{kind: actNext} }

// End pops the current flow; the parent flow continues at its next step.
func End() Action { return Action{kind: actEnd} }

// Begin pushes a child flow. The current flow resumes at its next step
// once the child ends.
func Begin(flow string) Action { return Action{kind: actBegin, flow: flow} }

// Replace swaps the current flow for another, starting at its first step.
func Replace(flow string) Action { return Action{kind: actReplace, flow: flow} }

// ReplaceAt swaps the current flow for another, starting at the named step.
func ReplaceAt(flow, step string) Action { return Action{kind: actReplace, flow: flow, step: step} }

// EndConversation clears the whole dialog stack.
func EndConversation() Action { return Action{kind: actEndConversation} }

// AskText suspends the flow until the user answers with any text.
func AskText(text string) Action {
	return Action{kind: actPrompt, prompt: &Prompt{Kind: PromptText, Text: text}}
}

// AskChoice suspends the flow until the user picks one of choices.
func AskChoice(text string, choices ...string) Action {
	return Action{kind: actPrompt, prompt: &Prompt{Kind: PromptChoice, Text: text, Choices: choices}}
}

// Frame is one entry of the dialog stack. Step is the index of the next
// step to run; Prompt is set while the frame waits for an answer.
type Frame struct {
	Flow   string            `json:"flow"`
	Step   int               `json:"step"`
	Values map[string]string `json:"values,omitempty"`
	Prompt *Prompt           `json:"prompt,omitempty"`
}

// ConversationData holds conversation-scoped values that outlive a frame.
type ConversationData struct {
	UserQuestion  string `json:"user_question,omitempty"`
	LoginAttempts int    `json:"login_attempts,omitempty"`
}

// ConversationState is one user's session record within a conversation.
type ConversationState struct {
	Stack         []Frame          `json:"stack,omitempty"`
	PendingCancel bool             `json:"pending_cancel,omitempty"`
	Data          ConversationData `json:"data"`
}

// Active reports whether a flow is in progress.
func (c ConversationState) Active() bool {
	return len(c.Stack) > 0
}

func (c *ConversationState) top() *Frame {
	if len(c.Stack) == 0 {
		return nil
	}
	return &c.Stack[len(c.Stack)-1]
}

// UserProfile is the user-scoped record caching the resolved ServiceNow
// caller.
type UserProfile struct {
	CallerID    string    `json:"caller_id,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether a caller identity is cached.
func (u UserProfile) Resolved() bool {
	return u.CallerID != ""
}
