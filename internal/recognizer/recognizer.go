// Package recognizer classifies user utterances into intents.
package recognizer

import (
	"context"
	"strings"
)

// Kind names an intent. The set is closed; dispatch tables are keyed on it.
type Kind string

const (
	KindNone                Kind = "none"
	KindGreeting            Kind = "greeting"
	KindThankYou            Kind = "thankYou"
	KindServiceNowMenu      Kind = "serviceNowMenu"
	KindGetIncident         Kind = "getIncident"
	KindCreateIncident      Kind = "createIncident"
	KindUpdateIncident      Kind = "updateIncident"
	KindResolveIncident     Kind = "resolveIncident"
	KindReopenIncident      Kind = "reopenIncident"
	KindSearchKnowledgeBase Kind = "searchKnowledgeBase"
	KindQnA                 Kind = "qna"
)

// AllKinds returns every intent kind, KindNone first.
func AllKinds() []Kind {
	return []Kind{
		KindNone,
		KindGreeting,
		KindThankYou,
		KindServiceNowMenu,
		KindGetIncident,
		KindCreateIncident,
		KindUpdateIncident,
		KindResolveIncident,
		KindReopenIncident,
		KindSearchKnowledgeBase,
		KindQnA,
	}
}

// ParseKind maps a label to a Kind, ignoring case. Unknown labels map to
// KindNone.
func ParseKind(label string) Kind {
	label = strings.TrimSpace(label)
	for _, k := range AllKinds() {
		if strings.EqualFold(string(k), label) {
			return k
		}
	}
	return KindNone
}

// Answer is a knowledge-base answer attached to a KindQnA intent.
type Answer struct {
	Text     string
	Score    float64 // normalized to 0..1
	Question string
}

// Intent is the classification of one utterance.
type Intent struct {
	Kind   Kind
	Score  float64
	Answer *Answer
}

// None is the intent returned when nothing matched.
var None = Intent{Kind: KindNone}

// Recognizer classifies text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) (Intent, error)
}

// Func adapts a function to the Recognizer interface.
type Func func(ctx context.Context, text string) (Intent, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, text string) (Intent, error) {
	return f(ctx, text)
}
