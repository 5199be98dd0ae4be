package recognizer

import (
	"context"
	"strings"
	"unicode"
)

// keywordRule maps phrases to an intent. Rules are evaluated in order, so
// more specific intents come first.
type keywordRule struct {
	kind    Kind
	phrases []string
}

var defaultRules = []keywordRule{
	{KindReopenIncident, []string{"reopen", "re open", "open again", "open it again"}},
	{KindResolveIncident, []string{"resolve", "close my incident", "close an incident", "close incident", "close a ticket", "close my ticket", "mark as fixed"}},
	{KindUpdateIncident, []string{"update", "add comment", "add comments", "add a comment", "add notes", "add a note"}},
	{KindCreateIncident, []string{"create", "new incident", "new ticket", "open an incident", "open a ticket", "raise a ticket", "log a ticket", "submit a ticket", "report a problem", "report an issue"}},
	{KindGetIncident, []string{"get incidents", "my incidents", "show incidents", "view incidents", "list incidents", "my tickets", "show my tickets", "incident status", "open incidents"}},
	{KindSearchKnowledgeBase, []string{"search", "knowledge base", "knowledge article", "kb article", "find an article", "help center"}},
	{KindServiceNowMenu, []string{"what can you do", "menu", "options", "help me", "help"}},
	{KindThankYou, []string{"thank you", "thanks", "thx", "cheers", "much appreciated"}},
	{KindGreeting, []string{"hi", "hello", "hey", "howdy", "good morning", "good afternoon", "good evening", "yo"}},
}

// KeywordRecognizer classifies text with phrase heuristics. It needs no
// external service and backs local development and the chat command.
type KeywordRecognizer struct {
	rules []keywordRule
}

// NewKeywordRecognizer returns a recognizer with the built-in phrase table.
func NewKeywordRecognizer() *KeywordRecognizer {
	return &KeywordRecognizer{rules: defaultRules}
}

// Recognize returns the first rule whose phrase occurs in text as whole
// words, with score 1. Otherwise it returns None.
func (r *KeywordRecognizer) Recognize(_ context.Context, text string) (Intent, error) {
	m := normalize(text)
	if m == "" {
		return None, nil
	}
	padded := " " + m + " "
	for _, rule := range r.rules {
		for _, p := range rule.phrases {
			if strings.Contains(padded, " "+p+" ") {
				return Intent{Kind: rule.kind, Score: 1}, nil
			}
		}
	}
	return None, nil
}

// normalize lowercases text, drops apostrophes and collapses every run of
// other non-alphanumeric characters into a single space.
func normalize(text string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
