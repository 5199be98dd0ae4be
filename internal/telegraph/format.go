package telegraph

import (
	"fmt"
	"strings"
)

// Sidebar colors used by platforms that tint attachments.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// CardColor maps a card kind to a sidebar color.
func CardColor(kind CardKind) string {
	switch kind {
	case CardThumbnail:
		return ColorSuccess
	default:
		return ColorInfo
	}
}

// FormatChoices renders choices as a numbered list. Users may answer with
// either the number or the choice text.
func FormatChoices(choices []string) string {
	var b strings.Builder
	for i, c := range choices {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, c)
	}
	return b.String()
}

// FormatCard renders a card as markdown-flavored text for platforms without
// native cards.
func FormatCard(c Card) string {
	var lines []string
	if c.Title != "" {
		lines = append(lines, "*"+c.Title+"*")
	}
	if c.Subtitle != "" {
		lines = append(lines, c.Subtitle)
	}
	if c.Text != "" {
		lines = append(lines, c.Text)
	}
	for _, btn := range c.Buttons {
		lines = append(lines, FormatAction(btn))
	}
	return strings.Join(lines, "\n")
}

// FormatAction renders a button: links show their URL, quick replies show
// what to type.
func FormatAction(a CardAction) string {
	switch a.Type {
	case ActionOpenURL:
		return fmt.Sprintf("%s: %s", a.Title, a.Value)
	default:
		if a.Value == "" || a.Value == a.Title {
			return fmt.Sprintf("> %s", a.Title)
		}
		return fmt.Sprintf("> %s (reply %q)", a.Title, a.Value)
	}
}

// RenderText flattens a reply into plain text: the message, each card and
// the numbered choices, separated by blank lines.
func RenderText(r Reply) string {
	var parts []string
	if r.Text != "" {
		parts = append(parts, r.Text)
	}
	for _, c := range r.Cards {
		if s := FormatCard(c); s != "" {
			parts = append(parts, s)
		}
	}
	if len(r.Choices) > 0 {
		parts = append(parts, FormatChoices(r.Choices))
	}
	return strings.Join(parts, "\n\n")
}
