package telegraph

import "testing"

func TestFormatChoices(t *testing.T) {
	got := FormatChoices([]string{"Yes", "No"})
	if got != "1. Yes\n2. No" {
		t.Errorf("FormatChoices = %q", got)
	}
	if FormatChoices(nil) != "" {
		t.Error("FormatChoices(nil) should be empty")
	}
}

func TestFormatAction(t *testing.T) {
	tests := []struct {
		action CardAction
		want   string
	}{
		{CardAction{Type: ActionOpenURL, Title: "Learn More", Value: "https://x/kb"}, "Learn More: https://x/kb"},
		{CardAction{Type: ActionIMBack, Title: "INC0010001", Value: "INC0010001"}, "> INC0010001"},
		{CardAction{Type: ActionIMBack, Title: "View recent incidents", Value: "Get Incidents"}, `> View recent incidents (reply "Get Incidents")`},
	}
	for _, tt := range tests {
		if got := FormatAction(tt.action); got != tt.want {
			t.Errorf("FormatAction(%+v) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestFormatCard(t *testing.T) {
	card := Card{
		Title:    "Printer jammed",
		Subtitle: "Created 2026-01-02 10:00:00",
		Text:     "INC0010002",
		Buttons:  []CardAction{{Type: ActionOpenURL, Title: "Review Incident", Value: "https://snow/inc"}},
	}
	want := "*Printer jammed*\nCreated 2026-01-02 10:00:00\nINC0010002\nReview Incident: https://snow/inc"
	if got := FormatCard(card); got != want {
		t.Errorf("FormatCard =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderText(t *testing.T) {
	r := Reply{
		Text:    "Did I understand you correctly?",
		Choices: []string{"Yes, resolve an incident for me.", "No, not now."},
	}
	want := "Did I understand you correctly?\n\n1. Yes, resolve an incident for me.\n2. No, not now."
	if got := RenderText(r); got != want {
		t.Errorf("RenderText =\n%s\nwant\n%s", got, want)
	}
	if RenderText(Reply{}) != "" {
		t.Error("empty reply should render empty")
	}
}

func TestCardColor(t *testing.T) {
	if CardColor(CardHero) != ColorInfo {
		t.Errorf("hero color = %q", CardColor(CardHero))
	}
	if CardColor(CardThumbnail) != ColorSuccess {
		t.Errorf("thumbnail color = %q", CardColor(CardThumbnail))
	}
}
