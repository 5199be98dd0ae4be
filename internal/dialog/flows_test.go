package dialog

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/telegraph"
)

var ada = servicenow.User{SysID: "sys-ada", UserName: "ada.l", FirstName: "Ada", LastName: "Lovelace"}

func TestGuard_CredentialLoginRunsBeforeWrite(t *testing.T) {
	h := newHarness(t, nil)
	h.snow.users = []servicenow.User{ada}

	got := h.say(t, "create")
	if last(t, got).Text != "What is the first name you use to log in to Service Now?" {
		t.Fatalf("replies = %v, want first name prompt", texts(got))
	}
	h.say(t, "Ada")
	got = h.say(t, "Lovelace")
	want := []string{
		"Thanks, Ada!",
		"I understand that you want to open a new incident in ServiceNow",
		"Did I understand you correctly?",
	}
	if !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("texts = %q, want %q", texts(got), want)
	}

	h.say(t, "1")
	h.say(t, "Printer on fire")
	h.say(t, "Third floor printer")
	h.say(t, "No")

	if !reflect.DeepEqual(h.snow.calls, []string{"users", "create"}) {
		t.Errorf("calls = %v, want identity lookup before create", h.snow.calls)
	}
	if h.snow.created[0].callerID != "sys-ada" {
		t.Errorf("create caller = %q, want sys-ada", h.snow.created[0].callerID)
	}
	u := h.user(t)
	if u.CallerID != "sys-ada" || u.UserName != "ada.l" || !u.ResolvedAt.Equal(testNow) {
		t.Errorf("profile = %+v", u)
	}
	if h.conv(t).Data.LoginAttempts != 0 {
		t.Error("login attempts should reset after success")
	}
}

func TestGuard_EveryTaskFlowResolvesIdentityFirst(t *testing.T) {
	for _, phrase := range []string{"create", "my incidents", "update", "resolve", "reopen", "search"} {
		t.Run(phrase, func(t *testing.T) {
			h := newHarness(t, nil)
			got := h.say(t, phrase)
			if last(t, got).Text != "What is the first name you use to log in to Service Now?" {
				t.Errorf("replies = %v, want identity prompt", texts(got))
			}
			if len(h.snow.calls) != 0 {
				t.Errorf("calls = %v, want none before identity", h.snow.calls)
			}
		})
	}
}

func TestGuard_LookupFailureClearsStack(t *testing.T) {
	h := newHarness(t, nil)
	h.snow.usersErr = errBoom

	h.say(t, "resolve")
	h.say(t, "Ada")
	got := h.say(t, "Lovelace")
	if !contains(got, lookupFailedText) {
		t.Errorf("replies = %v", texts(got))
	}
	if h.conv(t).Active() {
		t.Error("stack should be cleared so the parent flow never runs")
	}
	if len(h.snow.writes()) != 0 {
		t.Errorf("writes = %v", h.snow.writes())
	}
}

func TestSpecifyCredentials_NoMatchRetries(t *testing.T) {
	h := newHarness(t, nil)
	h.say(t, "create")
	h.say(t, "Ada")
	got := h.say(t, "Byron")
	want := []string{noAccountText, "What is the first name you use to log in to Service Now?"}
	if !reflect.DeepEqual(texts(got), want) {
		t.Errorf("texts = %q, want %q", texts(got), want)
	}
}

func TestSpecifyCredentials_AttemptsBounded(t *testing.T) {
	h := newHarness(t, func(o *EngineOpts) { o.MaxLoginAttempts = 2 })

	h.say(t, "create")
	h.say(t, "Ada")
	h.say(t, "Byron") // attempt 2 begins
	h.say(t, "Ada")
	got := h.say(t, "Byron")
	if !contains(got, tooManyAttemptsText) {
		t.Fatalf("replies = %v, want give-up message", texts(got))
	}
	c := h.conv(t)
	if c.Active() {
		t.Error("stack should be cleared")
	}
	if c.Data.LoginAttempts != 0 {
		t.Errorf("LoginAttempts = %d, want reset", c.Data.LoginAttempts)
	}
}

func TestSpecifyCredentials_MultipleMatchesOfferChoice(t *testing.T) {
	h := newHarness(t, nil)
	h.snow.users = []servicenow.User{
		ada,
		{SysID: "sys-ada2", UserName: "ada.k", FirstName: "Ada", LastName: "Lovelace", Email: "ada.k@example.com"},
	}
	h.say(t, "my incidents")
	h.say(t, "Ada")
	got := h.say(t, "Lovelace")
	r := last(t, got)
	want := []string{"Ada Lovelace (ada.l)", "Ada Lovelace (ada.k@example.com)"}
	if !reflect.DeepEqual(r.Choices, want) {
		t.Fatalf("choices = %q, want %q", r.Choices, want)
	}

	got = h.say(t, "2")
	if !contains(got, "Thanks, Ada!") || last(t, got).Text != "Did I understand you correctly?" {
		t.Errorf("replies = %v", texts(got))
	}
	if h.user(t).CallerID != "sys-ada2" {
		t.Errorf("CallerID = %q, want sys-ada2", h.user(t).CallerID)
	}
}

func TestTokenExchange_CachesIdentityWithoutPrompt(t *testing.T) {
	ex := &fakeExchanger{user: &ada}
	h := newHarness(t, func(o *EngineOpts) { o.Identity = ex })
	h.msg.Platform = "msteams"
	h.msg.ServiceURL = "https://smba.test/amer/"

	got := h.say(t, "my incidents")
	for _, s := range texts(got) {
		if strings.Contains(s, "first name") {
			t.Fatalf("token exchange should not prompt for credentials: %v", texts(got))
		}
	}
	if last(t, got).Text != "Did I understand you correctly?" {
		t.Errorf("replies = %v, want the flow to continue", texts(got))
	}
	if ex.calls != 1 {
		t.Errorf("exchanger calls = %d, want 1", ex.calls)
	}
	if u := h.user(t); u.CallerID != "sys-ada" {
		t.Errorf("CallerID = %q, want sys-ada", u.CallerID)
	}
	if len(h.snow.calls) != 0 {
		t.Errorf("calls = %v, want no credential lookup", h.snow.calls)
	}
}

func TestTokenExchange_FailureFallsBackToCredentials(t *testing.T) {
	ex := &fakeExchanger{err: errBoom}
	h := newHarness(t, func(o *EngineOpts) { o.Identity = ex })
	h.msg.Platform = "msteams"
	h.msg.ServiceURL = "https://smba.test/amer/"

	got := h.say(t, "create")
	want := []string{teamsLookupFailedText, "What is the first name you use to log in to Service Now?"}
	if !reflect.DeepEqual(texts(got), want) {
		t.Errorf("texts = %q, want %q", texts(got), want)
	}
}

func TestTokenExchange_SkippedOffTeams(t *testing.T) {
	ex := &fakeExchanger{user: &ada}
	h := newHarness(t, func(o *EngineOpts) { o.Identity = ex })
	h.say(t, "create")
	if ex.calls != 0 {
		t.Errorf("exchanger called %d times on slack", ex.calls)
	}
}

func TestCreateIncident_SuccessInBothNotesBranches(t *testing.T) {
	tests := []struct {
		name      string
		answers   []string
		wantNotes string
	}{
		{"without notes", []string{"No"}, ""},
		{"with notes", []string{"yes", "Happens after lunch"}, "Happens after lunch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.signIn(t)
			h.say(t, "create")
			h.say(t, "Yes, please help me create an incident.")
			h.say(t, "VPN down")
			got := h.say(t, "Cannot connect from home")
			if r := last(t, got); !reflect.DeepEqual(r.Choices, []string{"Yes", "No"}) {
				t.Fatalf("notes prompt = %+v", r)
			}

			for _, a := range tt.answers {
				got = h.say(t, a)
			}
			if !contains(got, createdText) {
				t.Errorf("replies = %v, want confirmation", texts(got))
			}
			cs := cards(got)
			if len(cs) != 1 {
				t.Fatalf("cards = %d, want 1", len(cs))
			}
			b := cs[0].Buttons
			if len(b) != 1 || b[0].Title != "View My Incidents" || b[0].Value != "https://snow.test/sp?id=all_tickets" || b[0].Type != telegraph.ActionOpenURL {
				t.Errorf("buttons = %+v", b)
			}
			if cs[0].ImageURL != "https://cdn.test/help.png" || cs[0].Title != "INC0010001" {
				t.Errorf("card = %+v", cs[0])
			}
			c := h.snow.created[0]
			if c.in.ShortDescription != "VPN down" || c.in.Description != "Cannot connect from home" || c.in.Notes != tt.wantNotes {
				t.Errorf("create input = %+v", c.in)
			}
			if h.conv(t).Active() {
				t.Error("flow should end after create")
			}
		})
	}
}

func TestCreateIncident_FailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.createErr = &servicenow.APIError{StatusCode: 403, Message: "ACL"}
	for _, s := range []string{"create", "1", "a", "b"} {
		h.say(t, s)
	}
	got := h.say(t, "2")
	if !contains(got, createFailText) || contains(got, createdText) || len(cards(got)) != 0 {
		t.Errorf("replies = %+v", got)
	}
}

func TestCreateIncident_DeclineEnds(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.say(t, "create")
	got := h.say(t, "2")
	if !contains(got, misunderstoodText) || h.conv(t).Active() {
		t.Errorf("replies = %v", texts(got))
	}
}

func TestGetIncidents_ZeroRendersNoCards(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.say(t, "my incidents")
	got := h.say(t, "1")
	if !reflect.DeepEqual(texts(got), []string{noIncidentsText}) {
		t.Errorf("texts = %q", texts(got))
	}
	if len(cards(got)) != 0 {
		t.Errorf("cards = %+v, want none", cards(got))
	}
	if h.conv(t).Active() {
		t.Error("flow should end")
	}
}

func TestGetIncidents_RendersList(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.incidents = []servicenow.Incident{
		{SysID: "s1", Number: "INC1", ShortDescription: "VPN", OpenedAt: "2026-02-01 10:00:00"},
		{SysID: "s2", Number: "INC2", ShortDescription: "Mail"},
	}
	h.say(t, "my incidents")
	got := h.say(t, "Yes, show my most recently opened incidents.")
	if !contains(got, "Here's what I found:") {
		t.Errorf("texts = %q", texts(got))
	}
	r := last(t, got)
	if r.Layout != telegraph.LayoutList || len(r.Cards) != 2 {
		t.Fatalf("reply = %+v", r)
	}
	c := r.Cards[0]
	if c.Title != "VPN" || c.Subtitle != "Created 2026-02-01 10:00:00" || c.Text != "INC1" {
		t.Errorf("card = %+v", c)
	}
	if c.Buttons[0].Title != "Review Incident" || c.Buttons[0].Value != "https://snow.test/sp?id=ticket&sys_id=s1" {
		t.Errorf("button = %+v", c.Buttons[0])
	}
}

func TestUpdateIncident_Flow(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.incidents = []servicenow.Incident{{SysID: "s1", Number: "INC1", ShortDescription: "VPN", Description: "drops"}}
	h.snow.byNumber["INC1"] = h.snow.incidents

	h.say(t, "update")
	got := h.say(t, "1")
	if !contains(got, recentListText) || last(t, got).Text != "Select the incident you would like to add comments to." {
		t.Fatalf("texts = %q", texts(got))
	}
	sel := cards(got)[0].Buttons[0]
	if sel.Type != telegraph.ActionIMBack || sel.Value != "INC1" {
		t.Errorf("select button = %+v", sel)
	}

	got = h.say(t, sel.Value)
	if last(t, got).Text != "What comments would you like to add?" {
		t.Fatalf("texts = %q", texts(got))
	}
	got = h.say(t, "Still broken")
	if !contains(got, updatedText) {
		t.Errorf("texts = %q", texts(got))
	}
	want := writeCall{incidentID: "s1", text: "Still broken", callerID: "caller-1"}
	if !reflect.DeepEqual(h.snow.updated, []writeCall{want}) {
		t.Errorf("updates = %+v", h.snow.updated)
	}
}

func TestUpdateIncident_FailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.incidents = []servicenow.Incident{{SysID: "s1", Number: "INC1"}}
	h.snow.byNumber["INC1"] = h.snow.incidents
	h.snow.writeErr = errBoom
	for _, s := range []string{"update", "1", "INC1"} {
		h.say(t, s)
	}
	if got := h.say(t, "hello"); !contains(got, updateFailText) {
		t.Errorf("texts = %q", texts(got))
	}
}

func TestSelectedIncidentLookupEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		matches []servicenow.Incident
		want    string
	}{
		{"not found", nil, "I couldn't find an incident numbered INC9."},
		{"ambiguous", []servicenow.Incident{{SysID: "a"}, {SysID: "b"}}, "More than one incident matches INC9. Please try again with the full incident number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.signIn(t)
			h.snow.incidents = []servicenow.Incident{{SysID: "s1", Number: "INC1"}}
			h.snow.byNumber["INC9"] = tt.matches
			h.say(t, "resolve")
			h.say(t, "1")
			got := h.say(t, "INC9")
			if !contains(got, tt.want) {
				t.Errorf("texts = %q, want %q", texts(got), tt.want)
			}
			if len(h.snow.writes()) != 0 || h.conv(t).Active() {
				t.Error("flow should end without writing")
			}
		})
	}
}

func TestUpdateIncident_ZeroIncidents(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.say(t, "update")
	got := h.say(t, "1")
	if !reflect.DeepEqual(texts(got), []string{noIncidentsText}) || len(cards(got)) != 0 {
		t.Errorf("replies = %+v", got)
	}
}

func TestResolveIncident_Flow(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.incidents = []servicenow.Incident{{SysID: "s1", Number: "INC1"}}
	h.snow.byNumber["INC1"] = h.snow.incidents

	h.say(t, "resolve")
	got := h.say(t, "yes, resolve an incident for me.")
	if last(t, got).Text != "Select the incident you would like to resolve" {
		t.Fatalf("texts = %q", texts(got))
	}
	got = h.say(t, "INC1")
	if !contains(got, resolvedText) {
		t.Errorf("texts = %q", texts(got))
	}
	if len(h.snow.resolved) != 1 || h.snow.resolved[0].incidentID != "s1" || h.snow.resolved[0].callerID != "caller-1" {
		t.Errorf("resolved = %+v", h.snow.resolved)
	}
}

func TestResolveIncident_FailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.incidents = []servicenow.Incident{{SysID: "s1", Number: "INC1"}}
	h.snow.byNumber["INC1"] = h.snow.incidents
	h.snow.writeErr = errBoom
	h.say(t, "resolve")
	h.say(t, "1")
	if got := h.say(t, "INC1"); !contains(got, resolveFailText) {
		t.Errorf("texts = %q", texts(got))
	}
}

func TestReopenIncident_Flow(t *testing.T) {
	tests := []struct {
		name      string
		answers   []string
		wantNotes string
	}{
		{"without notes", []string{"no"}, ""},
		{"with notes", []string{"1", "It came back"}, "It came back"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.signIn(t)
			h.snow.byNumber["INC7"] = []servicenow.Incident{{SysID: "s7", Number: "INC7"}}

			got := h.say(t, "reopen")
			if texts(got)[0] != "Great, I see that you want to re-open an incident" {
				t.Fatalf("texts = %q", texts(got))
			}
			h.say(t, "1")
			got = h.say(t, " INC7 ")
			if last(t, got).Text != "Would you like to add any notes to the incident?" {
				t.Fatalf("texts = %q", texts(got))
			}
			for _, a := range tt.answers {
				got = h.say(t, a)
			}
			if !contains(got, reopenedText) {
				t.Errorf("texts = %q", texts(got))
			}
			want := []writeCall{{incidentID: "s7", text: tt.wantNotes, callerID: "caller-1"}}
			if !reflect.DeepEqual(h.snow.reopened, want) {
				t.Errorf("reopened = %+v, want %+v", h.snow.reopened, want)
			}
		})
	}
}

func TestReopenIncident_FailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.byNumber["INC7"] = []servicenow.Incident{{SysID: "s7", Number: "INC7"}}
	h.snow.writeErr = errBoom
	for _, s := range []string{"reopen", "1", "INC7"} {
		h.say(t, s)
	}
	if got := h.say(t, "No"); !contains(got, reopenFailText) {
		t.Errorf("texts = %q", texts(got))
	}
}

func TestSearch_ZeroResultsOffersBinaryRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.say(t, "search")
	h.say(t, "1")
	got := h.say(t, "printer toner")

	if !contains(got, `Unfortunately, I wasn't able to find anything referencing "printer toner"`) {
		t.Fatalf("texts = %q", texts(got))
	}
	if len(cards(got)) != 0 {
		t.Error("zero results should render no cards")
	}
	r := last(t, got)
	if r.Text != "Would you like me search for something else?" || len(r.Choices) != 2 {
		t.Fatalf("feedback = %+v, want exactly two choices", r)
	}
	c := h.conv(t)
	if top := c.top(); top.Flow != flowResultFailFeedback {
		t.Errorf("top flow = %q", top.Flow)
	}

	got = h.say(t, "Yes, I'll rephrase my search query.")
	want := []string{"Ok!", "What would you like to search for? I will be able to provide the first 10 results of what I find."}
	if !reflect.DeepEqual(texts(got), want) {
		t.Errorf("texts = %q, want %q", texts(got), want)
	}

	h.snow.articles = []servicenow.Article{{SysID: "kb1", Number: "KB0001", ShortDescription: "Toner"}}
	got = h.say(t, "toner")
	if len(cards(got)) != 1 || h.snow.queries[1] != "toner" {
		t.Errorf("retry search: cards=%d queries=%q", len(cards(got)), h.snow.queries)
	}
}

func TestSearch_FailFeedbackNoEnds(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	for _, s := range []string{"search", "1", "nothing"} {
		h.say(t, s)
	}
	got := h.say(t, "2")
	if !contains(got, "Bummer! Hopefully I'll have something useful in the near future.") || h.conv(t).Active() {
		t.Errorf("texts = %q", texts(got))
	}
}

func TestSearch_ResultsCarouselAndFeedback(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.articles = []servicenow.Article{
		{SysID: "kb1", Number: "KB0001", ShortDescription: "Reset your password"},
		{SysID: "kb2", Number: "KB0002", ShortDescription: "Unlock your account"},
	}
	h.say(t, "search")
	h.say(t, "1")
	got := h.say(t, "password")

	var carousel *telegraph.Reply
	for i := range got {
		if len(got[i].Cards) > 0 {
			carousel = &got[i]
		}
	}
	if carousel == nil || carousel.Layout != telegraph.LayoutCarousel || len(carousel.Cards) != 2 {
		t.Fatalf("replies = %+v, want carousel of 2", got)
	}
	if b := carousel.Cards[1].Buttons[0]; b.Title != "Learn More" || b.Value != "https://snow.test/sp?id=kb_article&sys_id=kb2" {
		t.Errorf("button = %+v", b)
	}
	if r := last(t, got); r.Text != "Did that help?" || len(r.Choices) != 2 {
		t.Fatalf("feedback = %+v", r)
	}

	got = h.say(t, "1")
	if !contains(got, "Awesome! Let me know if I can help you find anything else!") || h.conv(t).Active() {
		t.Errorf("texts = %q", texts(got))
	}
}

func TestSearch_RephraseLoops(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t)
	h.snow.articles = []servicenow.Article{{SysID: "kb1", Number: "KB0001", ShortDescription: "x"}}
	for _, s := range []string{"search", "1", "password"} {
		h.say(t, s)
	}
	got := h.say(t, "2")
	if last(t, got).Text != "What would you like to search for? I will be able to provide the first 10 results of what I find." {
		t.Errorf("texts = %q", texts(got))
	}
	c := h.conv(t)
	if top := c.top(); top.Flow != flowSearchKnowledgeBase {
		t.Errorf("top = %+v", top)
	}
}

func TestSimpleFlows(t *testing.T) {
	h := newHarness(t, func(o *EngineOpts) { o.BotName = "HelpBot" })

	got := h.say(t, "hi")
	if len(got) != 1 || !strings.HasPrefix(got[0].Text, "Hi! I'm HelpBot!") {
		t.Errorf("greeting = %q", texts(got))
	}
	got = h.say(t, "thanks")
	if !reflect.DeepEqual(texts(got), []string{"Of course, Ada!"}) {
		t.Errorf("thanks = %q", texts(got))
	}
	got = h.say(t, "menu")
	cs := cards(got)
	if len(cs) != 1 || cs[0].Kind != telegraph.CardThumbnail || cs[0].Title != "HelpBot" {
		t.Fatalf("menu = %+v", got)
	}
	if b := cs[0].Buttons[0]; b.Type != telegraph.ActionIMBack || b.Value != "Get Incidents" {
		t.Errorf("menu button = %+v", b)
	}
	if h.conv(t).Active() {
		t.Error("simple flows should return to the root")
	}
}

func qnaHarness(t *testing.T, answer *recognizer.Answer) *harness {
	t.Helper()
	return newHarness(t, func(o *EngineOpts) {
		o.Recognizer = recognizer.Func(func(_ context.Context, text string) (recognizer.Intent, error) {
			return recognizer.Intent{Kind: recognizer.KindQnA, Answer: answer}, nil
		})
	})
}

func TestQnA_Answers(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		h := qnaHarness(t, &recognizer.Answer{Text: "Restart the VPN client.", Score: 0.9})
		got := h.say(t, "vpn?")
		if !reflect.DeepEqual(texts(got), []string{"Restart the VPN client."}) {
			t.Errorf("texts = %q", texts(got))
		}
		if h.conv(t).Data.UserQuestion != "vpn?" {
			t.Error("question not saved")
		}
	})
	t.Run("card", func(t *testing.T) {
		h := qnaHarness(t, &recognizer.Answer{Text: "VPN;How to connect;https://kb.test/vpn;https://img.test/vpn.png", Score: 0.8})
		cs := cards(h.say(t, "vpn?"))
		if len(cs) != 1 || cs[0].Title != "VPN" || cs[0].Subtitle != "How to connect" || cs[0].ImageURL != "https://img.test/vpn.png" {
			t.Fatalf("cards = %+v", cs)
		}
		if b := cs[0].Buttons[0]; b.Title != "Learn More" || b.Value != "https://kb.test/vpn" {
			t.Errorf("button = %+v", b)
		}
	})
	t.Run("low score card", func(t *testing.T) {
		h := qnaHarness(t, &recognizer.Answer{Text: "VPN;How;https://kb.test/vpn;", Score: 0.4})
		cs := cards(h.say(t, "vpn?"))
		if len(cs) != 1 || cs[0].Text != "Sorry, no answer found in QnA service" {
			t.Errorf("cards = %+v", cs)
		}
	})
	t.Run("no answer", func(t *testing.T) {
		h := qnaHarness(t, nil)
		cs := cards(h.say(t, "what is love"))
		if len(cs) != 1 || cs[0].Title != "what is love" || cs[0].Text != "Sorry, no answer found in QnA service" {
			t.Errorf("cards = %+v", cs)
		}
	})
}
