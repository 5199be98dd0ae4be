package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/state"
	"github.com/zulandar/deskbot/internal/telegraph"
)

var errBoom = errors.New("boom")

type createCall struct {
	in       servicenow.NewIncident
	callerID string
}

type writeCall struct {
	incidentID string
	text       string
	callerID   string
}

// fakeSnow records every call in order.
type fakeSnow struct {
	mu sync.Mutex

	users     []servicenow.User
	usersErr  error
	incidents []servicenow.Incident
	listErr   error
	byNumber  map[string][]servicenow.Incident
	articles  []servicenow.Article
	searchErr error
	createErr error
	writeErr  error

	calls    []string
	created  []createCall
	updated  []writeCall
	resolved []writeCall
	reopened []writeCall
	queries  []string
}

func (f *fakeSnow) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeSnow) CreateIncident(_ context.Context, in servicenow.NewIncident, callerID string) (*servicenow.Incident, error) {
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createCall{in: in, callerID: callerID})
	return &servicenow.Incident{SysID: "inc-sys-1", Number: "INC0010001", ShortDescription: in.ShortDescription}, nil
}

func (f *fakeSnow) GetIncidentsByCaller(_ context.Context, callerID string) ([]servicenow.Incident, error) {
	f.record("list")
	return f.incidents, f.listErr
}

func (f *fakeSnow) GetIncidentByNumber(_ context.Context, number string) ([]servicenow.Incident, error) {
	f.record("byNumber")
	return f.byNumber[number], nil
}

func (f *fakeSnow) UpdateIncident(_ context.Context, incidentID, comments, callerID string) error {
	f.record("update")
	f.updated = append(f.updated, writeCall{incidentID, comments, callerID})
	return f.writeErr
}

func (f *fakeSnow) ResolveIncident(_ context.Context, incidentID, callerID string) error {
	f.record("resolve")
	f.resolved = append(f.resolved, writeCall{incidentID: incidentID, callerID: callerID})
	return f.writeErr
}

func (f *fakeSnow) ReopenIncident(_ context.Context, incidentID, notes, callerID string) error {
	f.record("reopen")
	f.reopened = append(f.reopened, writeCall{incidentID, notes, callerID})
	return f.writeErr
}

func (f *fakeSnow) SearchKnowledgeBase(_ context.Context, query string) ([]servicenow.Article, error) {
	f.record("search")
	f.queries = append(f.queries, query)
	return f.articles, f.searchErr
}

func (f *fakeSnow) GetUsersByName(_ context.Context, firstName, lastName string) ([]servicenow.User, error) {
	f.record("users")
	return f.users, f.usersErr
}

func (f *fakeSnow) IncidentURL(sysID string) string { return "https://snow.test/sp?id=ticket&sys_id=" + sysID }
func (f *fakeSnow) ArticleURL(sysID string) string  { return "https://snow.test/sp?id=kb_article&sys_id=" + sysID }
func (f *fakeSnow) MyIncidentsURL() string          { return "https://snow.test/sp?id=all_tickets" }

func (f *fakeSnow) writes() []string {
	var out []string
	for _, c := range f.calls {
		switch c {
		case "create", "update", "resolve", "reopen":
			out = append(out, c)
		}
	}
	return out
}

type fakeExchanger struct {
	user  *servicenow.User
	err   error
	calls int
}

func (f *fakeExchanger) Resolve(_ context.Context, platform, serviceURL, conversationID string) (*servicenow.User, error) {
	f.calls++
	return f.user, f.err
}

// keywordIntents classifies a handful of fixed phrases for tests.
var keywordIntents = map[string]recognizer.Kind{
	"hi":           recognizer.KindGreeting,
	"thanks":       recognizer.KindThankYou,
	"menu":         recognizer.KindServiceNowMenu,
	"create":       recognizer.KindCreateIncident,
	"my incidents": recognizer.KindGetIncident,
	"update":       recognizer.KindUpdateIncident,
	"resolve":      recognizer.KindResolveIncident,
	"reopen":       recognizer.KindReopenIncident,
	"search":       recognizer.KindSearchKnowledgeBase,
}

var testRecognizer = recognizer.Func(func(_ context.Context, text string) (recognizer.Intent, error) {
	if text == "explode" {
		return recognizer.None, errBoom
	}
	if k, ok := keywordIntents[strings.ToLower(text)]; ok {
		return recognizer.Intent{Kind: k, Score: 1}, nil
	}
	return recognizer.None, nil
})

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	e     *Engine
	snow  *fakeSnow
	store *state.MemoryStore
	state *state.Manager
	msg   telegraph.InboundMessage
}

func newHarness(t *testing.T, configure func(*EngineOpts)) *harness {
	t.Helper()
	h := &harness{
		snow:  &fakeSnow{byNumber: map[string][]servicenow.Incident{}},
		store: state.NewMemoryStore(),
	}
	h.state = &state.Manager{Store: h.store, Compress: true}
	opts := EngineOpts{
		State:      h.state,
		Recognizer: testRecognizer,
		ServiceNow: h.snow,
		ImageURL:   "https://cdn.test/help.png",
		Now:        func() time.Time { return testNow },
	}
	if configure != nil {
		configure(&opts)
	}
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.e = e
	h.msg = telegraph.InboundMessage{
		Platform:  "slack",
		ChannelID: "D100",
		UserID:    "U1",
		UserName:  "Ada",
		Direct:    true,
	}
	return h
}

// signIn caches a resolved caller for the harness user.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	err := h.state.Save(context.Background(), state.UserKey(h.msg.Platform, h.msg.UserID),
		&UserProfile{CallerID: "caller-1", UserName: "ada.l", DisplayName: "Ada Lovelace"})
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) say(t *testing.T, text string) []telegraph.Reply {
	t.Helper()
	msg := h.msg
	msg.Text = text
	replies, err := h.e.HandleTurn(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleTurn(%q): %v", text, err)
	}
	return replies
}

func (h *harness) conv(t *testing.T) ConversationState {
	t.Helper()
	var c ConversationState
	if _, err := h.state.Load(context.Background(), state.SessionKey(h.msg.Platform, h.msg.ConversationID(), h.msg.UserID), &c); err != nil {
		t.Fatal(err)
	}
	return c
}

func (h *harness) user(t *testing.T) UserProfile {
	t.Helper()
	var u UserProfile
	if _, err := h.state.Load(context.Background(), state.UserKey(h.msg.Platform, h.msg.UserID), &u); err != nil {
		t.Fatal(err)
	}
	return u
}

func texts(replies []telegraph.Reply) []string {
	var out []string
	for _, r := range replies {
		if r.Text != "" {
			out = append(out, r.Text)
		}
	}
	return out
}

func cards(replies []telegraph.Reply) []telegraph.Card {
	var out []telegraph.Card
	for _, r := range replies {
		out = append(out, r.Cards...)
	}
	return out
}

func last(t *testing.T, replies []telegraph.Reply) telegraph.Reply {
	t.Helper()
	if len(replies) == 0 {
		t.Fatal("no replies")
	}
	return replies[len(replies)-1]
}

func contains(replies []telegraph.Reply, text string) bool {
	for _, s := range texts(replies) {
		if s == text {
			return true
		}
	}
	return false
}
