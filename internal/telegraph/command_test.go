package telegraph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeAccounts is an in-memory Accounts for command and router tests.
type fakeAccounts struct {
	identities map[string]*UserIdentity
	resets     []string
	err        error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{identities: make(map[string]*UserIdentity)}
}

func (f *fakeAccounts) WhoAmI(ctx context.Context, platform, userID string) (*UserIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identities[platform+"/"+userID], nil
}

func (f *fakeAccounts) Logout(ctx context.Context, platform, userID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.identities, platform+"/"+userID)
	return nil
}

func (f *fakeAccounts) Reset(ctx context.Context, platform, conversationID, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, platform+"/"+conversationID+"@"+userID)
	return nil
}

func testCommandMsg() InboundMessage {
	return InboundMessage{Platform: "slack", ChannelID: "D1", UserID: "U1", UserName: "alice"}
}

func TestNewCommandHandler_NilAccounts(t *testing.T) {
	_, err := NewCommandHandler(CommandHandlerOpts{})
	if err == nil {
		t.Fatal("expected error for nil accounts")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"!bot", nil},
		{"!bot ", nil},
		{"!bot help", []string{"help"}},
		{"!bot WhoAmI", []string{"whoami"}},
		{"  !bot   logout  ", []string{"logout"}},
		{"!bot reset now", []string{"reset", "now"}},
	}
	for _, tt := range tests {
		got := parseCommand(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseCommand(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestExecute_Help(t *testing.T) {
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: newFakeAccounts(), BotName: "EcoBot"})
	for _, text := range []string{"!bot", "!bot help"} {
		out := ch.Execute(context.Background(), testCommandMsg(), text)
		if !strings.Contains(out, "EcoBot commands") {
			t.Errorf("Execute(%q) = %q, want help text", text, out)
		}
		if !strings.Contains(out, "!bot whoami") {
			t.Errorf("help should list whoami: %q", out)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: newFakeAccounts()})
	out := ch.Execute(context.Background(), testCommandMsg(), "!bot dance")
	if !strings.Contains(out, "Unknown command: `dance`") {
		t.Errorf("output = %q", out)
	}
}

func TestExecute_WhoAmI(t *testing.T) {
	accts := newFakeAccounts()
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: accts})
	ctx := context.Background()

	out := ch.Execute(ctx, testCommandMsg(), "!bot whoami")
	if !strings.Contains(out, "don't know your ServiceNow account") {
		t.Errorf("unknown user output = %q", out)
	}

	accts.identities["slack/U1"] = &UserIdentity{
		CallerID:    "abc123",
		UserName:    "alice.smith",
		DisplayName: "Alice Smith",
		ResolvedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out = ch.Execute(ctx, testCommandMsg(), "!bot whoami")
	for _, want := range []string{"alice.smith", "Alice Smith", "`abc123`", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami output missing %q: %q", want, out)
		}
	}
}

func TestExecute_Logout(t *testing.T) {
	accts := newFakeAccounts()
	accts.identities["slack/U1"] = &UserIdentity{CallerID: "abc123"}
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: accts})

	out := ch.Execute(context.Background(), testCommandMsg(), "!bot logout")
	if !strings.Contains(out, "forgotten") {
		t.Errorf("output = %q", out)
	}
	if _, ok := accts.identities["slack/U1"]; ok {
		t.Error("identity should be removed after logout")
	}
}

func TestExecute_Reset(t *testing.T) {
	accts := newFakeAccounts()
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: accts})

	msg := testCommandMsg()
	msg.ThreadID = "1700.1"
	ch.Execute(context.Background(), msg, "!bot reset")
	if len(accts.resets) != 1 || accts.resets[0] != "slack/D1/1700.1@U1" {
		t.Errorf("resets = %v, want [slack/D1/1700.1@U1]", accts.resets)
	}
}

func TestExecute_AccountsError(t *testing.T) {
	accts := newFakeAccounts()
	accts.err = errors.New("storage down")
	ch, _ := NewCommandHandler(CommandHandlerOpts{Accounts: accts})
	ctx := context.Background()

	tests := map[string]string{
		"!bot whoami": "Error looking up",
		"!bot logout": "Error signing you out",
		"!bot reset":  "Error resetting",
	}
	for text, want := range tests {
		if out := ch.Execute(ctx, testCommandMsg(), text); !strings.Contains(out, want) {
			t.Errorf("Execute(%q) = %q, want to contain %q", text, out, want)
		}
	}
}
