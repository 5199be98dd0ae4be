package dialog

import (
	"fmt"
	"log"
	"strings"

	"github.com/zulandar/deskbot/internal/identity"
	"github.com/zulandar/deskbot/internal/servicenow"
)

const (
	teamsLookupFailedText = "Hmm, I can't find your user account with your teams credentials."
	noAccountText         = "Hmm, I can't find your user account with those credentials. Let's try again."
	tooManyAttemptsText   = "Sorry, I still can't find your ServiceNow account. Please contact the IT Help Center and try again later."
	lookupFailedText      = "Sorry, I can't reach ServiceNow to look up your account right now. Please try again later."
)

// guard is the first step of every ServiceNow flow: it begins the login
// flow when no caller is cached.
func guard() Step {
	return Step{
		Name: "guard",
		Run: func(t *Turn, _ Input) Action {
			if t.User.Resolved() {
				return Next()
			}
			return Begin(flowLogin)
		},
	}
}

// loginFlow tries the roster token exchange where the channel supports it
// and falls back to asking for the user's name.
func (e *Engine) loginFlow() *Flow {
	return &Flow{Name: flowLogin, Steps: []Step{{
		Name: "exchange",
		Run: func(t *Turn, _ Input) Action {
			if e.identity == nil || !identity.Supported(t.Msg.Platform, t.Msg.ServiceURL) {
				return Replace(flowSpecifyCredentials)
			}
			u, err := e.identity.Resolve(t.ctx, t.Msg.Platform, t.Msg.ServiceURL, t.Msg.ChannelID)
			if err != nil {
				log.Printf("dialog: login: token exchange for %s: %v", t.Msg.UserID, err)
				t.Send(teamsLookupFailedText)
				return Replace(flowSpecifyCredentials)
			}
			t.remember(*u)
			return End()
		},
	}}}
}

// specifyCredentialsFlow asks for first and last name and looks the user
// up in ServiceNow.
func (e *Engine) specifyCredentialsFlow() *Flow {
	return &Flow{Name: flowSpecifyCredentials, Steps: []Step{
		{
			Name: "askFirstName",
			Run: func(t *Turn, _ Input) Action {
				t.Conv.Data.LoginAttempts++
				if e.maxLogin > 0 && t.Conv.Data.LoginAttempts > e.maxLogin {
					t.Conv.Data.LoginAttempts = 0
					t.Send(tooManyAttemptsText)
					return EndConversation()
				}
				return AskText("What is the first name you use to log in to Service Now?")
			},
		},
		{
			Name: "askLastName",
			Run: func(t *Turn, in Input) Action {
				t.Set("firstName", in.Text)
				return AskText("Thanks! And your last name?")
			},
		},
		{
			Name: "lookup",
			Run: func(t *Turn, in Input) Action {
				first := t.Get("firstName")
				last := in.Text
				users, err := e.snow.GetUsersByName(t.ctx, first, last)
				if err != nil {
					log.Printf("dialog: login: lookup %s %s: %v", first, last, err)
					t.Send(lookupFailedText)
					return EndConversation()
				}
				switch len(users) {
				case 0:
					t.Send(noAccountText)
					return Replace(flowSpecifyCredentials)
				case 1:
					t.remember(users[0])
					t.Sendf("Thanks, %s!", first)
					return End()
				}
				if err := t.setJSON("candidates", users); err != nil {
					log.Printf("dialog: login: store candidates: %v", err)
					t.Send(lookupFailedText)
					return EndConversation()
				}
				return AskChoice("I found more than one account with that name. Which one is yours?", candidateLabels(users)...)
			},
		},
		{
			Name: "pick",
			Run: func(t *Turn, in Input) Action {
				var users []servicenow.User
				if err := t.getJSON("candidates", &users); err != nil || in.Choice < 0 || in.Choice >= len(users) {
					log.Printf("dialog: login: pick candidate %d of %d: %v", in.Choice, len(users), err)
					t.Send(lookupFailedText)
					return EndConversation()
				}
				u := users[in.Choice]
				t.remember(u)
				t.Sendf("Thanks, %s!", firstNonEmpty(u.FirstName, t.Get("firstName")))
				return End()
			},
		},
	}}
}

func candidateLabels(users []servicenow.User) []string {
	labels := make([]string, len(users))
	for i, u := range users {
		switch {
		case u.Email != "":
			labels[i] = fmt.Sprintf("%s (%s)", u.DisplayName(), u.Email)
		case u.UserName != "":
			labels[i] = fmt.Sprintf("%s (%s)", u.DisplayName(), u.UserName)
		default:
			labels[i] = fmt.Sprintf("%s (%s)", u.DisplayName(), u.SysID)
		}
	}
	return labels
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
