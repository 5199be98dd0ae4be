package dialog

import (
	"log"
	"strings"

	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/telegraph"
)

const (
	listFailedText  = "Sorry, I wasn't able to get your incidents from ServiceNow right now. Please try again later."
	recentListText  = "Here are your 5 most recently unresolved incidents in ServiceNow:"
	createdText     = "Thanks! I was successfully able to submit your issue as an incident in ServiceNow!"
	createFailText  = "Sorry, I wasn't able to submit your incident to ServiceNow. Please try again later."
	updatedText     = "Thanks! I was successfully able to add your comments to your incident!"
	updateFailText  = "Sorry, I wasn't able to add your comments to the incident. Please try again later."
	resolvedText    = "You got it! I was successfully able to resolve your incident!"
	resolveFailText = "Sorry, I wasn't able to resolve the incident. Please try again later."
	reopenedText    = "Done! I was successfully able to re-open your incident."
	reopenFailText  = "Sorry, I wasn't able to re-open the incident. Please try again later."
)

// confirm introduces the task and asks whether the bot understood.
func confirm(intro, yes, no string) Step {
	return Step{
		Name: "confirm",
		Run: func(t *Turn, _ Input) Action {
			t.Send(intro)
			return AskChoice("Did I understand you correctly?", yes, no)
		},
	}
}

// declined reports whether the user said no to the confirm prompt, in
// which case the apology has been sent.
func declined(t *Turn, in Input) bool {
	if in.Is(0) {
		return false
	}
	t.Send(misunderstoodText)
	return true
}

// lookupIncident resolves the number the user typed or selected. Zero or
// several matches are reported to the user and end the flow.
func (e *Engine) lookupIncident(t *Turn, number string) (*servicenow.Incident, bool) {
	number = strings.TrimSpace(number)
	incidents, err := e.snow.GetIncidentByNumber(t.ctx, number)
	if err != nil {
		log.Printf("dialog: lookup incident %s: %v", number, err)
		t.Sendf("Sorry, I couldn't look up incident %s in ServiceNow right now.", number)
		return nil, false
	}
	switch len(incidents) {
	case 0:
		t.Sendf("I couldn't find an incident numbered %s.", number)
		return nil, false
	case 1:
		inc := &incidents[0]
		t.Set("incidentId", inc.SysID)
		t.Set("incidentNumber", inc.Number)
		return inc, true
	default:
		t.Sendf("More than one incident matches %s. Please try again with the full incident number.", number)
		return nil, false
	}
}

// selectStep lists the caller's open incidents as selectable cards and
// asks which one to act on.
func (e *Engine) selectStep(question string) Step {
	return Step{
		Name: "list",
		Run: func(t *Turn, in Input) Action {
			if declined(t, in) {
				return End()
			}
			incidents, err := e.snow.GetIncidentsByCaller(t.ctx, t.User.CallerID)
			if err != nil {
				log.Printf("dialog: list incidents for %s: %v", t.User.CallerID, err)
				t.Send(listFailedText)
				return End()
			}
			if len(incidents) == 0 {
				t.Send(noIncidentsText)
				return End()
			}
			t.Send(recentListText)
			t.SendCards(telegraph.LayoutList, selectableIncidentCards(incidents)...)
			return AskText(question)
		},
	}
}

func (e *Engine) createIncidentFlow() *Flow {
	return &Flow{Name: flowCreateIncident, Steps: []Step{
		guard(),
		confirm("I understand that you want to open a new incident in ServiceNow",
			"Yes, please help me create an incident.",
			"No, I do not need to create an incident right now."),
		{
			Name: "askShortDescription",
			Run: func(t *Turn, in Input) Action {
				if declined(t, in) {
					return End()
				}
				return AskText("What's your short description of the problem?")
			},
		},
		{
			Name: "askDescription",
			Run: func(t *Turn, in Input) Action {
				t.Set("shortDescription", in.Text)
				t.Send("Got it! I just need a little more information.")
				return AskText("Please describe the problem in more detail")
			},
		},
		{
			Name: "askAddNotes",
			Run: func(t *Turn, in Input) Action {
				t.Set("description", in.Text)
				return AskChoice("Would you like to add any additional notes?", "Yes", "No")
			},
		},
		{
			Name: "askNotes",
			Run: func(t *Turn, in Input) Action {
				if in.Is(0) {
					return AskText("What other notes should I add to the incident?")
				}
				return Next()
			},
		},
		{
			Name: "create",
			Run: func(t *Turn, in Input) Action {
				req := servicenow.NewIncident{
					ShortDescription: t.Get("shortDescription"),
					Description:      t.Get("description"),
				}
				if in.Answered {
					req.Notes = in.Text
				}
				inc, err := e.snow.CreateIncident(t.ctx, req, t.User.CallerID)
				if err != nil {
					log.Printf("dialog: create incident for %s: %v", t.User.CallerID, err)
					t.Send(createFailText)
					return End()
				}
				t.Send(createdText)
				t.SendCards(telegraph.LayoutList, createdCard(e.snow, inc, e.imageURL))
				return End()
			},
		},
	}}
}

func (e *Engine) getIncidentsFlow() *Flow {
	return &Flow{Name: flowGetIncidents, Steps: []Step{
		guard(),
		confirm("I understand that you want me to find your incidents in ServiceNow.",
			"Yes, show my most recently opened incidents.",
			"No, not now."),
		{
			Name: "list",
			Run: func(t *Turn, in Input) Action {
				if declined(t, in) {
					return End()
				}
				incidents, err := e.snow.GetIncidentsByCaller(t.ctx, t.User.CallerID)
				if err != nil {
					log.Printf("dialog: list incidents for %s: %v", t.User.CallerID, err)
					t.Send(listFailedText)
					return End()
				}
				if len(incidents) == 0 {
					t.Send(noIncidentsText)
					return End()
				}
				t.Send("Here's what I found:")
				t.SendCards(telegraph.LayoutList, incidentCards(e.snow, incidents)...)
				return End()
			},
		},
	}}
}

func (e *Engine) updateIncidentFlow() *Flow {
	return &Flow{Name: flowUpdateIncident, Steps: []Step{
		guard(),
		confirm("I understand that you need help updating an incident in ServiceNow.",
			"Yes, update an incident for me.",
			"No, not now."),
		e.selectStep("Select the incident you would like to add comments to."),
		{
			Name: "lookup",
			Run: func(t *Turn, in Input) Action {
				if _, ok := e.lookupIncident(t, in.Text); !ok {
					return End()
				}
				return AskText("What comments would you like to add?")
			},
		},
		{
			Name: "update",
			Run: func(t *Turn, in Input) Action {
				if err := e.snow.UpdateIncident(t.ctx, t.Get("incidentId"), in.Text, t.User.CallerID); err != nil {
					log.Printf("dialog: update incident %s: %v", t.Get("incidentNumber"), err)
					t.Send(updateFailText)
					return End()
				}
				t.Send(updatedText)
				return End()
			},
		},
	}}
}

func (e *Engine) resolveIncidentFlow() *Flow {
	return &Flow{Name: flowResolveIncident, Steps: []Step{
		guard(),
		confirm("I understand that you want to resolve a ServiceNow incident",
			"Yes, resolve an incident for me.",
			"No, not now."),
		e.selectStep("Select the incident you would like to resolve"),
		{
			Name: "lookup",
			Run: func(t *Turn, in Input) Action {
				if _, ok := e.lookupIncident(t, in.Text); !ok {
					return End()
				}
				return Next()
			},
		},
		{
			Name: "resolve",
			Run: func(t *Turn, _ Input) Action {
				if err := e.snow.ResolveIncident(t.ctx, t.Get("incidentId"), t.User.CallerID); err != nil {
					log.Printf("dialog: resolve incident %s: %v", t.Get("incidentNumber"), err)
					t.Send(resolveFailText)
					return End()
				}
				t.Send(resolvedText)
				return End()
			},
		},
	}}
}

func (e *Engine) reopenIncidentFlow() *Flow {
	return &Flow{Name: flowReopenIncident, Steps: []Step{
		guard(),
		confirm("Great, I see that you want to re-open an incident",
			"Yes, re-open an incident for me.",
			"No, not now."),
		{
			Name: "askNumber",
			Run: func(t *Turn, in Input) Action {
				if declined(t, in) {
					return End()
				}
				return AskText("What incident number would you like to re-open?")
			},
		},
		{
			Name: "lookup",
			Run: func(t *Turn, in Input) Action {
				if _, ok := e.lookupIncident(t, in.Text); !ok {
					return End()
				}
				return AskChoice("Would you like to add any notes to the incident?", "Yes", "No")
			},
		},
		{
			Name: "askNotes",
			Run: func(t *Turn, in Input) Action {
				if in.Is(0) {
					return AskText("Go ahead")
				}
				return Next()
			},
		},
		{
			Name: "reopen",
			Run: func(t *Turn, in Input) Action {
				notes := ""
				if in.Answered {
					notes = in.Text
				}
				if err := e.snow.ReopenIncident(t.ctx, t.Get("incidentId"), notes, t.User.CallerID); err != nil {
					log.Printf("dialog: reopen incident %s: %v", t.Get("incidentNumber"), err)
					t.Send(reopenFailText)
					return End()
				}
				t.Send(reopenedText)
				return End()
			},
		},
	}}
}
