package dialog

import (
	"fmt"

	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/telegraph"
)

// Flow names.
const (
	flowGreeting            = "greeting"
	flowThankYou            = "thankYou"
	flowMenu                = "menu"
	flowNone                = "none"
	flowQnA                 = "qna"
	flowLogin               = "login"
	flowSpecifyCredentials  = "specifyCredentials"
	flowCreateIncident      = "createIncident"
	flowGetIncidents        = "getIncidents"
	flowUpdateIncident      = "updateIncident"
	flowResolveIncident     = "resolveIncident"
	flowReopenIncident      = "reopenIncident"
	flowSearchKnowledgeBase = "searchKnowledgeBase"
	flowResultFeedback      = "resultFeedback"
	flowResultFailFeedback  = "resultFailFeedback"
)

// qnaCardScore is the minimum answer score for rendering a structured
// answer as a card.
const qnaCardScore = 0.5

const (
	misunderstoodText = "Sorry I misunderstood! Maybe I can help with something else?"
	noIncidentsText   = "You don't have any incidents reported! Good for you!"
)

func (e *Engine) builtinFlows() []*Flow {
	return []*Flow{
		e.greetingFlow(),
		e.thankYouFlow(),
		e.menuFlow(),
		e.noneFlow(),
		e.qnaFlow(),
		e.loginFlow(),
		e.specifyCredentialsFlow(),
		e.createIncidentFlow(),
		e.getIncidentsFlow(),
		e.updateIncidentFlow(),
		e.resolveIncidentFlow(),
		e.reopenIncidentFlow(),
		e.searchKnowledgeBaseFlow(),
		e.resultFeedbackFlow(),
		e.resultFailFeedbackFlow(),
	}
}

func defaultReply(text, name string) string {
	return fmt.Sprintf("Oops! I didn't understand '%s', %s! Either I'm not sure how to respond, "+
		"or I may not have the answer right now. You could always try to rephrase your question "+
		"and I'll try again to find you an answer!", text, name)
}

func (e *Engine) greetingFlow() *Flow {
	return &Flow{Name: flowGreeting, Steps: []Step{{
		Name: "greet",
		Run: func(t *Turn, _ Input) Action {
			t.Sendf("Hi! I'm %s! I'm a bot that can help you manage incidents in ServiceNow! "+
				"Go ahead! Ask me a question! Try saying something like: 'What can you do?'", e.botName)
			return End()
		},
	}}}
}

func (e *Engine) thankYouFlow() *Flow {
	return &Flow{Name: flowThankYou, Steps: []Step{{
		Name: "reply",
		Run: func(t *Turn, _ Input) Action {
			t.Sendf("Of course, %s!", t.name())
			return End()
		},
	}}}
}

func (e *Engine) menuFlow() *Flow {
	return &Flow{Name: flowMenu, Steps: []Step{{
		Name: "show",
		Run: func(t *Turn, _ Input) Action {
			t.SendCards(telegraph.LayoutList, menuCard(e.botName))
			return EndConversation()
		},
	}}}
}

func (e *Engine) noneFlow() *Flow {
	return &Flow{Name: flowNone, Steps: []Step{{
		Name: "apologize",
		Run: func(t *Turn, _ Input) Action {
			t.Sendf("Oops! I didn't understand what you said, %s! Either I'm not sure how to respond, "+
				"or I may not have the answer right now. You could always try to rephrase your question "+
				"and I'll try again to find you an answer!", t.name())
			return End()
		},
	}}}
}

// qnaFlow answers from the knowledge base attached to the recognized
// intent. Structured answers with a confident score become a card.
func (e *Engine) qnaFlow() *Flow {
	return &Flow{Name: flowQnA, Steps: []Step{{
		Name: "answer",
		Run: func(t *Turn, _ Input) Action {
			question := t.Msg.Text
			t.Conv.Data.UserQuestion = question
			a := t.Intent.Answer
			if a == nil || a.Text == "" {
				t.SendCards(telegraph.LayoutList, noAnswerCard(question))
				return End()
			}
			card, structured := recognizer.ParseCardAnswer(a.Text)
			switch {
			case !structured:
				t.Send(a.Text)
			case a.Score >= qnaCardScore:
				t.SendCards(telegraph.LayoutList, qnaCard(card))
			default:
				t.SendCards(telegraph.LayoutList, noAnswerCard(question))
			}
			return End()
		},
	}}}
}
