package dialog

import (
	"log"

	"github.com/zulandar/deskbot/internal/telegraph"
)

const stepAskQuery = "askQuery"

func (e *Engine) searchKnowledgeBaseFlow() *Flow {
	return &Flow{Name: flowSearchKnowledgeBase, Steps: []Step{
		guard(),
		confirm("I understand that you need help finding a knowledge article in ServiceNow.",
			"Yes, please search IT Help Center.",
			"No, not now."),
		{
			Name: "checkConfirm",
			Run: func(t *Turn, in Input) Action {
				if declined(t, in) {
					return End()
				}
				return Next()
			},
		},
		{
			Name: stepAskQuery,
			Run: func(t *Turn, _ Input) Action {
				return AskText("What would you like to search for? I will be able to provide the first 10 results of what I find.")
			},
		},
		{
			Name: "search",
			Run: func(t *Turn, in Input) Action {
				query := in.Text
				articles, err := e.snow.SearchKnowledgeBase(t.ctx, query)
				if err != nil {
					log.Printf("dialog: search knowledge base %q: %v", query, err)
					t.Send("Sorry, I wasn't able to search the IT Help Center right now. Please try again later.")
					return End()
				}
				if len(articles) == 0 {
					t.Sendf("Unfortunately, I wasn't able to find anything referencing \"%s\"", query)
					return Replace(flowResultFailFeedback)
				}
				t.Send("Here's what I found:")
				t.SendCards(telegraph.LayoutCarousel, articleCards(e.snow, articles)...)
				return Replace(flowResultFeedback)
			},
		},
	}}
}

func (e *Engine) resultFeedbackFlow() *Flow {
	return &Flow{Name: flowResultFeedback, Steps: []Step{
		{
			Name: "ask",
			Run: func(t *Turn, _ Input) Action {
				return AskChoice("Did that help?", "Yes, Thanks!", "I need to rephrase what I want to search.")
			},
		},
		{
			Name: "answer",
			Run: func(t *Turn, in Input) Action {
				if in.Is(0) {
					t.Send("Awesome! Let me know if I can help you find anything else!")
					return End()
				}
				t.Send("Ok!")
				return ReplaceAt(flowSearchKnowledgeBase, stepAskQuery)
			},
		},
	}}
}

func (e *Engine) resultFailFeedbackFlow() *Flow {
	return &Flow{Name: flowResultFailFeedback, Steps: []Step{
		{
			Name: "ask",
			Run: func(t *Turn, _ Input) Action {
				return AskChoice("Would you like me search for something else?", "Yes, I'll rephrase my search query.", "No, Thanks.")
			},
		},
		{
			Name: "answer",
			Run: func(t *Turn, in Input) Action {
				if in.Is(0) {
					t.Send("Ok!")
					return ReplaceAt(flowSearchKnowledgeBase, stepAskQuery)
				}
				t.Send("Bummer! Hopefully I'll have something useful in the near future.")
				return End()
			},
		},
	}}
}
