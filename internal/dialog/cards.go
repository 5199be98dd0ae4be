package dialog

import (
	"github.com/zulandar/deskbot/internal/recognizer"
	"github.com/zulandar/deskbot/internal/servicenow"
	"github.com/zulandar/deskbot/internal/telegraph"
)

func openURL(title, url string) telegraph.CardAction {
	return telegraph.CardAction{Type: telegraph.ActionOpenURL, Title: title, Value: url}
}

func imBack(title, value string) telegraph.CardAction {
	return telegraph.CardAction{Type: telegraph.ActionIMBack, Title: title, Value: value}
}

// menuCard lists the things the bot can do as quick-reply buttons.
func menuCard(botName string) telegraph.Card {
	return telegraph.Card{
		Kind:  telegraph.CardThumbnail,
		Title: botName,
		Text:  "Here's a few things I can do:",
		Buttons: []telegraph.CardAction{
			imBack("View recently created ServiceNow Incidents", "Get Incidents"),
			imBack("Create a new ServiceNow Incident", "Create a new ServiceNow Incident"),
			imBack("Add comments to a ServiceNow Incident", "Update Incident"),
			imBack("Resolve your ServiceNow Incident", "Resolve Incident"),
			imBack("Search the IT Help Center", "Search the knowledge base"),
		},
	}
}

// incidentCards renders incidents with a link to each one in the portal.
func incidentCards(snow ServiceNow, incidents []servicenow.Incident) []telegraph.Card {
	cards := make([]telegraph.Card, 0, len(incidents))
	for _, inc := range incidents {
		cards = append(cards, telegraph.Card{
			Kind:     telegraph.CardHero,
			Title:    inc.ShortDescription,
			Subtitle: "Created " + inc.OpenedAt,
			Text:     inc.Number,
			Buttons:  []telegraph.CardAction{openURL("Review Incident", snow.IncidentURL(inc.SysID))},
		})
	}
	return cards
}

// selectableIncidentCards renders incidents with a button that answers the
// selection prompt with the incident number.
func selectableIncidentCards(incidents []servicenow.Incident) []telegraph.Card {
	cards := make([]telegraph.Card, 0, len(incidents))
	for _, inc := range incidents {
		cards = append(cards, telegraph.Card{
			Kind:     telegraph.CardHero,
			Title:    inc.ShortDescription,
			Subtitle: "Created " + inc.OpenedAt,
			Text:     inc.Description,
			Buttons:  []telegraph.CardAction{imBack(inc.Number, inc.Number)},
		})
	}
	return cards
}

// articleCards renders knowledge search results.
func articleCards(snow ServiceNow, articles []servicenow.Article) []telegraph.Card {
	cards := make([]telegraph.Card, 0, len(articles))
	for _, a := range articles {
		cards = append(cards, telegraph.Card{
			Kind:    telegraph.CardHero,
			Title:   a.ShortDescription,
			Text:    a.Number,
			Buttons: []telegraph.CardAction{openURL("Learn More", snow.ArticleURL(a.SysID))},
		})
	}
	return cards
}

// createdCard links to the user's incident list after a create.
func createdCard(snow ServiceNow, inc *servicenow.Incident, imageURL string) telegraph.Card {
	card := telegraph.Card{
		Kind:     telegraph.CardHero,
		ImageURL: imageURL,
		Buttons:  []telegraph.CardAction{openURL("View My Incidents", snow.MyIncidentsURL())},
	}
	if inc != nil {
		card.Title = inc.Number
		card.Subtitle = inc.ShortDescription
	}
	return card
}

// qnaCard renders a structured knowledge-base answer.
func qnaCard(a recognizer.CardAnswer) telegraph.Card {
	card := telegraph.Card{
		Kind:     telegraph.CardHero,
		Title:    a.Title,
		Subtitle: a.Description,
		ImageURL: a.ImageURL,
	}
	if a.URL != "" {
		card.Buttons = []telegraph.CardAction{openURL("Learn More", a.URL)}
	}
	return card
}

// noAnswerCard echoes the question when the knowledge base had nothing.
func noAnswerCard(question string) telegraph.Card {
	return telegraph.Card{
		Kind:  telegraph.CardHero,
		Title: question,
		Text:  "Sorry, no answer found in QnA service",
	}
}
