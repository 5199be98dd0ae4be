package botframework

import "time"

// Activity types handled by the adapter.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

// Card content types.
const (
	ContentTypeHero      = "application/vnd.microsoft.card.hero"
	ContentTypeThumbnail = "application/vnd.microsoft.card.thumbnail"
)

// Activity is the subset of the Bot Framework activity schema used by the
// bot.
type Activity struct {
	Type             string              `json:"type"`
	ID               string              `json:"id,omitempty"`
	Timestamp        *time.Time          `json:"timestamp,omitempty"`
	ServiceURL       string              `json:"serviceUrl,omitempty"`
	ChannelID        string              `json:"channelId,omitempty"`
	From             ChannelAccount      `json:"from"`
	Conversation     ConversationAccount `json:"conversation"`
	Recipient        ChannelAccount      `json:"recipient"`
	Text             string              `json:"text,omitempty"`
	TextFormat       string              `json:"textFormat,omitempty"`
	Locale           string              `json:"locale,omitempty"`
	ReplyToID        string              `json:"replyToId,omitempty"`
	Attachments      []Attachment        `json:"attachments,omitempty"`
	AttachmentLayout string              `json:"attachmentLayout,omitempty"`
	SuggestedActions *SuggestedActions   `json:"suggestedActions,omitempty"`
	Entities         []Entity            `json:"entities,omitempty"`
}

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies a conversation.
type ConversationAccount struct {
	ID               string `json:"id"`
	ConversationType string `json:"conversationType,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
}

// Entity carries metadata such as @mentions.
type Entity struct {
	Type      string          `json:"type"`
	Mentioned *ChannelAccount `json:"mentioned,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// Attachment wraps rich card content.
type Attachment struct {
	ContentType string      `json:"contentType"`
	Content     interface{} `json:"content,omitempty"`
}

// RichCard is the content of a hero or thumbnail card.
type RichCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
}

// CardImage is an image on a card.
type CardImage struct {
	URL string `json:"url"`
}

// CardAction is a button.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SuggestedActions are quick replies shown below a message.
type SuggestedActions struct {
	To      []string     `json:"to,omitempty"`
	Actions []CardAction `json:"actions"`
}

// IsDirect reports whether the activity addresses the bot: a one-to-one
// conversation, or a group message that @mentions the recipient.
func (a *Activity) IsDirect() bool {
	if a.Conversation.ConversationType == "personal" {
		return true
	}
	if !a.Conversation.IsGroup && a.Conversation.ConversationType == "" {
		return true
	}
	for _, e := range a.Entities {
		if e.Type == "mention" && e.Mentioned != nil && e.Mentioned.ID == a.Recipient.ID {
			return true
		}
	}
	return false
}
