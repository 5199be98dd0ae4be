package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the subset of *openai.Client used by LLMRecognizer.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMOpts configures an LLMRecognizer.
type LLMOpts struct {
	APIKey    string  // required unless Client is set
	BaseURL   string  // optional OpenAI-compatible endpoint
	Model     string  // default "gpt-4o-mini"
	Threshold float64 // minimum confidence; default 0.5
	Timeout   time.Duration

	Client chatCompleter // injected in tests
}

// LLMRecognizer classifies utterances with a chat-completion model that
// answers with a JSON object.
type LLMRecognizer struct {
	client    chatCompleter
	model     string
	threshold float64
	timeout   time.Duration
}

// classification is the JSON object the model is asked to return.
type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// NewLLMRecognizer returns an LLMRecognizer.
func NewLLMRecognizer(opts LLMOpts) (*LLMRecognizer, error) {
	if opts.Client == nil {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("recognizer: llm: api key is required")
		}
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		opts.Client = openai.NewClientWithConfig(cfg)
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Threshold == 0 {
		opts.Threshold = 0.5
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &LLMRecognizer{
		client:    opts.Client,
		model:     opts.Model,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
	}, nil
}

var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify messages sent to an IT help desk chatbot that manages ServiceNow incidents.\n")
	b.WriteString("Reply with ONLY a JSON object: {\"intent\": <label>, \"confidence\": <0..1>}.\n")
	b.WriteString("Labels:\n")
	descriptions := map[Kind]string{
		KindNone:                "nothing below applies",
		KindGreeting:            "the user says hello",
		KindThankYou:            "the user says thanks",
		KindServiceNowMenu:      "the user asks what the bot can do",
		KindGetIncident:         "the user wants to see their incidents",
		KindCreateIncident:      "the user wants to report a problem or open a new incident",
		KindUpdateIncident:      "the user wants to add comments to an incident",
		KindResolveIncident:     "the user wants to resolve or close an incident",
		KindReopenIncident:      "the user wants to re-open an incident",
		KindSearchKnowledgeBase: "the user wants to search knowledge articles",
		KindQnA:                 "a general IT question answerable from an FAQ",
	}
	for _, k := range AllKinds() {
		fmt.Fprintf(&b, "- %s: %s\n", k, descriptions[k])
	}
	return b.String()
}

// Recognize asks the model for a label. Labels below the confidence
// threshold, and labels outside the known set, yield None.
func (r *LLMRecognizer) Recognize(ctx context.Context, text string) (Intent, error) {
	if strings.TrimSpace(text) == "" {
		return None, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   60,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return None, fmt.Errorf("recognizer: llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return None, fmt.Errorf("recognizer: llm: no choices")
	}

	c, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		return None, fmt.Errorf("recognizer: llm: %w", err)
	}
	kind := ParseKind(c.Intent)
	if kind == KindNone || c.Confidence < r.threshold {
		return Intent{Kind: KindNone, Score: c.Confidence}, nil
	}
	return Intent{Kind: kind, Score: c.Confidence}, nil
}

// parseClassification decodes the model output, tolerating prose or code
// fences around the JSON object.
func parseClassification(raw string) (classification, error) {
	var c classification
	if err := json.Unmarshal([]byte(raw), &c); err == nil {
		return c, nil
	}
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return c, fmt.Errorf("parse classification %q: no JSON object", raw)
	}
	if err := json.Unmarshal([]byte(raw[first:last+1]), &c); err != nil {
		return c, fmt.Errorf("parse classification: %w", err)
	}
	return c, nil
}
