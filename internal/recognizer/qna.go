package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QnAOpts configures a QnAClient.
type QnAOpts struct {
	EndpointHost    string  // required, e.g. https://myqna.azurewebsites.net/qnamaker
	KnowledgeBaseID string  // required
	AuthKey         string  // endpoint key
	Threshold       float64 // minimum normalized score; default 0.3
	HTTPClient      *http.Client
	Timeout         time.Duration
}

// QnAClient queries a QnA Maker knowledge base. It also satisfies
// Recognizer, producing KindQnA intents for confident answers.
type QnAClient struct {
	endpoint   string
	authKey    string
	threshold  float64
	httpClient *http.Client
	timeout    time.Duration
}

// NewQnAClient returns a QnAClient.
func NewQnAClient(opts QnAOpts) (*QnAClient, error) {
	if opts.EndpointHost == "" || opts.KnowledgeBaseID == "" {
		return nil, fmt.Errorf("recognizer: qna: endpoint host and knowledge base id are required")
	}
	if opts.Threshold == 0 {
		opts.Threshold = 0.3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &QnAClient{
		endpoint:   strings.TrimRight(opts.EndpointHost, "/") + "/knowledgebases/" + opts.KnowledgeBaseID + "/generateAnswer",
		authKey:    opts.AuthKey,
		threshold:  opts.Threshold,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
	}, nil
}

type generateAnswerRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

type generateAnswerResponse struct {
	Answers []struct {
		Answer    string   `json:"answer"`
		Score     float64  `json:"score"`
		Questions []string `json:"questions"`
	} `json:"answers"`
}

// GenerateAnswer returns the best answer for question, or nil when the
// knowledge base has no answer at or above the threshold.
func (c *QnAClient) GenerateAnswer(ctx context.Context, question string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateAnswerRequest{Question: question, Top: 1})
	if err != nil {
		return nil, fmt.Errorf("recognizer: qna: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("recognizer: qna: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authKey != "" {
		req.Header.Set("Authorization", "EndpointKey "+c.authKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer: qna: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("recognizer: qna: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out generateAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("recognizer: qna: decode: %w", err)
	}
	if len(out.Answers) == 0 {
		return nil, nil
	}
	best := out.Answers[0]
	score := best.Score / 100
	if score <= 0 || score < c.threshold {
		return nil, nil
	}
	a := &Answer{Text: best.Answer, Score: score}
	if len(best.Questions) > 0 {
		a.Question = best.Questions[0]
	}
	return a, nil
}

// Recognize returns a KindQnA intent carrying the answer, or None.
func (c *QnAClient) Recognize(ctx context.Context, text string) (Intent, error) {
	if strings.TrimSpace(text) == "" {
		return None, nil
	}
	a, err := c.GenerateAnswer(ctx, text)
	if err != nil {
		return None, err
	}
	if a == nil {
		return None, nil
	}
	return Intent{Kind: KindQnA, Score: a.Score, Answer: a}, nil
}

// CardAnswer is a structured answer of the form
// "title;description;url;image".
type CardAnswer struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
}

// ParseCardAnswer splits a structured answer. It reports false for plain
// text answers that contain no ';'.
func ParseCardAnswer(answer string) (CardAnswer, bool) {
	if !strings.Contains(answer, ";") {
		return CardAnswer{}, false
	}
	parts := strings.SplitN(answer, ";", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return CardAnswer{
		Title:       strings.TrimSpace(parts[0]),
		Description: strings.TrimSpace(parts[1]),
		URL:         strings.TrimSpace(parts[2]),
		ImageURL:    strings.TrimSpace(parts[3]),
	}, true
}
