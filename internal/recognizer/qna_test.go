package recognizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newQnAServer(t *testing.T, status int, body string) (*QnAClient, *http.Request, *generateAnswerRequest) {
	t.Helper()
	var gotReq http.Request
	var gotBody generateAnswerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = *r
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := NewQnAClient(QnAOpts{EndpointHost: srv.URL + "/qnamaker/", KnowledgeBaseID: "kb-1", AuthKey: "key-1"})
	if err != nil {
		t.Fatal(err)
	}
	return c, &gotReq, &gotBody
}

func TestNewQnAClient_Validation(t *testing.T) {
	if _, err := NewQnAClient(QnAOpts{EndpointHost: "https://x"}); err == nil {
		t.Error("expected error without knowledge base id")
	}
}

func TestQnAClient_GenerateAnswer(t *testing.T) {
	c, req, body := newQnAServer(t, http.StatusOK,
		`{"answers":[{"answer":"Restart the VPN client.","score":87.5,"questions":["vpn broken"]}]}`)

	a, err := c.GenerateAnswer(context.Background(), "my vpn is broken")
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if a == nil || a.Text != "Restart the VPN client." || a.Score != 0.875 || a.Question != "vpn broken" {
		t.Errorf("answer = %+v", a)
	}
	if req.Method != http.MethodPost || req.URL.Path != "/qnamaker/knowledgebases/kb-1/generateAnswer" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "EndpointKey key-1" {
		t.Errorf("Authorization = %q", got)
	}
	if body.Question != "my vpn is broken" || body.Top != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestQnAClient_BelowThresholdOrEmpty(t *testing.T) {
	for _, resp := range []string{
		`{"answers":[{"answer":"No good match found in KB.","score":0}]}`,
		`{"answers":[{"answer":"maybe","score":12}]}`,
		`{"answers":[]}`,
	} {
		c, _, _ := newQnAServer(t, http.StatusOK, resp)
		a, err := c.GenerateAnswer(context.Background(), "q")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != nil {
			t.Errorf("response %s: answer = %+v, want nil", resp, a)
		}
		intent, _ := c.Recognize(context.Background(), "q")
		if intent.Kind != KindNone {
			t.Errorf("response %s: intent = %q, want none", resp, intent.Kind)
		}
	}
}

func TestQnAClient_Recognize(t *testing.T) {
	c, _, _ := newQnAServer(t, http.StatusOK, `{"answers":[{"answer":"x;y;https://u;https://i","score":64}]}`)
	intent, err := c.Recognize(context.Background(), "how do I reset my password")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Kind != KindQnA || intent.Answer == nil || intent.Score != 0.64 {
		t.Errorf("intent = %+v", intent)
	}
}

func TestQnAClient_HTTPError(t *testing.T) {
	c, _, _ := newQnAServer(t, http.StatusUnauthorized, `{"error":"bad key"}`)
	if _, err := c.GenerateAnswer(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseCardAnswer(t *testing.T) {
	card, ok := ParseCardAnswer("Reset password; Use the self-service portal ;https://help/pw;https://img/pw.png")
	if !ok {
		t.Fatal("expected structured answer")
	}
	want := CardAnswer{Title: "Reset password", Description: "Use the self-service portal", URL: "https://help/pw", ImageURL: "https://img/pw.png"}
	if card != want {
		t.Errorf("card = %+v, want %+v", card, want)
	}

	card, ok = ParseCardAnswer("Title;Description")
	if !ok || card.Title != "Title" || card.URL != "" {
		t.Errorf("short answer = %+v ok=%v", card, ok)
	}

	if _, ok := ParseCardAnswer("just text"); ok {
		t.Error("plain text parsed as card")
	}
}
