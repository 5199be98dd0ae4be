// Package servicenow is a small client for the ServiceNow Table API covering
// incidents, knowledge articles and users.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	InstanceURL     string // required, e.g. https://acme.service-now.com
	APIPath         string // default "/api/now/table"
	PortalPath      string // default "/sp"
	Username        string // required
	Password        string // required
	KnowledgeBaseID string
	HTTPClient      *http.Client
	Timeout         time.Duration // per request; default 30s
	Now             func() time.Time
}

// Client talks to one ServiceNow instance with a service account.
type Client struct {
	baseURL    string
	portalURL  string
	username   string
	password   string
	kbID       string
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if opts.InstanceURL == "" {
		return nil, fmt.Errorf("servicenow: instance url is required")
	}
	if opts.Username == "" || opts.Password == "" {
		return nil, fmt.Errorf("servicenow: username and password are required")
	}
	instance := strings.TrimRight(opts.InstanceURL, "/")
	if opts.APIPath == "" {
		opts.APIPath = "/api/now/table"
	}
	if opts.PortalPath == "" {
		opts.PortalPath = "/sp"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		baseURL:    instance + "/" + strings.Trim(opts.APIPath, "/"),
		portalURL:  instance + "/" + strings.Trim(opts.PortalPath, "/"),
		username:   opts.Username,
		password:   opts.Password,
		kbID:       opts.KnowledgeBaseID,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		now:        opts.Now,
	}, nil
}

// errorEnvelope is the body ServiceNow returns on failures.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// do sends one request. body is JSON-encoded when non-nil; out receives the
// "result" member of the response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("servicenow: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("servicenow: build %s %s: %w", method, path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("servicenow: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
			apiErr.Detail = env.Error.Detail
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	envelope := struct {
		Result interface{} `json:"result"`
	}{Result: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("servicenow: decode %s %s: %w", method, path, err)
	}
	return nil
}

// queryValue strips the encoded-query separator from user input so it
// cannot add clauses to a sysparm_query.
func queryValue(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "^", ""))
}

// CreateIncident opens a new incident for callerID. Notes, when present,
// are added as the first customer-visible comment.
func (c *Client) CreateIncident(ctx context.Context, in NewIncident, callerID string) (*Incident, error) {
	body := map[string]string{
		"caller_id":         callerID,
		"short_description": in.ShortDescription,
		"description":       in.Description,
		"state":             StateNew,
	}
	if in.Notes != "" {
		body["comments"] = in.Notes
	}
	var created Incident
	if err := c.do(ctx, http.MethodPost, "/incident", nil, body, &created); err != nil {
		return nil, err
	}
	if created.SysID == "" {
		return nil, ErrNoIdentifier
	}
	return &created, nil
}

// GetIncidentsByCaller returns up to five of the caller's active incidents,
// newest first.
func (c *Client) GetIncidentsByCaller(ctx context.Context, callerID string) ([]Incident, error) {
	q := url.Values{}
	q.Set("sysparm_query", "caller_id="+queryValue(callerID)+"^active=true^ORDERBYDESCsys_created_on")
	q.Set("sysparm_fields", incidentFields)
	q.Set("sysparm_limit", "5")
	var incidents []Incident
	if err := c.do(ctx, http.MethodGet, "/incident", q, nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// GetIncidentByNumber returns every incident whose number equals number.
// An empty slice means no match.
func (c *Client) GetIncidentByNumber(ctx context.Context, number string) ([]Incident, error) {
	q := url.Values{}
	q.Set("sysparm_query", "number="+queryValue(number))
	var incidents []Incident
	if err := c.do(ctx, http.MethodGet, "/incident", q, nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func taskPath(incidentID string) string {
	return "/task/" + url.PathEscape(incidentID)
}

func excludeRefLink() url.Values {
	q := url.Values{}
	q.Set("sysparm_exclude_reference_link", "true")
	return q
}

// UpdateIncident appends comments to an incident. Repeating the call adds
// the comment again.
func (c *Client) UpdateIncident(ctx context.Context, incidentID, comments, callerID string) error {
	body := map[string]string{
		"caller_id":      callerID,
		"comments":       comments,
		"sys_updated_on": c.now().UTC().Format("2006-01-02 15:04:05"),
	}
	return c.do(ctx, http.MethodPut, taskPath(incidentID), excludeRefLink(), body, nil)
}

// ResolveIncident moves an incident to the resolved state. Transition rules
// are enforced by the instance.
func (c *Client) ResolveIncident(ctx context.Context, incidentID, callerID string) error {
	body := map[string]string{
		"caller_id": callerID,
		"state":     StateResolved,
	}
	return c.do(ctx, http.MethodPut, taskPath(incidentID), excludeRefLink(), body, nil)
}

// ReopenIncident moves an incident back to in progress, optionally adding
// notes as a comment.
func (c *Client) ReopenIncident(ctx context.Context, incidentID, notes, callerID string) error {
	body := map[string]string{
		"caller_id": callerID,
		"state":     StateInProgress,
	}
	if notes != "" {
		body["comments"] = notes
	}
	return c.do(ctx, http.MethodPut, taskPath(incidentID), excludeRefLink(), body, nil)
}

// SearchKnowledgeBase returns up to ten published articles from the
// configured knowledge base whose metadata or text contain query.
func (c *Client) SearchKnowledgeBase(ctx context.Context, query string) ([]Article, error) {
	term := queryValue(query)
	q := url.Values{}
	q.Set("sysparm_query", fmt.Sprintf("kb_knowledge_base=%s^workflow_state=published^metaLIKE%s^ORtextLIKE%s",
		queryValue(c.kbID), term, term))
	q.Set("sysparm_exclude_reference_link", "true")
	q.Set("sysparm_fields", articleFields)
	q.Set("sysparm_limit", "10")
	var articles []Article
	if err := c.do(ctx, http.MethodGet, "/kb_knowledge", q, nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// GetUsersByName returns every sys_user whose first and last name match.
func (c *Client) GetUsersByName(ctx context.Context, firstName, lastName string) ([]User, error) {
	q := url.Values{}
	q.Set("sysparm_query", "first_name="+queryValue(firstName)+"^last_name="+queryValue(lastName))
	var users []User
	if err := c.do(ctx, http.MethodGet, "/sys_user", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// IncidentURL links to an incident in the service portal.
func (c *Client) IncidentURL(sysID string) string {
	q := url.Values{}
	q.Set("id", "ticket")
	q.Set("sys_id", sysID)
	q.Set("table", "incident")
	q.Set("view", "sp")
	return c.portalURL + "?" + q.Encode()
}

// ArticleURL links to a knowledge article in the service portal.
func (c *Client) ArticleURL(sysID string) string {
	q := url.Values{}
	q.Set("id", "kb_article")
	q.Set("sys_id", sysID)
	return c.portalURL + "?" + q.Encode()
}

// MyIncidentsURL links to the portal page listing the signed-in user's
// active incidents.
func (c *Client) MyIncidentsURL() string {
	return c.portalURL + "?id=all_tickets&table=incident" +
		"&filter=opened_by%3Djavascript:gs.getUserID()%5EORcaller_id%3Djavascript:gs.getUserID()" +
		"%5EORwatch_listLIKEjavascript:gs.getUserID()%5Eactive%3Dtrue&d=desc#home"
}
