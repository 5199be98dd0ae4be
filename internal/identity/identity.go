// Package identity maps a chat user to a ServiceNow caller using the
// channel's conversation roster.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zulandar/deskbot/internal/servicenow"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PlatformTeams is the channel id for which roster lookup is supported.
const PlatformTeams = "msteams"

var (
	// ErrUnsupported means the conversation cannot use token exchange.
	ErrUnsupported = errors.New("identity: token exchange not supported for this conversation")
	// ErrNoMatch means no ServiceNow user matched the roster name.
	ErrNoMatch = errors.New("identity: no matching user")
	// ErrAmbiguous means more than one ServiceNow user matched.
	ErrAmbiguous = errors.New("identity: more than one matching user")
)

// UserLookup finds ServiceNow users by name.
type UserLookup interface {
	GetUsersByName(ctx context.Context, firstName, lastName string) ([]servicenow.User, error)
}

// Member is one entry of a Bot Framework conversation roster.
type Member struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Email             string `json:"email"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// ResolverOpts configures a Resolver.
type ResolverOpts struct {
	ClientID     string     // required
	ClientSecret string     // required
	TokenURL     string     // required
	Scope        string     // required
	Users        UserLookup // required
	BaseClient   *http.Client
}

// Resolver performs the token-exchange identity path: a client-credentials
// token is used to read the conversation roster, and the first member's
// name is looked up in ServiceNow.
type Resolver struct {
	http  *http.Client
	users UserLookup
}

// NewResolver returns a Resolver.
func NewResolver(opts ResolverOpts) (*Resolver, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("identity: client id and secret are required")
	}
	if opts.TokenURL == "" {
		return nil, fmt.Errorf("identity: token url is required")
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("identity: user lookup is required")
	}
	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if opts.Scope != "" {
		cc.Scopes = []string{opts.Scope}
	}
	ctx := context.Background()
	if opts.BaseClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.BaseClient)
	}
	return &Resolver{http: cc.Client(ctx), users: opts.Users}, nil
}

// Supported reports whether token exchange applies to a conversation.
func Supported(platform, serviceURL string) bool {
	return platform == PlatformTeams && serviceURL != ""
}

// Members fetches the conversation roster.
func (r *Resolver) Members(ctx context.Context, serviceURL, conversationID string) ([]Member, error) {
	u := strings.TrimRight(serviceURL, "/") + "/v3/conversations/" + url.PathEscape(conversationID) + "/members"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build roster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("identity: roster: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var members []Member
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return nil, fmt.Errorf("identity: decode roster: %w", err)
	}
	return members, nil
}

// Resolve returns the single ServiceNow user matching the first roster
// member of the conversation.
func (r *Resolver) Resolve(ctx context.Context, platform, serviceURL, conversationID string) (*servicenow.User, error) {
	if !Supported(platform, serviceURL) {
		return nil, ErrUnsupported
	}
	members, err := r.Members(ctx, serviceURL, conversationID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("identity: empty roster: %w", ErrNoMatch)
	}
	m := members[0]
	if m.GivenName == "" || m.Surname == "" {
		return nil, fmt.Errorf("identity: roster member %q has no given name or surname: %w", m.ID, ErrNoMatch)
	}
	users, err := r.users.GetUsersByName(ctx, m.GivenName, m.Surname)
	if err != nil {
		return nil, fmt.Errorf("identity: lookup %s %s: %w", m.GivenName, m.Surname, err)
	}
	switch len(users) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return &users[0], nil
	default:
		return nil, ErrAmbiguous
	}
}
