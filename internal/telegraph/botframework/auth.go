package botframework

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "botframework.claims"

var (
	// ErrMissingToken is returned when the Authorization header has no
	// bearer token.
	ErrMissingToken = errors.New("botframework: missing bearer token")
	// ErrUnknownKey is returned when the token's key id is not published.
	ErrUnknownKey = errors.New("botframework: unknown signing key")
)

// Claims are the connector token claims checked on inbound requests.
type Claims struct {
	ServiceURL string `json:"serviceurl,omitempty"`
	jwt.RegisteredClaims
}

// AuthOpts holds parameters for creating an Authenticator.
type AuthOpts struct {
	AppID          string // required; expected audience
	OpenIDMetadata string // required; URL of the OpenID configuration document
	Issuer         string // required
	HTTPClient     *http.Client
	RefreshEvery   time.Duration // default 24h
	Now            func() time.Time
}

// Authenticator validates the bearer tokens the connector attaches to
// inbound activities. Signing keys come from the JWKS named by the OpenID
// metadata document and are cached.
type Authenticator struct {
	appID        string
	metadataURL  string
	issuer       string
	client       *http.Client
	refreshEvery time.Duration
	now          func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewAuthenticator validates opts and returns an Authenticator.
func NewAuthenticator(opts AuthOpts) (*Authenticator, error) {
	if opts.AppID == "" {
		return nil, fmt.Errorf("botframework: auth: app id is required")
	}
	if opts.OpenIDMetadata == "" {
		return nil, fmt.Errorf("botframework: auth: openid metadata url is required")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("botframework: auth: issuer is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RefreshEvery == 0 {
		opts.RefreshEvery = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Authenticator{
		appID:        opts.AppID,
		metadataURL:  opts.OpenIDMetadata,
		issuer:       opts.Issuer,
		client:       opts.HTTPClient,
		refreshEvery: opts.RefreshEvery,
		now:          opts.Now,
	}, nil
}

// Validate checks the Authorization header value and returns the token's
// claims.
func (a *Authenticator) Validate(ctx context.Context, header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims,
		func(tok *jwt.Token) (interface{}, error) {
			kid, _ := tok.Header["kid"].(string)
			return a.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(a.appID),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Minute),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("botframework: auth: %w", err)
	}
	return claims, nil
}

// Middleware rejects requests without a valid connector token with 401 and
// stores the claims in the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Validate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// key returns the public key for kid, refreshing the cache when it is stale
// or the key is unknown.
func (a *Authenticator) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stale := a.keys == nil || a.now().Sub(a.fetched) > a.refreshEvery
	if k, ok := a.keys[kid]; ok && !stale {
		return k, nil
	}
	keys, err := a.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}
	a.keys = keys
	a.fetched = a.now()
	if k, ok := keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKey, kid)
}

type openIDConfig struct {
	JWKSURI string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (a *Authenticator) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var cfg openIDConfig
	if err := a.getJSON(ctx, a.metadataURL, &cfg); err != nil {
		return nil, fmt.Errorf("botframework: auth: openid metadata: %w", err)
	}
	if cfg.JWKSURI == "" {
		return nil, fmt.Errorf("botframework: auth: openid metadata has no jwks_uri")
	}
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := a.getJSON(ctx, cfg.JWKSURI, &set); err != nil {
		return nil, fmt.Errorf("botframework: auth: jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKey(k)
		if err != nil {
			return nil, fmt.Errorf("botframework: auth: key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func (a *Authenticator) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
