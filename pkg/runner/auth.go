package runner

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/hornet-api/hornet/pkg/collection"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenCache keeps oauth2 client-credentials tokens alive across
// executions so a folder run does not hit the token endpoint per
// request. Keyed by token url + client id.
type tokenCache struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

func (c *tokenCache) get(key string) *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok := c.tokens[key]
	if tok != nil && tok.Valid() {
		return tok
	}
	return nil
}

func (c *tokenCache) put(key string, tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		c.tokens = make(map[string]*oauth2.Token)
	}
	c.tokens[key] = tok
}

// applyAuth sets the request's credentials according to the auth kind.
// Variable substitution happens here too, so secrets can live in
// environment files instead of the persisted collection.
func (r *Runner) applyAuth(ctx context.Context, req *http.Request, auth collection.Auth) error {
	switch auth.Kind {
	case collection.AuthNone:
		return nil
	case collection.AuthBearer:
		token := r.vars.Substitute(auth.Token)
		if token == "" {
			return fmt.Errorf("bearer auth: empty token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	case collection.AuthBasic:
		user := r.vars.Substitute(auth.Username)
		if user == "" {
			return fmt.Errorf("basic auth: empty username")
		}
		req.SetBasicAuth(user, r.vars.Substitute(auth.Password))
		return nil
	case collection.AuthOAuth2:
		tok, err := r.clientCredentialsToken(ctx, auth)
		if err != nil {
			return err
		}
		tok.SetAuthHeader(req)
		return nil
	default:
		return fmt.Errorf("unknown auth kind %d", auth.Kind)
	}
}

// clientCredentialsToken runs the oauth2 client_credentials flow,
// reusing a cached token while it is still valid.
func (r *Runner) clientCredentialsToken(ctx context.Context, auth collection.Auth) (*oauth2.Token, error) {
	tokenURL := r.vars.Substitute(auth.TokenURL)
	clientID := r.vars.Substitute(auth.ClientID)
	if tokenURL == "" {
		return nil, fmt.Errorf("oauth2 auth: token url is required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("oauth2 auth: client id is required")
	}

	key := tokenURL + "\x00" + clientID
	if tok := r.tokens.get(key); tok != nil {
		return tok, nil
	}

	config := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: r.vars.Substitute(auth.ClientSecret),
		TokenURL:     tokenURL,
		Scopes:       auth.Scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	tok, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth2 client_credentials flow failed: %w", err)
	}
	r.tokens.put(key, tok)
	return tok, nil
}
