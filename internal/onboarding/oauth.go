package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/keepvault/onboard/internal/config"
	"golang.org/x/oauth2"
)

// ErrUnknownPlatform is returned for a platform id not in Platforms.
var ErrUnknownPlatform = errors.New("unknown platform")

// Authenticator runs the OAuth authorization-code flow for a platform.
type Authenticator interface {
	AuthCodeURL(platformID, state string) (string, error)
	Exchange(ctx context.Context, platformID, code string) (*oauth2.Token, error)
}

// OAuth is the x/oauth2 Authenticator. One client registration is shared by
// all platforms; endpoints come from Platforms unless overridden.
type OAuth struct {
	clientID     string
	clientSecret string
	redirectURL  string
	overrides    map[string]oauth2.Endpoint
}

// OAuthOption configures OAuth.
type OAuthOption func(*OAuth)

// WithEndpoint replaces the endpoint used for one platform.
func WithEndpoint(platformID string, ep oauth2.Endpoint) OAuthOption {
	return func(o *OAuth) { o.overrides[platformID] = ep }
}

// NewOAuth builds an Authenticator from the oauth config block.
func NewOAuth(cfg config.OAuthConfig, opts ...OAuthOption) *OAuth {
	o := &OAuth{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		overrides:    map[string]oauth2.Endpoint{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OAuth) config(platformID string) (*oauth2.Config, error) {
	p, ok := PlatformByID(platformID)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPlatform, platformID)
	}
	ep := p.Endpoint
	if override, ok := o.overrides[platformID]; ok {
		ep = override
	}
	return &oauth2.Config{
		ClientID:     o.clientID,
		ClientSecret: o.clientSecret,
		RedirectURL:  o.redirectURL,
		Endpoint:     ep,
		Scopes:       p.Scopes,
	}, nil
}

// AuthCodeURL returns the consent page URL the user opens in a browser.
func (o *OAuth) AuthCodeURL(platformID, state string) (string, error) {
	cfg, err := o.config(platformID)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades the pasted authorization code for a token.
func (o *OAuth) Exchange(ctx context.Context, platformID, code string) (*oauth2.Token, error) {
	cfg, err := o.config(platformID)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorDescription != "" {
			return nil, fmt.Errorf("authorization failed: %s", re.ErrorDescription)
		}
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return tok, nil
}
