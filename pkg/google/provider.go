package google

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/campusfindz/campusfindz-backend/pkg/config"
)

// Profile is the identity returned by Google after a successful code
// exchange.
type Profile struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

// IdentityProvider abstracts the OAuth authorization-code flow so the
// auth service can be tested without calling Google.
type IdentityProvider interface {
	// AuthURL builds the consent-screen URL carrying the given state token.
	AuthURL(state string) string
	// Exchange trades the authorization code for the user's profile.
	Exchange(ctx context.Context, code string) (Profile, error)
}

// Provider implements IdentityProvider against Google's OAuth2 endpoints.
type Provider struct {
	oauth  *oauth2.Config
	domain string
}

// NewProvider builds a Google OAuth provider from configuration.
func NewProvider(cfg config.GoogleOAuthConfig) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth client credentials are required")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("google oauth redirect uri is required")
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth.Endpoint,
		},
		domain: strings.TrimPrefix(cfg.AllowedEmailDomain, "@"),
	}, nil
}

// AuthURL returns the Google consent URL. The hd parameter hints the
// hosted domain on the account chooser; the real domain check happens
// server-side after the exchange.
func (p *Provider) AuthURL(state string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if p.domain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", p.domain))
	}
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades the authorization code for tokens and fetches the
// authenticated user's profile.
func (p *Provider) Exchange(ctx context.Context, code string) (Profile, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(p.oauth.TokenSource(ctx, token)))
	if err != nil {
		return Profile{}, fmt.Errorf("building userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("fetching userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return Profile{}, fmt.Errorf("userinfo response missing id or email")
	}
	return Profile{
		GoogleID: info.Id,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
