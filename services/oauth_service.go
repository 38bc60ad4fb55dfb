package services

import (
	"context"
	"fmt"
	"net/http"

	"studysync/config"
	"studysync/models"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthProvider is one configured login provider
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// EmailsURL is consulted when the user-info document carries no email (GitHub)
	EmailsURL string
}

// OAuthService runs the authorization-code flow for the configured providers
type OAuthService struct {
	Providers map[string]*OAuthProvider
	Auth      *AuthService
}

// NewOAuthService registers every provider with credentials in cfg.
func NewOAuthService(cfg *config.Server, auth *AuthService) *OAuthService {
	s := &OAuthService{Providers: map[string]*OAuthProvider{}, Auth: auth}
	callback := func(name string) string {
		return cfg.OAuthRedirectBase + "/login/oauth2/code/" + name
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		s.Providers["google"] = &OAuthProvider{
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     endpoints.Google,
				RedirectURL:  callback("google"),
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		}
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		s.Providers["github"] = &OAuthProvider{
			Name: "github",
			Config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				Endpoint:     endpoints.GitHub,
				RedirectURL:  callback("github"),
				Scopes:       []string{"read:user", "user:email"},
			},
			UserInfoURL: "https://api.github.com/user",
			EmailsURL:   "https://api.github.com/user/emails",
		}
	}
	return s
}

func (s *OAuthService) provider(name string) (*OAuthProvider, error) {
	p, ok := s.Providers[name]
	if !ok {
		return nil, newError(ErrNotFound, "Unknown login provider %q", name)
	}
	return p, nil
}

// AuthCodeURL returns the consent page URL for provider.
func (s *OAuthService) AuthCodeURL(provider, state string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type providerProfile struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Login     string `json:"login"`
	GivenName string `json:"given_name"`
	Family    string `json:"family_name"`
	Picture   string `json:"picture"`
	AvatarURL string `json:"avatar_url"`
}

// Exchange trades an authorization code for the provider profile and signs the user in.
func (s *OAuthService) Exchange(ctx context.Context, provider, code string) (*models.User, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, newError(ErrInvalidCredentials, "Authorization failed")
	}
	client := p.Config.Client(ctx, tok)

	var profile providerProfile
	if err := getJSON(ctx, client, p.UserInfoURL, &profile); err != nil {
		return nil, fmt.Errorf("%s user info: %w", provider, err)
	}
	if profile.Email == "" && p.EmailsURL != "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, p.EmailsURL, &emails); err != nil {
			return nil, fmt.Errorf("%s emails: %w", provider, err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				profile.Email = e.Email
			}
		}
	}

	name := profile.Name
	if name == "" && profile.GivenName != "" {
		name = profile.GivenName + " " + profile.Family
	}
	if name == "" {
		name = profile.Login
	}
	picture := profile.Picture
	if picture == "" {
		picture = profile.AvatarURL
	}
	return s.Auth.FindOrCreateOAuthUser(ctx, profile.Email, name, picture)
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	resp, err := resty.NewWithClient(client).R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(out).
		Get(url)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}
