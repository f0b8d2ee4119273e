package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// Profile is the subset of an OAuth user profile we keep.
type Profile struct {
	Email string
	Name  string
}

// OAuthProvider runs the authorization code flow against one provider.
type OAuthProvider struct {
	name       string
	config     oauth2.Config
	profileURL string
	emailsURL  string
}

// NewOAuthProvider is the generic constructor; emailsURL may be empty.
func NewOAuthProvider(name string, config oauth2.Config, profileURL, emailsURL string) *OAuthProvider {
	return &OAuthProvider{name: name, config: config, profileURL: profileURL, emailsURL: emailsURL}
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return NewOAuthProvider(ProviderGoogle, oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}, "https://openidconnect.googleapis.com/v1/userinfo", "")
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return NewOAuthProvider(ProviderGitHub, oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoints.GitHub,
		Scopes:       []string{"read:user", "user:email"},
	}, "https://api.github.com/user", "https://api.github.com/user/emails")
}

func (p *OAuthProvider) Name() string { return p.name }

// AuthCodeURL is where the browser is redirected to sign in.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Profile exchanges code for a token and fetches the user's profile.
func (p *OAuthProvider) Profile(ctx context.Context, code string) (Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%s exchange: %w", p.name, err)
	}
	client := p.config.Client(ctx, token)

	var raw struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	if err := getJSON(ctx, client, p.profileURL, &raw); err != nil {
		return Profile{}, fmt.Errorf("%s profile: %w", p.name, err)
	}
	profile := Profile{Email: raw.Email, Name: raw.Name}
	if profile.Name == "" {
		profile.Name = raw.Login
	}

	// GitHub hides the email unless it is public.
	if profile.Email == "" && p.emailsURL != "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, p.emailsURL, &emails); err != nil {
			return Profile{}, fmt.Errorf("%s emails: %w", p.name, err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				profile.Email = e.Email
				break
			}
		}
	}
	return profile, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
