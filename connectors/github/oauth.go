// Package github provides the GitHub OAuth login glue: building the
// authorize URL, exchanging the callback code, and fetching the
// authenticated user's login.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"costwatch/domain/auth"
)

const defaultUserURL = "https://api.github.com/user"

// OAuth wraps an oauth2.Config for the GitHub provider.
// Use NewOAuth to construct it.
type OAuth struct {
	cfg     *oauth2.Config
	userURL string
}

// NewOAuth creates the login helper. redirectURL is the absolute callback
// URL registered with the GitHub app.
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauthgithub.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user"},
		},
		userURL: defaultUserURL,
	}
}

// AuthURL returns the GitHub authorize URL for a login redirect.
func (o *OAuth) AuthURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// UserForCode exchanges the callback code and fetches the authenticated
// user. Allowlisting is the caller's concern.
func (o *OAuth) UserForCode(ctx context.Context, code string) (*auth.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github: code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("github: creating user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := o.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: fetching user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("github: user endpoint returned %d: %s", resp.StatusCode, body)
	}

	var u struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("github: parsing user: %w", err)
	}
	if u.Login == "" {
		return nil, fmt.Errorf("github: user response missing login")
	}

	return &auth.Principal{Login: u.Login, Name: u.Name, AvatarURL: u.AvatarURL}, nil
}
