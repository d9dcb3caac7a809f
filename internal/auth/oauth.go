package auth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// oauthConfig names one provider's OAuth endpoints and local callback
// binding. CallbackAddr/CallbackPath describe where the local listener
// in callback.go binds; RedirectURL is what the provider sends the
// browser back to, which for a console/device-style flow is often a
// page the provider itself hosts rather than the local listener (the
// user copies a code out of it by hand), so the two may not match.
type oauthConfig struct {
	ClientID     string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
	CallbackAddr string
	CallbackPath string
}

// providerOAuthConfigs lists the providers this build can drive an
// OAuth login for. Anthropic's console OAuth app and redirect are
// public (the same ones the Claude CLI uses); other providers fall
// back to the API-key flow in store.go until they're added here.
var providerOAuthConfigs = map[string]oauthConfig{
	"anthropic": {
		ClientID:     "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
		AuthURL:      "https://claude.ai/oauth/authorize",
		TokenURL:     "https://console.anthropic.com/v1/oauth/token",
		RedirectURL:  "https://console.anthropic.com/oauth/code/callback",
		Scopes:       []string{"org:create_api_key", "user:profile", "user:inference"},
		CallbackAddr: "127.0.0.1:51123",
		CallbackPath: "/callback",
	},
}

// providerOAuth wraps an oauth2.Config with the PKCE extras
// golang.org/x/oauth2's base type doesn't carry on its own.
type providerOAuth struct {
	cfg oauthConfig
	o2  *oauth2.Config
}

func newProviderOAuth(cfg oauthConfig) *providerOAuth {
	return &providerOAuth{
		cfg: cfg,
		o2: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}
}

// buildAuthURL constructs the authorization URL the user opens in a
// browser, state set to the PKCE verifier per login.rs's convention of
// reusing the verifier as its own tamper check.
func (p *providerOAuth) buildAuthURL(pkce pkceChallenge) string {
	return p.o2.AuthCodeURL(pkce.verifier,
		oauth2.SetAuthURLParam("code_challenge", pkce.challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("response_type", "code"),
	)
}

// exchange trades an authorization code for tokens.
func (p *providerOAuth) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.o2.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
}

// parseCallbackInput splits a pasted callback value into its code and
// state parts. The console redirect page displays "code#state"; a
// bare code (no '#') is also accepted, leaving state for the caller to
// default to the flow's own PKCE verifier.
func parseCallbackInput(input string) (code, state string) {
	input = strings.TrimSpace(input)
	if idx := strings.Index(input, "#"); idx >= 0 {
		return input[:idx], input[idx+1:]
	}
	return input, ""
}
