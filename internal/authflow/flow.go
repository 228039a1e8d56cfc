package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"tubecast/internal/config"
	"tubecast/internal/services"
)

// Scopes grant upload access to the publishing platform.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
}

// Flow wraps the OAuth authorization-code dance for account onboarding.
type Flow struct {
	oauth          *oauth2.Config
	credentialsDir string
}

// Option configures the flow.
type Option func(*Flow)

// WithEndpoint overrides the provider endpoint (primarily for tests).
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(f *Flow) {
		f.oauth.Endpoint = endpoint
	}
}

// New builds a flow from configuration. The flow is constructible even when
// the OAuth client is absent; Configured gates the operations that need it.
func New(cfg *config.Config, opts ...Option) *Flow {
	f := &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		credentialsDir: cfg.Paths.CredentialsDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Configured reports whether an OAuth client is available.
func (f *Flow) Configured() bool {
	return strings.TrimSpace(f.oauth.ClientID) != "" && strings.TrimSpace(f.oauth.ClientSecret) != ""
}

// OAuthConfig exposes the underlying client config for token refresh.
func (f *Flow) OAuthConfig() *oauth2.Config {
	return f.oauth
}

// AuthURL returns the consent URL for the given correlation state. Offline
// access is requested so a refresh token is issued, and consent is forced so
// re-authorization of an existing account still yields one.
func (f *Flow) AuthURL(state string) string {
	return f.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "auth", "exchange", "authorization code rejected", err)
	}
	return token, nil
}

// SaveToken writes the token as JSON at path, creating parent directories.
func (f *Flow) SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

// LoadToken reads a credential JSON file.
func (f *Flow) LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "auth", "load token", "credential file missing", err)
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return &token, nil
}

// EncodeState builds the correlation token carried through the redirect.
func EncodeState(accountID int64, sender string) string {
	return strconv.FormatInt(accountID, 10) + ":" + sender
}

// ParseState splits a correlation token back into its parts. The sender
// identity may itself contain colons, so only the first separator counts.
// The sender segment is optional; a bare account reference still binds the
// credential, the caller just has nowhere to send a confirmation.
func ParseState(state string) (int64, string, error) {
	idText, sender, found := strings.Cut(state, ":")
	if !found {
		idText, sender = state, ""
	}
	accountID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return 0, "", services.Wrap(services.ErrValidation, "auth", "state", "malformed account reference", err)
	}
	return accountID, strings.TrimSpace(sender), nil
}
