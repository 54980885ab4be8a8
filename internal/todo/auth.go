package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/database"
)

// TokenProvider is the key the Microsoft token is stored under.
const TokenProvider = "microsoft"

// TokenStore persists OAuth tokens between runs.
type TokenStore interface {
	GetToken(ctx context.Context, provider string) (*database.OAuthToken, error)
	SaveToken(ctx context.Context, token *database.OAuthToken) error
	DeleteToken(ctx context.Context, provider string) error
}

// LoginNotifier tells the user where to sign in during the device-code flow.
type LoginNotifier func(ctx context.Context, verificationURI, userCode string) error

// Authenticator obtains Microsoft Graph tokens with the OAuth2 device-code
// grant and keeps them in a TokenStore. Refreshed tokens are written back.
type Authenticator struct {
	oauth      *oauth2.Config
	store      TokenStore
	notify     LoginNotifier
	httpClient *http.Client
	log        *slog.Logger

	mu sync.Mutex
}

// NewAuthenticator builds an Authenticator for the Azure AD tenant in cfg.
func NewAuthenticator(cfg config.TodoConfig, store TokenStore, notify LoginNotifier, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}

	base := strings.TrimRight(cfg.AuthorityURL, "/") + "/" + cfg.TenantID + "/oauth2/v2.0"
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       base + "/authorize",
				TokenURL:      base + "/token",
				DeviceAuthURL: base + "/devicecode",
				AuthStyle:     oauth2.AuthStyleInParams,
			},
		},
		store:      store,
		notify:     notify,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "todo_auth"),
	}
}

// HTTPClient returns a client that adds a valid bearer token to every request.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	src := &persistingSource{
		ctx:  ctx,
		auth: a,
		src:  a.oauth.TokenSource(ctx, tok),
		last: tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	client.Timeout = a.httpClient.Timeout
	return client, nil
}

// Token returns a valid token, refreshing the stored one or running the
// device-code login when needed.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	stored, err := a.store.GetToken(ctx, TokenProvider)
	switch {
	case errors.Is(err, database.ErrTokenNotFound):
		return a.deviceLogin(ctx)
	case err != nil:
		return nil, fmt.Errorf("todo auth: load token: %w", err)
	}

	tok := toOAuth2(stored)
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return a.deviceLogin(ctx)
	}

	refreshed, err := a.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			a.log.WarnContext(ctx, "Stored refresh token rejected, signing in again", "error_code", retrieveErr.ErrorCode)
			if delErr := a.store.DeleteToken(ctx, TokenProvider); delErr != nil {
				return nil, fmt.Errorf("todo auth: discard rejected token: %w", delErr)
			}
			return a.deviceLogin(ctx)
		}
		return nil, fmt.Errorf("todo auth: refresh token: %w", err)
	}

	if err := a.save(ctx, refreshed); err != nil {
		return nil, err
	}
	a.log.InfoContext(ctx, "Refreshed Microsoft token")
	return refreshed, nil
}

func (a *Authenticator) deviceLogin(ctx context.Context) (*oauth2.Token, error) {
	resp, err := a.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("todo auth: start device login: %w", err)
	}

	a.log.InfoContext(ctx, "Waiting for Microsoft device login", "verification_uri", resp.VerificationURI)
	if a.notify != nil {
		if err := a.notify(ctx, resp.VerificationURI, resp.UserCode); err != nil {
			return nil, fmt.Errorf("todo auth: send login instructions: %w", err)
		}
	}

	tok, err := a.oauth.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("todo auth: complete device login: %w", err)
	}

	if err := a.save(ctx, tok); err != nil {
		return nil, err
	}
	a.log.InfoContext(ctx, "Microsoft device login completed")
	return tok, nil
}

func (a *Authenticator) save(ctx context.Context, tok *oauth2.Token) error {
	if err := a.store.SaveToken(ctx, fromOAuth2(tok)); err != nil {
		return fmt.Errorf("todo auth: save token: %w", err)
	}
	return nil
}

// persistingSource writes every newly issued token back to the store.
type persistingSource struct {
	ctx  context.Context
	auth *Authenticator
	src  oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.auth.save(p.ctx, tok); err != nil {
			p.auth.log.WarnContext(p.ctx, "Failed to persist refreshed token", "error", err)
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

func toOAuth2(t *database.OAuthToken) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.Expiry.Valid {
		tok.Expiry = t.Expiry.Time
	}
	return tok
}

func fromOAuth2(t *oauth2.Token) *database.OAuthToken {
	return &database.OAuthToken{
		Provider:     TokenProvider,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       sql.NullTime{Time: t.Expiry, Valid: !t.Expiry.IsZero()},
	}
}
