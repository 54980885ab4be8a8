package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrTokenNotFound is returned by GetToken when no token is stored for the
// provider.
var ErrTokenNotFound = errors.New("oauth token not found")

// Store defines the database operations used by the bot.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetToken returns the stored token for provider or ErrTokenNotFound.
	GetToken(ctx context.Context, provider string) (*OAuthToken, error)

	// SaveToken inserts or replaces the token for token.Provider.
	SaveToken(ctx context.Context, token *OAuthToken) error

	// DeleteToken removes the token for provider. Deleting a missing token
	// is not an error.
	DeleteToken(ctx context.Context, provider string) error

	// RunSQLMaintenance runs VACUUM on the database file.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetToken(ctx context.Context, provider string) (*OAuthToken, error) {
	var token OAuthToken
	query := `SELECT provider, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM oauth_tokens WHERE provider = ?`

	if err := s.db.GetContext(ctx, &token, query, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get oauth token", "provider", provider, "error", err)
		return nil, fmt.Errorf("failed to get token for %s: %w", provider, err)
	}
	return &token, nil
}

func (s *sqlxStore) SaveToken(ctx context.Context, token *OAuthToken) error {
	if token == nil {
		return errors.New("cannot save nil token")
	}
	if token.Provider == "" {
		return errors.New("token must have a provider")
	}
	if token.AccessToken == "" {
		return errors.New("token must have an access token")
	}

	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now
	if token.Expiry.Valid {
		token.Expiry.Time = token.Expiry.Time.UTC()
	}

	query := `INSERT INTO oauth_tokens
			(provider, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES
			(:provider, :access_token, :refresh_token, :token_type, :expiry, :created_at, :updated_at)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, token); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save oauth token", "provider", token.Provider, "error", err)
		return fmt.Errorf("failed to save token for %s: %w", token.Provider, err)
	}

	s.logger.DebugContext(ctx, "Saved oauth token", "provider", token.Provider)
	return nil
}

func (s *sqlxStore) DeleteToken(ctx context.Context, provider string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM oauth_tokens WHERE provider = ?", provider); err != nil {
		return fmt.Errorf("failed to delete token for %s: %w", provider, err)
	}
	s.logger.InfoContext(ctx, "Deleted oauth token", "provider", provider)
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	// VACUUM cannot run inside a transaction
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) interrupted: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
