package database

import (
	"database/sql"
	"time"
)

// OAuthToken is a persisted OAuth2 token for one provider (for example
// "microsoft").
type OAuthToken struct {
	Provider     string       `db:"provider"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	TokenType    string       `db:"token_type"`
	Expiry       sql.NullTime `db:"expiry"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}
