package config

import "strings"

// IsAuthorized reports whether userID belongs to the authorized-user set.
// Unknown and malformed IDs are treated the same way.
func (c *Config) IsAuthorized(userID int64) bool {
	if userID == 0 {
		return false
	}
	for _, id := range c.Secrets.AuthorizedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatIDFor resolves an authorized user name to its Telegram ID. Names are
// matched case-insensitively because the secrets loader lowercases map keys.
func (c *Config) ChatIDFor(name string) (int64, bool) {
	if name == "" {
		return 0, false
	}
	id, ok := c.Secrets.AuthorizedUsers[strings.ToLower(name)]
	return id, ok
}
