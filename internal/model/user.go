package model

import "time"

// TimeFormat is the timestamp layout used throughout the credential file
// and the audit trail. It matches the legacy users.json format, so an
// existing file can be dropped in unchanged.
const TimeFormat = "2006-01-02 15:04:05"

// Role determines which menu branches a logged-in user can reach. It is
// carried by the credential record and returned to callers on successful
// authentication; the authentication logic itself never inspects it.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a single credential record in the store. Field names and the
// timestamp format are part of the on-disk compatibility surface.
type User struct {
	PasswordHash string  `json:"password"` // hex SHA-256, never the plaintext
	Created      string  `json:"created"`
	Level        Role    `json:"level"`
	LastLogin    *string `json:"last_login"`
}

// Now formats t in the store's timestamp layout.
func Now(t time.Time) string {
	return t.Format(TimeFormat)
}
