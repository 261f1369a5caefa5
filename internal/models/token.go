package models

import "time"

// RevokedToken is a row in the token blocklist. Append-only: once a jti is
// present the token stays invalid for the rest of its lifetime.
type RevokedToken struct {
	JTI       string    `db:"jti" json:"jti"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
