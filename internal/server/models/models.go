// Package models holds server-side persistence models that have no agent
// counterpart: accounts and refresh tokens.
package models

import "time"

// User is a server account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}

// RefreshToken is a server-stored refresh token. Rotation deletes the row
// and issues a replacement.
type RefreshToken struct {
	Token   string
	UserID  string
	Expires time.Time
}
