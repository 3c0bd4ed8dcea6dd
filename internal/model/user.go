package model

import (
	"time"
)

// Tokens collects an issued access token; its expiry is the session expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// User represents an account. Password material is owned by the auth service.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Country   string // ISO-3166 alpha-2
	PwdHash   []byte // Argon2id(password, SaltAuth)
	SaltAuth  []byte
	CreatedAt time.Time
}

// Caller is who is performing a request. The zero value is an anonymous caller.
type Caller struct {
	UserID   string
	Role     Role
	Country  string
	DeviceID string // optional device/session identifier supplied by the boundary
}

// Anonymous returns an unauthenticated caller.
func Anonymous(deviceID string) Caller {
	return Caller{Role: RoleGuest, DeviceID: deviceID}
}

// CallerFor builds an authenticated caller for u.
func CallerFor(u *User, deviceID string) Caller {
	return Caller{UserID: u.ID, Role: u.Role, Country: u.Country, DeviceID: deviceID}
}

// Authenticated reports whether the caller is a known user.
func (c Caller) Authenticated() bool { return c.UserID != "" }

// IsAuthorOf reports whether an authenticated caller authored r.
func (c Caller) IsAuthorOf(r *Recipe) bool {
	return c.Authenticated() && c.UserID == r.AuthorID
}
