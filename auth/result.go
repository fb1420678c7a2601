package auth

import (
	"time"

	"github.com/libris-io/identity/users"
)

// Status is the terminal outcome of a sign-in or refresh call.
type Status int

const (
	// StatusNotAllowed covers bad credentials, unknown principals, and
	// unknown or expired refresh tokens. The cases are deliberately
	// undifferentiated so callers cannot be used for user enumeration.
	StatusNotAllowed Status = iota
	StatusSuccess
	StatusLockedOut
	StatusTwoFactorRequired
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusLockedOut:
		return "locked out"
	case StatusTwoFactorRequired:
		return "two factor required"
	default:
		return "not allowed"
	}
}

// Result is the value a session operation resolves to. It carries no partial
// state and is constructed fresh per call; only a Success result has the
// principal and token fields populated.
type Result struct {
	Status         Status
	User           *users.User
	AccessToken    string
	RefreshTokenID string
	RefreshExpires time.Time
}

// Succeeded reports whether the operation produced a usable session.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func notAllowed() *Result {
	return &Result{Status: StatusNotAllowed}
}
