package users

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no user matches.
var ErrNotFound = errors.New("user not found")

// CheckResult is the outcome of a password check against the credential
// store.
type CheckResult int

const (
	CheckFailed CheckResult = iota
	CheckSucceeded
	CheckLockedOut
	CheckRequiresTwoFactor
)

func (r CheckResult) String() string {
	switch r {
	case CheckSucceeded:
		return "succeeded"
	case CheckLockedOut:
		return "locked out"
	case CheckRequiresTwoFactor:
		return "requires two factor"
	default:
		return "failed"
	}
}

// Repo is the credential store. Implementations own the lockout counters:
// CheckPassword mutates and persists AccessFailedCount / LockoutEnd as a side
// effect, so callers never retry or count attempts themselves.
type Repo interface {
	GetByUserName(ctx context.Context, userName string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	CheckPassword(ctx context.Context, user *User, password string, lockoutEnabled bool) (CheckResult, error)
}

// RegisterPasswordCheck applies one password-check attempt to the user's
// lockout state and returns the resulting outcome. It mutates the counters on
// the struct; the credential store persists them. threshold is the number of
// consecutive failures that opens a lockout window of the given length.
func (u *User) RegisterPasswordCheck(passwordOK, lockoutEnabled bool, threshold int, window time.Duration, now time.Time) CheckResult {
	if lockoutEnabled && u.IsLockedOut(now) {
		return CheckLockedOut
	}

	if !passwordOK {
		if lockoutEnabled {
			u.AccessFailedCount++
			if u.AccessFailedCount >= threshold {
				u.LockoutEnd = now.Add(window)
			}
		}
		return CheckFailed
	}

	u.AccessFailedCount = 0
	u.LockoutEnd = time.Time{}
	if u.TwoFactorEnabled {
		return CheckRequiresTwoFactor
	}
	return CheckSucceeded
}
