package auth

import (
	"context"

	"github.com/libris-io/identity/users"
)

// Verifier checks a principal's password against the lockout-aware credential
// store. It performs no persistence of its own; counter mutation belongs to
// the store.
type Verifier struct {
	repo users.Repo
}

func NewVerifier(repo users.Repo) *Verifier {
	return &Verifier{repo: repo}
}

// Verify runs a single password check. An empty password means the caller
// already authenticated the principal by other means (a passwordless
// sign-in) and succeeds unconditionally. A failed check is reported once,
// never retried.
func (v *Verifier) Verify(ctx context.Context, user *users.User, password string, lockoutEnabled bool) (users.CheckResult, error) {
	if password == "" {
		return users.CheckSucceeded, nil
	}
	return v.repo.CheckPassword(ctx, user, password, lockoutEnabled)
}
