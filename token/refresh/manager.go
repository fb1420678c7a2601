package refresh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

// DefaultSafetyMargin is the minimum remaining lifetime a stored token must
// have to be reused instead of rotated. It prevents handing out a credential
// that dies moments after issuance.
const DefaultSafetyMargin = 5 * time.Second

// DefaultIDByteLength is the number of random bytes behind a token id.
const DefaultIDByteLength = 64

// Manager decides whether to reuse or replace a principal's active refresh
// token, keeping at most one current record per principal. The
// read-delete-insert sequence is deliberately not transactional: concurrent
// rotations for one principal race, the last insert wins, and logout or
// re-authentication self-heal by forcing a new rotation.
type Manager struct {
	repo         Repo
	lifetime     time.Duration
	safetyMargin time.Duration
	idByteLength int
	nowFunc      func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithSafetyMargin overrides the reuse safety margin.
func WithSafetyMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) {
		m.safetyMargin = margin
	}
}

// WithIDByteLength overrides the random byte length of generated ids.
func WithIDByteLength(n int) ManagerOption {
	return func(m *Manager) {
		m.idByteLength = n
	}
}

func NewManager(repo Repo, lifetime time.Duration, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] repo is required")
	}

	m := &Manager{
		repo:         repo,
		lifetime:     lifetime,
		safetyMargin: DefaultSafetyMargin,
		idByteLength: DefaultIDByteLength,
		nowFunc:      time.Now,
	}

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Issue returns the refresh token a sign-in or refresh should hand out.
//
// Unless forceNew is set, the most-recently-expiring stored record is reused
// when it still has at least the safety margin of life left; stale siblings
// are cleaned up and no new row is written. Otherwise a fresh record is
// inserted before the old rows are deleted, so a cancellation mid-rotation
// never leaves an authenticated principal with zero valid tokens.
func (m *Manager) Issue(ctx context.Context, userID string, forceNew bool) (*Token, error) {
	now := m.nowFunc()

	existing, err := m.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Issue ListByUserID")
	}

	if !forceNew && len(existing) > 0 {
		candidate := existing[0]
		if !candidate.ExpiringWithin(now, m.safetyMargin) {
			if len(existing) > 1 {
				if _, err := m.repo.DeleteByUserID(ctx, userID, candidate.ID); err != nil {
					return nil, errors.Wrap(err, "Manager.Issue DeleteByUserID")
				}
			}
			return candidate, nil
		}
	}

	id, err := m.generateID()
	if err != nil {
		return nil, err
	}

	token := &Token{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.lifetime),
	}

	if err := m.repo.Insert(ctx, token); err != nil {
		return nil, errors.Wrap(err, "Manager.Issue Insert")
	}
	if _, err := m.repo.DeleteByUserID(ctx, userID, token.ID); err != nil {
		return nil, errors.Wrap(err, "Manager.Issue DeleteByUserID")
	}
	return token, nil
}

// Revoke removes every refresh token owned by the principal. Revoking a
// principal with no rows is a no-op.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if _, err := m.repo.DeleteByUserID(ctx, userID); err != nil {
		return errors.Wrap(err, "Manager.Revoke DeleteByUserID")
	}
	return nil
}

// Get looks a record up by its opaque id.
func (m *Manager) Get(ctx context.Context, id string) (*Token, error) {
	return m.repo.Get(ctx, id)
}

// Lifetime reports how long newly issued tokens remain valid.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

func (m *Manager) generateID() (string, error) {
	buf := make([]byte, m.idByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "Manager.generateID rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
