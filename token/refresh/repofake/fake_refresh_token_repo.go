package refreshrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/libris-io/identity/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo is an in-memory refresh-token store for tests.
type FakeRefreshTokenRepo struct {
	tokens map[string]*refresh.Token
	lock   sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*refresh.Token),
	}
}

func (r *FakeRefreshTokenRepo) Insert(ctx context.Context, token *refresh.Token) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *FakeRefreshTokenRepo) Get(ctx context.Context, id string) (*refresh.Token, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	token, ok := r.tokens[id]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *FakeRefreshTokenRepo) ListByUserID(ctx context.Context, userID string) ([]*refresh.Token, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	tokens := make([]*refresh.Token, 0)
	for _, t := range r.tokens {
		if t.UserID == userID {
			copied := *t
			tokens = append(tokens, &copied)
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[j].ExpiresAt.Before(tokens[i].ExpiresAt)
	})
	return tokens, nil
}

func (r *FakeRefreshTokenRepo) Delete(ctx context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.tokens, id)
	return nil
}

func (r *FakeRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string, keep ...string) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}

	var removed int64
	for id, t := range r.tokens {
		if t.UserID != userID {
			continue
		}
		if _, ok := kept[id]; ok {
			continue
		}
		delete(r.tokens, id)
		removed++
	}
	return removed, nil
}

// Count reports how many records a principal currently owns.
func (r *FakeRefreshTokenRepo) Count(userID string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}
