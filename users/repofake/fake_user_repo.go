package userrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/libris-io/identity/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory credential store for tests. It implements the
// full contract including lockout bookkeeping.
type FakeUserRepo struct {
	byID             map[string]*users.User
	byUserName       map[string]string // username -> id
	lock             sync.RWMutex
	LockoutThreshold int
	LockoutWindow    time.Duration
	NowFunc          func() time.Time
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:             make(map[string]*users.User),
		byUserName:       make(map[string]string),
		LockoutThreshold: 5,
		LockoutWindow:    5 * time.Minute,
		NowFunc:          time.Now,
	}
}

// Upsert stores a user, keyed by ID and username.
func (r *FakeUserRepo) Upsert(user *users.User) {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *user
	r.byID[user.ID] = &copied
	r.byUserName[user.UserName] = user.ID
}

func (r *FakeUserRepo) GetByUserName(ctx context.Context, userName string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.byUserName[userName]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *FakeUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *FakeUserRepo) Update(ctx context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return users.ErrNotFound
	}
	copied := *user
	r.byID[user.ID] = &copied
	r.byUserName[user.UserName] = user.ID
	return nil
}

func (r *FakeUserRepo) CheckPassword(ctx context.Context, user *users.User, password string, lockoutEnabled bool) (users.CheckResult, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return users.CheckFailed, users.ErrNotFound
	}

	passwordOK := users.CheckPasswordHash(password, stored.PasswordHash)
	result := stored.RegisterPasswordCheck(passwordOK, lockoutEnabled, r.LockoutThreshold, r.LockoutWindow, r.NowFunc())

	// Reflect persisted lockout state back onto the caller's copy.
	user.AccessFailedCount = stored.AccessFailedCount
	user.LockoutEnd = stored.LockoutEnd
	return result, nil
}
