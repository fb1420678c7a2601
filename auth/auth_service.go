// Package auth implements the session core: credential verification, access
// token minting, and refresh-token lifecycle, composed into the sign-in /
// refresh / logout state machine.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/libris-io/identity/token"
	"github.com/libris-io/identity/token/refresh"
	"github.com/libris-io/identity/users"
)

// Service is the session orchestrator. Every operation resolves to a
// terminal Result; transient store failures propagate as errors and are
// never mapped to an outcome status. The service keeps no mutable state
// between calls, so concurrent use needs no locking here.
type Service struct {
	userRepo users.Repo
	verifier *Verifier
	rotation *refresh.Manager
	minter   *token.Minter
	nowFunc  func() time.Time
}

type ServiceOption func(*Service)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(userRepo users.Repo, rotation *refresh.Manager, minter *token.Minter, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[NewService] user repo is required")
	}
	if rotation == nil {
		return nil, errors.New("[NewService] rotation manager is required")
	}
	if minter == nil {
		return nil, errors.New("[NewService] token minter is required")
	}

	s := &Service{
		userRepo: userRepo,
		verifier: NewVerifier(userRepo),
		rotation: rotation,
		minter:   minter,
		nowFunc:  time.Now,
	}

	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SignIn authenticates a principal by username and password. An unknown
// username yields the same NotAllowed result as a bad password.
func (s *Service) SignIn(ctx context.Context, userName, password string, lockoutEnabled bool) (*Result, error) {
	user, err := s.userRepo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return notAllowed(), nil
		}
		return nil, errors.Wrap(err, "Service.SignIn GetByUserName")
	}
	return s.SignInUser(ctx, user, password, lockoutEnabled)
}

// SignInUser runs the sign-in flow for an already resolved principal.
func (s *Service) SignInUser(ctx context.Context, user *users.User, password string, lockoutEnabled bool) (*Result, error) {
	check, err := s.verifier.Verify(ctx, user, password, lockoutEnabled)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return notAllowed(), nil
		}
		return nil, errors.Wrap(err, "Service.SignInUser Verify")
	}

	switch check {
	case users.CheckLockedOut:
		return &Result{Status: StatusLockedOut}, nil
	case users.CheckRequiresTwoFactor:
		return &Result{Status: StatusTwoFactorRequired}, nil
	case users.CheckSucceeded:
		return s.establishSession(ctx, user, false)
	default:
		return notAllowed(), nil
	}
}

// Refresh exchanges a refresh-token id for a new session. Unknown and
// expired tokens both resolve to NotAllowed; the prior record is always
// superseded by a forced rotation.
func (s *Service) Refresh(ctx context.Context, tokenID string) (*Result, error) {
	record, err := s.rotation.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return notAllowed(), nil
		}
		return nil, errors.Wrap(err, "Service.Refresh Get")
	}

	if record.Expired(s.nowFunc()) {
		return notAllowed(), nil
	}
	return s.RefreshWithRecord(ctx, record)
}

// RefreshWithRecord runs the refresh flow for a record the caller already
// holds. The caller must pre-validate expiry; a record past its expiry is
// rejected with ErrExpiredRecord rather than silently treated as NotAllowed,
// so misuse of this form is loud.
func (s *Service) RefreshWithRecord(ctx context.Context, record *refresh.Token) (*Result, error) {
	if record.Expired(s.nowFunc()) {
		return nil, ErrExpiredRecord
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return notAllowed(), nil
		}
		return nil, errors.Wrap(err, "Service.RefreshWithRecord GetByID")
	}
	return s.establishSession(ctx, user, true)
}

// Logout revokes every refresh token owned by the principal. Logging out
// twice, or with an unknown id, is a silent no-op.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.rotation.Revoke(ctx, userID); err != nil {
		return errors.Wrap(err, "Service.Logout Revoke")
	}
	return nil
}

// LogoutByToken resolves the owning principal of a refresh-token id and
// revokes all of that principal's tokens. Unknown ids are a no-op.
func (s *Service) LogoutByToken(ctx context.Context, tokenID string) error {
	record, err := s.rotation.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "Service.LogoutByToken Get")
	}
	return s.Logout(ctx, record.UserID)
}

// ParseAccessToken verifies a minted access token and returns its claims.
// Inbound bearer validation is otherwise an external concern; this exists so
// the logout path can resolve the subject of its own tokens.
func (s *Service) ParseAccessToken(rawToken string) (jwt.MapClaims, error) {
	return s.minter.Parse(rawToken)
}

// establishSession is the tail shared by sign-in and refresh: rotate, stamp
// LastActive, persist the principal, mint.
func (s *Service) establishSession(ctx context.Context, user *users.User, forceNew bool) (*Result, error) {
	refreshToken, err := s.rotation.Issue(ctx, user.ID, forceNew)
	if err != nil {
		return nil, errors.Wrap(err, "Service.establishSession Issue")
	}

	user.LastActive = s.nowFunc()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "Service.establishSession Update")
	}

	accessToken, err := s.minter.Mint(user)
	if err != nil {
		return nil, errors.Wrap(err, "Service.establishSession Mint")
	}

	return &Result{
		Status:         StatusSuccess,
		User:           user,
		AccessToken:    accessToken,
		RefreshTokenID: refreshToken.ID,
		RefreshExpires: refreshToken.ExpiresAt,
	}, nil
}
