package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libris-io/identity/auth"
	"github.com/libris-io/identity/token"
	"github.com/libris-io/identity/token/refresh"
	refreshrepofake "github.com/libris-io/identity/token/refresh/repofake"
	"github.com/libris-io/identity/users"
	userrepofake "github.com/libris-io/identity/users/repofake"
)

const (
	testSigningKey      = "0123456789abcdef0123456789abcdef"
	testIssuer          = "http://localhost:8080"
	testAudience        = "api://default"
	testUserID          = "5e91507e-5630-4efd-9fd4-799e29a4ba06"
	testUserName        = "bob"
	testUserPassword    = "Passw0rd!"
	testAccessLifetime  = 20 * time.Minute
	testRefreshLifetime = 720 * time.Minute
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo    *userrepofake.FakeUserRepo
	refreshRepo *refreshrepofake.FakeRefreshTokenRepo
	minter      *token.Minter
	service     *auth.Service
	now         time.Time
}

// setupTestFixture wires the session core against in-memory stores with a
// controllable clock.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo:    userrepofake.NewFakeUserRepo(),
		refreshRepo: refreshrepofake.NewFakeRefreshTokenRepo(),
		now:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	nowFunc := func() time.Time { return f.now }
	f.userRepo.NowFunc = nowFunc

	rotation, err := refresh.NewManager(f.refreshRepo, testRefreshLifetime,
		refresh.WithNowFunc(nowFunc))
	require.NoError(t, err)

	f.minter, err = token.NewMinter(token.NewSecretSigner([]byte(testSigningKey)),
		testIssuer, testAudience, testAccessLifetime, token.WithNowFunc(nowFunc))
	require.NoError(t, err)

	f.service, err = auth.NewService(f.userRepo, rotation, f.minter,
		auth.WithNowFunc(nowFunc))
	require.NoError(t, err)
	return f
}

func (f *testFixture) createTestUser(t *testing.T) {
	t.Helper()

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)

	f.userRepo.Upsert(&users.User{
		ID:           testUserID,
		UserName:     testUserName,
		Email:        "bob@example.com",
		FirstName:    "Bob",
		LastName:     "Marsh",
		Gender:       users.GenderMale,
		BirthDate:    time.Date(1988, 6, 2, 0, 0, 0, 0, time.UTC),
		Roles:        []string{users.RoleMembers},
		PasswordHash: hash,
	})
}

func TestSignInSuccess(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	result, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusSuccess, result.Status)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshTokenID)

	claims, err := f.minter.Parse(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims["sub"])
	require.Contains(t, claims["roles"], users.RoleMembers)
	require.Equal(t, "1988-06-02", claims["birthdate"])

	// Exactly one refresh row with the full configured lifetime.
	stored, err := f.refreshRepo.ListByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, testRefreshLifetime, stored[0].ExpiresAt.Sub(stored[0].CreatedAt))

	// LastActive was stamped and persisted.
	persisted, err := f.userRepo.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, f.now, persisted.LastActive)
}

func TestSignInReusesLiveRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	first, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)

	f.now = f.now.Add(1 * time.Second)
	second, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)

	require.Equal(t, first.RefreshTokenID, second.RefreshTokenID)
	require.Equal(t, 1, f.refreshRepo.Count(testUserID))
}

func TestSignInUnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.SignIn(context.Background(), "nobody", "whatever", true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
}

func TestSignInWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	result, err := f.service.SignIn(context.Background(), testUserName, "wrong", true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
	require.Empty(t, result.AccessToken)
}

func TestSignInLockout(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	for i := 0; i < 5; i++ {
		result, err := f.service.SignIn(context.Background(), testUserName, "wrong", true)
		require.NoError(t, err)
		require.Equal(t, auth.StatusNotAllowed, result.Status)
	}

	// Sixth attempt is locked out even with the correct password.
	result, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusLockedOut, result.Status)

	// The window passes and the correct password works again.
	f.now = f.now.Add(f.userRepo.LockoutWindow + time.Second)
	result, err = f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusSuccess, result.Status)
}

func TestSignInLockoutDisabled(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	for i := 0; i < 10; i++ {
		result, err := f.service.SignIn(context.Background(), testUserName, "wrong", false)
		require.NoError(t, err)
		require.Equal(t, auth.StatusNotAllowed, result.Status)
	}

	result, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, false)
	require.NoError(t, err)
	require.Equal(t, auth.StatusSuccess, result.Status)
}

func TestSignInTwoFactorRequired(t *testing.T) {
	f := setupTestFixture(t)

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	f.userRepo.Upsert(&users.User{
		ID:               "2fa-user",
		UserName:         "carol",
		PasswordHash:     hash,
		TwoFactorEnabled: true,
	})

	result, err := f.service.SignIn(context.Background(), "carol", testUserPassword, true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusTwoFactorRequired, result.Status)
}

func TestSignInPasswordless(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	// An empty password means the caller already authenticated the principal.
	result, err := f.service.SignIn(context.Background(), testUserName, "", true)
	require.NoError(t, err)
	require.Equal(t, auth.StatusSuccess, result.Status)
}

func TestRefreshRotates(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	signedIn, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(context.Background(), signedIn.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, auth.StatusSuccess, refreshed.Status)

	// Rotation is forced even though the prior row had not expired.
	require.NotEqual(t, signedIn.RefreshTokenID, refreshed.RefreshTokenID)
	require.Equal(t, 1, f.refreshRepo.Count(testUserID))

	// The superseded id no longer refreshes.
	stale, err := f.service.Refresh(context.Background(), signedIn.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, stale.Status)
}

func TestRefreshUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.Refresh(context.Background(), "no-such-token")
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	signedIn, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)

	f.now = f.now.Add(testRefreshLifetime + time.Second)
	result, err := f.service.Refresh(context.Background(), signedIn.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
}

func TestRefreshWithRecordRejectsExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	record := &refresh.Token{
		ID:        "expired-record",
		UserID:    testUserID,
		CreatedAt: f.now.Add(-2 * time.Hour),
		ExpiresAt: f.now.Add(-1 * time.Hour),
	}

	_, err := f.service.RefreshWithRecord(context.Background(), record)
	require.ErrorIs(t, err, auth.ErrExpiredRecord)
}

func TestRefreshWithRecordUnknownPrincipal(t *testing.T) {
	f := setupTestFixture(t)

	record := &refresh.Token{
		ID:        "orphan-record",
		UserID:    "gone",
		CreatedAt: f.now,
		ExpiresAt: f.now.Add(time.Hour),
	}

	result, err := f.service.RefreshWithRecord(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	signedIn, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)
	require.Equal(t, 1, f.refreshRepo.Count(testUserID))

	require.NoError(t, f.service.Logout(context.Background(), testUserID))
	require.Equal(t, 0, f.refreshRepo.Count(testUserID))

	// Idempotent: a second logout and an unknown principal are no-ops.
	require.NoError(t, f.service.Logout(context.Background(), testUserID))
	require.NoError(t, f.service.Logout(context.Background(), "unknown"))

	// The revoked token no longer refreshes.
	result, err := f.service.Refresh(context.Background(), signedIn.RefreshTokenID)
	require.NoError(t, err)
	require.Equal(t, auth.StatusNotAllowed, result.Status)
}

func TestLogoutByToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t)

	signedIn, err := f.service.SignIn(context.Background(), testUserName, testUserPassword, true)
	require.NoError(t, err)

	require.NoError(t, f.service.LogoutByToken(context.Background(), signedIn.RefreshTokenID))
	require.Equal(t, 0, f.refreshRepo.Count(testUserID))

	// Unknown ids are silent no-ops.
	require.NoError(t, f.service.LogoutByToken(context.Background(), "no-such-token"))
}
