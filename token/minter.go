package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/libris-io/identity/users"
)

// Minter assembles the claim set for a principal and produces a signed,
// time-bounded access token. Aside from jti generation and the current-time
// read it is a pure function; it never persists anything.
type Minter struct {
	signer    Signer
	encrypter *Encrypter // optional, wraps the JWS as JWE
	issuer    string
	audience  string
	lifetime  time.Duration
	nowFunc   func() time.Time
}

type MinterOption func(*Minter)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) MinterOption {
	return func(m *Minter) {
		m.nowFunc = now
	}
}

// WithEncrypter additionally wraps every minted token with the given
// encrypter.
func WithEncrypter(encrypter *Encrypter) MinterOption {
	return func(m *Minter) {
		m.encrypter = encrypter
	}
}

func NewMinter(signer Signer, issuer, audience string, lifetime time.Duration, options ...MinterOption) (*Minter, error) {
	if signer == nil {
		return nil, errors.New("[NewMinter] signer is required")
	}

	m := &Minter{
		signer:   signer,
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
		nowFunc:  time.Now,
	}

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Mint produces a signed access token for the user. One roles entry is
// emitted per membership; the birthdate claim uses the fixed
// users.BirthDateFormat layout.
func (m *Minter) Mint(user *users.User) (string, error) {
	now := m.nowFunc()

	claims := jwt.MapClaims{
		"iss":         m.issuer,
		"aud":         m.audience,
		"sub":         user.ID,
		"name":        user.DisplayName(),
		"family_name": user.LastName,
		"email":       user.Email,
		"gender":      string(user.Gender),
		"birthdate":   user.BirthDate.Format(users.BirthDateFormat),
		"iat":         now.Unix(),
		"exp":         now.Add(m.lifetime).Unix(),
		"jti":         uuid.New().String(),
		"roles":       user.Roles,
	}

	signedToken, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Minter.Mint Sign")
	}

	if m.encrypter != nil {
		return m.encrypter.Wrap(signedToken)
	}
	return signedToken, nil
}

// Parse verifies a minted token and returns its claims, unwrapping the JWE
// layer first when an encrypter is configured. Expired tokens fail
// verification.
func (m *Minter) Parse(rawToken string) (jwt.MapClaims, error) {
	if m.encrypter != nil {
		unwrapped, err := m.encrypter.Unwrap(rawToken)
		if err != nil {
			return nil, err
		}
		rawToken = unwrapped
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey,
		jwt.WithTimeFunc(m.nowFunc))
	if err != nil {
		return nil, errors.Wrap(err, "Minter.Parse")
	}
	if !parsed.Valid {
		return nil, errors.New("Minter.Parse: invalid token")
	}
	return claims, nil
}

// Lifetime reports how long minted tokens remain valid.
func (m *Minter) Lifetime() time.Duration {
	return m.lifetime
}
