package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/libris-io/identity/token"
)

var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

func TestNewEncrypterRequires32Bytes(t *testing.T) {
	_, err := token.NewEncrypter([]byte("short"))
	require.Error(t, err)

	_, err = token.NewEncrypter(testEncryptionKey)
	require.NoError(t, err)
}

func TestEncrypterRoundTrip(t *testing.T) {
	e, err := token.NewEncrypter(testEncryptionKey)
	require.NoError(t, err)

	wrapped, err := e.Wrap("header.payload.signature")
	require.NoError(t, err)
	require.NotEqual(t, "header.payload.signature", wrapped)

	unwrapped, err := e.Unwrap(wrapped)
	require.NoError(t, err)
	require.Equal(t, "header.payload.signature", unwrapped)
}

func TestEncrypterRejectsWrongKey(t *testing.T) {
	e, err := token.NewEncrypter(testEncryptionKey)
	require.NoError(t, err)

	wrapped, err := e.Wrap("header.payload.signature")
	require.NoError(t, err)

	other, err := token.NewEncrypter([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	_, err = other.Unwrap(wrapped)
	require.Error(t, err)
}

// A minted token with encryption enabled is opaque: it is not parseable as a
// bare JWS, only through the matching encrypter.
func TestMintWithEncryption(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	e, err := token.NewEncrypter(testEncryptionKey)
	require.NoError(t, err)
	m := newTestMinter(t, now, token.WithEncrypter(e))

	minted, err := m.Mint(testUser())
	require.NoError(t, err)

	// Not a readable JWS without the encryption key.
	bare := jwt.NewParser()
	_, _, parseErr := bare.ParseUnverified(minted, jwt.MapClaims{})
	require.Error(t, parseErr)

	// The configured minter unwraps and verifies.
	claims, err := m.Parse(minted)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", claims["email"])
}
