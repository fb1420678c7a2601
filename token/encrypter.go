package token

import (
	jose "github.com/go-jose/go-jose/v4"
	"github.com/pkg/errors"
)

// Encrypter wraps a signed token as a compact JWE using a symmetric key.
// Wrapping is discouraged when the consuming client has to read the claims
// without the matching key; it exists for deployments that treat the access
// token as fully opaque.
type Encrypter struct {
	key []byte
}

// NewEncrypter creates an Encrypter over a 32-byte symmetric key.
func NewEncrypter(key []byte) (*Encrypter, error) {
	if len(key) != 32 {
		return nil, errors.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return &Encrypter{key: key}, nil
}

// Wrap encrypts a signed JWT into a compact JWE.
func (e *Encrypter) Wrap(signedToken string) (string, error) {
	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: e.key},
		(&jose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return "", errors.Wrap(err, "Encrypter.Wrap NewEncrypter")
	}

	object, err := encrypter.Encrypt([]byte(signedToken))
	if err != nil {
		return "", errors.Wrap(err, "Encrypter.Wrap Encrypt")
	}

	serialized, err := object.CompactSerialize()
	if err != nil {
		return "", errors.Wrap(err, "Encrypter.Wrap CompactSerialize")
	}
	return serialized, nil
}

// Unwrap decrypts a compact JWE back into the signed JWT it carries.
func (e *Encrypter) Unwrap(encryptedToken string) (string, error) {
	object, err := jose.ParseEncrypted(
		encryptedToken,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return "", errors.Wrap(err, "Encrypter.Unwrap ParseEncrypted")
	}

	plaintext, err := object.Decrypt(e.key)
	if err != nil {
		return "", errors.Wrap(err, "Encrypter.Unwrap Decrypt")
	}
	return string(plaintext), nil
}
