package auth

import "errors"

// ErrExpiredRecord is returned by RefreshWithRecord when the caller hands in
// a record that is already past its expiry. Callers of the record form are
// expected to pre-validate expiry.
var ErrExpiredRecord = errors.New("refresh token record is expired")
