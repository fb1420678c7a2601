package refresh

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record matches the token id.
var ErrNotFound = errors.New("refresh token not found")

// Repo manages server-side storage of refresh-token records. Writes are
// single-row or principal-scoped; implementations never touch rows across
// principals in one call.
type Repo interface {
	Insert(ctx context.Context, token *Token) error

	// Get looks up a record by its opaque id; ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Token, error)

	// ListByUserID returns all records for a principal ordered by ExpiresAt
	// descending.
	ListByUserID(ctx context.Context, userID string) ([]*Token, error)

	// Delete removes a record by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every record owned by userID except the ids in
	// keep, returning the number of rows removed.
	DeleteByUserID(ctx context.Context, userID string, keep ...string) (int64, error)
}
