package refresh

import (
	"time"
)

// Token is a stored refresh-token record. ID doubles as the primary key and
// the bearer credential handed to the client; everything else is server-side
// metadata.
type Token struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ExpiringWithin reports whether the token's remaining lifetime at now is
// under margin.
func (t *Token) ExpiringWithin(now time.Time, margin time.Duration) bool {
	return now.Add(margin).After(t.ExpiresAt)
}
