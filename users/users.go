package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Gender of a user, kept as a free-form code so the claim survives round
// trips without a lookup table.
type Gender string

const (
	GenderUnspecified Gender = "unspecified"
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
)

// Role names known to the platform. Registration grants RoleMembers.
const (
	RoleAdministrators = "Administrators"
	RoleMembers        = "Members"
)

// BirthDateFormat is the fixed layout used for the birthdate claim.
const BirthDateFormat = "2006-01-02"

// User is the principal a session represents. PasswordHash is never
// serialized; lockout counters are owned by the credential store and only
// pass through here.
type User struct {
	ID                string    `bson:"_id" json:"id"`
	UserName          string    `bson:"userName" json:"username"`
	Email             string    `bson:"email" json:"email"`
	FirstName         string    `bson:"firstName" json:"firstName"`
	LastName          string    `bson:"lastName" json:"lastName"`
	Name              string    `bson:"name,omitempty" json:"name,omitempty"`
	Gender            Gender    `bson:"gender" json:"gender"`
	BirthDate         time.Time `bson:"birthDate" json:"birthDate"`
	City              string    `bson:"city,omitempty" json:"city,omitempty"`
	Country           string    `bson:"country,omitempty" json:"country,omitempty"`
	Roles             []string  `bson:"roles" json:"roles"`
	PasswordHash      string    `bson:"passwordHash" json:"-"`
	TwoFactorEnabled  bool      `bson:"twoFactorEnabled" json:"-"`
	AccessFailedCount int       `bson:"accessFailedCount" json:"-"`
	LockoutEnd        time.Time `bson:"lockoutEnd,omitempty" json:"-"`
	LastActive        time.Time `bson:"lastActive" json:"lastActive"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName returns the preferred display name, falling back to the first
// name when none was set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.FirstName
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return !u.LockoutEnd.IsZero() && now.Before(u.LockoutEnd)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
