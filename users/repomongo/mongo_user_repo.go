package userrepomongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/libris-io/identity/users"
)

// CollectionName is the users collection within the service database.
const CollectionName = "Users"

var _ users.Repo = (*MongoUserRepo)(nil)

// MongoUserRepo is the credential store backed by a MongoDB collection. The
// lockout counters live on the user document and are mutated here, never by
// callers.
type MongoUserRepo struct {
	coll             *mongo.Collection
	lockoutThreshold int
	lockoutWindow    time.Duration
	nowFunc          func() time.Time
}

func NewMongoUserRepo(db *mongo.Database, lockoutThreshold int, lockoutWindow time.Duration) *MongoUserRepo {
	return &MongoUserRepo{
		coll:             db.Collection(CollectionName),
		lockoutThreshold: lockoutThreshold,
		lockoutWindow:    lockoutWindow,
		nowFunc:          time.Now,
	}
}

func (r *MongoUserRepo) GetByUserName(ctx context.Context, userName string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"userName": userName})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var user users.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "MongoUserRepo.findOne")
	}
	return &user, nil
}

func (r *MongoUserRepo) Update(ctx context.Context, user *users.User) error {
	user.UpdatedAt = r.nowFunc()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return errors.Wrap(err, "MongoUserRepo.Update")
	}
	if result.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) CheckPassword(ctx context.Context, user *users.User, password string, lockoutEnabled bool) (users.CheckResult, error) {
	// Check against the stored document, not the caller's copy, so
	// concurrent attempts see each other's counters.
	stored, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return users.CheckFailed, err
	}

	passwordOK := users.CheckPasswordHash(password, stored.PasswordHash)
	result := stored.RegisterPasswordCheck(passwordOK, lockoutEnabled, r.lockoutThreshold, r.lockoutWindow, r.nowFunc())

	update := bson.M{"$set": bson.M{
		"accessFailedCount": stored.AccessFailedCount,
		"lockoutEnd":        stored.LockoutEnd,
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": stored.ID}, update); err != nil {
		return users.CheckFailed, errors.Wrap(err, "MongoUserRepo.CheckPassword")
	}

	user.AccessFailedCount = stored.AccessFailedCount
	user.LockoutEnd = stored.LockoutEnd
	return result, nil
}
