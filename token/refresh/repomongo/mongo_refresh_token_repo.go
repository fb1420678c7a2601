package refreshrepomongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/libris-io/identity/token/refresh"
)

// CollectionName is the refresh-token collection within the service database.
const CollectionName = "RefreshTokens"

var _ refresh.Repo = (*MongoRefreshTokenRepo)(nil)

// MongoRefreshTokenRepo stores refresh-token records in a MongoDB collection
// keyed by the opaque token id, indexed by owning principal.
type MongoRefreshTokenRepo struct {
	coll *mongo.Collection
}

func NewMongoRefreshTokenRepo(db *mongo.Database) *MongoRefreshTokenRepo {
	return &MongoRefreshTokenRepo{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the userId index used by the principal-scoped reads
// and deletes.
func (r *MongoRefreshTokenRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	return errors.Wrap(err, "MongoRefreshTokenRepo.EnsureIndexes")
}

func (r *MongoRefreshTokenRepo) Insert(ctx context.Context, token *refresh.Token) error {
	if _, err := r.coll.InsertOne(ctx, token); err != nil {
		return errors.Wrap(err, "MongoRefreshTokenRepo.Insert")
	}
	return nil
}

func (r *MongoRefreshTokenRepo) Get(ctx context.Context, id string) (*refresh.Token, error) {
	var token refresh.Token
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, refresh.ErrNotFound
		}
		return nil, errors.Wrap(err, "MongoRefreshTokenRepo.Get")
	}
	return &token, nil
}

func (r *MongoRefreshTokenRepo) ListByUserID(ctx context.Context, userID string) ([]*refresh.Token, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expiresAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "MongoRefreshTokenRepo.ListByUserID")
	}
	defer cursor.Close(ctx)

	tokens := make([]*refresh.Token, 0)
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, errors.Wrap(err, "MongoRefreshTokenRepo.ListByUserID decode")
	}
	return tokens, nil
}

func (r *MongoRefreshTokenRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "MongoRefreshTokenRepo.Delete")
	}
	return nil
}

func (r *MongoRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string, keep ...string) (int64, error) {
	filter := bson.M{"userId": userID}
	if len(keep) > 0 {
		filter["_id"] = bson.M{"$nin": keep}
	}

	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "MongoRefreshTokenRepo.DeleteByUserID")
	}
	return result.DeletedCount, nil
}
