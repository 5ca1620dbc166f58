package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	domain "shoplink-backend/internal/domain/user"
)

// CollectionName is the collection holding one document per sender.
const CollectionName = "users"

// UserRepository stores users in MongoDB. A unique index on externalId
// backs the upsert; concurrent upserts for one sender either match the
// existing document or fail with E11000 and are resolved by a re-read.
type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll, now: time.Now}
}

// NewUserRepositoryFromDB uses the default users collection of db.
func NewUserRepositoryFromDB(db *mongo.Database) *UserRepository {
	return NewUserRepository(db.Collection(CollectionName))
}

// EnsureIndexes creates the unique externalId index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("ux_externalId"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *UserRepository) Upsert(ctx context.Context, externalID string) (*domain.User, bool, error) {
	if externalID == "" {
		return nil, false, domain.ErrEmptyExternalID
	}
	fresh := domain.New(externalID, r.now().Truncate(time.Millisecond))

	filter := bson.D{{Key: "externalId", Value: externalID}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "externalId", Value: fresh.ExternalID},
		{Key: "createdAt", Value: fresh.CreatedAt},
	}}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing domain.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&existing)
	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// No document before the update: this call inserted it.
		return fresh, true, nil
	case mongo.IsDuplicateKeyError(err):
		// Lost an upsert race; the winner's document is authoritative.
		u, gerr := r.GetByExternalID(ctx, externalID)
		if gerr != nil {
			return nil, false, gerr
		}
		if u == nil {
			return nil, false, fmt.Errorf("user %s vanished after duplicate key", externalID)
		}
		return u, false, nil
	default:
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
}

// GetByExternalID returns nil, nil when the sender is unknown.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var u domain.User
	err := r.coll.FindOne(ctx, bson.D{{Key: "externalId", Value: externalID}}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
