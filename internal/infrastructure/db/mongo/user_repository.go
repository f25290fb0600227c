package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

const userCollection = "users"

// UserRepository is the MongoDB-backed user directory. Email uniqueness is
// enforced by a unique index (see EnsureIndexes); failure/success bookkeeping
// uses single-document updates, so no extra coordination is needed.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	DisplayName    string             `bson:"display_name"`
	PasswordHash   string             `bson:"password_hash"`
	CreatedAt      time.Time          `bson:"created_at"`
	LastLoginAt    *time.Time         `bson:"last_login_at,omitempty"`
	FailedAttempts int                `bson:"failed_attempts"`
	LastFailedAt   *time.Time         `bson:"last_failed_at,omitempty"`
	LockedUntil    *time.Time         `bson:"locked_until,omitempty"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		DisplayName:    d.DisplayName,
		PasswordHash:   d.PasswordHash,
		CreatedAt:      d.CreatedAt.UTC(),
		LastLoginAt:    d.LastLoginAt,
		FailedAttempts: d.FailedAttempts,
		LastFailedAt:   d.LastFailedAt,
		LockedUntil:    d.LockedUntil,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := userDoc{
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return doc.toDomain(), nil
}

// RecordFailure uses a pipeline update so the window check, the increment
// and the lock decision all execute inside one findAndModify. Two attempts
// racing on the same account each get their own count.
func (r *UserRepository) RecordFailure(ctx context.Context, id string, now time.Time, window time.Duration, threshold int, lockFor time.Duration) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, domain.ErrUserNotFound
	}

	windowStart := now.Add(-window)
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			"failed_attempts": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$ne": bson.A{"$last_failed_at", nil}},
					bson.M{"$gte": bson.A{"$last_failed_at", windowStart}},
				}},
				bson.M{"$add": bson.A{"$failed_attempts", 1}},
				1,
			}},
			"last_failed_at": now,
		}},
		// Second stage reads the counter the first stage just wrote.
		bson.M{"$set": bson.M{
			"locked_until": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$failed_attempts", threshold}},
				now.Add(lockFor),
				"$locked_until",
			}},
		}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, pipeline, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return doc.FailedAttempts, nil
}

func (r *UserRepository) RecordSuccess(ctx context.Context, id string, lastLoginAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   bson.M{"failed_attempts": 0, "last_login_at": lastLoginAt},
		"$unset": bson.M{"locked_until": "", "last_failed_at": ""},
	})
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
