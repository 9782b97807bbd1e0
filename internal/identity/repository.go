package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a create collides on the email index.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePhone is returned when a create collides on the phone index.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (User, error)
	FindByEmail(ctx context.Context, email string, withSecret bool) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

const usersCollection = "users"

// MongoRepository implements Repository against the users collection.
type MongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository builds a Mongo-backed user repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes on email and phone. These are the
// authoritative uniqueness guard: the pre-create lookup in the signup flow
// only improves the error message, it does not close the race.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_1"),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("phone_1"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user, translating store-level uniqueness violations.
// A concurrent writer may win the race after the caller's pre-check, so the
// duplicate-key error path must be handled here, not assumed impossible.
func (r *MongoRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, duplicateKeyError(err)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByEmailOrPhone fetches whichever user holds either value. The secret
// is never included; callers use this only for the uniqueness pre-check.
func (r *MongoRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (User, error) {
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"phone": phone}}}
	return r.findOne(ctx, filter, false)
}

// FindByEmail fetches a user by email. The password hash is projected out
// unless withSecret is set, keeping reads least-privilege by default.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string, withSecret bool) (User, error) {
	return r.findOne(ctx, bson.M{"email": email}, withSecret)
}

// FindByID fetches a user by its hex object id, secret excluded.
func (r *MongoRepository) FindByID(ctx context.Context, id string) (User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, false)
}

// UpdateLastLogin sets the lastLogin timestamp and nothing else. The update
// document is fixed here so this path structurally cannot touch credential
// fields.
func (r *MongoRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"lastLogin": at.UTC()}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, withSecret bool) (User, error) {
	opts := options.FindOne()
	if !withSecret {
		opts.SetProjection(bson.M{"password": 0})
	}

	var user User
	if err := r.users.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// duplicateKeyError attributes the collision to email or phone from the
// violated index name. Best effort: an unrecognized index reads as email.
func duplicateKeyError(err error) error {
	if strings.Contains(err.Error(), "phone_1") {
		return ErrDuplicatePhone
	}
	return ErrDuplicateEmail
}
