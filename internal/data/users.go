// Package data provides DB models and stores.
package data

import (
	"context" // cancellation and deadlines from the gRPC call
	"errors"  // matching driver sentinel errors
	"time"    // created/updated timestamps

	"go.mongodb.org/mongo-driver/v2/bson"  // filters and ObjectIDs
	"go.mongodb.org/mongo-driver/v2/mongo" // collection handle and driver errors

	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

// UsersStore performs credential DB operations.
type UsersStore struct {
	// coll is the "users" collection; emails carry a unique index
	// Set once by NewUsersStore and shared by every method
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll} // keep the collection handle
}

// CreateUser inserts a new user document with an already hashed password.
func (u *UsersStore) CreateUser(ctx context.Context, email, hashedPassword string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		Email:     normalize.Email(email), // lowercased and trimmed, matches the unique index
		Password:  hashedPassword,         // bcrypt hash from auth.HashPassword
		CreatedAt: now,
		UpdatedAt: now, // same as CreatedAt until the first change
	}

	// InsertOne writes the document; the driver assigns _id
	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// the unique email index rejected a second account for the address
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		// connection or server errors go back to the handler as-is
		return nil, err
	}

	// copy the generated _id back; it becomes the profile id and JWT subject
	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return u.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

// UserExists checks if a user exists by email.
func (u *UsersStore) UserExists(ctx context.Context, email string) (bool, error) {
	// CountDocuments avoids decoding the document when only presence matters
	count, err := u.coll.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return false, err // database error
	}
	return count > 0, nil
}

// DeleteUser removes a user. Used to undo a sign-up whose profile could not be created.
func (u *UsersStore) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	// deleting a missing id is not an error; the caller only needs it gone
	_, err := u.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// findOne decodes the single user matching filter.
func (u *UsersStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	// FindOne returns at most one document; Decode fills user with it
	if err := u.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		// no match: unknown email on sign-in, or a deleted account
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err // database error
	}
	// the Password field holds the hash checked by auth.CheckPassword
	return &user, nil
}
