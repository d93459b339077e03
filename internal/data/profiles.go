package data

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ProfilesStore reads and writes the public user directory.
type ProfilesStore struct {
	coll *mongo.Collection
}

// NewProfilesStore returns a ProfilesStore using the provided collection.
func NewProfilesStore(coll *mongo.Collection) *ProfilesStore {
	return &ProfilesStore{coll: coll}
}

// CreateProfile inserts p. A taken username yields ErrDuplicate.
func (p *ProfilesStore) CreateProfile(ctx context.Context, profile *Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	if _, err := p.coll.InsertOne(ctx, profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetProfile returns the profile of a user.
func (p *ProfilesStore) GetProfile(ctx context.Context, id bson.ObjectID) (*Profile, error) {
	var profile Profile
	if err := p.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfiles returns the profiles of ids keyed by id. Unknown ids are absent.
func (p *ProfilesStore) GetProfiles(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*Profile, error) {
	out := make(map[bson.ObjectID]*Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := p.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []*Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	for _, profile := range profiles {
		out[profile.ID] = profile
	}
	return out, nil
}

// ProfileExists reports whether a profile with id exists.
func (p *ProfilesStore) ProfileExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	count, err := p.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UsernameTaken reports whether username is already in use.
func (p *ProfilesStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	count, err := p.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile applies the non-nil fields of changes and returns the updated profile.
func (p *ProfilesStore) UpdateProfile(ctx context.Context, id bson.ObjectID, changes ProfileChanges) (*Profile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if changes.Username != nil {
		set["username"] = *changes.Username
	}
	if changes.DisplayName != nil {
		set["display_name"] = *changes.DisplayName
	}
	// empty avatar/bio clears the field
	if changes.AvatarURL != nil {
		if *changes.AvatarURL == "" {
			unset["avatar_url"] = ""
		} else {
			set["avatar_url"] = *changes.AvatarURL
		}
	}
	if changes.Bio != nil {
		if *changes.Bio == "" {
			unset["bio"] = ""
		} else {
			set["bio"] = *changes.Bio
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var profile Profile
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := p.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &profile, nil
}

// SearchProfiles returns up to limit profiles whose username or display name
// contains term, case-insensitively. exclude is left out of the results.
func (p *ProfilesStore) SearchProfiles(ctx context.Context, term string, exclude bson.ObjectID, limit int64) ([]*Profile, error) {
	// the term is user input: match it literally
	pattern := bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	filter := bson.M{
		"_id": bson.M{"$ne": exclude},
		"$or": bson.A{
			bson.M{"username": pattern},
			bson.M{"display_name": pattern},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetLimit(limit)

	cursor, err := p.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []*Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// TouchLastOnline records that the user was seen at t.
func (p *ProfilesStore) TouchLastOnline(ctx context.Context, id bson.ObjectID, t time.Time) error {
	_, err := p.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_online": t.UTC()}})
	return err
}
