package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GroupsStore manages groups and the channels they own.
type GroupsStore struct {
	groups   *mongo.Collection
	channels *mongo.Collection
}

// NewGroupsStore returns a store over the groups and channels collections.
func NewGroupsStore(groups, channels *mongo.Collection) *GroupsStore {
	return &GroupsStore{groups: groups, channels: channels}
}

// CreateGroup inserts a group owned by ownerID, who is also its first member.
func (g *GroupsStore) CreateGroup(ctx context.Context, name string, ownerID bson.ObjectID) (*Group, error) {
	group := &Group{
		Name:      name,
		OwnerID:   ownerID,
		MemberIDs: []bson.ObjectID{ownerID},
		CreatedAt: time.Now().UTC(),
	}
	result, err := g.groups.InsertOne(ctx, group)
	if err != nil {
		return nil, err
	}
	group.ID = result.InsertedID.(bson.ObjectID)
	return group, nil
}

// GetGroup returns a group by id.
func (g *GroupsStore) GetGroup(ctx context.Context, id bson.ObjectID) (*Group, error) {
	var group Group
	if err := g.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&group); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// ListGroupsForMember returns the groups userID belongs to, ordered by name.
func (g *GroupsStore) ListGroupsForMember(ctx context.Context, userID bson.ObjectID) ([]*Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := g.groups.Find(ctx, bson.M{"member_ids": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []*Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember adds userID to the group. Adding an existing member is a no-op.
func (g *GroupsStore) AddMember(ctx context.Context, groupID, userID bson.ObjectID) error {
	res, err := g.groups.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$addToSet": bson.M{"member_ids": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateChannel inserts a channel. A name already used in the group yields ErrDuplicate.
func (g *GroupsStore) CreateChannel(ctx context.Context, groupID bson.ObjectID, name string) (*Channel, error) {
	ch := &Channel{GroupID: groupID, Name: name, CreatedAt: time.Now().UTC()}
	result, err := g.channels.InsertOne(ctx, ch)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	ch.ID = result.InsertedID.(bson.ObjectID)
	return ch, nil
}

// GetChannel returns a channel by id.
func (g *GroupsStore) GetChannel(ctx context.Context, id bson.ObjectID) (*Channel, error) {
	var ch Channel
	if err := g.channels.FindOne(ctx, bson.M{"_id": id}).Decode(&ch); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// ListChannels returns the channels of a group ordered by name.
func (g *GroupsStore) ListChannels(ctx context.Context, groupID bson.ObjectID) ([]*Channel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := g.channels.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var channels []*Channel
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}
