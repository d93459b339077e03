package main

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/clique-gRPC/internal/chatv1"
	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
)

func toProfile(p *data.Profile) *chatv1.Profile {
	if p == nil {
		return nil
	}
	return &chatv1.Profile{
		Id:          p.ID.Hex(),
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarUrl:   p.AvatarURL,
		Bio:         p.Bio,
		LastOnline:  p.LastOnline,
	}
}

func toMessage(m *data.Message) *chatv1.Message {
	return &chatv1.Message{
		Id:       m.ID.Hex(),
		ChatKind: string(m.ChatKind),
		ChatId:   m.ChatID.Hex(),
		SenderId: m.SenderID.Hex(),
		Content:  m.Content,
		ClientId: m.ClientID,
		SentAt:   m.SentAt,
	}
}

func toGroup(g *data.Group, caller bson.ObjectID) *chatv1.Group {
	members := make([]string, len(g.MemberIDs))
	for i, id := range g.MemberIDs {
		members[i] = id.Hex()
	}
	return &chatv1.Group{
		Id:        g.ID.Hex(),
		Name:      g.Name,
		OwnerId:   g.OwnerID.Hex(),
		MemberIds: members,
		IsAdmin:   g.OwnerID == caller,
	}
}

func toChannel(c *data.Channel) *chatv1.Channel {
	return &chatv1.Channel{
		Id:      c.ID.Hex(),
		GroupId: c.GroupID.Hex(),
		Name:    c.Name,
	}
}
