package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/clique-gRPC/internal/data"
	"github.com/PaulBabatuyi/clique-gRPC/internal/normalize"
)

// memDB is an in-memory stand-in for every store the server uses. It honours
// the same uniqueness rules as the MongoDB indexes.
type memDB struct {
	mu            sync.Mutex
	users         map[bson.ObjectID]*data.User
	profiles      map[bson.ObjectID]*data.Profile
	sessions      map[string]*data.Session
	conversations map[bson.ObjectID]*data.Conversation
	participants  map[bson.ObjectID][]bson.ObjectID
	messages      []*data.Message
	groups        map[bson.ObjectID]*data.Group
	channels      map[bson.ObjectID]*data.Channel

	failParticipants bool
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[bson.ObjectID]*data.User{},
		profiles:      map[bson.ObjectID]*data.Profile{},
		sessions:      map[string]*data.Session{},
		conversations: map[bson.ObjectID]*data.Conversation{},
		participants:  map[bson.ObjectID][]bson.ObjectID{},
		groups:        map[bson.ObjectID]*data.Group{},
		channels:      map[bson.ObjectID]*data.Channel{},
	}
}

func (m *memDB) stores() stores {
	return stores{
		users:         memUsers{m},
		profiles:      memProfiles{m},
		sessions:      memSessions{m},
		conversations: memConversations{m},
		messages:      memMessages{m},
		groups:        memGroups{m},
	}
}

type memUsers struct{ *memDB }

func (m memUsers) CreateUser(_ context.Context, email, hashedPassword string) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalize.Email(email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, data.ErrUserExists
		}
	}
	u := &data.User{ID: bson.NewObjectID(), Email: email, Password: hashedPassword, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m memUsers) GetUserByEmail(_ context.Context, email string) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalize.Email(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, data.ErrUserNotFound
}

func (m memUsers) DeleteUser(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

type memProfiles struct{ *memDB }

func (m memProfiles) CreateProfile(_ context.Context, p *data.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.Username == p.Username || existing.ID == p.ID {
			return data.ErrDuplicate
		}
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m memProfiles) GetProfile(_ context.Context, id bson.ObjectID) (*data.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, data.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memProfiles) GetProfiles(_ context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*data.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[bson.ObjectID]*data.Profile{}
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m memProfiles) ProfileExists(_ context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.profiles[id]
	return ok, nil
}

func (m memProfiles) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m memProfiles) UpdateProfile(_ context.Context, id bson.ObjectID, c data.ProfileChanges) (*data.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, data.ErrUserNotFound
	}
	if c.Username != nil {
		for _, other := range m.profiles {
			if other.ID != id && other.Username == *c.Username {
				return nil, data.ErrDuplicate
			}
		}
		p.Username = *c.Username
	}
	if c.DisplayName != nil {
		p.DisplayName = *c.DisplayName
	}
	if c.AvatarURL != nil {
		p.AvatarURL = *c.AvatarURL
	}
	if c.Bio != nil {
		p.Bio = *c.Bio
	}
	cp := *p
	return &cp, nil
}

func (m memProfiles) SearchProfiles(_ context.Context, term string, exclude bson.ObjectID, limit int64) ([]*data.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	term = strings.ToLower(term)
	var out []*data.Profile
	for _, p := range m.profiles {
		if p.ID == exclude {
			continue
		}
		if strings.Contains(strings.ToLower(p.Username), term) || strings.Contains(strings.ToLower(p.DisplayName), term) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memProfiles) TouchLastOnline(_ context.Context, id bson.ObjectID, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		ts := t
		p.LastOnline = &ts
	}
	return nil
}

type memSessions struct{ *memDB }

func (m memSessions) CreateSession(_ context.Context, id string, userID bson.ObjectID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return data.ErrDuplicate
	}
	m.sessions[id] = &data.Session{ID: id, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (m memSessions) SessionActive(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return ok && s.ExpiresAt.After(time.Now()), nil
}

func (m memSessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// memConversations also satisfies conversation.Store so a real Resolver can run on it.
type memConversations struct{ *memDB }

func (m memConversations) FindByPair(_ context.Context, pairKey string) (*data.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.PairKey == pairKey {
			return c, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m memConversations) Create(_ context.Context, pairKey string, ids []bson.ObjectID) (*data.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.PairKey == pairKey {
			return nil, data.ErrDuplicate
		}
	}
	c := &data.Conversation{ID: bson.NewObjectID(), PairKey: pairKey, ParticipantIDs: ids, CreatedAt: time.Now()}
	m.conversations[c.ID] = c
	return c, nil
}

func (m memConversations) AddParticipants(_ context.Context, id bson.ObjectID, ids []bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failParticipants {
		return context.DeadlineExceeded
	}
	m.participants[id] = append(m.participants[id], ids...)
	return nil
}

func (m memConversations) Delete(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
	delete(m.participants, id)
	return nil
}

func (m memConversations) GetConversation(_ context.Context, id bson.ObjectID) (*data.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return c, nil
}

func (m memConversations) ListForUser(_ context.Context, userID bson.ObjectID, limit int64) ([]*data.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func lastActivity(c *data.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func (m memConversations) TouchLastMessage(_ context.Context, id bson.ObjectID, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[id]; ok {
		ts := at
		c.LastMessage = content
		c.LastMessageAt = &ts
	}
	return nil
}

type memMessages struct{ *memDB }

func (m memMessages) SaveMessage(_ context.Context, kind data.ChatKind, chatID, senderID bson.ObjectID, content, clientID string, sentAt time.Time) (*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &data.Message{
		ID:        bson.NewObjectID(),
		ChatKind:  kind,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		ClientID:  clientID,
		SentAt:    sentAt,
		CreatedAt: sentAt,
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m memMessages) GetMessageHistory(_ context.Context, chatID bson.ObjectID, limit int64) ([]*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	if int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

type memGroups struct{ *memDB }

func (m memGroups) CreateGroup(_ context.Context, name string, ownerID bson.ObjectID) (*data.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &data.Group{ID: bson.NewObjectID(), Name: name, OwnerID: ownerID, MemberIDs: []bson.ObjectID{ownerID}}
	m.groups[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m memGroups) GetGroup(_ context.Context, id bson.ObjectID) (*data.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	cp := *g
	cp.MemberIDs = append([]bson.ObjectID(nil), g.MemberIDs...)
	return &cp, nil
}

func (m memGroups) ListGroupsForMember(_ context.Context, userID bson.ObjectID) ([]*data.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.Group
	for _, g := range m.groups {
		if g.IsMember(userID) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memGroups) AddMember(_ context.Context, groupID, userID bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return data.ErrNotFound
	}
	if !g.IsMember(userID) {
		g.MemberIDs = append(g.MemberIDs, userID)
	}
	return nil
}

func (m memGroups) CreateChannel(_ context.Context, groupID bson.ObjectID, name string) (*data.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.channels {
		if c.GroupID == groupID && c.Name == name {
			return nil, data.ErrDuplicate
		}
	}
	c := &data.Channel{ID: bson.NewObjectID(), GroupID: groupID, Name: name}
	m.channels[c.ID] = c
	return c, nil
}

func (m memGroups) GetChannel(_ context.Context, id bson.ObjectID) (*data.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return c, nil
}

func (m memGroups) ListChannels(_ context.Context, groupID bson.ObjectID) ([]*data.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.Channel
	for _, c := range m.channels {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
