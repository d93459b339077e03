// Package feed turns chat history into sender groups and reconciles
// optimistic sends with the server's echoes.
package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// State of a single message in the feed.
type State int

const (
	Sent State = iota
	Pending
	Failed
)

// Message is one entry in a chat feed. Pending and failed entries have no ID yet.
type Message struct {
	ID       string
	ClientID string
	ChatID   string
	SenderID string
	Content  string
	SentAt   time.Time
	State    State
}

// Group is a run of consecutive messages from one sender.
type Group struct {
	SenderID string
	// FirstAt is the timestamp of the first message in the group.
	FirstAt  time.Time
	Messages []Message
}

// GroupBySender merges consecutive messages (by list order) from the same
// sender. A new group starts whenever the sender changes.
func GroupBySender(msgs []Message) []Group {
	var groups []Group
	for _, m := range msgs {
		if n := len(groups); n > 0 && groups[n-1].SenderID == m.SenderID {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, Group{SenderID: m.SenderID, FirstAt: m.SentAt, Messages: []Message{m}})
	}
	return groups
}

// SortByTime orders msgs by SentAt ascending, keeping input order for ties.
func SortByTime(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
}

// Status of a Feed's history load.
type Status int

const (
	Loading Status = iota
	Empty
	Ready
	LoadFailed
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "loading"
	}
}

// View is what a renderer draws.
type View struct {
	Status Status
	Groups []Group
	Err    error
}

// Feed holds one chat's history plus the caller's unconfirmed sends.
// It is safe for concurrent use.
type Feed struct {
	mu      sync.Mutex
	chatID  string
	loaded  bool
	err     error
	history []Message
	pending []Message
	newID   func() string
}

func New(chatID string) *Feed {
	return &Feed{chatID: chatID, newID: uuid.NewString}
}

// ChatID returns the chat this feed belongs to.
func (f *Feed) ChatID() string { return f.chatID }

// BeginLoad resets the feed to the loading state.
func (f *Feed) BeginLoad() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	f.err = nil
}

// Loaded replaces the history with msgs. Pending entries whose echo is
// already in msgs are dropped.
func (f *Feed) Loaded(msgs []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	history := lo.UniqBy(msgs, func(m Message) string { return m.ID })
	for i := range history {
		history[i].State = Sent
	}
	SortByTime(history)

	clientIDs := lo.SliceToMap(history, func(m Message) (string, struct{}) { return m.ClientID, struct{}{} })
	f.pending = lo.Reject(f.pending, func(p Message, _ int) bool {
		_, echoed := clientIDs[p.ClientID]
		return echoed
	})
	f.history = history
	f.loaded = true
	f.err = nil
}

// Failed records a failed history fetch.
func (f *Feed) Failed(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// AddPending appends a locally sent message with a fresh client ID and
// returns it.
func (f *Feed) AddPending(senderID, content string, at time.Time) Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := Message{
		ClientID: f.newID(),
		ChatID:   f.chatID,
		SenderID: senderID,
		Content:  content,
		SentAt:   at,
		State:    Pending,
	}
	f.pending = append(f.pending, m)
	return m
}

// Confirm applies a canonical message from the server. A pending entry
// with the same client ID is replaced; a message already in the history is
// ignored. It reports whether the feed changed.
func (f *Feed) Confirm(m Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m.ChatID != "" && m.ChatID != f.chatID {
		return false
	}
	if lo.ContainsBy(f.history, func(h Message) bool { return h.ID == m.ID }) {
		return false
	}
	if m.ClientID != "" {
		f.pending = lo.Reject(f.pending, func(p Message, _ int) bool { return p.ClientID == m.ClientID })
	}
	m.State = Sent
	f.history = append(f.history, m)
	SortByTime(f.history)
	return true
}

// MarkFailed flags the pending message with clientID as failed.
func (f *Feed) MarkFailed(clientID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pending {
		if f.pending[i].ClientID == clientID {
			f.pending[i].State = Failed
			return true
		}
	}
	return false
}

// Discard removes a pending or failed message.
func (f *Feed) Discard(clientID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.pending)
	f.pending = lo.Reject(f.pending, func(p Message, _ int) bool { return p.ClientID == clientID })
	return len(f.pending) != before
}

// View groups history followed by pending sends.
func (f *Feed) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.err != nil && !f.loaded:
		return View{Status: LoadFailed, Err: f.err}
	case !f.loaded:
		return View{Status: Loading}
	}

	all := make([]Message, 0, len(f.history)+len(f.pending))
	all = append(all, f.history...)
	all = append(all, f.pending...)
	if len(all) == 0 {
		return View{Status: Empty}
	}
	return View{Status: Ready, Groups: GroupBySender(all)}
}
