package sunwatch

import (
	"sort"
	"sync"
)

// Member is one opted-in user of a chat.
type Member struct {
	UserID int64
	Name   string
}

// Registry maps chats to their opted-in members. Subscribing is an upsert
// (the latest display name wins); there is no unsubscribe, matching the
// bot's growth-only opt-in model.
type Registry struct {
	mu    sync.RWMutex
	chats map[int64]map[int64]string
}

func NewRegistry() *Registry {
	return &Registry{chats: map[int64]map[int64]string{}}
}

func (r *Registry) Subscribe(chatID, userID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.chats[chatID]
	if subs == nil {
		subs = map[int64]string{}
		r.chats[chatID] = subs
	}
	subs[userID] = name
}

// MembersOf returns the chat's members ordered by user id, so rendered
// mention lists are stable. The result may be empty.
func (r *Registry) MembersOf(chatID int64) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.chats[chatID]
	out := make([]Member, 0, len(subs))
	for id, name := range subs {
		out = append(out, Member{UserID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Chats returns all chats with at least one interaction, ordered by id.
func (r *Registry) Chats() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.chats))
	for id := range r.chats {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
