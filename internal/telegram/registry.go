package telegram

import (
	"sort"
	"sync"

	"join-warden/internal/approval"
)

// registry is what stands in for the pull side of the Bot API: Telegram's bot
// transport cannot enumerate chats or historical join requests, so the adapter
// remembers every chat and join request the update stream shows it. Requests
// stay here until an approve call for them goes through (restart gaps are
// covered by Telegram redelivering unconfirmed updates).
type registry struct {
	mu      sync.Mutex
	chats   map[int64]approval.ChatInfo
	pending map[int64]map[int64]approval.JoinRequest
}

func newRegistry() *registry {
	return &registry{
		chats:   make(map[int64]approval.ChatInfo),
		pending: make(map[int64]map[int64]approval.JoinRequest),
	}
}

func (r *registry) observeChat(info approval.ChatInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[info.ID] = info
}

// observeJoinRequest upserts; a re-observed (chat, user) pair refreshes the
// stored request instead of duplicating it.
func (r *registry) observeJoinRequest(req approval.JoinRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.pending[req.ChatID]
	if !ok {
		byUser = make(map[int64]approval.JoinRequest)
		r.pending[req.ChatID] = byUser
	}
	byUser[req.UserID] = req
}

func (r *registry) resolveJoinRequest(chatID, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byUser, ok := r.pending[chatID]; ok {
		delete(byUser, userID)
		if len(byUser) == 0 {
			delete(r.pending, chatID)
		}
	}
}

func (r *registry) pendingForChat(chatID int64, limit int) []approval.JoinRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	byUser := r.pending[chatID]
	out := make([]approval.JoinRequest, 0, len(byUser))
	for _, req := range byUser {
		out = append(out, req)
	}
	// oldest first so a bounded page drains in arrival order
	sort.Slice(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *registry) knownChats(limit int) []approval.ChatInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]approval.ChatInfo, 0, len(r.chats))
	for _, info := range r.chats {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
