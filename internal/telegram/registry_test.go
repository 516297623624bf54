package telegram

import (
	"testing"
	"time"

	"join-warden/internal/approval"
)

func pendingReq(chatID, userID int64, at time.Time) approval.JoinRequest {
	return approval.JoinRequest{ChatID: chatID, UserID: userID, ObservedAt: at}
}

func TestRegistryPendingUpsert(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	r.observeJoinRequest(pendingReq(10, 7, now.Add(-time.Minute)))
	r.observeJoinRequest(pendingReq(10, 7, now))

	got := r.pendingForChat(10, 0)
	if len(got) != 1 {
		t.Fatalf("pending = %d entries, want 1; re-observation must overwrite", len(got))
	}
	if !got[0].ObservedAt.Equal(now) {
		t.Errorf("ObservedAt = %v, want refreshed %v", got[0].ObservedAt, now)
	}
}

func TestRegistryPendingOrderAndLimit(t *testing.T) {
	r := newRegistry()
	base := time.Now()
	r.observeJoinRequest(pendingReq(10, 3, base.Add(2*time.Second)))
	r.observeJoinRequest(pendingReq(10, 1, base))
	r.observeJoinRequest(pendingReq(10, 2, base.Add(time.Second)))

	got := r.pendingForChat(10, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want limit 2 applied", len(got))
	}
	if got[0].UserID != 1 || got[1].UserID != 2 {
		t.Errorf("order = [%d %d], want oldest first [1 2]", got[0].UserID, got[1].UserID)
	}
}

func TestRegistryResolveRemovesPending(t *testing.T) {
	r := newRegistry()
	r.observeJoinRequest(pendingReq(10, 7, time.Now()))

	r.resolveJoinRequest(10, 7)
	r.resolveJoinRequest(10, 7) // no-op second time

	if got := r.pendingForChat(10, 0); len(got) != 0 {
		t.Errorf("pending = %v after resolve, want empty", got)
	}
}

func TestRegistryKnownChats(t *testing.T) {
	r := newRegistry()
	r.observeChat(approval.ChatInfo{ID: 2, Kind: approval.ChatKindSupergroup})
	r.observeChat(approval.ChatInfo{ID: 1, Kind: approval.ChatKindChannel})
	r.observeChat(approval.ChatInfo{ID: 1, Kind: approval.ChatKindChannel}) // duplicate

	got := r.knownChats(0)
	if len(got) != 2 {
		t.Fatalf("chats = %d, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("chats = %v, want sorted by id", got)
	}

	if limited := r.knownChats(1); len(limited) != 1 {
		t.Errorf("limited chats = %d, want 1", len(limited))
	}
}
