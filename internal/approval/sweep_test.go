package approval

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestSweep(src *fakeSource, targetChat int64) *Sweep {
	wf, _ := newTestWorkflow(src, targetChat)
	return NewSweep(testLogger(), src, wf, time.Second)
}

func chatIDs(calls []int64) map[int64]int {
	out := make(map[int64]int)
	for _, id := range calls {
		out[id]++
	}
	return out
}

func TestSweepQueriesOnlyConfiguredTarget(t *testing.T) {
	src := &fakeSource{
		chats: []ChatInfo{
			{ID: 42, Kind: ChatKindChannel},
			{ID: 7, Kind: ChatKindSupergroup},
		},
		pendingByChat: map[int64][]JoinRequest{
			42: {req(42, 1)},
			7:  {req(7, 2)},
		},
	}
	s := newTestSweep(src, 42)

	for i := 0; i < 3; i++ {
		s.runCycle(context.Background())
	}

	if src.listChatCalls != 0 {
		t.Error("sweep enumerated chats despite a configured target restriction")
	}
	for id := range chatIDs(src.listedChats) {
		if id != 42 {
			t.Errorf("sweep queried chat %d; only the target 42 is allowed, for any cycle count", id)
		}
	}
	if len(src.listedChats) != 3 {
		t.Errorf("target chat queried %d times over 3 cycles, want 3", len(src.listedChats))
	}
}

func TestSweepOnlyBroadcastCapableKinds(t *testing.T) {
	src := &fakeSource{
		chats: []ChatInfo{
			{ID: 1, Kind: ChatKindChannel},
			{ID: 2, Kind: ChatKindPrivate},
			{ID: 3, Kind: ChatKindSupergroup},
			{ID: 4, Kind: ChatKindGroup},
		},
	}
	s := newTestSweep(src, 0)

	s.runCycle(context.Background())

	got := chatIDs(src.listedChats)
	if len(got) != 2 || got[1] != 1 || got[3] != 1 {
		t.Errorf("queried chats = %v, want exactly {1, 3}", src.listedChats)
	}
}

func TestSweepChatErrorDoesNotAbortCycle(t *testing.T) {
	src := &fakeSource{
		chats: []ChatInfo{
			{ID: 1, Kind: ChatKindChannel},
			{ID: 3, Kind: ChatKindSupergroup},
		},
		listErrs: map[int64]error{1: errors.New("CHAT_ADMIN_REQUIRED")},
		pendingByChat: map[int64][]JoinRequest{
			3: {req(3, 9)},
		},
	}
	s := newTestSweep(src, 0)

	s.runCycle(context.Background())

	got := chatIDs(src.listedChats)
	if got[3] != 1 {
		t.Errorf("queried chats = %v; chat 3 must still be swept after chat 1 errors", src.listedChats)
	}
	if len(src.approveCalls) != 1 || src.approveCalls[0].userID != 9 {
		t.Errorf("approve calls = %v, want the request from chat 3", src.approveCalls)
	}
}

func TestSweepDrainsEachChatOncePerCycle(t *testing.T) {
	src := &fakeSource{
		chats: []ChatInfo{
			{ID: 5, Kind: ChatKindChannel},
			{ID: 5, Kind: ChatKindChannel},
		},
	}
	s := newTestSweep(src, 0)

	s.runCycle(context.Background())
	if len(src.listedChats) != 1 {
		t.Errorf("chat 5 queried %d times in one cycle, want 1", len(src.listedChats))
	}

	// the guard resets for the next cycle
	s.runCycle(context.Background())
	if len(src.listedChats) != 2 {
		t.Errorf("chat 5 queried %d times over two cycles, want 2", len(src.listedChats))
	}
}

func TestSweepRoutesRequestsThroughWorkflow(t *testing.T) {
	src := &fakeSource{
		chats: []ChatInfo{{ID: 5, Kind: ChatKindChannel}},
		pendingByChat: map[int64][]JoinRequest{
			5: {req(5, 1), req(5, 2)},
		},
	}
	wf, st := newTestWorkflow(src, 0)
	s := NewSweep(testLogger(), src, wf, time.Second)

	s.runCycle(context.Background())

	if st.MemberCount() != 2 {
		t.Errorf("tracked members = %d, want 2", st.MemberCount())
	}
	if len(src.sendCalls) != 2 {
		t.Errorf("welcome sends = %d, want 2; swept requests behave like live ones", len(src.sendCalls))
	}
}

func TestSweepStartStop(t *testing.T) {
	src := &fakeSource{chats: []ChatInfo{{ID: 5, Kind: ChatKindChannel}}}
	s := newTestSweep(src, 0)
	s.initialDelay = time.Millisecond
	s.interval = 5 * time.Millisecond

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.Cycles() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweep did not complete two cycles in time")
		case <-time.After(time.Millisecond):
		}
	}
	if !s.Active() {
		t.Error("Active() = false while the loop is running")
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop")
	}
	if s.Active() {
		t.Error("Active() = true after stop")
	}
}
