package approval

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	defaultInitialDelay    = 12 * time.Second
	defaultChatPageSize    = 50
	defaultRequestsPerChat = 100
	sweepCycleTimeout      = 10 * time.Minute
)

// Sweep periodically pulls pending join requests the live event stream missed
// and funnels them through the same workflow. One goroutine runs the loop, so
// cycles never overlap; the delay between cycles is measured from the end of
// one to the start of the next.
type Sweep struct {
	log      *slog.Logger
	source   EventSource
	workflow *Workflow

	interval        time.Duration
	initialDelay    time.Duration
	chatPageSize    int
	requestsPerChat int

	stopChan chan bool
	active   atomic.Bool
	cycles   atomic.Int64
}

func NewSweep(log *slog.Logger, source EventSource, wf *Workflow, interval time.Duration) *Sweep {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	return &Sweep{
		log:             log,
		source:          source,
		workflow:        wf,
		interval:        interval,
		initialDelay:    defaultInitialDelay,
		chatPageSize:    defaultChatPageSize,
		requestsPerChat: defaultRequestsPerChat,
		stopChan:        make(chan bool, 1),
	}
}

// Active reports whether the sweep loop is running; surfaced on the status page.
func (s *Sweep) Active() bool { return s.active.Load() }

// Cycles is the number of completed sweep cycles since startup.
func (s *Sweep) Cycles() int64 { return s.cycles.Load() }

// Start blocks until Stop is called. Run it on its own goroutine.
func (s *Sweep) Start() {
	s.active.Store(true)
	defer s.active.Store(false)

	s.log.Info("sweep_started",
		"interval", s.interval.String(),
		"initial_delay", s.initialDelay.String(),
	)

	// let the bot identity and update stream settle before the first pass
	if !s.wait(s.initialDelay) {
		return
	}

	for {
		ctx, cancel := context.WithTimeout(context.Background(), sweepCycleTimeout)
		s.runCycle(ctx)
		cancel()
		s.cycles.Add(1)

		// fixed delay, not fixed rate: timer starts after the cycle finished
		if !s.wait(s.interval) {
			return
		}
	}
}

func (s *Sweep) Stop() {
	select {
	case s.stopChan <- true:
	default:
	}
}

func (s *Sweep) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stopChan:
		s.log.Info("sweep_stopped")
		return false
	}
}

// runCycle queries each candidate chat once and routes every pending request
// through the workflow exactly as if it had arrived live. Errors on one chat
// never abort the pass for the others.
func (s *Sweep) runCycle(ctx context.Context) {
	s.log.Info("sweep_cycle_started")

	drained := make(map[int64]bool)
	approved := 0

	for _, chatID := range s.candidates(ctx) {
		if drained[chatID] {
			continue
		}
		drained[chatID] = true

		reqs, err := s.source.ListPendingRequests(ctx, chatID, s.requestsPerChat)
		if err != nil {
			// usually lost invite-management rights or a transient RPC failure
			s.log.Warn("sweep_chat_failed", "chat_id", chatID, "error", err)
			continue
		}

		for _, req := range reqs {
			if s.workflow.Process(ctx, req).Accepted() {
				approved++
			}
		}
	}

	s.log.Info("sweep_cycle_finished", "chats", len(drained), "approved", approved)
}

// candidates is the chat set for one cycle: exactly the configured target
// chat, or every discovered chat of a kind that can carry join requests.
func (s *Sweep) candidates(ctx context.Context) []int64 {
	if target := s.workflow.TargetChat(); target != 0 {
		return []int64{target}
	}

	chats, err := s.source.ListKnownChats(ctx, s.chatPageSize)
	if err != nil {
		s.log.Warn("sweep_chat_discovery_failed", "error", err)
		return nil
	}

	out := make([]int64, 0, len(chats))
	for _, c := range chats {
		if c.Kind.Broadcastable() {
			out = append(out, c.ID)
		}
	}
	return out
}
