package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"join-warden/internal/store"
)

// Workflow approves one join request at a time and independently attempts to
// welcome the user. Approval failure is the outcome that matters; notification
// failure is cosmetic and never reverses an approval.
type Workflow struct {
	log        *slog.Logger
	source     EventSource
	store      *store.Store
	targetChat int64 // 0 means approve for any chat
	welcome    func(JoinRequest) Notification
}

func NewWorkflow(log *slog.Logger, source EventSource, st *store.Store, targetChat int64, welcome func(JoinRequest) Notification) *Workflow {
	return &Workflow{
		log:        log,
		source:     source,
		store:      st,
		targetChat: targetChat,
		welcome:    welcome,
	}
}

func (w *Workflow) TargetChat() int64 { return w.targetChat }

// Process handles one live or swept join request. Requests for chats outside
// the configured target are discarded with no state mutated.
func (w *Workflow) Process(ctx context.Context, req JoinRequest) Outcome {
	if w.targetChat != 0 && req.ChatID != w.targetChat {
		return Ignored
	}
	return w.run(ctx, req)
}

// ProcessManual is the admin-command entry point. Whether the target-chat
// restriction applies to manual approvals is a deployment decision, so the
// caller passes it explicitly.
func (w *Workflow) ProcessManual(ctx context.Context, req JoinRequest, bypassTarget bool) Outcome {
	if bypassTarget {
		return w.run(ctx, req)
	}
	return w.Process(ctx, req)
}

func (w *Workflow) run(ctx context.Context, req JoinRequest) Outcome {
	if req.ObservedAt.IsZero() {
		req.ObservedAt = time.Now()
	}
	w.store.TrackPending(req.ChatID, req.UserID, req.ObservedAt)

	outcome := w.approve(ctx, req)
	if !outcome.Accepted() {
		// keep the ledger entry; the next sweep retries it
		return outcome
	}

	w.store.ResolvePending(req.ChatID, req.UserID)
	w.store.AddMember(req.UserID)
	w.log.Info("join_request_approved",
		"chat_id", req.ChatID,
		"user_id", req.UserID,
		"outcome", outcome.String(),
	)

	w.notify(ctx, req)
	return outcome
}

// approve invokes the approval action with at most one rate-limit retry. The
// bound is structural: a second throttle gives up rather than chaining sleeps.
func (w *Workflow) approve(ctx context.Context, req JoinRequest) Outcome {
	err := w.source.ApproveJoinRequest(ctx, req.ChatID, req.UserID)
	if err == nil {
		return Approved
	}

	if rl, ok := AsRateLimited(err); ok {
		w.log.Warn("approval_rate_limited",
			"chat_id", req.ChatID,
			"user_id", req.UserID,
			"retry_after", rl.RetryAfter.String(),
		)
		if !sleepFor(ctx, rl.RetryAfter) {
			return TransientFailure
		}
		err = w.source.ApproveJoinRequest(ctx, req.ChatID, req.UserID)
		if err == nil {
			return RateLimitedRetried
		}
	}

	if errors.Is(err, ErrPermissionDenied) {
		// operator must grant the bot invite-management rights in this chat
		w.log.Error("approval_permission_denied",
			"chat_id", req.ChatID,
			"user_id", req.UserID,
		)
		return PermissionDenied
	}

	w.log.Warn("approval_failed",
		"chat_id", req.ChatID,
		"user_id", req.UserID,
		"error", err,
	)
	return TransientFailure
}

// notify sends the welcome DM. Best effort: one rate-limit retry, then give
// up. Unreachable users stay tracked — they are still chat members, just not
// reachable in private.
func (w *Workflow) notify(ctx context.Context, req JoinRequest) {
	if w.welcome == nil {
		return
	}
	n := w.welcome(req)

	err := w.source.SendDirectMessage(ctx, req.UserID, n)
	if err == nil {
		return
	}
	if rl, ok := AsRateLimited(err); ok {
		if !sleepFor(ctx, rl.RetryAfter) {
			return
		}
		if err = w.source.SendDirectMessage(ctx, req.UserID, n); err == nil {
			return
		}
	}

	if errors.Is(err, ErrUnreachable) {
		w.log.Debug("welcome_unreachable", "user_id", req.UserID)
		return
	}
	w.log.Warn("welcome_send_failed", "user_id", req.UserID, "error", err)
}

// sleepFor waits d unless the context ends first; reports whether the full
// wait elapsed.
func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
