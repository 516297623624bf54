// Package approval implements the join-request approval workflow and the
// periodic reconciliation sweep that feeds missed requests through it.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JoinRequest is one pending membership request as observed from the event
// stream or discovered by a sweep.
type JoinRequest struct {
	ChatID     int64
	UserID     int64
	UserName   string
	ChatTitle  string
	ObservedAt time.Time
}

type ChatKind string

const (
	ChatKindPrivate    ChatKind = "private"
	ChatKindGroup      ChatKind = "group"
	ChatKindSupergroup ChatKind = "supergroup"
	ChatKindChannel    ChatKind = "channel"
)

// Broadcastable reports whether a chat kind can carry join requests at all.
func (k ChatKind) Broadcastable() bool {
	return k == ChatKindChannel || k == ChatKindSupergroup
}

type ChatInfo struct {
	ID    int64
	Kind  ChatKind
	Title string
}

// Button is one external link on the welcome keyboard.
type Button struct {
	Label string
	URL   string
}

// Notification is the provider-agnostic shape of a direct message.
type Notification struct {
	Text    string
	Buttons [][]Button
}

// EventSource is the capability set the workflow needs from the messaging
// provider. Production uses the Telegram adapter; tests use fakes.
type EventSource interface {
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	SendDirectMessage(ctx context.Context, userID int64, n Notification) error
	ListPendingRequests(ctx context.Context, chatID int64, limit int) ([]JoinRequest, error)
	ListKnownChats(ctx context.Context, limit int) ([]ChatInfo, error)
}

// Outcome is the result of one workflow invocation.
type Outcome int

const (
	// Ignored means the request was for a chat outside the configured target
	// restriction; nothing was mutated.
	Ignored Outcome = iota
	Approved
	RateLimitedRetried
	PermissionDenied
	TransientFailure
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Approved:
		return "approved"
	case RateLimitedRetried:
		return "rate_limited_retried"
	case PermissionDenied:
		return "permission_denied"
	case TransientFailure:
		return "transient_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Accepted reports whether the request ended up approved.
func (o Outcome) Accepted() bool { return o == Approved || o == RateLimitedRetried }

var (
	// ErrPermissionDenied: the bot lacks admin rights in the chat. Persistent
	// until an operator fixes permissions; never auto-retried.
	ErrPermissionDenied = errors.New("approval: permission denied")

	// ErrUnreachable: the user blocked the bot or never opened a private chat
	// with it. Expected steady-state condition, not an alert.
	ErrUnreachable = errors.New("approval: user unreachable")
)

// RateLimitedError is a provider throttle; RetryAfter is the minimum wait
// before the single permitted retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("approval: rate limited, retry after %s", e.RetryAfter)
}

func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
