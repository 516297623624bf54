package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"

	"join-warden/internal/approval"
)

// ClassifyApprove maps a Bot API error from approveChatJoinRequest onto the
// workflow's taxonomy. Approving a request that was already handled (user
// joined meanwhile, or the request expired) is an ignorable outcome, not a
// failure, which is what makes live handling and the sweep safe to race.
func ClassifyApprove(err error) error {
	if err == nil {
		return nil
	}
	if rl, ok := asTooManyRequests(err); ok {
		return rl
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user_already_participant"),
		strings.Contains(msg, "hide_requester_missing"):
		// already approved or no longer pending
		return nil
	case errors.Is(err, bot.ErrorForbidden),
		strings.Contains(msg, "chat_admin_required"),
		strings.Contains(msg, "not enough rights"):
		return fmt.Errorf("%w: %v", approval.ErrPermissionDenied, err)
	default:
		return err
	}
}

// ClassifySend maps a Bot API error from a direct send onto the taxonomy.
// A user who blocked the bot or never opened a private chat with it is
// unreachable, which is an expected steady-state condition.
func ClassifySend(err error) error {
	if err == nil {
		return nil
	}
	if rl, ok := asTooManyRequests(err); ok {
		return rl
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, bot.ErrorForbidden),
		strings.Contains(msg, "chat not found"),
		strings.Contains(msg, "peer_id_invalid"),
		strings.Contains(msg, "can't initiate conversation"):
		return fmt.Errorf("%w: %v", approval.ErrUnreachable, err)
	default:
		return err
	}
}

func asTooManyRequests(err error) (*approval.RateLimitedError, bool) {
	var tmr *bot.TooManyRequestsError
	if errors.As(err, &tmr) {
		wait := time.Duration(tmr.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		return &approval.RateLimitedError{RetryAfter: wait}, true
	}
	return nil, false
}
