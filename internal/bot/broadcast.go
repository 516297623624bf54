package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"join-warden/internal/approval"
	"join-warden/internal/telegram"
)

// broadcastPace bounds outgoing sends so a large member set does not trip the
// provider's flood limits in the first place.
var broadcastPace = rate.Every(100 * time.Millisecond)

// BroadcastSummary is the accounting reported back to the broadcaster.
type BroadcastSummary struct {
	Sent      int
	Failed    int
	Remaining int
}

// handleBroadcast replays a replied-to message to every tracked user. Only
// the configured broadcaster identity may trigger it; everyone else is
// rejected before a single send happens.
func (b *Bot) handleBroadcast(ctx context.Context, msg *models.Message) {
	if !b.canBroadcast(msg.From.ID) {
		b.reply(ctx, msg.Chat.ID, "❌ You are not allowed to broadcast.")
		return
	}
	src := msg.ReplyToMessage
	if src == nil {
		b.reply(ctx, msg.Chat.ID, "Reply to the message you want to broadcast with /broadcast.")
		return
	}

	summary := b.broadcastTo(ctx, b.store.Members(), func(ctx context.Context, userID int64) error {
		_, err := b.api.CopyMessage(ctx, &tgbot.CopyMessageParams{
			ChatID:     userID,
			FromChatID: src.Chat.ID,
			MessageID:  src.ID,
		})
		return telegram.ClassifySend(err)
	})

	b.log.Info("broadcast_finished",
		"sent", summary.Sent,
		"failed", summary.Failed,
		"remaining", summary.Remaining,
	)
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(
		"📢 Broadcast done.\nSent: %d\nFailed/removed: %d\nTracked users now: %d",
		summary.Sent, summary.Failed, summary.Remaining,
	))
}

// canBroadcast gates the feature before any send begins. With no broadcaster
// configured the feature is disabled outright rather than open to everyone.
func (b *Bot) canBroadcast(userID int64) bool {
	return b.cfg.BroadcastEnabled() && userID == b.cfg.BroadcasterID
}

// broadcastTo iterates a snapshot of the member set, pacing sends and retrying
// each at most once on a rate limit. Unreachable users are pruned from the
// tracked set; any other failure is counted and skipped.
func (b *Bot) broadcastTo(ctx context.Context, users []int64, send func(context.Context, int64) error) BroadcastSummary {
	limiter := rate.NewLimiter(broadcastPace, 1)
	var summary BroadcastSummary

	for _, userID := range users {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		err := send(ctx, userID)
		if rl, ok := approval.AsRateLimited(err); ok {
			time.Sleep(rl.RetryAfter)
			err = send(ctx, userID)
		}

		switch {
		case err == nil:
			summary.Sent++
		case errors.Is(err, approval.ErrUnreachable):
			// blocked the bot or never started it; drop from the target list
			b.store.RemoveMember(userID)
			summary.Failed++
		default:
			b.log.Warn("broadcast_send_failed", "user_id", userID, "error", err)
			summary.Failed++
		}
	}

	summary.Remaining = b.store.MemberCount()
	return summary
}
