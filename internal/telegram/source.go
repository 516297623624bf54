// Package telegram adapts the Bot API client to the approval.EventSource
// capability set. It is the only package that knows the provider's wire types
// and error strings.
package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"join-warden/internal/approval"
)

type Source struct {
	log *slog.Logger
	api *bot.Bot
	reg *registry
}

func NewSource(log *slog.Logger, api *bot.Bot) *Source {
	return &Source{
		log: log,
		api: api,
		reg: newRegistry(),
	}
}

// ObserveUpdate feeds the adapter's chat and pending-request registries from
// the live update stream. Call it before dispatching the update to handlers.
func (s *Source) ObserveUpdate(u *models.Update) {
	if u == nil {
		return
	}
	if u.Message != nil {
		s.reg.observeChat(chatInfo(u.Message.Chat))
	}
	if u.ChannelPost != nil {
		s.reg.observeChat(chatInfo(u.ChannelPost.Chat))
	}
	if u.MyChatMember != nil {
		s.reg.observeChat(chatInfo(u.MyChatMember.Chat))
	}
	if u.ChatJoinRequest != nil {
		s.reg.observeChat(chatInfo(u.ChatJoinRequest.Chat))
		s.reg.observeJoinRequest(JoinRequestFromUpdate(u.ChatJoinRequest))
	}
}

func (s *Source) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := s.api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	if cerr := ClassifyApprove(err); cerr != nil {
		return cerr
	}
	s.reg.resolveJoinRequest(chatID, userID)
	return nil
}

func (s *Source) SendDirectMessage(ctx context.Context, userID int64, n approval.Notification) error {
	params := &bot.SendMessageParams{
		ChatID:    userID,
		Text:      n.Text,
		ParseMode: models.ParseModeHTML,
	}
	if kb := keyboard(n.Buttons); kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := s.api.SendMessage(ctx, params)
	return ClassifySend(err)
}

func (s *Source) ListPendingRequests(ctx context.Context, chatID int64, limit int) ([]approval.JoinRequest, error) {
	return s.reg.pendingForChat(chatID, limit), nil
}

func (s *Source) ListKnownChats(ctx context.Context, limit int) ([]approval.ChatInfo, error) {
	return s.reg.knownChats(limit), nil
}

// JoinRequestFromUpdate converts the provider's join-request update into the
// workflow's shape.
func JoinRequestFromUpdate(jr *models.ChatJoinRequest) approval.JoinRequest {
	return approval.JoinRequest{
		ChatID:     jr.Chat.ID,
		UserID:     jr.From.ID,
		UserName:   DisplayName(&jr.From),
		ChatTitle:  jr.Chat.Title,
		ObservedAt: time.Now(),
	}
}

func DisplayName(u *models.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func chatInfo(c models.Chat) approval.ChatInfo {
	return approval.ChatInfo{
		ID:    c.ID,
		Kind:  approval.ChatKind(c.Type),
		Title: c.Title,
	}
}

func keyboard(rows [][]approval.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		out := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			out = append(out, models.InlineKeyboardButton{Text: b.Label, URL: b.URL})
		}
		kb = append(kb, out)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}
