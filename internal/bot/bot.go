// Package bot dispatches Telegram updates to the approval workflow and
// implements the thin command surface around it.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"join-warden/internal/approval"
	"join-warden/internal/config"
	"join-warden/internal/store"
	"join-warden/internal/telegram"
)

type Bot struct {
	log      *slog.Logger
	cfg      config.Config
	api      *tgbot.Bot
	store    *store.Store
	source   *telegram.Source
	workflow *approval.Workflow
	self     models.User
}

// New builds the client, resolves the bot's own identity synchronously so no
// update is handled before the username is known, and wires the workflow.
func New(ctx context.Context, log *slog.Logger, cfg config.Config, st *store.Store) (*Bot, error) {
	b := &Bot{
		log:   log,
		cfg:   cfg,
		store: st,
	}

	api, err := tgbot.New(cfg.BotToken, tgbot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("bot client: %w", err)
	}
	b.api = api

	me, err := api.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve bot identity: %w", err)
	}
	b.self = *me

	b.source = telegram.NewSource(log, api)
	b.workflow = approval.NewWorkflow(log, b.source, st, cfg.TargetChatID, WelcomeComposer(cfg, me.Username))

	log.Info("bot_identity_resolved", "id", me.ID, "username", me.Username)
	return b, nil
}

func (b *Bot) Source() *telegram.Source     { return b.source }
func (b *Bot) Workflow() *approval.Workflow { return b.workflow }
func (b *Bot) Self() models.User            { return b.self }

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.api.Start(ctx)
}

// NotifyOperator best-effort messages the configured broadcaster; used for the
// startup notice.
func (b *Bot) NotifyOperator(ctx context.Context, text string) {
	if !b.cfg.BroadcastEnabled() {
		return
	}
	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    b.cfg.BroadcasterID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		b.log.Debug("operator_notify_failed", "error", err)
	}
}

// handleUpdate is the single handler boundary: one failing update must never
// take down the run loop or block unrelated updates.
func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update_handler_panic", "update_id", update.ID, "panic", fmt.Sprint(r))
		}
	}()

	b.source.ObserveUpdate(update)

	switch {
	case update.ChatJoinRequest != nil:
		b.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleJoinRequest(ctx context.Context, jr *models.ChatJoinRequest) {
	req := telegram.JoinRequestFromUpdate(jr)
	outcome := b.workflow.Process(ctx, req)
	if outcome == approval.Ignored {
		b.log.Debug("join_request_filtered", "chat_id", req.ChatID, "user_id", req.UserID)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}

	switch command(msg, b.self.Username) {
	case "start":
		if msg.Chat.Type == models.ChatTypePrivate {
			b.handleStart(ctx, msg)
		}
	case "approve":
		if msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup {
			b.handleManualApprove(ctx, msg)
		}
	case "broadcast":
		if msg.Chat.Type == models.ChatTypePrivate {
			b.handleBroadcast(ctx, msg)
		}
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *models.Message) {
	b.store.AddMember(msg.From.ID)

	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        startText(telegram.DisplayName(msg.From)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: b.startKeyboard(),
	})
	if err != nil {
		b.log.Warn("start_reply_failed", "user_id", msg.From.ID, "error", err)
	}
}

// handleManualApprove lets a chat admin push a specific user through the same
// workflow as a live request: /approve <user-id>, or /approve as a reply.
func (b *Bot) handleManualApprove(ctx context.Context, msg *models.Message) {
	admin, err := b.isChatAdmin(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.log.Warn("admin_check_failed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
		return
	}
	if !admin {
		b.reply(ctx, msg.Chat.ID, "❌ Only chat admins can use /approve.")
		return
	}

	userID, userName, err := b.approveTarget(ctx, msg)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Usage: /approve <user-id>, or reply to the user's message with /approve.")
		return
	}

	req := approval.JoinRequest{
		ChatID:    msg.Chat.ID,
		UserID:    userID,
		UserName:  userName,
		ChatTitle: msg.Chat.Title,
	}
	outcome := b.workflow.ProcessManual(ctx, req, b.cfg.ManualApproveAnyChat)

	switch {
	case outcome.Accepted():
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Approved %s.", userName))
	case outcome == approval.Ignored:
		b.reply(ctx, msg.Chat.ID, "This chat is outside the configured approval target.")
	case outcome == approval.PermissionDenied:
		b.reply(ctx, msg.Chat.ID, "❌ I need the invite-management admin right in this chat.")
	default:
		b.reply(ctx, msg.Chat.ID, "⚠️ Could not approve right now; the periodic sweep will retry.")
	}
}

func (b *Bot) approveTarget(ctx context.Context, msg *models.Message) (int64, string, error) {
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From.ID, telegram.DisplayName(reply.From), nil
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("no target user")
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad user id %q", fields[1])
	}

	// name is cosmetic; fetch it if the membership lookup works, else fall back
	userName := fmt.Sprintf("user %d", userID)
	if member, err := b.api.GetChatMember(ctx, &tgbot.GetChatMemberParams{ChatID: msg.Chat.ID, UserID: userID}); err == nil {
		if u := memberUser(member); u != nil {
			userName = telegram.DisplayName(u)
		}
	}
	return userID, userName, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *models.CallbackQuery) {
	if cb.Data != CallbackStatusCheck {
		return
	}
	_, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            fmt.Sprintf("✅ Bot is running. Tracking %d users.", b.store.MemberCount()),
		ShowAlert:       true,
	})
	if err != nil {
		b.log.Debug("callback_answer_failed", "callback_id", cb.ID, "error", err)
	}
}

func (b *Bot) isChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := b.api.GetChatMember(ctx, &tgbot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return false, err
	}
	return member.Type == models.ChatMemberTypeOwner || member.Type == models.ChatMemberTypeAdministrator, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		b.log.Debug("reply_failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) startKeyboard() *models.InlineKeyboardMarkup {
	rows := linkRows(b.cfg, b.self.Username)
	kb := make([][]models.InlineKeyboardButton, 0, len(rows)+1)
	for _, row := range rows {
		out := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			out = append(out, models.InlineKeyboardButton{Text: btn.Label, URL: btn.URL})
		}
		kb = append(kb, out)
	}
	kb = append(kb, []models.InlineKeyboardButton{
		{Text: "👤 Status & User Count", CallbackData: CallbackStatusCheck},
	})
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// command extracts the bot command from a message, tolerating the
// /command@BotName form used in groups.
func command(msg *models.Message, selfUsername string) string {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		if !strings.EqualFold(cmd[at+1:], selfUsername) {
			return ""
		}
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

func memberUser(m *models.ChatMember) *models.User {
	if m == nil {
		return nil
	}
	switch {
	case m.Owner != nil:
		return m.Owner.User
	case m.Administrator != nil:
		return &m.Administrator.User
	case m.Member != nil:
		return m.Member.User
	case m.Restricted != nil:
		return m.Restricted.User
	case m.Left != nil:
		return m.Left.User
	case m.Banned != nil:
		return m.Banned.User
	default:
		return nil
	}
}
