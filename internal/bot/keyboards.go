package bot

import (
	"fmt"
	"html"

	"join-warden/internal/approval"
	"join-warden/internal/config"
)

// CallbackStatusCheck is the callback-data tag on the status button.
const CallbackStatusCheck = "status_check"

func startText(userName string) string {
	return fmt.Sprintf(
		"👋 <b>Hello %s!</b>\n\n"+
			"I manage chat join requests and approve them instantly whenever I have "+
			"permission to. 🎯\n\n"+
			"Use the buttons below to explore.",
		html.EscapeString(userName),
	)
}

func welcomeText(cfg config.Config, userName, chatTitle string) string {
	return fmt.Sprintf(
		"⚜️ <b>APPROVED!</b> %s, welcome to <b>%s</b> 🚀\n\n"+
			"🎉 Your join request was accepted <b>instantly</b>!\n"+
			"👉 Join %s for updates.",
		html.EscapeString(userName),
		html.EscapeString(chatTitle),
		html.EscapeString(cfg.MandatoryChannel),
	)
}

func addToGroupLink(botUsername string) string {
	if botUsername == "" {
		return "https://t.me/your_bot_here?startgroup=true"
	}
	return "https://t.me/" + botUsername + "?startgroup=true"
}

func linkRows(cfg config.Config, botUsername string) [][]approval.Button {
	return [][]approval.Button{
		{
			{Label: "📣 Main Channel", URL: cfg.ChannelLink()},
			{Label: "➕ Add Me To A Group", URL: addToGroupLink(botUsername)},
		},
		{
			{Label: "📚 Rules", URL: cfg.RulesLink},
			{Label: "🛠️ Support", URL: cfg.SupportLink},
		},
	}
}

// WelcomeComposer builds the private welcome notification sent after a
// successful approval. Handed to the workflow at construction.
func WelcomeComposer(cfg config.Config, botUsername string) func(approval.JoinRequest) approval.Notification {
	return func(req approval.JoinRequest) approval.Notification {
		return approval.Notification{
			Text:    welcomeText(cfg, req.UserName, req.ChatTitle),
			Buttons: linkRows(cfg, botUsername),
		}
	}
}
