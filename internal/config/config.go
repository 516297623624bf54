package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// BotToken is the only credential; the Bot API authenticates by token alone.
	// never log this raw
	BotToken string

	// TargetChatID restricts auto-approval to a single chat. 0 means all chats.
	TargetChatID int64

	// BroadcasterID is the only identity allowed to /broadcast. 0 disables the
	// feature entirely.
	BroadcasterID int64

	// ManualApproveAnyChat lets admin /approve bypass the target-chat restriction.
	ManualApproveAnyChat bool

	MandatoryChannel string
	RulesLink        string
	SupportLink      string

	HTTPAddr string
	LogLevel string

	SweepInterval time.Duration
}

// Load reads configuration from the environment, honoring a .env file when one
// is present. Any malformed value is a startup error; main exits non-zero on it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		MandatoryChannel: getenvDefault("MANDATORY_CHANNEL", "@your_channel"),
		RulesLink:        getenvDefault("RULES_LINK", "https://t.me/example_rules"),
		SupportLink:      getenvDefault("SUPPORT_LINK", "https://t.me/example_support"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ""),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
	}

	if strings.TrimSpace(cfg.BotToken) == "" {
		return Config{}, errors.New("missing BOT_TOKEN")
	}

	var err error
	if cfg.TargetChatID, err = optionalInt64("CHANNEL_ID"); err != nil {
		return Config{}, err
	}
	if cfg.BroadcasterID, err = optionalInt64("DEVELOPER_ID"); err != nil {
		return Config{}, err
	}

	// legacy PORT fallback for hosting platforms that only inject a port number
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":" + getenvDefault("PORT", "8080")
	}

	if v := strings.TrimSpace(os.Getenv("MANUAL_APPROVE_ANY_CHAT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("MANUAL_APPROVE_ANY_CHAT must be a boolean, got %q", v)
		}
		cfg.ManualApproveAnyChat = b
	}

	cfg.SweepInterval = 300 * time.Second
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_SECONDS")); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be a positive integer, got %q", v)
		}
		cfg.SweepInterval = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// BroadcastEnabled reports whether a broadcaster identity was configured.
// Absence disables the feature rather than defaulting to "everyone".
func (c Config) BroadcastEnabled() bool { return c.BroadcasterID != 0 }

func (c Config) ChannelLink() string {
	return "https://t.me/" + strings.TrimPrefix(c.MandatoryChannel, "@")
}

func optionalInt64(key string) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer chat/user id, got %q", key, v)
	}
	return n, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
