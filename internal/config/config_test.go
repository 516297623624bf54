package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so ambient environment cannot
// leak into a subtest.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "CHANNEL_ID", "DEVELOPER_ID", "MANDATORY_CHANNEL",
		"RULES_LINK", "SUPPORT_LINK", "HTTP_ADDR", "PORT", "LOG_LEVEL",
		"MANUAL_APPROVE_ANY_CHAT", "SWEEP_INTERVAL_SECONDS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Errorf("Load() error = %v, want missing BOT_TOKEN", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.SweepInterval != 300*time.Second {
		t.Errorf("SweepInterval = %v, want 300s", cfg.SweepInterval)
	}
	if cfg.TargetChatID != 0 {
		t.Errorf("TargetChatID = %d, want 0 (all chats)", cfg.TargetChatID)
	}
	if cfg.BroadcastEnabled() {
		t.Error("broadcast enabled without DEVELOPER_ID")
	}
	if cfg.ChannelLink() != "https://t.me/your_channel" {
		t.Errorf("ChannelLink = %q", cfg.ChannelLink())
	}
}

func TestLoadMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"channel id not numeric", "CHANNEL_ID", "not-a-chat"},
		{"developer id not numeric", "DEVELOPER_ID", "12x"},
		{"manual approve not boolean", "MANUAL_APPROVE_ANY_CHAT", "maybe"},
		{"sweep interval not numeric", "SWEEP_INTERVAL_SECONDS", "soon"},
		{"sweep interval not positive", "SWEEP_INTERVAL_SECONDS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BOT_TOKEN", "123:abc")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadParsesOptionalValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHANNEL_ID", "-1001234567890")
	t.Setenv("DEVELOPER_ID", "777")
	t.Setenv("MANUAL_APPROVE_ANY_CHAT", "true")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "60")
	t.Setenv("MANDATORY_CHANNEL", "@mychan")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetChatID != -1001234567890 {
		t.Errorf("TargetChatID = %d", cfg.TargetChatID)
	}
	if cfg.BroadcasterID != 777 || !cfg.BroadcastEnabled() {
		t.Errorf("BroadcasterID = %d, enabled = %v", cfg.BroadcasterID, cfg.BroadcastEnabled())
	}
	if !cfg.ManualApproveAnyChat {
		t.Error("ManualApproveAnyChat = false, want true")
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
	if cfg.ChannelLink() != "https://t.me/mychan" {
		t.Errorf("ChannelLink = %q", cfg.ChannelLink())
	}
}

func TestLoadPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want :9000", cfg.HTTPAddr)
	}

	t.Setenv("HTTP_ADDR", "127.0.0.1:7777")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7777" {
		t.Errorf("HTTPAddr = %q, HTTP_ADDR must win over PORT", cfg.HTTPAddr)
	}
}
