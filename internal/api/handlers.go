package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allChatsSentinel is what the status page shows when no target-chat
// restriction is configured.
const allChatsSentinel = "ALL"

func (s *Server) status(c *gin.Context) {
	var target any = allChatsSentinel
	if s.cfg.TargetChatID != 0 {
		target = s.cfg.TargetChatID
	}

	sweepActive := false
	var sweepCycles int64
	if s.sweep != nil {
		sweepActive = s.sweep.Active()
		sweepCycles = s.sweep.Cycles()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":               "running",
		"auto_approve_chat_id": target,
		"users_tracked":        s.store.MemberCount(),
		"pending_tracked":      s.store.PendingCount(),
		"sweep_active":         sweepActive,
		"sweep_cycles":         sweepCycles,
	})
}
