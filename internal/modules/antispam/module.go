package antispam

import (
	"context"
	"fmt"
	"time"

	"strike-warden/internal/config"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/utils"
)

// Module flags users posting more than the configured number of messages
// within the window.
type Module struct {
	windows *utils.WindowSet
	limit   int
	audit   *audit.Logger
	now     func() time.Time
}

func New(cfg config.AutomodConfig, auditLogger *audit.Logger) *Module {
	window := time.Duration(cfg.SpamWindowSeconds) * time.Second
	return &Module{
		windows: utils.NewWindowSet(window),
		limit:   cfg.SpamMessages,
		audit:   auditLogger,
		now:     time.Now,
	}
}

// HandleMessage records a message and reports whether it completes a burst.
// The user's window is cleared on a burst so one flood is punished once.
func (m *Module) HandleMessage(ctx context.Context, guildID, userID string) bool {
	if m.limit <= 0 {
		return false
	}
	window := m.windows.Get(guildID + ":" + userID)
	count := window.Add(m.now())
	if count < m.limit {
		return false
	}
	window.Reset()
	m.audit.Log(ctx, audit.LevelWarn, guildID, userID, "anti_spam", fmt.Sprintf("message burst detected (%d messages)", count))
	return true
}

// Sweep forgets idle users.
func (m *Module) Sweep() int {
	return m.windows.Sweep(m.now())
}
