package audit

import (
	"context"
	"time"

	"strike-warden/internal/events"
	"strike-warden/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Logger struct {
	store     storage.Backend
	logger    *zap.Logger
	notify    func(context.Context, storage.AuditLog)
	publisher *events.Publisher
	now       func() time.Time
}

func NewLogger(store storage.Backend, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// SetNotifier registers a callback run for every entry, typically posting to
// the guild's log channel.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) SetPublisher(publisher *events.Publisher) {
	l.publisher = publisher
}

type auditEvent struct {
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id,omitempty"`
	Level     string `json:"level"`
	Event     string `json:"event"`
	Details   string `json:"details,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("persist audit log failed", zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.publisher.PublishLogged(events.SubjectAudit, auditEvent{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: entry.CreatedAt.UnixMilli(),
	})
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
