package storage

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Backend persists guild settings, the audit trail and named datasets.
// Datasets are written as a whole; callers serialize their own
// read-modify-write cycles.
type Backend interface {
	Migrate(ctx context.Context) error
	Close()

	ReadDataset(ctx context.Context, name string) ([]byte, error)
	WriteDataset(ctx context.Context, name string, data []byte) error

	GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error)
	UpsertGuildSettings(ctx context.Context, settings GuildSettings) error

	AddAuditLog(ctx context.Context, log AuditLog) error
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error)
	CleanupAuditLogs(ctx context.Context, retentionDays int) error
}

type GuildSettings struct {
	GuildID          string
	LogChannel       string
	AdvertiseChannel string
	Mode             string
	RetentionDays    int
}

type AuditLog struct {
	ID        int64
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// Open picks the backend from the DSN: postgres:// and postgresql:// URLs use
// pgx, anything else is a SQLite path.
func Open(ctx context.Context, dsn string) (Backend, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgres(ctx, dsn)
	}
	return New(dsn)
}

// LoadDataset decodes the JSON records stored under name. A missing dataset
// yields an empty slice.
func LoadDataset[T any](ctx context.Context, backend Backend, name string) ([]T, error) {
	data, err := backend.ReadDataset(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", name, err)
	}
	return records, nil
}

// SaveDataset replaces the dataset stored under name with records.
func SaveDataset[T any](ctx context.Context, backend Backend, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}
	if err := backend.WriteDataset(ctx, name, data); err != nil {
		return fmt.Errorf("write dataset %s: %w", name, err)
	}
	return nil
}

func migrationFiles(dialect string) ([]string, error) {
	dir := path.Join("migrations", dialect)
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, path.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
