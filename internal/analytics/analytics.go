package analytics

import (
	"context"
	"sort"
	"time"

	"strike-warden/internal/storage"
)

type Service struct {
	store storage.Backend
}

func New(store storage.Backend) *Service {
	return &Service{store: store}
}

type Report struct {
	Since   time.Time
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
	// TopUsers lists the users with the most strikes issued, most first.
	TopUsers []UserCount
}

type UserCount struct {
	UserID string
	Count  int
}

// Report aggregates the guild's audit log since the given time.
func (s *Service) Report(ctx context.Context, guildID string, since time.Time, top int) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: since, ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	strikes := make(map[string]int)
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
		if log.Event == "strike_issued" && log.UserID != "" {
			strikes[log.UserID]++
		}
	}

	for userID, count := range strikes {
		report.TopUsers = append(report.TopUsers, UserCount{UserID: userID, Count: count})
	}
	sort.Slice(report.TopUsers, func(i, j int) bool {
		a, b := report.TopUsers[i], report.TopUsers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.UserID < b.UserID
	})
	if top > 0 && len(report.TopUsers) > top {
		report.TopUsers = report.TopUsers[:top]
	}
	return report, nil
}

// ParsePeriod maps a report period name to its length.
func ParsePeriod(period string) time.Duration {
	switch period {
	case "day":
		return 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}
