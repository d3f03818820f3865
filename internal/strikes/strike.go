package strikes

import (
	"encoding/json"
	"time"
)

type ContextKind string

const (
	ContextNote      ContextKind = "note"
	ContextModerator ContextKind = "moderator"
)

// Context says where a strike came from: a free-form note from automod, or
// the ID of the moderator who issued it.
type Context struct {
	Kind  ContextKind `json:"kind"`
	Value string      `json:"value"`
}

func Note(text string) Context {
	return Context{Kind: ContextNote, Value: text}
}

func ModeratorAction(userID string) Context {
	return Context{Kind: ContextModerator, Value: userID}
}

// Moderator returns the issuing moderator for moderator actions.
func (c Context) Moderator() (string, bool) {
	if c.Kind != ContextModerator {
		return "", false
	}
	return c.Value, true
}

// NoteText returns the note for automod strikes.
func (c Context) NoteText() string {
	if c.Kind != ContextNote {
		return ""
	}
	return c.Value
}

// Strike is one ledger record. Only Removed changes after creation.
type Strike struct {
	ID      string
	UserID  string
	Date    time.Time
	Count   float64
	Removed bool
	Reason  string
	Context Context
}

type strikeJSON struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user"`
	Date    int64   `json:"date"`
	Count   float64 `json:"count"`
	Removed bool    `json:"removed"`
	Reason  string  `json:"reason,omitempty"`
	Context Context `json:"context"`
}

func (s Strike) MarshalJSON() ([]byte, error) {
	return json.Marshal(strikeJSON{
		ID:      s.ID,
		UserID:  s.UserID,
		Date:    s.Date.UnixMilli(),
		Count:   s.Count,
		Removed: s.Removed,
		Reason:  s.Reason,
		Context: s.Context,
	})
}

func (s *Strike) UnmarshalJSON(data []byte) error {
	var raw strikeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Strike{
		ID:      raw.ID,
		UserID:  raw.UserID,
		Date:    time.UnixMilli(raw.Date),
		Count:   raw.Count,
		Removed: raw.Removed,
		Reason:  raw.Reason,
		Context: raw.Context,
	}
	return nil
}

// ExpiresAt is when the strike stops counting toward the user's total.
func (s Strike) ExpiresAt(expiry time.Duration) time.Time {
	return s.Date.Add(expiry)
}

// Total sums the weight of strikes.
func Total(strikes []Strike) float64 {
	var total float64
	for _, strike := range strikes {
		total += strike.Count
	}
	return total
}
