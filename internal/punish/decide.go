package punish

import (
	"fmt"
	"math"
	"time"

	"strike-warden/internal/config"
)

// Config holds the escalation thresholds.
type Config struct {
	StrikesPerMute int
	// MuteLengths is the timeout added on reaching each mute tier, in MuteUnit.
	MuteLengths []int
	MuteUnit    time.Duration
	Expiry      time.Duration
	// Production disables the protected-member ban exemption.
	Production bool
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		StrikesPerMute: cfg.Strikes.StrikesPerMute,
		MuteLengths:    cfg.Strikes.MuteLengths,
		MuteUnit:       cfg.MuteUnit(),
		Expiry:         cfg.StrikeExpiry(),
		Production:     cfg.Production(),
	}
}

// Partial is the smallest strike that can be issued.
func (c Config) Partial() float64 {
	return 1 / float64(c.StrikesPerMute+1)
}

// BanThreshold is the weight a user must exceed to be banned.
func (c Config) BanThreshold() float64 {
	return float64(len(c.MuteLengths)*c.StrikesPerMute + 1)
}

func (c Config) muteTier(weight float64) int {
	return int(math.Floor(weight / float64(c.StrikesPerMute)))
}

// muteLength sums the lengths of tiers 1..tier, ignoring tiers past the list.
func (c Config) muteLength(tier int) int {
	total := 0
	for i, length := range c.MuteLengths {
		if i >= tier {
			break
		}
		total += length
	}
	return total
}

type StateKind int

const (
	Clean StateKind = iota
	Warned
	Muted
	LastChance
	Banned
)

// State is the escalation level derived from a weight. Tier is set for Muted.
type State struct {
	Kind StateKind
	Tier int
}

func (s State) String() string {
	switch s.Kind {
	case Clean:
		return "Clean"
	case Warned:
		return "Warned"
	case Muted:
		return fmt.Sprintf("Muted(%d)", s.Tier)
	case LastChance:
		return "LastChance"
	default:
		return "Banned"
	}
}

// StateFor classifies a cumulative active weight.
func StateFor(weight float64, cfg Config) State {
	final := float64(len(cfg.MuteLengths) * cfg.StrikesPerMute)
	switch {
	case weight <= 0:
		return State{Kind: Clean}
	case weight > cfg.BanThreshold():
		return State{Kind: Banned}
	case weight > final:
		return State{Kind: LastChance}
	}
	if tier := cfg.muteTier(weight); tier > 0 {
		return State{Kind: Muted, Tier: tier}
	}
	return State{Kind: Warned}
}

// Decision is the outcome of adding a strike to a user's active weight.
type Decision struct {
	OldWeight float64
	// Added is the issued weight after rounding.
	Added     float64
	NewWeight float64
	// MuteLength is the timeout to apply, in MuteUnit. Zero when banning.
	MuteLength int
	Ban        bool
	LastChance bool
	// DisplayStrikes is the whole number of strikes shown to the user; fractional
	// strikes only show once they add up to one.
	DisplayStrikes int
	State          State
}

// Decide computes the escalation for adding weight to oldWeight. It has no
// side effects.
func Decide(oldWeight, weight float64, cfg Config) Decision {
	added := math.Max(math.Round(weight*4)/4, cfg.Partial())
	newWeight := oldWeight + added

	_, oldFrac := math.Modf(oldWeight)
	_, addedFrac := math.Modf(added)
	verbal := int(math.Floor(oldFrac + addedFrac))

	d := Decision{
		OldWeight:      oldWeight,
		Added:          added,
		NewWeight:      newWeight,
		DisplayStrikes: int(math.Trunc(added)) + verbal,
		State:          StateFor(newWeight, cfg),
	}

	if newWeight > cfg.BanThreshold() {
		d.Ban = true
		return d
	}

	d.MuteLength = cfg.muteLength(cfg.muteTier(newWeight)) - cfg.muteLength(cfg.muteTier(oldWeight))
	if d.MuteLength < 0 {
		d.MuteLength = 0
	}
	d.LastChance = newWeight > float64(len(cfg.MuteLengths)*cfg.StrikesPerMute)
	return d
}
