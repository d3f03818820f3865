package punish

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"strike-warden/internal/events"
	"strike-warden/internal/metrics"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/strikes"
	"strike-warden/internal/utils"

	"go.uber.org/zap"
)

// Discord rejects timeouts longer than 28 days.
const maxTimeout = 28 * 24 * time.Hour

// Subject is the user being punished.
type Subject struct {
	UserID  string
	GuildID string
	// Booster and HasRoles mark members exempt from bans outside production.
	Booster  bool
	HasRoles bool
}

// StrikeLog is the record posted to the strike log channel. The posted
// message's ID becomes the strike ID.
type StrikeLog struct {
	GuildID        string
	UserID         string
	ModeratorID    string
	DisplayStrikes int
	Reason         string
	Details        string
}

// Notice is a direct message to the punished user.
type Notice struct {
	Title       string
	Description string
	Footer      string
	// AppealStrikeID adds an appeal button for that strike when set.
	AppealStrikeID string
}

// Gateway performs platform actions. Errors from Timeout and Ban are treated
// as missing permissions; SendDM errors are ignored.
type Gateway interface {
	LogStrike(ctx context.Context, entry StrikeLog) (messageID string, err error)
	SendDM(ctx context.Context, userID string, notice Notice) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Engine struct {
	cfg       Config
	ledger    *strikes.Ledger
	gateway   Gateway
	audit     *audit.Logger
	publisher *events.Publisher
	logger    *zap.Logger
	clock     Clock

	mu sync.RWMutex
	// botID is recorded as the moderator of automod strikes.
	botID     string
	guildName string
}

func NewEngine(cfg Config, ledger *strikes.Ledger, gateway Gateway, auditLogger *audit.Logger, publisher *events.Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		ledger:    ledger,
		gateway:   gateway,
		audit:     auditLogger,
		publisher: publisher,
		logger:    logger,
		clock:     realClock{},
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// SetIdentity records the bot's user ID and the guild name shown in DMs.
// It is called again on every gateway reconnect.
func (e *Engine) SetIdentity(botID, guildName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.botID = botID
	if guildName != "" {
		e.guildName = guildName
	}
}

func (e *Engine) identity() (botID, guildName string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.botID, e.guildName
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Outcome is what Warn did.
type Outcome struct {
	Strike   strikes.Strike
	Decision Decision
}

type strikeEvent struct {
	ID         string  `json:"id"`
	GuildID    string  `json:"guild_id"`
	UserID     string  `json:"user_id"`
	Count      float64 `json:"count"`
	Total      float64 `json:"total"`
	State      string  `json:"state"`
	Reason     string  `json:"reason"`
	MuteLength int     `json:"mute_length,omitempty"`
	Banned     bool    `json:"banned,omitempty"`
	Date       int64   `json:"date"`
}

// Warn issues a strike of the given weight and applies any escalation. Only
// the read of active strikes, the decision, the strike log and the append
// happen under the user's ledger lock; DMs, mutes and bans run after it is
// released. Failing to log or persist the strike is returned; failing to
// mute, ban or DM is not.
func (e *Engine) Warn(ctx context.Context, subject Subject, reason string, weight float64, sctx strikes.Context) (Outcome, error) {
	now := e.clock.Now()
	botID, _ := e.identity()
	var outcome Outcome
	var deadline time.Time

	err := e.ledger.Update(ctx, subject.UserID, now, func(active []strikes.Strike) error {
		decision := Decide(strikes.Total(active), weight, e.cfg)

		moderator := botID
		if id, ok := sctx.Moderator(); ok {
			moderator = id
		}
		messageID, err := e.gateway.LogStrike(ctx, StrikeLog{
			GuildID:        subject.GuildID,
			UserID:         subject.UserID,
			ModeratorID:    moderator,
			DisplayStrikes: decision.DisplayStrikes,
			Reason:         reason,
			Details:        strikeDetails(sctx, decision),
		})
		if err != nil {
			return fmt.Errorf("log strike: %w", err)
		}
		id, err := utils.ConvertBase(messageID, 10, utils.MaxBase)
		if err != nil {
			return fmt.Errorf("encode strike id: %w", err)
		}

		strike := strikes.Strike{
			ID:      id,
			UserID:  subject.UserID,
			Date:    now,
			Count:   decision.Added,
			Reason:  reason,
			Context: sctx,
		}
		if err := e.ledger.Append(ctx, strike); err != nil {
			return fmt.Errorf("append strike: %w", err)
		}
		outcome = Outcome{Strike: strike, Decision: decision}
		deadline = lastChanceDeadline(active, now, e.cfg.Expiry)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	decision := outcome.Decision
	_ = e.gateway.SendDM(ctx, subject.UserID, e.strikeNotice(outcome.Strike, decision))
	e.apply(ctx, subject, decision, deadline, now)

	source := "automod"
	if _, ok := sctx.Moderator(); ok {
		source = "moderator"
	}
	metrics.StrikesTotal.WithLabelValues(source).Inc()
	metrics.StrikeWeight.Add(decision.Added)
	e.audit.Log(ctx, audit.LevelInfo, subject.GuildID, subject.UserID, "strike_issued",
		fmt.Sprintf("strike %s: %s (+%g, total %g, %s)", outcome.Strike.ID, reason, decision.Added, decision.NewWeight, decision.State))
	e.publisher.PublishLogged(events.SubjectStrike, strikeEvent{
		ID:         outcome.Strike.ID,
		GuildID:    subject.GuildID,
		UserID:     subject.UserID,
		Count:      decision.Added,
		Total:      decision.NewWeight,
		State:      decision.State.String(),
		Reason:     reason,
		MuteLength: decision.MuteLength,
		Banned:     decision.Ban,
		Date:       now.UnixMilli(),
	})
	return outcome, nil
}

// lastChanceDeadline is when the oldest active strike expires; another
// strike before then means a ban.
func lastChanceDeadline(active []strikes.Strike, now time.Time, expiry time.Duration) time.Time {
	if len(active) == 0 {
		return now.Add(expiry)
	}
	return active[0].ExpiresAt(expiry)
}

func (e *Engine) apply(ctx context.Context, subject Subject, decision Decision, deadline, now time.Time) {
	if decision.Ban {
		if !e.cfg.Production && (subject.Booster || subject.HasRoles) {
			e.alert(ctx, subject, "ban", "not banning a protected member outside production")
			return
		}
		if err := e.gateway.Ban(ctx, subject.GuildID, subject.UserID, "Too many strikes"); err != nil {
			e.alert(ctx, subject, "ban", fmt.Sprintf("missing permissions to ban <@%s>: %v", subject.UserID, err))
			return
		}
		metrics.BansTotal.Inc()
		e.logger.Info("member banned", zap.String("guild_id", subject.GuildID), zap.String("user_id", subject.UserID))
		return
	}

	if decision.MuteLength > 0 {
		length := time.Duration(decision.MuteLength) * e.cfg.MuteUnit
		if length > maxTimeout {
			length = maxTimeout
		}
		if err := e.gateway.Timeout(ctx, subject.GuildID, subject.UserID, now.Add(length), "Too many strikes"); err != nil {
			e.alert(ctx, subject, "timeout", fmt.Sprintf("missing permissions to mute <@%s> for %s: %v", subject.UserID, length, err))
		} else {
			metrics.MutesTotal.Inc()
			e.logger.Info("member muted", zap.String("user_id", subject.UserID), zap.Duration("length", length))
		}
	}

	if decision.LastChance {
		_ = e.gateway.SendDM(ctx, subject.UserID, Notice{
			Title: "This is your last chance",
			Description: fmt.Sprintf("If you get another strike before <t:%d:D>, you will be banned.",
				deadline.Unix()),
		})
	}
}

func (e *Engine) alert(ctx context.Context, subject Subject, action, details string) {
	metrics.ActionFailures.WithLabelValues(action).Inc()
	e.audit.Log(ctx, audit.LevelWarn, subject.GuildID, subject.UserID, "action_failed", details)
}

func (e *Engine) strikeNotice(strike strikes.Strike, decision Decision) Notice {
	_, guild := e.identity()
	if guild == "" {
		guild = "the server"
	}
	title := "You were verbally warned in " + guild + "!"
	switch {
	case decision.DisplayStrikes == 1:
		title = "You were warned in " + guild + "!"
	case decision.DisplayStrikes > 1:
		title = fmt.Sprintf("You were warned %d times in %s!", decision.DisplayStrikes, guild)
	}

	footer := "Strike " + strike.ID
	if decision.DisplayStrikes > 0 {
		footer += " • Expiring in " + humanDuration(e.cfg.Expiry)
	}
	description := strike.Reason
	if note := strike.Context.NoteText(); note != "" {
		description += "\n>>> " + note
	}
	return Notice{Title: title, Description: description, Footer: footer, AppealStrikeID: strike.ID}
}

func strikeDetails(sctx strikes.Context, decision Decision) string {
	var parts []string
	if note := sctx.NoteText(); note != "" {
		parts = append(parts, note)
	}
	if decision.DisplayStrikes == 0 {
		parts = append(parts, "Verbal warning")
	}
	return strings.Join(parts, "\n\n")
}

func humanDuration(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0:
		return pluralize(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return pluralize(int(d/time.Hour), "hour")
	default:
		return pluralize(int(d/time.Minute), "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Remove soft-deletes a strike on a moderator's behalf.
func (e *Engine) Remove(ctx context.Context, guildID, strikeID, moderatorID string) (strikes.Strike, bool, error) {
	strike, changed, err := e.ledger.MarkRemoved(ctx, strikeID)
	if err != nil {
		return strikes.Strike{}, false, err
	}
	if changed {
		e.audit.Log(ctx, audit.LevelInfo, guildID, strike.UserID, "strike_removed",
			fmt.Sprintf("strike %s removed by <@%s>", strikeID, moderatorID))
	}
	return strike, changed, nil
}

// Restore re-activates a removed strike.
func (e *Engine) Restore(ctx context.Context, guildID, strikeID, moderatorID string) (strikes.Strike, bool, error) {
	strike, changed, err := e.ledger.MarkRestored(ctx, strikeID)
	if err != nil {
		return strikes.Strike{}, false, err
	}
	if changed {
		e.audit.Log(ctx, audit.LevelInfo, guildID, strike.UserID, "strike_restored",
			fmt.Sprintf("strike %s restored by <@%s>", strikeID, moderatorID))
	}
	return strike, changed, nil
}

// Status reports a user's active strikes and the state they add up to.
func (e *Engine) Status(ctx context.Context, userID string) ([]strikes.Strike, State, error) {
	active, err := e.ledger.Active(ctx, userID, e.clock.Now())
	if err != nil {
		return nil, State{}, err
	}
	return active, StateFor(strikes.Total(active), e.cfg), nil
}

// Ledger exposes the strike ledger for lookups.
func (e *Engine) Ledger() *strikes.Ledger {
	return e.ledger
}
