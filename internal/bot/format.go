package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"strike-warden/internal/analytics"
	"strike-warden/internal/badwords"
	"strike-warden/internal/punish"
	"strike-warden/internal/strikes"
	"strike-warden/internal/utils"
)

const (
	buttonRemove  = "_removeStrike"
	buttonRestore = "_addStrikeBack"
	buttonAppeal  = "_appealStrike"
)

// parseButton splits a "<strike id><suffix>" custom ID.
func parseButton(customID string) (strikeID, action string, ok bool) {
	for _, suffix := range []string{buttonRemove, buttonRestore, buttonAppeal} {
		if id, found := strings.CutSuffix(customID, suffix); found && id != "" {
			return id, suffix, true
		}
	}
	return "", "", false
}

func formatCount(count float64) string {
	return strconv.FormatFloat(count, 'f', -1, 64)
}

// formatStrikeList renders a user's active strikes, newest first.
func formatStrikeList(active []strikes.Strike, state punish.State, expiry time.Duration) string {
	if len(active) == 0 {
		return "No active strikes."
	}
	lines := make([]string, 0, len(active)+1)
	for i := len(active) - 1; i >= 0; i-- {
		strike := active[i]
		lines = append(lines, fmt.Sprintf("`%s` %s (%s) • expires <t:%d:R>",
			strike.ID, utils.Truncate(strike.Reason, 60), formatCount(strike.Count), strike.ExpiresAt(expiry).Unix()))
	}
	lines = append(lines, fmt.Sprintf("**Total:** %s • %s", formatCount(strikes.Total(active)), state))
	return strings.Join(lines, "\n")
}

func formatStrike(strike strikes.Strike, expiry time.Duration, moderator bool) string {
	lines := []string{
		fmt.Sprintf("**User:** <@%s>", strike.UserID),
		fmt.Sprintf("**Count:** %s", formatCount(strike.Count)),
		fmt.Sprintf("**Reason:** %s", strike.Reason),
		fmt.Sprintf("**Date:** <t:%d:F>", strike.Date.Unix()),
	}
	if strike.Removed {
		lines = append(lines, "**Status:** removed")
	} else {
		lines = append(lines, fmt.Sprintf("**Expires:** <t:%d:R>", strike.ExpiresAt(expiry).Unix()))
	}
	if moderator {
		if id, ok := strike.Context.Moderator(); ok {
			lines = append(lines, fmt.Sprintf("**Moderator:** <@%s>", id))
		} else if note := strike.Context.NoteText(); note != "" {
			lines = append(lines, ">>> "+note)
		}
	}
	return strings.Join(lines, "\n")
}

func formatCheckText(result badwords.Result, bad bool) string {
	if !bad {
		return "No bad words found."
	}
	return fmt.Sprintf("**%s** (%s strikes)\n%s", strings.Join(result.Flat(), ", "), formatCount(result.Strikes), result.Censored)
}

func formatReport(report analytics.Report) string {
	lines := []string{fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d",
		report.Total, report.ByLevel["INFO"], report.ByLevel["WARN"], report.ByLevel["CRIT"])}
	lines = append(lines, fmt.Sprintf("Strikes: %d | Removed: %d | Failed actions: %d",
		report.ByEvent["strike_issued"], report.ByEvent["strike_removed"], report.ByEvent["action_failed"]))
	for i, user := range report.TopUsers {
		lines = append(lines, fmt.Sprintf("%d. <@%s> (%d)", i+1, user.UserID, user.Count))
	}
	return strings.Join(lines, "\n")
}
