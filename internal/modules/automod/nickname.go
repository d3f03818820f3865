package automod

import (
	"context"
	"fmt"

	"strike-warden/internal/modules/audit"
)

// MemberName identifies a member and the names they display.
type MemberName struct {
	GuildID  string
	UserID   string
	Username string
	// Nickname is the guild nickname, empty when the member has none.
	Nickname string
}

func (n MemberName) display() string {
	if n.Nickname != "" {
		return n.Nickname
	}
	return n.Username
}

// HandleMember renames members whose display name cannot be pinged or
// contains banned words. It returns the nickname it set, if any.
func (m *Module) HandleMember(ctx context.Context, member MemberName, auditOnly bool) (string, error) {
	if !m.cfg.NicknamesEnabled {
		return "", nil
	}
	display := member.display()
	if !m.matcher.NeedsRename(display) {
		return "", nil
	}

	replacement := m.matcher.SanitizeName(display, "")
	if replacement == "" && member.Nickname != "" && !m.matcher.NeedsRename(member.Username) {
		replacement = member.Username
	}
	if replacement == "" {
		replacement = m.matcher.SanitizeName(member.Username, fallbackName(member.UserID))
	}
	if replacement == display {
		return "", nil
	}

	details := fmt.Sprintf("%q -> %q", display, replacement)
	if auditOnly {
		m.audit.Log(ctx, audit.LevelWarn, member.GuildID, member.UserID, "nickname_flagged", details)
		return "", nil
	}
	// Setting the nickname to the username clears it.
	nickname := replacement
	if replacement == member.Username {
		nickname = ""
	}
	if err := m.platform.SetNickname(ctx, member.GuildID, member.UserID, nickname); err != nil {
		m.audit.Log(ctx, audit.LevelWarn, member.GuildID, member.UserID, "action_failed", "unable to rename "+details+": "+err.Error())
		return "", err
	}
	m.audit.Log(ctx, audit.LevelInfo, member.GuildID, member.UserID, "nickname_changed", details)
	return replacement, nil
}

func fallbackName(userID string) string {
	if len(userID) > 4 {
		userID = userID[len(userID)-4:]
	}
	return "user" + userID
}
