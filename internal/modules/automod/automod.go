package automod

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"strike-warden/internal/badwords"
	"strike-warden/internal/config"
	"strike-warden/internal/modules/antispam"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/punish"
	"strike-warden/internal/strikes"
	"strike-warden/internal/utils"

	"go.uber.org/zap"
)

const noticePrefix = "⛔"

var animatedEmojiRegex = regexp.MustCompile(`<a:\w{2,32}:\d{17,20}>`)

// Message is the part of a chat message automod inspects.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	AuthorBot bool
	// InteractionUserID is the user who ran the command a bot message answers.
	InteractionUserID string
	Content           string
	Stickers          []string
	Embeds            []Embed
	Mentions          []string
	// System marks join messages, boosts and other non-user messages.
	System bool
	Member *Member
}

// Member is the author's guild membership. Nil for webhooks and DMs.
type Member struct {
	Roles   []string
	Booster bool
}

// Embed holds the text fields of an embed.
type Embed struct {
	Title       string
	Description string
	Footer      string
	Author      string
	Fields      []string
}

func (e Embed) texts() []string {
	return append([]string{e.Description, e.Title, e.Footer, e.Author}, e.Fields...)
}

// Channel describes where a message was sent.
type Channel struct {
	badwords.ChannelInfo
	// Name is the base channel's name.
	Name string
	// EveryoneCanSend is true when regular members can post in the base channel.
	EveryoneCanSend bool
}

// Invite is a resolved server invite. GuildID is empty for invalid invites.
type Invite struct {
	Code      string
	GuildID   string
	GuildName string
}

// Platform performs the Discord reads and writes automod needs.
type Platform interface {
	Channel(ctx context.Context, channelID string) (Channel, error)
	ResolveInvite(ctx context.Context, code string) (Invite, error)
	Reply(ctx context.Context, channelID, messageID, content string) (noticeID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SuppressEmbeds(ctx context.Context, channelID, messageID string) error
	SetNickname(ctx context.Context, guildID, userID, nickname string) error
}

// Warner issues strikes.
type Warner interface {
	Warn(ctx context.Context, subject punish.Subject, reason string, weight float64, sctx strikes.Context) (punish.Outcome, error)
}

type Module struct {
	cfg       config.AutomodConfig
	shift     int
	noticeTTL time.Duration
	partial   float64
	matcher   *badwords.Matcher
	policy    badwords.ChannelPolicy
	whitelist map[string]struct{}
	platform  Platform
	warner    Warner
	spam      *antispam.Module
	audit     *audit.Logger
	logger    *zap.Logger
	clock     Clock
}

func New(cfg config.Config, matcher *badwords.Matcher, platform Platform, warner Warner, spam *antispam.Module, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	whitelist := make(map[string]struct{}, len(cfg.Automod.WhitelistedGuilds)+1)
	for _, id := range cfg.Automod.WhitelistedGuilds {
		whitelist[id] = struct{}{}
	}
	if cfg.GuildID != "" {
		whitelist[cfg.GuildID] = struct{}{}
	}
	return &Module{
		cfg:       cfg.Automod,
		shift:     cfg.Strikes.EmbedStrikeShift,
		noticeTTL: time.Duration(cfg.Strikes.PublicWarningSeconds) * time.Second,
		partial:   1 / float64(cfg.Strikes.StrikesPerMute+1),
		matcher:   matcher,
		policy:    badwords.NewChannelPolicy(cfg.Automod.ExemptChannels, cfg.Automod.ExemptCategories, cfg.Automod.TicketChannel),
		whitelist: whitelist,
		platform:  platform,
		warner:    warner,
		spam:      spam,
		audit:     auditLogger,
		logger:    logger,
		clock:     realClock{},
	}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// violation is one reason a message is punished.
type violation struct {
	reason  string
	weight  float64
	details string
	notice  string
	// subject overrides the author, for bot replies to commands.
	subject string
}

// verdict collects what automod decided about a message.
type verdict struct {
	violations  []violation
	needsDelete bool
	// embedOnly is set when only embeds contained banned words on a user message.
	embedOnly bool
}

func (v *verdict) add(found violation, deletes bool) {
	v.violations = append(v.violations, found)
	if deletes {
		v.needsDelete = true
	}
}

// HandleMessage runs every check on a message. It returns false when the
// message was deleted. In audit-only mode violations are recorded without
// strikes, notices or deletions.
func (m *Module) HandleMessage(ctx context.Context, msg Message, auditOnly bool) (bool, error) {
	channel, err := m.platform.Channel(ctx, msg.ChannelID)
	if err != nil {
		return true, fmt.Errorf("fetch channel: %w", err)
	}

	var v verdict
	m.checkEmojis(msg, channel, &v)
	if m.policy.BadWordsAllowed(channel.ChannelInfo) {
		if !v.needsDelete {
			return true, nil
		}
		return m.enforce(ctx, msg, v, auditOnly)
	}

	invites := m.resolveInvites(ctx, msg.Content)
	if m.cfg.AdvertiseChannel != "" && channel.Kind != badwords.ChannelDM && channel.EveryoneCanSend && m.baseID(channel) != m.cfg.AdvertiseChannel {
		m.checkInvites(msg, invites, &v)
		m.checkLinks(msg, channel, &v)
	}
	m.checkLanguage(msg, invites, &v)
	m.checkSpam(ctx, msg, &v)

	if len(v.violations) == 0 {
		return true, nil
	}
	return m.enforce(ctx, msg, v, auditOnly)
}

func (m *Module) baseID(channel Channel) string {
	if channel.Kind == badwords.ChannelPublicThread || channel.Kind == badwords.ChannelPrivateThread {
		return channel.ParentID
	}
	return channel.ID
}

func (m *Module) checkEmojis(msg Message, channel Channel, v *verdict) {
	if m.cfg.BotsChannel != "" && m.baseID(channel) == m.cfg.BotsChannel {
		return
	}
	emojis := animatedEmojiRegex.FindAllString(msg.Content, -1)
	if len(emojis) <= 15 {
		return
	}
	v.add(violation{
		reason:  fmt.Sprintf("%d animated emojis", len(emojis)),
		weight:  float64((len(emojis)-16)/10) * m.partial,
		details: strings.Join(emojis, ""),
		notice:  "Please don’t post that many animated emojis!",
	}, true)
}

func (m *Module) resolveInvites(ctx context.Context, content string) []Invite {
	codes := utils.ExtractInviteCodes(content)
	invites := make([]Invite, 0, len(codes))
	for _, code := range codes {
		invite, err := m.platform.ResolveInvite(ctx, code)
		if err != nil {
			invite = Invite{Code: code}
		}
		invite.Code = code
		invites = append(invites, invite)
	}
	return invites
}

func (m *Module) checkInvites(msg Message, invites []Invite, v *verdict) {
	var bad []string
	for _, invite := range invites {
		if invite.GuildID == "" {
			continue
		}
		if _, ok := m.whitelist[invite.GuildID]; ok {
			continue
		}
		bad = append(bad, "discord.gg/"+invite.Code)
	}
	if len(bad) > 0 {
		v.add(violation{
			reason:  fmt.Sprintf("Server invite in <#%s>", msg.ChannelID),
			weight:  float64(len(bad)),
			details: strings.Join(bad, "\n"),
			notice:  fmt.Sprintf("Please keep server invites in <#%s>!", m.cfg.AdvertiseChannel),
		}, true)
	}

	if msg.AuthorBot {
		return
	}
	if bots := utils.ExtractBotInvites(msg.Content); len(bots) > 0 {
		v.add(violation{
			reason:  fmt.Sprintf("Bot invite in <#%s>", msg.ChannelID),
			weight:  float64(len(bots)),
			details: strings.Join(bots, "\n"),
			notice:  fmt.Sprintf("Please don’t post bot invites outside of <#%s>!", m.cfg.AdvertiseChannel),
		}, true)
	}
}

func (m *Module) checkLinks(msg Message, channel Channel, v *verdict) {
	if !containsAny(channel.Name, m.cfg.LinkChannelKeywords) || m.canPostLinks(msg.Member) {
		return
	}
	seen := make(map[string]struct{})
	var links []string
	for _, raw := range utils.ExtractURLs(msg.Content) {
		normalized, host, err := utils.NormalizeURL(raw)
		if err != nil || !m.restrictedHost(host) {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	}
	if len(links) == 0 {
		return
	}
	plural, that := "s", "those links"
	if len(links) == 1 {
		plural, that = "", "that link"
	}
	v.add(violation{
		reason:  fmt.Sprintf("Posted blacklisted link%s in <#%s>", plural, msg.ChannelID),
		weight:  float64(len(links)) * m.partial,
		details: strings.Join(links, " "),
		notice:  fmt.Sprintf("Sorry, but you can’t post %s outside a channel like <#%s>!", that, m.cfg.AdvertiseChannel),
	}, true)
}

// canPostLinks is true for webhooks and members holding an exempt role.
func (m *Module) canPostLinks(member *Member) bool {
	if member == nil {
		return true
	}
	for _, role := range member.Roles {
		for _, exempt := range m.cfg.LinkExemptRoles {
			if role == exempt {
				return true
			}
		}
	}
	return false
}

func (m *Module) restrictedHost(host string) bool {
	for _, domain := range m.cfg.LinkHosts {
		if utils.HostMatches(host, domain) {
			return true
		}
	}
	return false
}

func (m *Module) checkLanguage(msg Message, invites []Invite, v *verdict) {
	var weight float64
	var words []string
	collect := func(text string, shift int) float64 {
		if text == "" {
			return 0
		}
		result, bad := m.matcher.Scan(text, shift)
		if !bad {
			return 0
		}
		words = append(words, result.Flat()...)
		return result.Strikes
	}

	weight += collect(utils.StripMarkdown(msg.Content), 0)
	for _, sticker := range msg.Stickers {
		weight += collect(sticker, 0)
	}
	for _, invite := range invites {
		weight += collect(invite.GuildName, 0)
	}
	var embedStrikes float64
	for _, embed := range msg.Embeds {
		for _, text := range embed.texts() {
			embedStrikes += collect(text, m.shift)
		}
	}

	total := weight + embedStrikes
	if total == 0 {
		return
	}
	reason := "Used banned words"
	if len(words) == 1 {
		reason = "Used a banned word"
	}
	notice := "Please watch your language!"
	if total < 1 {
		notice = "Please don’t say that here!"
	}
	subject := msg.AuthorID
	if msg.InteractionUserID != "" {
		subject = msg.InteractionUserID
	}
	deleteMessage := weight > 0 || msg.System
	v.add(violation{reason: reason, weight: total, details: strings.Join(words, ", "), notice: notice, subject: subject}, deleteMessage)
	if !deleteMessage {
		v.embedOnly = true
	}
}

func (m *Module) checkSpam(ctx context.Context, msg Message, v *verdict) {
	if m.spam == nil || msg.AuthorBot || !m.spam.HandleMessage(ctx, msg.GuildID, msg.AuthorID) {
		return
	}
	v.add(violation{
		reason: "Spamming messages",
		weight: m.partial,
		notice: "Please slow down!",
	}, true)
}

func (m *Module) enforce(ctx context.Context, msg Message, v verdict, auditOnly bool) (bool, error) {
	var notice strings.Builder
	notice.WriteString(noticePrefix)
	for _, found := range v.violations {
		notice.WriteString(" " + found.notice)
		if auditOnly {
			m.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, "automod_flagged", found.reason+": "+found.details)
			continue
		}
		subject := punish.Subject{UserID: msg.AuthorID, GuildID: msg.GuildID}
		if found.subject != "" {
			subject.UserID = found.subject
		}
		if msg.Member != nil && subject.UserID == msg.AuthorID {
			subject.Booster = msg.Member.Booster
			subject.HasRoles = len(msg.Member.Roles) > 0
		}
		if _, err := m.warner.Warn(ctx, subject, found.reason, found.weight, strikes.Note(found.details)); err != nil {
			return true, fmt.Errorf("warn %s: %w", subject.UserID, err)
		}
	}
	if auditOnly {
		return true, nil
	}

	if v.needsDelete {
		content := notice.String() + ghostPings(msg.Mentions)
		if err := m.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			m.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.AuthorID, "action_failed",
				fmt.Sprintf("unable to delete message %s in <#%s> (%s): %v", msg.ID, msg.ChannelID, strings.TrimPrefix(notice.String(), noticePrefix+" "), err))
			return true, nil
		}
		m.postNotice(ctx, msg, content)
		return false, nil
	}

	if v.embedOnly {
		if err := m.platform.SuppressEmbeds(ctx, msg.ChannelID, msg.ID); err != nil {
			m.logger.Warn("suppress embeds failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
		m.postNotice(ctx, msg, notice.String())
	}
	return true, nil
}

// postNotice replies publicly and schedules the reply's deletion.
func (m *Module) postNotice(ctx context.Context, msg Message, content string) {
	noticeID, err := m.platform.Reply(ctx, msg.ChannelID, msg.ID, content)
	if err != nil {
		m.logger.Warn("public notice failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}
	m.clock.AfterFunc(m.noticeTTL, func() {
		if err := m.platform.DeleteMessage(context.Background(), msg.ChannelID, noticeID); err != nil {
			m.audit.Log(context.Background(), audit.LevelWarn, msg.GuildID, "", "action_failed",
				fmt.Sprintf("unable to delete public notice %s in <#%s>: %v", noticeID, msg.ChannelID, err))
		}
	})
}

func ghostPings(mentions []string) string {
	if len(mentions) == 0 {
		return ""
	}
	users := make([]string, len(mentions))
	for i, id := range mentions {
		users[i] = "<@" + id + ">"
	}
	return " (ghost pinged " + utils.JoinWithAnd(users) + ")"
}

func containsAny(name string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}
