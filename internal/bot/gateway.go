package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"strike-warden/internal/badwords"
	"strike-warden/internal/config"
	"strike-warden/internal/modules/automod"
	"strike-warden/internal/punish"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// discordEpoch is the first millisecond of 2015, the snowflake epoch.
const discordEpoch = 1420070400000

var errNoChannel = errors.New("channel not found")

// gateway adapts a discordgo session to the punishment engine and automod.
type gateway struct {
	session   *discordgo.Session
	cfg       config.Config
	dmLimiter *rate.Limiter
	logColor  int
}

func newGateway(session *discordgo.Session, cfg config.Config) *gateway {
	limit := rate.Inf
	if cfg.Notifications.DMPerSecond > 0 {
		limit = rate.Limit(cfg.Notifications.DMPerSecond)
	}
	return &gateway{
		session:   session,
		cfg:       cfg,
		dmLimiter: rate.NewLimiter(limit, 1),
		logColor:  cfg.Notifications.EmbedColors.Warning,
	}
}

// LogStrike posts the strike to the strike log channel. Without one the ID is
// a snowflake for the current time so IDs stay unique and sortable.
func (g *gateway) LogStrike(_ context.Context, entry punish.StrikeLog) (string, error) {
	if g.cfg.StrikeLogChannel == "" {
		return snowflakeAt(time.Now()), nil
	}
	msg, err := g.session.ChannelMessageSendEmbed(g.cfg.StrikeLogChannel, strikeLogEmbed(entry, g.logColor))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *gateway) SendDM(ctx context.Context, userID string, notice punish.Notice) error {
	if err := g.dmLimiter.Wait(ctx); err != nil {
		return err
	}
	channel, err := g.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{noticeEmbed(notice, g.cfg.Notifications.EmbedColors.Action)}}
	if notice.AppealStrikeID != "" {
		send.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Appeal Strike", Style: discordgo.SecondaryButton, CustomID: notice.AppealStrikeID + buttonAppeal},
			}},
		}
	}
	_, err = g.session.ChannelMessageSendComplex(channel.ID, send)
	return err
}

func (g *gateway) Timeout(_ context.Context, guildID, userID string, until time.Time, _ string) error {
	return g.session.GuildMemberTimeout(guildID, userID, &until)
}

func (g *gateway) Ban(_ context.Context, guildID, userID, reason string) error {
	return g.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (g *gateway) Channel(_ context.Context, channelID string) (automod.Channel, error) {
	channel := g.channel(channelID)
	if channel == nil {
		return automod.Channel{}, errNoChannel
	}
	info := badwords.ChannelInfo{Kind: channelKind(channel.Type), ID: channel.ID}
	if info.Kind == badwords.ChannelDM {
		return automod.Channel{ChannelInfo: info, Name: channel.Name}, nil
	}

	base := channel
	if info.Kind == badwords.ChannelPublicThread || info.Kind == badwords.ChannelPrivateThread {
		info.ParentID = channel.ParentID
		if parent := g.channel(channel.ParentID); parent != nil {
			base = parent
		}
	}
	info.CategoryID = base.ParentID
	everyone := g.everyonePermissions(base)
	info.EveryoneCanView = everyone&discordgo.PermissionViewChannel != 0
	return automod.Channel{
		ChannelInfo:     info,
		Name:            base.Name,
		EveryoneCanSend: everyone&discordgo.PermissionSendMessages != 0,
	}, nil
}

func (g *gateway) channel(channelID string) *discordgo.Channel {
	if channelID == "" {
		return nil
	}
	if channel, err := g.session.State.Channel(channelID); err == nil {
		return channel
	}
	channel, err := g.session.Channel(channelID)
	if err != nil {
		return nil
	}
	return channel
}

// everyonePermissions applies the channel's @everyone overwrite to the
// guild-wide @everyone role.
func (g *gateway) everyonePermissions(channel *discordgo.Channel) int64 {
	var perms int64
	if role, err := g.session.State.Role(channel.GuildID, channel.GuildID); err == nil {
		perms = role.Permissions
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return perms
	}
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite.Type == discordgo.PermissionOverwriteTypeRole && overwrite.ID == channel.GuildID {
			perms &^= overwrite.Deny
			perms |= overwrite.Allow
		}
	}
	return perms
}

func (g *gateway) ResolveInvite(_ context.Context, code string) (automod.Invite, error) {
	invite, err := g.session.Invite(code)
	if err != nil {
		return automod.Invite{}, err
	}
	if invite.Guild == nil {
		return automod.Invite{Code: code}, nil
	}
	return automod.Invite{Code: code, GuildID: invite.Guild.ID, GuildName: invite.Guild.Name}, nil
}

func (g *gateway) Reply(_ context.Context, channelID, messageID, content string) (string, error) {
	msg, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		Reference:       &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID},
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: true},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *gateway) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID)
}

func (g *gateway) SuppressEmbeds(_ context.Context, channelID, messageID string) error {
	endpoint := discordgo.EndpointChannelMessage(channelID, messageID)
	_, err := g.session.RequestWithBucketID("PATCH", endpoint, map[string]any{"flags": discordgo.MessageFlagsSuppressEmbeds}, discordgo.EndpointChannelMessage(channelID, ""))
	return err
}

func (g *gateway) SetNickname(_ context.Context, guildID, userID, nickname string) error {
	return g.session.GuildMemberNickname(guildID, userID, nickname)
}

func channelKind(kind discordgo.ChannelType) badwords.ChannelKind {
	switch kind {
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return badwords.ChannelDM
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildNewsThread:
		return badwords.ChannelPublicThread
	case discordgo.ChannelTypeGuildPrivateThread:
		return badwords.ChannelPrivateThread
	default:
		return badwords.ChannelText
	}
}

func snowflakeAt(now time.Time) string {
	return strconv.FormatInt((now.UnixMilli()-discordEpoch)<<22, 10)
}

func strikeLogEmbed(entry punish.StrikeLog, color int) *discordgo.MessageEmbed {
	title := "Verbal warning"
	switch {
	case entry.DisplayStrikes == 1:
		title = "1 strike"
	case entry.DisplayStrikes > 1:
		title = fmt.Sprintf("%d strikes", entry.DisplayStrikes)
	}
	description := fmt.Sprintf("<@%s> warned <@%s>\n%s", entry.ModeratorID, entry.UserID, entry.Reason)
	if entry.Details != "" {
		description += "\n>>> " + entry.Details
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func noticeEmbed(notice punish.Notice, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       notice.Title,
		Description: notice.Description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if notice.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: notice.Footer}
	}
	return embed
}
