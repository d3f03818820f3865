package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"strike-warden/internal/analytics"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/punish"
	"strike-warden/internal/strikes"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		data := interaction.ApplicationCommandData()
		switch data.Name {
		case "strikes":
			b.handleStrikesCommand(ctx, session, interaction, data.Options)
		case "check-text":
			b.handleCheckText(session, interaction, data.Options)
		case "warn":
			b.handleWarnCommand(ctx, session, interaction, data)
		case "report":
			b.handleReportCommand(ctx, session, interaction, data.Options)
		case "automod":
			b.handleAutomodCommand(ctx, session, interaction, data.Options)
		}
	case discordgo.InteractionMessageComponent:
		b.handleButton(ctx, session, interaction, interaction.MessageComponentData().CustomID)
	}
}

func invoker(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	if interaction.User != nil {
		return interaction.User
	}
	return &discordgo.User{}
}

func isModerator(interaction *discordgo.InteractionCreate) bool {
	return interaction.Member != nil && interaction.Member.Permissions&moderatorPermissions != 0
}

// guildFor is the guild an interaction acts on; DMs act on the configured guild.
func (b *Bot) guildFor(interaction *discordgo.InteractionCreate) string {
	if interaction.GuildID != "" {
		return interaction.GuildID
	}
	return b.cfg.GuildID
}

func (b *Bot) handleStrikesCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondError(session, interaction, "Strikes", "Missing subcommand.")
		return
	}
	sub := options[0]
	caller := invoker(interaction)

	switch sub.Name {
	case "user":
		target := caller
		if len(sub.Options) > 0 {
			target = sub.Options[0].UserValue(nil)
		}
		if target.ID != caller.ID && !isModerator(interaction) {
			b.respondError(session, interaction, "Strikes", "You don’t have permission to view this member’s strikes!")
			return
		}
		active, state, err := b.engine.Status(ctx, target.ID)
		if err != nil {
			b.logger.Warn("strike lookup failed", zap.Error(err))
			b.respondError(session, interaction, "Strikes", "Failed to load strikes.")
			return
		}
		embed := b.commandEmbed("Strikes", fmt.Sprintf("<@%s>\n%s", target.ID, formatStrikeList(active, state, b.engine.Ledger().Expiry())), b.cfg.Notifications.EmbedColors.Action, nil)
		b.respondEmbed(session, interaction, embed, true)
	case "id":
		if len(sub.Options) == 0 {
			b.respondError(session, interaction, "Strike", "Missing strike ID.")
			return
		}
		b.showStrike(ctx, session, interaction, sub.Options[0].StringValue())
	default:
		b.respondError(session, interaction, "Strikes", "Unknown subcommand.")
	}
}

func (b *Bot) showStrike(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, id string) {
	moderator := isModerator(interaction)
	strike, err := b.engine.Ledger().Get(ctx, id)
	if errors.Is(err, strikes.ErrNotFound) || (err == nil && strike.UserID != invoker(interaction).ID && !moderator) {
		b.respondError(session, interaction, "Strike", "Invalid strike ID!")
		return
	}
	if err != nil {
		b.logger.Warn("strike lookup failed", zap.String("strike_id", id), zap.Error(err))
		b.respondError(session, interaction, "Strike", "Failed to load strike.")
		return
	}

	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{b.commandEmbed("Strike "+strike.ID, formatStrike(strike, b.engine.Ledger().Expiry(), moderator), b.cfg.Notifications.EmbedColors.Action, nil)},
		Flags:  discordgo.MessageFlagsEphemeral,
	}
	if moderator {
		button := discordgo.Button{Label: "Remove", Style: discordgo.DangerButton, CustomID: strike.ID + buttonRemove}
		if strike.Removed {
			button = discordgo.Button{Label: "Add back", Style: discordgo.PrimaryButton, CustomID: strike.ID + buttonRestore}
		}
		data.Components = []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}}}
	}
	b.respondData(session, interaction, data)
}

func (b *Bot) handleCheckText(session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondError(session, interaction, "Check text", "Missing text.")
		return
	}
	result, bad := b.matcher.Scan(options[0].StringValue(), 0)
	color := b.cfg.Notifications.EmbedColors.Action
	if bad {
		color = b.cfg.Notifications.EmbedColors.Warning
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Check text", formatCheckText(result, bad), color, nil), true)
}

func (b *Bot) handleWarnCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !isModerator(interaction) {
		b.respondError(session, interaction, "Warn", "You don’t have permission to warn members!")
		return
	}
	var target *discordgo.User
	var reason string
	weight := 1.0
	for _, option := range data.Options {
		switch option.Name {
		case "user":
			target = option.UserValue(nil)
		case "reason":
			reason = option.StringValue()
		case "strikes":
			weight = option.FloatValue()
		}
	}
	if target == nil || reason == "" {
		b.respondError(session, interaction, "Warn", "A user and a reason are required.")
		return
	}

	subject := punish.Subject{UserID: target.ID, GuildID: b.guildFor(interaction)}
	if data.Resolved != nil {
		if member := data.Resolved.Members[target.ID]; member != nil {
			subject.Booster = member.PremiumSince != nil
			subject.HasRoles = len(member.Roles) > 0
		}
	}
	outcome, err := b.engine.Warn(ctx, subject, reason, weight, strikes.ModeratorAction(invoker(interaction).ID))
	if err != nil {
		b.logger.Error("warn failed", zap.String("user_id", target.ID), zap.Error(err))
		b.respondError(session, interaction, "Warn", "Failed to warn the member.")
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Strike", Value: "`" + outcome.Strike.ID + "`", Inline: true},
		{Name: "Added", Value: formatCount(outcome.Decision.Added), Inline: true},
		{Name: "Total", Value: formatCount(outcome.Decision.NewWeight), Inline: true},
		{Name: "State", Value: outcome.Decision.State.String(), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Warn", fmt.Sprintf("Warned <@%s>.", target.ID), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	period := "week"
	if len(options) > 0 {
		period = options[0].StringValue()
	}
	report, err := b.analytics.Report(ctx, b.guildFor(interaction), time.Now().Add(-analytics.ParsePeriod(period)), 5)
	if err != nil {
		b.logger.Warn("report failed", zap.Error(err))
		b.respondError(session, interaction, "Report", "Failed to build the report.")
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Report ("+period+")", formatReport(report), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleAutomodCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" {
		b.respondError(session, interaction, "Automod", "This command only works in a server.")
		return
	}
	if len(options) == 0 {
		b.respondError(session, interaction, "Automod", "Missing subcommand.")
		return
	}
	settings := b.guildSettings(ctx, interaction.GuildID)
	sub := options[0]

	switch sub.Name {
	case "mode":
		if len(sub.Options) == 0 {
			b.respondError(session, interaction, "Automod mode", "Missing mode.")
			return
		}
		settings.Mode = sub.Options[0].StringValue()
	case "logs":
		if len(sub.Options) == 0 {
			current := "not set"
			if settings.LogChannel != "" {
				current = "<#" + settings.LogChannel + ">"
			}
			b.respondEmbed(session, interaction, b.commandEmbed("Automod logs", "Log channel: "+current, b.cfg.Notifications.EmbedColors.Action, nil), true)
			return
		}
		settings.LogChannel = sub.Options[0].ChannelValue(nil).ID
	default:
		b.respondError(session, interaction, "Automod", "Unknown subcommand.")
		return
	}

	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("automod settings update failed", zap.Error(err))
		b.respondError(session, interaction, "Automod", "Failed to save settings.")
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, invoker(interaction).ID, "settings_updated",
		fmt.Sprintf("mode=%s log_channel=%s", settings.Mode, settings.LogChannel))
	fields := []*discordgo.MessageEmbedField{
		{Name: "Mode", Value: settings.Mode, Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Automod", "Settings updated.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleButton(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, customID string) {
	id, action, ok := parseButton(customID)
	if !ok {
		return
	}
	caller := invoker(interaction)
	guildID := b.guildFor(interaction)

	switch action {
	case buttonRemove, buttonRestore:
		if !isModerator(interaction) {
			b.respondError(session, interaction, "Strike", "You don’t have permission to change strikes!")
			return
		}
		var strike strikes.Strike
		var changed bool
		var err error
		verb := "removed"
		if action == buttonRemove {
			strike, changed, err = b.engine.Remove(ctx, guildID, id, caller.ID)
		} else {
			verb = "added back"
			strike, changed, err = b.engine.Restore(ctx, guildID, id, caller.ID)
		}
		if errors.Is(err, strikes.ErrNotFound) {
			b.respondError(session, interaction, "Strike", "Invalid strike ID!")
			return
		}
		if err != nil {
			b.logger.Warn("strike update failed", zap.String("strike_id", id), zap.Error(err))
			b.respondError(session, interaction, "Strike", "Failed to update the strike.")
			return
		}
		message := fmt.Sprintf("Strike `%s` was already %s.", id, verb)
		if changed {
			message = fmt.Sprintf("Strike `%s` for <@%s> %s.", id, strike.UserID, verb)
		}
		b.respond(session, interaction, message, true)
	case buttonAppeal:
		strike, err := b.engine.Ledger().Get(ctx, id)
		if err != nil || strike.UserID != caller.ID {
			b.respondError(session, interaction, "Appeal", "Invalid strike ID!")
			return
		}
		b.audit.Log(ctx, audit.LevelWarn, guildID, caller.ID, "strike_appealed",
			fmt.Sprintf("strike %s (%s): %s", strike.ID, formatCount(strike.Count), strike.Reason))
		b.respond(session, interaction, "Your appeal for strike `"+strike.ID+"` has been sent to the moderators.", true)
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) respondError(session *discordgo.Session, interaction *discordgo.InteractionCreate, title, message string) {
	b.respondEmbed(session, interaction, b.commandEmbed(title, message, b.cfg.Notifications.EmbedColors.Error, nil), true)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	b.respondData(session, interaction, &discordgo.InteractionResponseData{Content: content, Flags: flags})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	b.respondData(session, interaction, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}, Flags: flags})
}

func (b *Bot) respondData(session *discordgo.Session, interaction *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.Error(err))
	}
}
