package bot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"strike-warden/internal/analytics"
	"strike-warden/internal/badwords"
	"strike-warden/internal/config"
	"strike-warden/internal/events"
	"strike-warden/internal/modules/antispam"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/modules/automod"
	"strike-warden/internal/punish"
	"strike-warden/internal/storage"
	"strike-warden/internal/strikes"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      storage.Backend
	audit      *audit.Logger
	analytics  *analytics.Service
	matcher    *badwords.Matcher
	session    *discordgo.Session
	gateway    *gateway
	engine     *punish.Engine
	antispam   *antispam.Module
	automod    *automod.Module
	auditAgg   map[string]*auditAggregate
	auditAggMu sync.Mutex
	stop       chan struct{}
	stopOnce   sync.Once
}

type auditAggregate struct {
	channelID string
	messageID string
	count     int
	lastAt    time.Time
}

func New(cfg config.Config, logger *zap.Logger, store storage.Backend, ledger *strikes.Ledger, matcher *badwords.Matcher, auditLogger *audit.Logger, analyticsService *analytics.Service, publisher *events.Publisher) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsService,
		matcher:   matcher,
		session:   session,
		gateway:   newGateway(session, cfg),
		auditAgg:  make(map[string]*auditAggregate),
		stop:      make(chan struct{}),
	}

	b.engine = punish.NewEngine(punish.ConfigFrom(cfg), ledger, b.gateway, auditLogger, publisher, logger)
	b.antispam = antispam.New(cfg.Automod, auditLogger)
	b.automod = automod.New(cfg, matcher, b.gateway, b.engine, b.antispam, auditLogger, logger)
	b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		if !b.cfg.Notifications.AuditToChannel {
			return
		}
		b.notifyAudit(ctx, entry)
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	go b.maintenance()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

// maintenance forgets idle spam windows and prunes old audit logs.
func (b *Bot) maintenance() {
	sweep := time.NewTicker(time.Minute)
	cleanup := time.NewTicker(24 * time.Hour)
	defer sweep.Stop()
	defer cleanup.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-sweep.C:
			b.antispam.Sweep()
		case <-cleanup.C:
			if err := b.store.CleanupAuditLogs(context.Background(), b.cfg.RetentionDays); err != nil {
				b.logger.Warn("audit log cleanup failed", zap.Error(err))
			}
		}
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	guildName := ""
	if b.cfg.GuildID != "" {
		if guild, err := session.State.Guild(b.cfg.GuildID); err == nil {
			guildName = guild.Name
		}
	}
	b.engine.SetIdentity(event.User.ID, guildName)
	b.logger.Info("discord ready", zap.String("user", event.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.ID == session.State.User.ID {
		return
	}
	if b.cfg.GuildID != "" && msg.GuildID != "" && msg.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	auditOnly := false
	if msg.GuildID != "" {
		auditOnly = b.isAuditMode(b.guildSettings(ctx, msg.GuildID))
	}
	if _, err := b.automod.HandleMessage(ctx, automodMessage(msg.Message), auditOnly); err != nil {
		b.logger.Error("automod failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.GuildID == "" {
		return
	}
	b.handleMember(event.GuildID, event.Member)
}

func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.Member == nil || event.GuildID == "" {
		return
	}
	b.handleMember(event.GuildID, event.Member)
}

func (b *Bot) handleMember(guildID string, member *discordgo.Member) {
	if member.User == nil || member.User.Bot {
		return
	}
	ctx := context.Background()
	auditOnly := b.isAuditMode(b.guildSettings(ctx, guildID))
	if _, err := b.automod.HandleMember(ctx, memberName(guildID, member), auditOnly); err != nil {
		b.logger.Warn("nickname enforcement failed", zap.String("user_id", member.User.ID), zap.Error(err))
	}
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:          guildID,
		LogChannel:       b.cfg.LogChannel,
		AdvertiseChannel: b.cfg.Automod.AdvertiseChannel,
		Mode:             b.cfg.Mode,
		RetentionDays:    b.cfg.RetentionDays,
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) isAuditMode(settings storage.GuildSettings) bool {
	return settings.Mode == "audit"
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.GuildID == "" {
		return
	}
	channelID := b.guildSettings(ctx, entry.GuildID).LogChannel
	if channelID == "" {
		return
	}

	key := entry.GuildID + "|" + entry.Level + "|" + entry.Event + "|" + entry.Details + "|" + entry.UserID
	window := 10 * time.Minute

	b.auditAggMu.Lock()
	agg := b.auditAgg[key]
	if agg != nil && agg.channelID == channelID && time.Since(agg.lastAt) <= window {
		agg.count++
		agg.lastAt = time.Now()
		count := agg.count
		messageID := agg.messageID
		b.auditAggMu.Unlock()
		if _, err := b.session.ChannelMessageEditEmbed(channelID, messageID, b.buildAuditEmbed(entry, count)); err == nil {
			return
		}
		b.auditAggMu.Lock()
		delete(b.auditAgg, key)
	}
	b.auditAggMu.Unlock()

	msg, err := b.session.ChannelMessageSendEmbed(channelID, b.buildAuditEmbed(entry, 1))
	if err != nil || msg == nil {
		return
	}
	b.auditAggMu.Lock()
	b.auditAgg[key] = &auditAggregate{channelID: channelID, messageID: msg.ID, count: 1, lastAt: time.Now()}
	b.auditAggMu.Unlock()
}

func (b *Bot) buildAuditEmbed(entry storage.AuditLog, count int) *discordgo.MessageEmbed {
	userValue := "<@" + entry.UserID + ">"
	if entry.UserID == "" {
		userValue = "System"
	}
	color := b.cfg.Notifications.EmbedColors.Action
	if entry.Level != audit.LevelInfo {
		color = b.cfg.Notifications.EmbedColors.Error
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Event", Value: entry.Event, Inline: false},
		{Name: "Level", Value: entry.Level, Inline: true},
		{Name: "User", Value: userValue, Inline: true},
	}
	if count > 1 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Count", Value: strconv.Itoa(count), Inline: true})
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Details", Value: entry.Details, Inline: false})
	}
	return &discordgo.MessageEmbed{
		Title:     "Moderation log",
		Color:     color,
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields:    fields,
	}
}
