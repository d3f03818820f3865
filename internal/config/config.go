package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken     string        `yaml:"discord_token"`
	DatabaseDSN      string        `yaml:"database_dsn"`
	LogLevel         string        `yaml:"log_level"`
	Environment      string        `yaml:"environment"`
	Mode             string        `yaml:"mode"`
	GuildID          string        `yaml:"guild_id"`
	LogChannel       string        `yaml:"log_channel"`
	StrikeLogChannel string        `yaml:"strike_log_channel"`
	RetentionDays    int           `yaml:"retention_days"`
	Health           HealthConfig  `yaml:"health"`
	Strikes          StrikeConfig  `yaml:"strikes"`
	Automod          AutomodConfig `yaml:"automod"`
	Redis            RedisConfig   `yaml:"redis"`
	NATS             NATSConfig    `yaml:"nats"`
	Notifications    NotifyConfig  `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

type StrikeConfig struct {
	StrikesPerMute       int   `yaml:"strikes_per_mute"`
	MuteLengths          []int `yaml:"mute_lengths"`
	ExpiryDays           int   `yaml:"expiry_days"`
	EmbedStrikeShift     int   `yaml:"embed_strike_shift"`
	PublicWarningSeconds int   `yaml:"public_warning_seconds"`
}

type AutomodConfig struct {
	AdvertiseChannel      string   `yaml:"advertise_channel"`
	BotsChannel           string   `yaml:"bots_channel"`
	ExemptChannels        []string `yaml:"exempt_channels"`
	ExemptCategories      []string `yaml:"exempt_categories"`
	TicketChannel         string   `yaml:"ticket_channel"`
	WhitelistedGuilds     []string `yaml:"whitelisted_guilds"`
	LinkHosts             []string `yaml:"link_hosts"`
	LinkChannelKeywords   []string `yaml:"link_channel_keywords"`
	LinkExemptRoles       []string `yaml:"link_exempt_roles"`
	SpamMessages          int      `yaml:"spam_messages"`
	SpamWindowSeconds     int      `yaml:"spam_window_seconds"`
	NicknamesEnabled      bool     `yaml:"nicknames_enabled"`
	DictionaryFromStorage bool     `yaml:"dictionary_from_storage"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type NotifyConfig struct {
	AuditToChannel bool        `yaml:"audit_to_channel"`
	DMPerSecond    float64     `yaml:"dm_per_second"`
	EmbedColors    EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabaseDSN:   "/data/warden.db",
		LogLevel:      "info",
		Environment:   "production",
		Mode:          "normal",
		RetentionDays: 30,
		Health:        HealthConfig{Enabled: false, Addr: ":8080", Metrics: true},
		Strikes: StrikeConfig{
			StrikesPerMute:       3,
			MuteLengths:          []int{8, 16, 36},
			ExpiryDays:           21,
			EmbedStrikeShift:     1,
			PublicWarningSeconds: 300,
		},
		Automod: AutomodConfig{
			LinkHosts:           []string{"youtube.com", "youtu.be"},
			LinkChannelKeywords: []string{"general", "showcase"},
			SpamMessages:        6,
			SpamWindowSeconds:   8,
			NicknamesEnabled:    true,
		},
		NATS: NATSConfig{SubjectPrefix: "warden"},
		Notifications: NotifyConfig{
			AuditToChannel: true,
			DMPerSecond:    2,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Mode = normalizeMode(cfg.Mode)
	cfg.Environment = normalizeEnvironment(cfg.Environment)
	return cfg, nil
}

// Validate rejects escalation settings the punishment engine cannot work with.
func (c Config) Validate() error {
	if c.Strikes.StrikesPerMute <= 0 {
		return errors.New("strikes.strikes_per_mute must be positive")
	}
	if c.Strikes.ExpiryDays <= 0 {
		return errors.New("strikes.expiry_days must be positive")
	}
	for _, length := range c.Strikes.MuteLengths {
		if length < 0 {
			return errors.New("strikes.mute_lengths must not contain negative values")
		}
	}
	return nil
}

// Production reports whether durations are real hours/days. Outside
// production mutes are counted in minutes and strikes expire after minutes.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// MuteUnit is the wall-clock length of one configured mute length unit.
func (c Config) MuteUnit() time.Duration {
	if c.Production() {
		return time.Hour
	}
	return time.Minute
}

func (c Config) StrikeExpiry() time.Duration {
	if c.Production() {
		return time.Duration(c.Strikes.ExpiryDays) * 24 * time.Hour
	}
	return time.Duration(c.Strikes.ExpiryDays) * time.Minute
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseDSN = envString("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = envString("ENVIRONMENT", cfg.Environment)
	cfg.Mode = envString("MODE", cfg.Mode)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.LogChannel = envString("LOG_CHANNEL", cfg.LogChannel)
	cfg.StrikeLogChannel = envString("STRIKE_LOG_CHANNEL", cfg.StrikeLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Health.Metrics = envBool("METRICS_ENABLED", cfg.Health.Metrics)
	cfg.Strikes.StrikesPerMute = envInt("STRIKES_PER_MUTE", cfg.Strikes.StrikesPerMute)
	cfg.Strikes.MuteLengths = envIntList("MUTE_LENGTHS", cfg.Strikes.MuteLengths)
	cfg.Strikes.ExpiryDays = envInt("STRIKE_EXPIRY_DAYS", cfg.Strikes.ExpiryDays)
	cfg.Strikes.EmbedStrikeShift = envInt("EMBED_STRIKE_SHIFT", cfg.Strikes.EmbedStrikeShift)
	cfg.Strikes.PublicWarningSeconds = envInt("PUBLIC_WARNING_SECONDS", cfg.Strikes.PublicWarningSeconds)
	cfg.Automod.AdvertiseChannel = envString("ADVERTISE_CHANNEL", cfg.Automod.AdvertiseChannel)
	cfg.Automod.BotsChannel = envString("BOTS_CHANNEL", cfg.Automod.BotsChannel)
	cfg.Automod.ExemptChannels = envList("EXEMPT_CHANNELS", cfg.Automod.ExemptChannels)
	cfg.Automod.ExemptCategories = envList("EXEMPT_CATEGORIES", cfg.Automod.ExemptCategories)
	cfg.Automod.TicketChannel = envString("TICKET_CHANNEL", cfg.Automod.TicketChannel)
	cfg.Automod.WhitelistedGuilds = envList("WHITELISTED_GUILDS", cfg.Automod.WhitelistedGuilds)
	cfg.Automod.LinkHosts = envList("LINK_HOSTS", cfg.Automod.LinkHosts)
	cfg.Automod.LinkExemptRoles = envList("LINK_EXEMPT_ROLES", cfg.Automod.LinkExemptRoles)
	cfg.Automod.SpamMessages = envInt("SPAM_MESSAGES", cfg.Automod.SpamMessages)
	cfg.Automod.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Automod.SpamWindowSeconds)
	cfg.Automod.NicknamesEnabled = envBool("NICKNAMES_ENABLED", cfg.Automod.NicknamesEnabled)
	cfg.Automod.DictionaryFromStorage = envBool("DICTIONARY_FROM_STORAGE", cfg.Automod.DictionaryFromStorage)
	cfg.Redis.Addr = envString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)
	cfg.NATS.URL = envString("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = envString("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
	cfg.Notifications.DMPerSecond = envFloat("DM_PER_SECOND", cfg.Notifications.DMPerSecond)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envIntList(key string, fallback []int) []int {
	items := envList(key, nil)
	if items == nil {
		return fallback
	}
	values := make([]int, 0, len(items))
	for _, item := range items {
		parsed, err := strconv.Atoi(item)
		if err != nil {
			return fallback
		}
		values = append(values, parsed)
	}
	return values
}

func normalizeMode(value string) string {
	switch strings.ToLower(value) {
	case "audit":
		return "audit"
	default:
		return "normal"
	}
}

func normalizeEnvironment(value string) string {
	switch strings.ToLower(value) {
	case "development", "dev", "test":
		return "development"
	default:
		return "production"
	}
}
