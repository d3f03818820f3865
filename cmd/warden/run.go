package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredislib "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strike-warden/internal/analytics"
	"strike-warden/internal/badwords"
	"strike-warden/internal/bot"
	"strike-warden/internal/config"
	"strike-warden/internal/events"
	"strike-warden/internal/metrics"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/punish"
	"strike-warden/internal/storage"
	"strike-warden/internal/strikes"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and start moderating",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return err
	}

	matcher, err := loadMatcher(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("dictionary compile failed", zap.Error(err))
		return err
	}

	locker, closeLocker, err := buildLocker(ctx, cfg, logger)
	if err != nil {
		logger.Error("redis init failed", zap.Error(err))
		return err
	}
	defer closeLocker()
	ledger := strikes.NewLedger(store, locker, cfg.StrikeExpiry())

	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Error("nats init failed", zap.Error(err))
			return err
		}
		defer publisher.Close()
	}

	auditLogger := audit.NewLogger(store, logger)
	auditLogger.SetPublisher(publisher)
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, ledger, matcher, auditLogger, analyticsService, publisher)
	if err != nil {
		logger.Error("bot init failed", zap.Error(err))
		return err
	}

	if err := botSvc.Start(); err != nil {
		logger.Error("bot start failed", zap.Error(err))
		return err
	}
	logger.Info("bot started",
		zap.String("environment", cfg.Environment),
		zap.String("mode", cfg.Mode),
		zap.Int("tiers", matcher.Tiers()),
	)

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		if cfg.Health.Metrics {
			mux.Handle("/metrics", metrics.Handler())
		}
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr), zap.Bool("metrics", cfg.Health.Metrics))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
	return nil
}

// loadMatcher prefers the stored dictionary when enabled and present.
func loadMatcher(ctx context.Context, cfg config.Config, store storage.Backend, logger *zap.Logger) (*badwords.Matcher, error) {
	dict := badwords.Default(!cfg.Production())
	if cfg.Automod.DictionaryFromStorage {
		stored, err := storage.LoadDataset[badwords.Entry](ctx, store, badwords.DatasetName)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		if len(stored) > 0 {
			dict = stored
			logger.Info("using stored dictionary", zap.Int("tiers", len(stored)))
		}
	}
	return badwords.Compile(dict, punish.ConfigFrom(cfg).Partial())
}

func buildLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (strikes.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		return strikes.NewKeyedMutex(), func() {}, nil
	}
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("ledger locks backed by redis", zap.String("addr", cfg.Redis.Addr))
	return strikes.NewRedisLocker(client, "warden:strikes:", 10*time.Second), func() { _ = client.Close() }, nil
}
