// Command maintenance runs the explicit housekeeping operations of the
// context engine: the forget sweep over old, low-importance memories and
// an optional per-user statistics report. Pruning is never scheduled
// automatically; this command is how an operator invokes it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/travel_context_engine/internal/config"
	"github.com/lewisedginton/travel_context_engine/internal/context_store"
	"github.com/lewisedginton/travel_context_engine/internal/memory_service"
	"github.com/lewisedginton/travel_context_engine/internal/storage_manager"
	pkgconfig "github.com/lewisedginton/travel_context_engine/pkg/config"
	"github.com/lewisedginton/travel_context_engine/pkg/logger"
	"github.com/lewisedginton/travel_context_engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (env vars override)")
	userID := flag.String("user", "", "limit the sweep to a single user id")
	stats := flag.Bool("stats", false, "print memory statistics instead of sweeping")
	flag.Parse()

	var cfg config.EngineConfig
	var err error
	if *configPath != "" {
		err = pkgconfig.GetConfig(&cfg, *configPath, false)
	} else {
		err = pkgconfig.GetConfigFromEnvVars(&cfg)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(logg)

	ctx := context.Background()

	store, cleanup, err := buildStore(ctx, cfg, logg)
	if err != nil {
		logg.Error("Failed to build context store", logger.ErrorField(err))
		os.Exit(1)
	}
	defer cleanup()

	m := metrics.NewMetrics(logg)
	memories := memory_service.New(memory_service.Config{
		Store:   store,
		Memory:  cfg.Memory,
		Logger:  logg,
		Metrics: &m,
	})

	if *stats {
		if err := printStatistics(ctx, store, memories, *userID); err != nil {
			logg.Error("Failed to gather statistics", logger.ErrorField(err))
			os.Exit(1)
		}
		return
	}

	var removed int
	if *userID != "" {
		removed, err = memories.ForgetOldMemories(ctx, *userID)
	} else {
		removed, err = memories.SweepOldMemories(ctx)
	}
	if err != nil {
		logg.Error("Forget sweep failed", logger.ErrorField(err))
		os.Exit(1)
	}

	logg.Info("Forget sweep complete",
		logger.IntField("removed", removed),
		logger.StringField("user", *userID))
}

// buildStore selects the context store from configuration: Postgres when a
// database URL is present, otherwise the file store over the configured
// storage backend. A Redis URL wraps the result in a conversation cache.
func buildStore(ctx context.Context, cfg config.EngineConfig, logg logger.Logger) (context_store.Store, func(), error) {
	var store context_store.Store
	cleanup := func() {}

	if cfg.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		poolCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		if err := context_store.NewMigrationManager(pool, logg).RunMigrations(); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}

		store = context_store.NewPostgresStore(pool, logg)
		cleanup = pool.Close
	} else {
		provider, err := buildFileProvider(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, err
		}
		store = context_store.NewFileStore(context_store.FileStoreConfig{
			FileProvider: provider,
			Logger:       logg,
		})
	}

	if cfg.Redis.URL != "" {
		cached, err := context_store.NewRedisConversationCache(ctx, context_store.RedisCacheConfig{
			Backing: store,
			URL:     cfg.Redis.URL,
			TTL:     cfg.Redis.TTL,
			Logger:  logg,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		inner := cleanup
		cleanup = func() {
			_ = cached.Close()
			inner()
		}
		store = cached
	}

	return store, cleanup, nil
}

// buildFileProvider creates the storage backend for the file store.
func buildFileProvider(ctx context.Context, cfg config.StorageConfig, logg logger.Logger) (storage_manager.FileProvider, error) {
	switch cfg.Backend {
	case "local":
		logg.Info("Using local storage",
			logger.StringField("base_dir", cfg.BaseDir))

		manager, err := storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendLocal,
			Local:   &storage_manager.LocalConfig{BaseDir: cfg.BaseDir},
		})
		if err != nil {
			return nil, err
		}
		return manager.GetProvider("context"), nil

	case "s3":
		logg.Info("Using S3 storage",
			logger.StringField("bucket", cfg.S3Bucket),
			logger.StringField("prefix", cfg.S3Prefix),
			logger.StringField("region", cfg.S3Region))

		configOptions := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3Region != "" {
			configOptions = append(configOptions, awsconfig.WithRegion(cfg.S3Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		manager, err := storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendS3,
			S3: &storage_manager.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Client: s3.NewFromConfig(awsCfg),
			},
		})
		if err != nil {
			return nil, err
		}
		return manager.GetProvider("context"), nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Backend)
	}
}

// printStatistics reports per-user memory statistics to stdout.
func printStatistics(ctx context.Context, store context_store.Store, memories *memory_service.Service, userID string) error {
	users := []string{userID}
	if userID == "" {
		var err error
		users, err = store.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
	}

	for _, user := range users {
		stats, err := memories.GetMemoryStatistics(ctx, user)
		if err != nil {
			return fmt.Errorf("statistics for %s: %w", user, err)
		}

		fmt.Printf("user %s: %d entries, avg importance %.2f\n",
			user, stats.TotalEntries, stats.AverageImportance)
		for contentType, count := range stats.CountsByType {
			fmt.Printf("  %s: %d\n", contentType, count)
		}
		if !stats.OldestEntry.IsZero() {
			fmt.Printf("  oldest %s, newest %s\n",
				stats.OldestEntry.Format("2006-01-02"),
				stats.NewestEntry.Format("2006-01-02"))
		}
	}

	return nil
}
