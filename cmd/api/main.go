package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reiger65/stonewhistle-workshop-manager/api/controllers"
	"github.com/reiger65/stonewhistle-workshop-manager/api/routes"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/cron"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/identity"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/orders"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/specs"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/sync"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/config"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/metrics"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/migrate"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pubsub"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/redis"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/shopify"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	feed, err := shopify.NewClient(context.Background(), cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap order feed client", err)
		os.Exit(1)
	}

	health := map[string]controllers.Pinger{
		"postgres": dbClient,
		"redis":    redisClient,
	}

	var notifier sync.Notifier
	var backup sync.BackupScheduler
	if cfg.FeatureFlags.PublishEvents && cfg.GCP.ProjectID != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notifier, err = sync.NewPubSubNotifier(psClient, psClient.SyncEventsTopic(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create sync notifier", err)
			os.Exit(1)
		}
		backup, err = sync.NewPubSubBackupScheduler(psClient, psClient.BackupTopic())
		if err != nil {
			logg.Error(context.Background(), "failed to create backup scheduler", err)
			os.Exit(1)
		}
		health["pubsub"] = psClient
	}

	mappingStore := identity.NewStore(dbClient.DB())
	mapper, err := identity.NewMapper(mappingStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity mapper", err)
		os.Exit(1)
	}
	resolver, err := specs.NewResolver(specs.NewRepository(dbClient.DB()), mappingStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create spec resolver", err)
		os.Exit(1)
	}
	policy, err := sync.NewPolicy()
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle policy", err)
		os.Exit(1)
	}

	driver, err := sync.NewDriver(sync.DriverDeps{
		Source:            feed,
		Tx:                dbClient,
		Orders:            orders.NewRepository(dbClient.DB()),
		Items:             items.NewRepository(dbClient.DB()),
		Mapper:            mapper,
		Resolver:          resolver,
		Policy:            policy,
		Notifier:          notifier,
		Backup:            backup,
		Metrics:           metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		OrderNumberPrefix: cfg.Sync.OrderNumberPrefix,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync driver", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	itemsService, err := items.NewService(items.NewRepository(dbClient.DB()), specs.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	// Manual triggers and the scheduled worker share one lock so a run never
	// overlaps a cycle already in flight.
	syncLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("sync-run"), cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync lock", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Health:      health,
			Driver:      driver,
			SyncLock:    syncLock,
			RateLimiter: redisClient,
			Orders:      ordersService,
			Items:       itemsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
