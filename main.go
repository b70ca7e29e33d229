package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mutena/fotomutena/config"
	"github.com/mutena/fotomutena/media"
	"github.com/mutena/fotomutena/routes"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// uploadGrace keeps freshly written files out of the sweeper's reach until
// the record pointing at them has been saved.
const uploadGrace = time.Hour

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	adminHash, err := utils.ResolveAdminHash(cfg.AdminPasswordHash, cfg.AdminPassword)
	if err != nil {
		utils.Sugar.Fatalf("admin password: %v", err)
	}
	if adminHash == "" {
		utils.Sugar.Warn("ADMIN_PASSWORD_HASH and ADMIN_PASSWORD are empty, admin login is disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs token revocation whenever it is configured, even if records live elsewhere.
	var rc *redis.Client
	if cfg.RedisURL != "" || cfg.RedisHost != "" {
		rc, err = utils.NewRedisClient(ctx, cfg)
		if err != nil {
			utils.Sugar.Warnf("redis unavailable, token revocation stays in memory: %v", err)
			rc = nil
		}
	}

	stores, err := store.Open(ctx, cfg, rc)
	if err != nil {
		utils.Sugar.Fatalf("open record store: %v", err)
	}

	host, err := media.OpenHost(ctx, cfg, store.UploadsPrefix)
	if err != nil {
		utils.Sugar.Fatalf("open media host: %v", err)
	}
	utils.Sugar.Infow("media host ready", "host", host.Name())

	if cfg.UploadSweepMinutes > 0 && host.Name() == config.HostLocal {
		interval := time.Duration(cfg.UploadSweepMinutes) * time.Minute
		utils.StartUploadSweeper(ctx, cfg.UploadsDir, interval, uploadGrace, stores.ReferencedUploads)
	}

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Stores:    stores,
		Ingestor:  media.NewIngestor(host, cfg.MaxUploadBytes()),
		AdminHash: adminHash,
		Blacklist: utils.NewTokenBlacklist(rc),
	})

	closeAll := func() {
		cancel()
		if err := stores.Close(); err != nil {
			utils.Sugar.Warnf("close record store: %v", err)
		}
		if rc != nil {
			_ = rc.Close()
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeAll); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
