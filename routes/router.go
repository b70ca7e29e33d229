package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mutena/fotomutena/config"
	"github.com/mutena/fotomutena/controllers"
	"github.com/mutena/fotomutena/media"
	"github.com/mutena/fotomutena/metrics"
	"github.com/mutena/fotomutena/middleware"
	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// Deps are the long-lived services the HTTP layer needs.
type Deps struct {
	Config    config.AppConfig
	Stores    *store.Stores
	Ingestor  *media.Ingestor
	AdminHash string
	Blacklist *utils.TokenBlacklist
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	// Forwarding headers are honoured only from configured proxies; with none
	// configured ClientIP is the TCP peer.
	r.RemoteIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.Sugar.Warnw("invalid trusted proxies, trusting none", "proxies", cfg.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file; fall back to the app logger.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(ginzap.GinzapWithConfig(gl, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health", "/metrics"},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request_id", c.GetString(middleware.ContextRequestIDKey))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(gl, true))
	r.Use(middleware.RequestMetrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "If-Match", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "ETag", "X-Collection-Fallback", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "store": deps.Stores.Backend.Name()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.AuthRequired(cfg.JWTSecret, deps.Blacklist)
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour

	authController := controllers.NewAuthController(cfg.JWTSecret, deps.AdminHash, ttl, deps.Blacklist)
	settingsController := controllers.NewSettingsController(deps.Stores.Settings)
	uploadController := controllers.NewUploadController(cfg.UploadsDir)
	statsController := controllers.NewStatsController(deps.Stores.Photos, deps.Stores.Designs)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.RateLimit(cfg.LoginRatePerMinute), authController.Login)
	authGroup.POST("/logout", auth, authController.Logout)
	authGroup.GET("/me", auth, authController.Me)

	collections := []struct {
		coll     *store.Collection
		defaults controllers.Defaults
	}{
		{deps.Stores.Photos, controllers.PhotoDefaults},
		{deps.Stores.Designs, controllers.DesignDefaults},
	}
	for _, c := range collections {
		cc := controllers.NewCollectionController(c.coll, deps.Ingestor, c.defaults)
		group := api.Group("/" + c.coll.Name())
		group.GET("", cc.List)
		group.POST("", auth, cc.Create)
		group.DELETE("", auth, cc.Delete)
		group.PATCH("", auth, cc.Update)
	}

	api.GET("/settings", settingsController.Get)
	api.POST("/settings", auth, settingsController.Update)
	api.GET("/uploads/:filename", uploadController.Serve)
	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
