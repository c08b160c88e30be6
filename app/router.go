// Package app builds the HTTP server and wires every dependency into it
package app

import (
	"context"
	"fmt"
	"time"

	"bitwise74/filehub-api/app/hub"
	"bitwise74/filehub-api/app/invite"
	"bitwise74/filehub-api/app/root"
	"bitwise74/filehub-api/app/upload"
	"bitwise74/filehub-api/app/user"
	"bitwise74/filehub-api/db"
	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/internal/cache"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/notify"
	"bitwise74/filehub-api/internal/service"
	"bitwise74/filehub-api/internal/storage"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/security"

	ginCache "github.com/chenyahui/gin-cache"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type App struct {
	Router  *gin.Engine
	Deps    *internal.Deps
	Sweeper *service.Sweeper

	closers []func()
}

// New connects to every backing service named in the config and builds the
// router
func New(ctx context.Context) (*App, error) {
	makeLogger()

	a := &App{}

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	store, err := storage.NewS3(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	sender, err := a.newSender()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail transport, %w", err)
	}

	cacheStore, err := cache.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache, %w", err)
	}

	maxStorage := viper.GetInt64("quota.max_storage")

	auth := identity.NewJWTResolver(database, viper.GetString("jwt.secret"), viper.GetDuration("jwt.ttl"))
	mail := notify.NewDispatcher(
		sender,
		viper.GetString("invite.base_url"),
		viper.GetInt("mail.workers"),
		viper.GetDuration("mail.timeout"),
	)

	a.Deps = &internal.Deps{
		DB:       database,
		Auth:     auth,
		Accounts: service.NewAccounts(database, security.New(), auth, mail, maxStorage),
		Uploads:  service.NewUploads(database, store, maxStorage, viper.GetStringSlice("upload.allowed_types")),
		Hubs:     service.NewHubs(database, store),
		Invites:  service.NewInvites(database, viper.GetDuration("invite.ttl")),
		Mail:     mail,
		Cache:    cacheStore,
	}

	a.Deps.Uploads.Cache = cacheStore
	a.Deps.Hubs.Cache = cacheStore

	a.Sweeper = service.NewSweeper(database, store, viper.GetDuration("sweep.grace"), viper.GetDuration("invite.retention"))
	a.Sweeper.Cache = cacheStore

	router := gin.New()
	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken", "X-Admin-Secret"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	Routes(router, a.Deps)
	a.Router = router

	return a, nil
}

func (a *App) newSender() (notify.Sender, error) {
	switch viper.GetString("mail.transport") {
	case "amqp":
		q, err := notify.NewQueueSender(viper.GetString("mail.amqp_url"))
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, q.Close)
		return q, nil
	default:
		return notify.NewSMTPSender(), nil
	}
}

// Close releases connections opened by New
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}

	if a.Deps != nil && a.Deps.DB != nil {
		if sqlDB, err := a.Deps.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// Routes registers every endpoint on router. Secrets and limits are read
// from the config
func Routes(router *gin.Engine, d *internal.Deps) {
	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	auth := middleware.NewAuthMiddleware(d.Auth)
	turnstile := middleware.NewTurnstileMiddleware()
	maxUploadSize := viper.GetInt64("upload.max_size")
	jsonLimit := middleware.BodySizeLimiter(1 << 20)

	m := router.Group("/api")
	if rl := viper.GetFloat64("security.rate_limit"); rl > 0 {
		m.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: rl,
			Burst:             max(viper.GetInt("security.rate_burst"), 1),
		}))
	}
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates a JWT token
		m.GET("/validate", auth, root.Validate)
	}

	u := m.Group("/users", jsonLimit)
	{
		// GET /api/users		-> Returns the profile and quota of the caller
		u.GET("", auth, cacheFor(d, 30*time.Second), func(c *gin.Context) { user.UserFetch(c, d) })

		// POST /api/users 		-> Registers a new user
		u.POST("", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/users/login 	-> Logs in a user and returns a JWT token
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/users/verify	-> Verifies a new user
		u.POST("/verify", func(c *gin.Context) { user.UserVerify(c, d) })
	}

	// POST /api/admin/users	-> Creates an admin account, used by cmd/create-admin
	m.POST("/admin/users",
		jsonLimit,
		middleware.NewHeaderSecretMiddleware("X-Admin-Secret", viper.GetString("admin.secret")),
		func(c *gin.Context) { user.AdminCreate(c, d) },
	)

	up := m.Group("/uploads", auth)
	{
		// POST /api/uploads/url	-> Issues a write handle for a new object
		up.POST("/url", jsonLimit, func(c *gin.Context) { upload.UploadURL(c, d) })

		// POST /api/uploads		-> Records an object uploaded through a write handle
		up.POST("", jsonLimit, func(c *gin.Context) { upload.UploadRecord(c, d) })

		// POST /api/uploads/direct	-> Uploads a file in a multipart form
		up.POST("/direct", middleware.BodySizeLimiter(maxUploadSize), func(c *gin.Context) { upload.UploadDirect(c, d) })

		// GET /api/uploads		-> Lists the caller's uploads
		up.GET("", func(c *gin.Context) { upload.UploadList(c, d) })

		// GET /api/uploads/url/*storageId	-> Returns a download URL for an owned upload
		up.GET("/url/*storageId", func(c *gin.Context) { upload.UploadReadURL(c, d) })

		// DELETE /api/uploads/*storageId	-> Deletes an owned upload
		up.DELETE("/*storageId", func(c *gin.Context) { upload.UploadDelete(c, d) })
	}

	// POST /api/hubs/vapi		-> Voice assistant tool call, returns hub documents
	m.POST("/hubs/vapi",
		jsonLimit,
		middleware.NewBearerSecretMiddleware(viper.GetString("vapi.secret")),
		func(c *gin.Context) { hub.HubVapi(c, d) },
	)

	h := m.Group("/hubs", auth, jsonLimit)
	{
		// POST /api/hubs		-> Creates a hub
		h.POST("", func(c *gin.Context) { hub.HubCreate(c, d) })

		// GET /api/hubs		-> Lists the caller's hubs
		h.GET("", func(c *gin.Context) { hub.HubList(c, d) })

		// DELETE /api/hubs/:id		-> Deletes a hub and its memberships
		h.DELETE("/:id", func(c *gin.Context) { hub.HubDelete(c, d) })

		// GET /api/hubs/:id/files	-> Lists the files in a hub
		h.GET("/:id/files", func(c *gin.Context) { hub.HubFiles(c, d) })

		// POST /api/hubs/:id/files	-> Adds an upload to a hub
		h.POST("/:id/files", func(c *gin.Context) { hub.HubAddFile(c, d) })

		// DELETE /api/hubs/files/:hubFileId	-> Removes a file from its hub
		h.DELETE("/files/:hubFileId", func(c *gin.Context) { hub.HubRemoveFile(c, d) })
	}

	i := m.Group("/invites", auth, jsonLimit)
	{
		// POST /api/invites		-> Shares an upload and mails the recipients
		i.POST("", func(c *gin.Context) { invite.InviteCreate(c, d) })

		// GET /api/invites		-> Lists invites created by the caller
		i.GET("", func(c *gin.Context) { invite.InviteList(c, d) })

		// GET /api/invites/shared	-> Lists active invites naming the caller
		i.GET("/shared", func(c *gin.Context) { invite.InviteShared(c, d) })

		// GET /api/invites/:id		-> Opens an invite
		i.GET("/:id", func(c *gin.Context) { invite.InviteGet(c, d) })

		// POST /api/invites/:id/revoke	-> Revokes an invite
		i.POST("/:id/revoke", func(c *gin.Context) { invite.InviteRevoke(c, d) })

		// DELETE /api/invites/:id	-> Deletes an invite
		i.DELETE("/:id", func(c *gin.Context) { invite.InviteDelete(c, d) })
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

// cacheFor caches responses per caller. Responses of authenticated routes
// must never be shared between users
func cacheFor(d *internal.Deps, ttl time.Duration) gin.HandlerFunc {
	if d.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return ginCache.Cache(d.Cache, ttl, ginCache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, ginCache.Strategy) {
		userID := c.GetString("userID")
		if userID == "" {
			return false, ginCache.Strategy{}
		}

		return true, ginCache.Strategy{CacheKey: "user:" + userID + ":" + c.Request.RequestURI}
	}))
}
