package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/hackforge/sentinel/cachestore"
	"github.com/hackforge/sentinel/countstore"
	"github.com/hackforge/sentinel/detect"
	"github.com/hackforge/sentinel/engine"
	"github.com/hackforge/sentinel/flagstore"
	"github.com/hackforge/sentinel/store"
	"github.com/hackforge/sentinel/trust"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	store  *store.Store
	echo   *echo.Echo
	httpd  *http.Server

	spikeInterval time.Duration
}

type Config struct {
	Logger             *slog.Logger
	Bind               string
	AdminToken         string
	RedisURL           string
	SlackWebhookURL    string
	AutoFlagDayQuota   int
	SpikeCheckInterval time.Duration
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	st, err := store.NewStore(db)
	if err != nil {
		return nil, err
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		// check redis connection
		if _, err := redis.NewClient(opt).Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %v", err)
		}
		flags = flg
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		// flag state is durable even without redis
		flags = st
	}

	quotas := engine.DefaultQuotaConfig()
	if config.AutoFlagDayQuota > 0 {
		quotas.AutoFlagDay = config.AutoFlagDayQuota
	}

	eng := &engine.Engine{
		Logger:          logger,
		Store:           st,
		Flags:           flags,
		Counters:        counters,
		Cache:           cache,
		Notifier:        engine.NoopNotifier{},
		Detection:       detect.DefaultConfig(),
		AutoFlag:        trust.DefaultAutoFlagConfig(),
		Quotas:          quotas,
		SlackWebhookURL: config.SlackWebhookURL,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echoprometheus.NewMiddleware("warden"))

	srv := &Server{
		logger:        logger,
		engine:        eng,
		store:         st,
		echo:          e,
		spikeInterval: config.SpikeCheckInterval,
	}
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	e.GET("/_health", srv.handleHealthCheck)

	admin := e.Group("/admin", srv.adminAuth(config.AdminToken))
	admin.POST("/subjects/:id/score", srv.handleScoreSubject)
	admin.GET("/subjects/:id/score", srv.handleGetScore(trust.KindSubject))
	admin.POST("/subjects/:id/flag", srv.handleFlag)
	admin.POST("/subjects/:id/unflag", srv.handleUnflag)
	admin.POST("/organizers/:id/score", srv.handleScoreOrganizer)
	admin.GET("/organizers/:id/score", srv.handleGetScore(trust.KindOrganizer))
	admin.POST("/organizers/:id/revoke", srv.handleRevoke)
	admin.GET("/detect/patterns", srv.handleDetectPatterns)
	admin.GET("/detect/spike", srv.handleDetectSpike)
	admin.GET("/events", srv.handleListEvents)

	return srv, nil
}

func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting admin API", "bind", srv.httpd.Addr)
	errc := make(chan error, 1)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.httpd.Shutdown(shutCtx)
	}
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// RunSpikeCheck periodically evaluates platform-wide activity spikes.
// Expects to be run in a goroutine.
func (srv *Server) RunSpikeCheck(ctx context.Context) {
	interval := srv.spikeInterval
	if interval <= 0 {
		srv.logger.Info("background spike detection disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := srv.engine.DetectSpike(ctx); err != nil {
				srv.logger.Error("background spike check failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// adminAuth gates the admin API on a static bearer token and resolves the
// acting admin from the X-Admin-ID header. Per-action permission checks
// happen in the engine; this layer only establishes identity.
func (srv *Server) adminAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" || c.Request().Header.Get("Authorization") != "Bearer "+token {
				return echo.NewHTTPError(http.StatusUnauthorized, "admin token required")
			}
			adminID, err := strconv.ParseUint(c.Request().Header.Get("X-Admin-ID"), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "X-Admin-ID header required")
			}
			role, err := srv.store.GetAdminRole(c.Request().Context(), adminID)
			if err != nil {
				return err
			}
			c.Set("admin", engine.AdminActor{
				UserID: adminID,
				Email:  c.Request().Header.Get("X-Admin-Email"),
				Role:   role,
			})
			return next(c)
		}
	}
}

func adminActor(c echo.Context) engine.AdminActor {
	actor, _ := c.Get("admin").(engine.AdminActor)
	return actor
}
