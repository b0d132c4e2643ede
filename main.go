package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/materialplanner/api/rest"
	"github.com/kasuganosora/materialplanner/audit"
	"github.com/kasuganosora/materialplanner/cache"
	"github.com/kasuganosora/materialplanner/config"
	dbadapter "github.com/kasuganosora/materialplanner/db"
	"github.com/kasuganosora/materialplanner/game/account"
	"github.com/kasuganosora/materialplanner/game/itemstats"
	"github.com/kasuganosora/materialplanner/game/planner"
	mw "github.com/kasuganosora/materialplanner/middleware"
	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"github.com/kasuganosora/materialplanner/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	res := resource.NewLoader(cfg.Catalog.DataPath)
	if err := res.Load(); err != nil {
		logger.Warn("catalog load warning", zap.String("path", cfg.Catalog.DataPath), zap.Error(err))
	} else {
		logger.Info("catalog loaded",
			zap.Int("servants", len(res.Servants())),
			zap.Int("soundtracks", len(res.Soundtracks())))
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Catalog.ReloadInterval > 0 {
		sched.AddTicker("catalog_reload", cfg.Catalog.ReloadInterval, func(context.Context) error {
			if err := res.Load(); err != nil {
				return err
			}
			logger.Debug("catalog reloaded", zap.Int64("version", res.Version()))
			return nil
		})
	}

	// ---- Import history ----
	imports := audit.New(db, logger)
	defer imports.Stop()

	// ---- Services ----
	accounts := account.NewRepository(db, logger)
	defaults := itemstats.FilterOptions{
		IncludeUnsummonedServants: cfg.Planner.IncludeUnsummonedServants,
		IncludeAppendSkills:       cfg.Planner.IncludeAppendSkills,
		IncludeLores:              cfg.Planner.IncludeLores,
		IncludeCostumes:           cfg.Planner.IncludeCostumes,
		IncludeSoundtracks:        cfg.Planner.IncludeSoundtracks,
	}
	svc := planner.NewService(accounts, res, c, cfg.Cache.StatsTTL, defaults, logger)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger, "/health"), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"catalog_version": res.Version(),
			"tasks":           sched.ListTickers(),
		})
	})

	accountH := apirest.NewAccountHandler(accounts, svc, imports, logger)
	catalogH := apirest.NewCatalogHandler(res)

	api := r.Group("/api")
	{
		api.POST("/accounts", accountH.Create)

		accG := api.Group("/accounts/:id")
		accG.GET("/snapshot", accountH.GetSnapshot)
		accG.PUT("/snapshot", accountH.PutSnapshot)
		accG.GET("/preferences", accountH.GetPreferences)
		accG.PUT("/preferences", accountH.PutPreferences)
		accG.GET("/item-stats", accountH.ItemStats)
		accG.GET("/servants/:instance/item-stats", accountH.ServantItemStats)
		accG.GET("/imports", accountH.Imports)

		api.GET("/catalog/servants", catalogH.Servants)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("Server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	logger.Info("Server stopped")
}
