package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk-io/campusdesk/internal/api"
	"github.com/campusdesk-io/campusdesk/internal/cache"
	"github.com/campusdesk-io/campusdesk/internal/config"
	"github.com/campusdesk-io/campusdesk/internal/database"
	"github.com/campusdesk-io/campusdesk/internal/models"
	"github.com/campusdesk-io/campusdesk/internal/repository"
	"github.com/campusdesk-io/campusdesk/internal/services/assignment"
	"github.com/campusdesk-io/campusdesk/internal/services/escalation"
	"github.com/campusdesk-io/campusdesk/internal/services/scheduler"
	"github.com/campusdesk-io/campusdesk/internal/services/sla"
	"github.com/campusdesk-io/campusdesk/internal/services/ticket"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.LUTC)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	if err := config.Load(configPath); err != nil {
		logger.Fatalf("load configuration: %v", err)
	}
	cfg := config.Get()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Name:            cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	var locker escalation.Locker = escalation.NopLocker{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Redis.GetRedisAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.App.Name,
		})
		if err != nil {
			logger.Fatalf("connect redis: %v", err)
		}
		defer redisCache.Close()
		locker = escalation.NewRedisLocker(redisCache, "escalation-sweep")
	}

	ticketRepo := repository.NewTicketRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	ruleRepo := repository.NewEscalationRuleRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	clock, err := sla.NewClock(cfg.SLA)
	if err != nil {
		logger.Fatalf("build business calendar: %v", err)
	}

	categoryCache := cache.NewLocalCache(cache.LocalConfig{
		MaxEntries:      cfg.Cache.MaxEntries,
		DefaultTTL:      cfg.Cache.CategoryTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	defer categoryCache.Stop()
	profileCache := cache.NewLocalCache(cache.LocalConfig{
		MaxEntries:      cfg.Cache.MaxEntries,
		DefaultTTL:      cfg.Cache.ProfileTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	defer profileCache.Stop()

	getCategory := func(ctx context.Context, id int64) (*models.Category, error) {
		return categoryRepo.GetByID(ctx, nil, id)
	}
	slaService := sla.NewService(clock, getCategory, categoryCache, cfg.Cache.CategoryTTL, cfg.SLA.DefaultAckHours)

	assignmentService := assignment.NewService(staffRepo, ticketRepo, profileCache, cfg.Cache.ProfileTTL, logger)
	ticketService := ticket.NewService(db, ticketRepo, activityRepo, slaService, logger)
	escalationService := escalation.NewService(db, ticketRepo, ruleRepo, categoryRepo, activityRepo, locker, escalation.Config{
		BatchSize: cfg.Escalation.BatchSize,
		LockTTL:   cfg.Escalation.LockTTL,
	}, logger)

	sched := scheduler.NewService(escalationService,
		scheduler.WithLogger(logger),
		scheduler.WithJobs([]*scheduler.Job{
			scheduler.SweepJob(cfg.Escalation.Schedule, cfg.Escalation.RunOnStartup),
		}),
	)
	go func() {
		if err := sched.Run(ctx); err != nil {
			logger.Printf("scheduler stopped: %v", err)
		}
	}()

	server := api.NewServer(db, ticketService, assignmentService, escalationService, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
}
