package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"founder-waitlist/internal/core/config"
	"founder-waitlist/internal/core/database"
	"founder-waitlist/internal/core/logger"
	"founder-waitlist/internal/core/redisx"
	"founder-waitlist/internal/core/server"
	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/mailer"
	"founder-waitlist/internal/repo"
	"founder-waitlist/internal/service"
	"founder-waitlist/internal/transport/http/router"
	"founder-waitlist/internal/web"
	"founder-waitlist/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移（analytics_metrics 预留表一并建上）
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.Subscriber{},
			&domain.SurveyResponse{},
			&domain.AnalyticsMetric{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// Redis（可选：报名限速 + 广播中继）
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	// 实时扇出通道：由 main 持有并注入，随服务一起启停
	hub := ws.NewHub(log)
	if rdb != nil && cfg.Redis.WSChannel != "" {
		hub.StartRelay(redisx.NewRelay(rdb, cfg.Redis.WSChannel))
		log.Info("ws relay enabled", zap.String("channel", cfg.Redis.WSChannel))
	}

	// 邮件投递（无 API key → demo 模式）
	mail := mailer.New(cfg.Mail.APIKey, mailer.Options{
		From:         cfg.Mail.From,
		FromName:     cfg.Mail.FromName,
		FallbackFrom: cfg.Mail.FallbackFrom,
		BatchSize:    cfg.Mail.BatchSize,
		BatchDelay:   time.Duration(cfg.Mail.BatchDelayMSec) * time.Millisecond,
	}, log)
	if !mail.Configured() {
		log.Warn("mail api key missing, running in demo mode")
	}

	wlRepo := repo.NewWaitlistRepo(db)
	signupSvc := service.NewSignupService(wlRepo, mail, hub, cfg.Waitlist.Capacity, log)
	statsSvc := service.NewStatsService(wlRepo, cfg.Waitlist.Capacity)
	dashboard := web.NewDashboard(statsSvc, log)

	r := router.NewAPIEngine(router.APIDeps{
		Log:       log,
		DB:        db,
		Repo:      wlRepo,
		Signup:    signupSvc,
		Stats:     statsSvc,
		Mail:      mail,
		Hub:       hub,
		Dashboard: dashboard,
		RDB:       rdb,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("waitlist api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("dashboard", baseURL+"/dashboard"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("waitlist api start FAILED", zap.Error(err))
		}
	}()
	log.Info("waitlist api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	hub.Close()
	log.Info("waitlist api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
