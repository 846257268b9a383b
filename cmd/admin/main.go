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
	"go.uber.org/zap"
	"gorm.io/gorm"

	"founder-waitlist/internal/core/auth"
	"founder-waitlist/internal/core/config"
	"founder-waitlist/internal/core/database"
	"founder-waitlist/internal/core/logger"
	"founder-waitlist/internal/core/server"
	"founder-waitlist/internal/mailer"
	"founder-waitlist/internal/repo"
	"founder-waitlist/internal/service"
	"founder-waitlist/internal/transport/http/router"
	"founder-waitlist/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// DB 连接（失败直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 依赖
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	mail := mailer.New(cfg.Mail.APIKey, mailer.Options{
		From:         cfg.Mail.From,
		FromName:     cfg.Mail.FromName,
		FallbackFrom: cfg.Mail.FallbackFrom,
		BatchSize:    cfg.Mail.BatchSize,
		BatchDelay:   time.Duration(cfg.Mail.BatchDelayMSec) * time.Millisecond,
	}, log)
	wlRepo := repo.NewWaitlistRepo(db)
	statsSvc := service.NewStatsService(wlRepo, cfg.Waitlist.Capacity)
	dashboard := web.NewDashboard(statsSvc, log)

	// 路由（后台端）
	r := router.NewAdminEngine(router.AdminDeps{
		Log:       log,
		DB:        db,
		JWTer:     jwter,
		Repo:      wlRepo,
		Mail:      mail,
		Dashboard: dashboard,
		Account:   cfg.Admin,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 60*time.Second, 60*time.Second)

	// 启动前打印可点击地址
	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin console starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	// 异步启动；失败立即退出
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin console start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin console started SUCCESS")

	// 关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin console stopped gracefully")
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
