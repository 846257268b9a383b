package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/mailer"
	"founder-waitlist/internal/service"
	mdw "founder-waitlist/internal/transport/http/middleware"
	"founder-waitlist/internal/web"
	"founder-waitlist/internal/ws"
)

type APIDeps struct {
	Log       *zap.Logger
	DB        *gorm.DB
	Repo      domain.WaitlistRepository
	Signup    *service.SignupService
	Stats     *service.StatsService
	Mail      *mailer.Mailer
	Hub       *ws.Hub
	Dashboard *web.Dashboard
	RDB       *redis.Client // 可为空；有则报名接口加共享限速
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		cors.Default(),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 实时通道：纯下行，客户端无入站协议
	r.GET("/ws", d.Hub.Handle)

	// 服务端渲染的报表页
	r.GET("/dashboard", d.Dashboard.Handle)

	api := r.Group("/api")
	mountWaitlistActions(api, d)

	return r
}
