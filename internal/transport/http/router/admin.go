package router

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"founder-waitlist/internal/core/auth"
	"founder-waitlist/internal/core/config"
	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/mailer"
	mdw "founder-waitlist/internal/transport/http/middleware"
	"founder-waitlist/internal/web"
)

type AdminDeps struct {
	Log       *zap.Logger
	DB        *gorm.DB
	JWTer     *auth.JWTer
	Repo      domain.WaitlistRepository
	Mail      *mailer.Mailer
	Dashboard *web.Dashboard
	Account   config.Admin // 控制台账号（bcrypt 哈希）
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(50, 100),
		mdw.ConcurrencyLimit(100),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(30*time.Second), // 广播发信批间有固定间隔，窗口放宽
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 登录（公共）
	mountAdminLogin(r, d)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWTer, "admin"))
	mountAdminActions(admin, d)

	return r
}
