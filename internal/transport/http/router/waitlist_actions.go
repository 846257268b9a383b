package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/service"
	httpez "founder-waitlist/internal/transport/http/ez"
	mdw "founder-waitlist/internal/transport/http/middleware"
)

// 等待名单对外接口集中在这里注册
func mountWaitlistActions(api *gin.RouterGroup, d APIDeps) {
	if d.RDB != nil {
		// 报名接口单独加共享的每 IP 限速
		api.Use(pathLimiter("/api/waitlist", mdw.RateLimitPerIPRedis(d.RDB, "rl:waitlist", 10, time.Minute)))
	}

	ez := httpez.New(api)

	// --- GET /api/stats  轻量计数 ---
	type statsOut struct {
		TotalSignups int64     `json:"totalSignups"`
		SpotsLeft    int64     `json:"spotsLeft"`
		Timestamp    time.Time `json:"timestamp"`
	}
	httpez.RegisterAction[struct{}, statsOut](ez, d.DB, httpez.Action[struct{}, statsOut]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (statsOut, error) {
			bs, err := d.Stats.BasicStats(c.Request.Context())
			if err != nil {
				return statsOut{}, httpez.Internal("load stats failed", err)
			}
			return statsOut{TotalSignups: bs.TotalSignups, SpotsLeft: bs.SpotsLeft, Timestamp: time.Now()}, nil
		},
	})

	// --- POST /api/waitlist  报名 ---
	// 字段校验在 service 里做（要求字段级错误明细），这里只挂宽松 JSON 绑定
	type signupOut struct {
		Success   bool   `json:"success"`
		UserID    string `json:"userId"`
		Position  int64  `json:"position"`
		EmailSent bool   `json:"emailSent"`
	}
	httpez.RegisterAction[service.SignupInput, signupOut](ez, d.DB, httpez.Action[service.SignupInput, signupOut]{
		Method: http.MethodPost,
		Path:   "/waitlist",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.SignupInput) (signupOut, error) {
			res, err := d.Signup.Submit(c.Request.Context(), *in)
			if err != nil {
				var ve *domain.ValidationError
				switch {
				case errors.As(err, &ve):
					return signupOut{}, httpez.BadRequestDetail("validation failed", gin.H{"fields": ve.Fields})
				case errors.Is(err, domain.ErrEmailTaken):
					return signupOut{}, httpez.Conflict("email already registered")
				default:
					return signupOut{}, httpez.Internal("signup failed", err)
				}
			}
			return signupOut{
				Success:   true,
				UserID:    res.SubscriberID,
				Position:  res.Position,
				EmailSent: res.EmailSent,
			}, nil
		},
	})

	// --- POST /api/send-update  全员广播 ---
	type updateIn struct {
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	type updateOut struct {
		Success bool   `json:"success"`
		Sent    int    `json:"sent"`
		Total   int    `json:"total"`
		Message string `json:"message"`
	}
	httpez.RegisterAction[updateIn, updateOut](ez, d.DB, httpez.Action[updateIn, updateOut]{
		Method: http.MethodPost,
		Path:   "/send-update",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *updateIn) (updateOut, error) {
			if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Content) == "" {
				return updateOut{}, httpez.BadRequest("subject and content are required")
			}
			emails, err := d.Repo.Emails(c.Request.Context())
			if err != nil {
				return updateOut{}, httpez.Internal("load recipients failed", err)
			}
			res := d.Mail.SendBroadcast(c.Request.Context(), emails, in.Subject, in.Content)
			msg := "update sent"
			if res.Sent < res.Total {
				// 部分失败只在响应体里报账，不算整体失败
				msg = "update sent with partial failures"
			}
			return updateOut{Success: res.Success, Sent: res.Sent, Total: res.Total, Message: msg}, nil
		},
	})

	// --- GET /api/analytics  分布 + 近 24h 计数 ---
	ez.GET("/analytics", func(c *gin.Context) (any, error) {
		out, err := d.Stats.Analytics(c.Request.Context())
		if err != nil {
			return nil, httpez.Internal("load analytics failed", err)
		}
		return out, nil
	})

	// --- GET /api/analytics/comprehensive  全量报表 ---
	ez.GET("/analytics/comprehensive", func(c *gin.Context) (any, error) {
		rep, err := d.Stats.ComprehensiveStats(c.Request.Context())
		if err != nil {
			return nil, httpez.Internal("build report failed", err)
		}
		return rep, nil
	})
}

// pathLimiter 只对指定路径生效的中间件包装
func pathLimiter(path string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == path && c.Request.Method == http.MethodPost {
			h(c)
			return
		}
		c.Next()
	}
}
