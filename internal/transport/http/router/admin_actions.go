package router

import (
	"encoding/csv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"founder-waitlist/internal/domain"
	httpez "founder-waitlist/internal/transport/http/ez"
	"founder-waitlist/pkg/utils"
)

func mountAdminLogin(r *gin.Engine, d AdminDeps) {
	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	type loginOut struct {
		Token string `json:"token"`
	}
	ez := httpez.New(r.Group(""))
	httpez.RegisterAction[loginIn, loginOut](ez, d.DB, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (loginOut, error) {
			if in.Email != d.Account.Email || !utils.CheckPassword(in.Password, d.Account.PasswordHash) {
				return loginOut{}, httpez.Unauthorized("invalid credentials")
			}
			tok, err := d.JWTer.Issue(in.Email, "admin")
			if err != nil || tok == "" {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok}, nil
		},
	})
}

// 管理端接口集中在这里注册
func mountAdminActions(admin *gin.RouterGroup, d AdminDeps) {
	ez := httpez.New(admin)

	// --- GET /admin/v1/subscribers  报名列表 ---
	type listQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Q      string `form:"q"` // 按 email 模糊搜
	}
	type row struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Skill     string    `json:"skill"`
		Challenge string    `json:"challenge"`
		Interest  string    `json:"interest"`
		CreatedAt time.Time `json:"createdAt"`
	}
	type listOut struct {
		Total int64 `json:"total"`
		Items []row `json:"items"`
	}
	httpez.RegisterAction[listQ, listOut](ez, d.DB, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/subscribers",
		Binder: httpez.BindQuery,
		Auth:   false, // 分组已走 AuthJWT("admin")
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			subs, total, err := d.Repo.ListSubscribers(c.Request.Context(), in.Offset, in.Limit, in.Q)
			if err != nil {
				return listOut{}, httpez.Internal("list subscribers failed", err)
			}
			out := listOut{Total: total, Items: make([]row, 0, len(subs))}
			for _, s := range subs {
				r := row{ID: s.ID, Email: s.Email, CreatedAt: s.CreatedAt}
				for _, a := range s.Responses {
					switch a.QuestionID {
					case domain.QuestionPrimarySkill:
						r.Skill = domain.SkillLabel(a.Answer)
					case domain.QuestionBiggestChallenge:
						r.Challenge = domain.ChallengeLabel(a.Answer)
					case domain.QuestionInterestLevel:
						r.Interest = a.Answer
					}
				}
				out.Items = append(out.Items, r)
			}
			return out, nil
		},
	})

	// --- GET /admin/v1/subscribers/export  CSV 导出 ---
	admin.GET("/subscribers/export", func(c *gin.Context) {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="subscribers.csv"`)
		w := csv.NewWriter(c.Writer)
		_ = w.Write([]string{"email", "primary_skill", "biggest_challenge", "interest_level", "created_at"})

		const page = 100
		for offset := 0; ; offset += page {
			subs, _, err := d.Repo.ListSubscribers(c.Request.Context(), offset, page, "")
			if err != nil {
				d.Log.Error("export failed", zap.Error(err))
				break
			}
			for _, s := range subs {
				rec := []string{s.Email, "", "", "", s.CreatedAt.UTC().Format(time.RFC3339)}
				for _, a := range s.Responses {
					switch a.QuestionID {
					case domain.QuestionPrimarySkill:
						rec[1] = a.Answer
					case domain.QuestionBiggestChallenge:
						rec[2] = a.Answer
					case domain.QuestionInterestLevel:
						rec[3] = a.Answer
					}
				}
				_ = w.Write(rec)
			}
			if len(subs) < page {
				break
			}
		}
		w.Flush()
	})

	// --- POST /admin/v1/broadcast  定向广播（与 /api/send-update 同一条投递链路） ---
	type broadcastIn struct {
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	type broadcastOut struct {
		Success bool `json:"success"`
		Sent    int  `json:"sent"`
		Total   int  `json:"total"`
	}
	httpez.RegisterAction[broadcastIn, broadcastOut](ez, d.DB, httpez.Action[broadcastIn, broadcastOut]{
		Method: http.MethodPost,
		Path:   "/broadcast",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *broadcastIn) (broadcastOut, error) {
			if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Content) == "" {
				return broadcastOut{}, httpez.BadRequest("subject and content are required")
			}
			emails, err := d.Repo.Emails(c.Request.Context())
			if err != nil {
				return broadcastOut{}, httpez.Internal("load recipients failed", err)
			}
			res := d.Mail.SendBroadcast(c.Request.Context(), emails, in.Subject, in.Content)
			return broadcastOut{Success: res.Success, Sent: res.Sent, Total: res.Total}, nil
		},
	})

	// --- GET /admin/v1/dashboard  报表页 ---
	admin.GET("/dashboard", d.Dashboard.Handle)
}
