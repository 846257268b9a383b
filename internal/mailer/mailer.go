package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"founder-waitlist/internal/domain"
)

var broadcastRecipients = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "broadcast_recipients_total", Help: "Broadcast recipients by delivery result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(broadcastRecipients) }

// Transport 真实投递通道；留接口方便 demo 模式和测试替身
type Transport interface {
	Send(ctx context.Context, from string, to []string, subject, html, text string) error
}

type resendTransport struct{ client *resend.Client }

func (t *resendTransport) Send(ctx context.Context, from string, to []string, subject, html, text string) error {
	_, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      to,
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	return err
}

type Options struct {
	From         string
	FromName     string
	FallbackFrom string // 发信域未验证时重试用的已验证身份
	BatchSize    int
	BatchDelay   time.Duration
}

type Mailer struct {
	tr    Transport // nil → demo 模式（只记日志，必定成功）
	opt   Options
	log   *zap.Logger
	sleep func(time.Duration)
}

func New(apiKey string, opt Options, log *zap.Logger) *Mailer {
	var tr Transport
	if apiKey != "" {
		tr = &resendTransport{client: resend.NewClient(apiKey)}
	}
	return NewWithTransport(tr, opt, log)
}

func NewWithTransport(tr Transport, opt Options, log *zap.Logger) *Mailer {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 50
	}
	if opt.BatchDelay <= 0 {
		opt.BatchDelay = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{tr: tr, opt: opt, log: log, sleep: time.Sleep}
}

// Configured demo 模式返回 false
func (m *Mailer) Configured() bool { return m.tr != nil }

type WelcomeProfile struct {
	Position         int64
	PrimarySkill     string // 答案代号，渲染时过映射表
	BiggestChallenge string
	InterestLevel    string
}

// SendWelcome 给新报名者发欢迎信。未配置凭据时短路成功（demo 模式不算错误）。
func (m *Mailer) SendWelcome(ctx context.Context, email string, p WelcomeProfile) error {
	if m.tr == nil {
		m.log.Info("mail demo mode, skip welcome",
			zap.String("to", email), zap.Int64("position", p.Position))
		return nil
	}

	data := welcomeData{
		Position:      p.Position,
		Skill:         domain.SkillLabel(p.PrimarySkill),
		Challenge:     domain.ChallengeLabel(p.BiggestChallenge),
		InterestLevel: p.InterestLevel,
	}
	if data.InterestLevel == "" {
		data.InterestLevel = "Not specified"
	}

	var html, text bytes.Buffer
	if err := welcomeHTML.Execute(&html, data); err != nil {
		return err
	}
	if err := welcomeText.Execute(&text, data); err != nil {
		return err
	}

	subject := fmt.Sprintf("You're founder #%d on the waitlist 🎉", p.Position)
	err := m.tr.Send(ctx, m.fromAddr(), []string{email}, subject, html.String(), text.String())
	if err != nil && isUnverifiedDomain(err) && m.opt.FallbackFrom != "" {
		// 发信域未验证 → 换已验证身份重试一次
		m.log.Warn("from domain unverified, retrying with fallback sender",
			zap.String("fallback", m.opt.FallbackFrom), zap.Error(err))
		err = m.tr.Send(ctx, m.opt.FallbackFrom, []string{email}, subject, html.String(), text.String())
	}
	return err
}

type RecipientResult struct {
	Email string `json:"email"`
	Sent  bool   `json:"sent"`
}

type BroadcastResult struct {
	Success    bool              `json:"success"`
	Sent       int               `json:"sent"`
	Total      int               `json:"total"`
	Recipients []RecipientResult `json:"recipients"`
}

// SendBroadcast 按固定批量顺序投递，批间留间隔尊重外部限速。
// 某一批失败只记账，不中断后续批次。
func (m *Mailer) SendBroadcast(ctx context.Context, emails []string, subject, content string) BroadcastResult {
	res := BroadcastResult{Total: len(emails), Recipients: make([]RecipientResult, 0, len(emails))}

	var html bytes.Buffer
	_ = broadcastHTML.Execute(&html, struct{ Content string }{Content: content})

	size := m.opt.BatchSize
	for i := 0; i < len(emails); i += size {
		end := min(i+size, len(emails))
		batch := emails[i:end]

		var err error
		if m.tr == nil {
			m.log.Info("mail demo mode, skip broadcast batch", zap.Int("recipients", len(batch)))
		} else {
			err = m.tr.Send(ctx, m.fromAddr(), batch, subject, html.String(), content)
		}
		if err != nil {
			m.log.Error("broadcast batch failed",
				zap.Int("from", i), zap.Int("to", end), zap.Error(err))
		}
		for _, e := range batch {
			res.Recipients = append(res.Recipients, RecipientResult{Email: e, Sent: err == nil})
			if err == nil {
				res.Sent++
			}
		}
		if err == nil {
			broadcastRecipients.WithLabelValues("ok").Add(float64(len(batch)))
		} else {
			broadcastRecipients.WithLabelValues("error").Add(float64(len(batch)))
		}

		if end < len(emails) {
			m.sleep(m.opt.BatchDelay)
		}
	}
	res.Success = res.Sent == res.Total
	return res
}

func (m *Mailer) fromAddr() string {
	if m.opt.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.opt.FromName, m.opt.From)
	}
	return m.opt.From
}

func isUnverifiedDomain(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not verified") || strings.Contains(msg, "verify a domain")
}
