package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"founder-waitlist/internal/domain"
	"founder-waitlist/internal/mailer"
	"founder-waitlist/pkg/utils"
)

var (
	signupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "waitlist_signups_total", Help: "Committed waitlist signups"},
	)
	signupConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "waitlist_signup_conflicts_total", Help: "Signup attempts rejected as duplicate email"},
	)
	welcomeEmails = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "welcome_emails_total", Help: "Welcome email attempts by result"},
		[]string{"result"},
	)
)

func init() { prometheus.MustRegister(signupsTotal, signupConflicts, welcomeEmails) }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Broadcaster 提交成功后的尽力而为计数推送；失败不影响报名
type Broadcaster interface {
	Broadcast(event string, payload map[string]any)
}

// WelcomeSender 欢迎信投递；失败只记日志，不回滚报名
type WelcomeSender interface {
	SendWelcome(ctx context.Context, email string, p mailer.WelcomeProfile) error
}

type SignupInput struct {
	Email            string `json:"email"`
	PrimarySkill     string `json:"primarySkill"`
	BiggestChallenge string `json:"biggestChallenge"`
	InterestLevel    int    `json:"interestLevel"`
}

type SignupResult struct {
	SubscriberID string `json:"userId"`
	Position     int64  `json:"position"`
	EmailSent    bool   `json:"emailSent"`
}

type SignupService struct {
	repo     domain.WaitlistRepository
	mail     WelcomeSender
	hub      Broadcaster
	capacity int64
	log      *zap.Logger
}

func NewSignupService(repo domain.WaitlistRepository, mail WelcomeSender, hub Broadcaster, capacity int64, log *zap.Logger) *SignupService {
	if capacity <= 0 {
		capacity = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SignupService{repo: repo, mail: mail, hub: hub, capacity: capacity, log: log}
}

// Submit 报名主流程：校验 → 查重 → 事务写入 → 算名次 → 发信/推送（尽力而为）。
// 事务提交后报名即成立，后面的通知失败一律不回滚。
func (s *SignupService) Submit(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.PrimarySkill = strings.TrimSpace(in.PrimarySkill)
	in.BiggestChallenge = strings.TrimSpace(in.BiggestChallenge)

	if err := validate(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		signupConflicts.Inc()
		return nil, domain.ErrEmailTaken
	}

	sub := &domain.Subscriber{ID: utils.NewID(), Email: in.Email}
	answers := []domain.SurveyResponse{
		newAnswer(domain.QuestionPrimarySkill, in.PrimarySkill),
		newAnswer(domain.QuestionBiggestChallenge, in.BiggestChallenge),
		newAnswer(domain.QuestionInterestLevel, strconv.Itoa(in.InterestLevel)),
	}
	if err := s.repo.CreateSignup(ctx, sub, answers); err != nil {
		// 并发同邮箱：唯一索引是最终裁判，repo 已归一成冲突
		if err == domain.ErrEmailTaken {
			signupConflicts.Inc()
		}
		return nil, err
	}
	signupsTotal.Inc()

	total, err := s.repo.CountSubscribers(ctx)
	if err != nil {
		// 报名已提交成立，名次算不出来就按 0 返回
		s.log.Warn("count after signup failed", zap.Error(err))
		total = 0
	}

	res := &SignupResult{SubscriberID: sub.ID, Position: total}

	if s.mail != nil {
		err := s.mail.SendWelcome(ctx, sub.Email, mailer.WelcomeProfile{
			Position:         total,
			PrimarySkill:     in.PrimarySkill,
			BiggestChallenge: in.BiggestChallenge,
			InterestLevel:    strconv.Itoa(in.InterestLevel),
		})
		if err != nil {
			welcomeEmails.WithLabelValues("error").Inc()
			s.log.Error("welcome email failed", zap.String("email", sub.Email), zap.Error(err))
		} else {
			welcomeEmails.WithLabelValues("ok").Inc()
			res.EmailSent = true
		}
	}

	if s.hub != nil {
		s.hub.Broadcast("counter_update", map[string]any{"count": total})
		s.hub.Broadcast("spots_update", map[string]any{"spots": spotsLeft(total, s.capacity)})
	}

	return res, nil
}

func validate(in SignupInput) error {
	fields := domain.FieldErrors{}
	if in.Email == "" {
		fields["email"] = "email is required"
	} else if !emailRe.MatchString(in.Email) {
		fields["email"] = "invalid email address"
	}
	if in.PrimarySkill == "" {
		fields["primarySkill"] = "primarySkill is required"
	}
	if in.BiggestChallenge == "" {
		fields["biggestChallenge"] = "biggestChallenge is required"
	}
	if in.InterestLevel < 1 || in.InterestLevel > 5 {
		fields["interestLevel"] = "interestLevel must be an integer between 1 and 5"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func newAnswer(q domain.QuestionID, answer string) domain.SurveyResponse {
	return domain.SurveyResponse{
		ID:         utils.NewID(),
		QuestionID: q,
		Question:   q.Text(),
		Answer:     answer,
	}
}

// spotsLeft 名额只作展示，到顶后贴零，不拦截报名
func spotsLeft(total, capacity int64) int64 {
	if left := capacity - total; left > 0 {
		return left
	}
	return 0
}
