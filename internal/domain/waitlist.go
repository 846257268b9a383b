package domain

import (
	"context"
	"errors"
	"time"
)

// Subscriber 等待名单里的一条报名记录
type Subscriber struct {
	ID        string           `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Email     string           `gorm:"uniqueIndex;size:255;not null" json:"email"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
	Responses []SurveyResponse `gorm:"foreignKey:SubscriberID;constraint:OnDelete:RESTRICT" json:"responses,omitempty"`
}

func (Subscriber) TableName() string { return "subscribers" }

// SurveyResponse 报名时固定三题问卷中的一条答案
type SurveyResponse struct {
	ID           string     `gorm:"primaryKey;type:varchar(32)" json:"id"`
	SubscriberID string     `gorm:"index;size:32;not null" json:"subscriberId"`
	QuestionID   QuestionID `gorm:"size:32;not null" json:"questionId"`
	Question     string     `gorm:"size:255;not null" json:"question"`
	Answer       string     `gorm:"size:255;not null" json:"answer"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (SurveyResponse) TableName() string { return "survey_responses" }

// AnalyticsMetric 预留的通用指标表；目前没有任何读写路径，只随迁移建表
type AnalyticsMetric struct {
	ID     string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Metric string    `gorm:"size:64;not null" json:"metric"`
	Value  float64   `json:"value"`
	Date   time.Time `json:"date"`
}

func (AnalyticsMetric) TableName() string { return "analytics_metrics" }

type QuestionID string

const (
	QuestionPrimarySkill     QuestionID = "primary_skill"
	QuestionBiggestChallenge QuestionID = "biggest_challenge"
	QuestionInterestLevel    QuestionID = "interest_level"
)

var questionText = map[QuestionID]string{
	QuestionPrimarySkill:     "What's your primary creative skill?",
	QuestionBiggestChallenge: "What's your biggest challenge as a freelancer?",
	QuestionInterestLevel:    "How interested are you in joining? (1-5)",
}

func (q QuestionID) Text() string { return questionText[q] }

// 答案代号 → 展示文案。闭合映射：未知代号原样透传，空值给固定兜底
var skillLabels = map[string]string{
	"design":      "Design & Creative",
	"development": "Development & Tech",
	"writing":     "Writing & Content",
	"marketing":   "Marketing & Growth",
	"video":       "Video & Animation",
	"music":       "Music & Audio",
	"other":       "Other",
}

var challengeLabels = map[string]string{
	"finding_clients": "Finding clients",
	"getting_paid":    "Getting paid on time",
	"pricing":         "Pricing my work",
	"time_management": "Time management",
	"competition":     "Standing out from competition",
	"other":           "Other",
}

const unspecifiedLabel = "Not specified"

func SkillLabel(code string) string     { return lookupLabel(skillLabels, code) }
func ChallengeLabel(code string) string { return lookupLabel(challengeLabels, code) }

func lookupLabel(m map[string]string, code string) string {
	if code == "" {
		return unspecifiedLabel
	}
	if l, ok := m[code]; ok {
		return l
	}
	return code
}

// ErrEmailTaken 邮箱已报名（由唯一索引兜底的冲突也归一到它）
var ErrEmailTaken = errors.New("email already registered")

// FieldErrors 字段级校验失败明细，key 为入参字段名
type FieldErrors map[string]string

type ValidationError struct{ Fields FieldErrors }

func (e *ValidationError) Error() string { return "validation failed" }

type WaitlistRepository interface {
	// CreateSignup 一个事务内写入订阅者和全部三条答案，整体成败
	CreateSignup(ctx context.Context, sub *Subscriber, answers []SurveyResponse) error
	FindByEmail(ctx context.Context, email string) (*Subscriber, error)
	CountSubscribers(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, t time.Time) (int64, error)
	// SignupTimes 全量报名时间，直方图分桶在服务层做
	SignupTimes(ctx context.Context) ([]time.Time, error)
	AnswerDistribution(ctx context.Context, q QuestionID) (map[string]int64, error)
	ListSubscribers(ctx context.Context, offset, limit int, search string) ([]Subscriber, int64, error)
	Emails(ctx context.Context) ([]string, error)
}
