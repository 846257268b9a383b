package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"founder-waitlist/internal/domain"
)

type WaitlistRepo struct{ db *gorm.DB }

func NewWaitlistRepo(db *gorm.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// CreateSignup 订阅者 + 三条答案放一个事务，任一失败整体回滚
func (r *WaitlistRepo) CreateSignup(ctx context.Context, sub *domain.Subscriber, answers []domain.SurveyResponse) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubscriberID = sub.ID
		}
		if err := tx.Create(&answers).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil && isDupKey(err) {
		// 并发撞唯一索引 → 归一成冲突，不当崩溃处理
		return domain.ErrEmailTaken
	}
	return err
}

func (r *WaitlistRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := r.db.WithContext(ctx).First(&s, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *WaitlistRepo) CountSubscribers(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Subscriber{}).Count(&total).Error
	return total, err
}

func (r *WaitlistRepo) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Subscriber{}).
		Where("created_at >= ?", t).Count(&total).Error
	return total, err
}

func (r *WaitlistRepo) SignupTimes(ctx context.Context) ([]time.Time, error) {
	var ts []time.Time
	err := r.db.WithContext(ctx).Model(&domain.Subscriber{}).
		Order("created_at ASC").Pluck("created_at", &ts).Error
	return ts, err
}

func (r *WaitlistRepo) AnswerDistribution(ctx context.Context, q domain.QuestionID) (map[string]int64, error) {
	type row struct {
		Answer string
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.SurveyResponse{}).
		Select("answer, COUNT(*) AS n").
		Where("question_id = ?", q).
		Group("answer").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Answer] = r.N
	}
	return out, nil
}

func (r *WaitlistRepo) ListSubscribers(ctx context.Context, offset, limit int, search string) ([]domain.Subscriber, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.db.WithContext(ctx).Model(&domain.Subscriber{})
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("email LIKE ?", "%"+s+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []domain.Subscriber
	if err := q.Preload("Responses").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *WaitlistRepo) Emails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&domain.Subscriber{}).
		Order("created_at ASC").Pluck("email", &emails).Error
	return emails, err
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
