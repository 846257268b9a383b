package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"founder-waitlist/internal/domain"
)

type BasicStats struct {
	TotalSignups int64 `json:"totalSignups"`
	SpotsLeft    int64 `json:"spotsLeft"`
}

type DayBucket struct {
	Date  string `json:"date"` // 2006-01-02（UTC 日界）
	Count int64  `json:"count"`
}

type HourBucket struct {
	Hour  int   `json:"hour"` // 0-23（本地时区）
	Count int64 `json:"count"`
}

type FunnelStage struct {
	Stage     string `json:"stage"`
	Count     int64  `json:"count"`
	Rate      string `json:"rate"`
	Estimated bool   `json:"estimated,omitempty"`
}

type MarketInsights struct {
	AvgInterestLevel string `json:"avgInterestLevel"`
	TopSkill         string `json:"topSkill"`
	TopChallenge     string `json:"topChallenge"`
	PeakSignupHour   int    `json:"peakSignupHour"`
}

type BusinessMetrics struct {
	RetentionPotential string `json:"retentionPotential"`
	CompletionRate     string `json:"completionRate"`
	MarketFit          string `json:"marketFit"`
	AvgTimeToComplete  string `json:"avgTimeToComplete"`
}

type Report struct {
	TotalUsers            int64            `json:"totalUsers"`
	SignupsLast24h        int64            `json:"signupsLast24h"`
	SignupsLast7d         int64            `json:"signupsLast7d"`
	SignupsLast30d        int64            `json:"signupsLast30d"`
	DailySignups          []DayBucket      `json:"dailySignups"`
	HourlySignups         []HourBucket     `json:"hourlySignups"`
	SkillDistribution     map[string]int64 `json:"skillDistribution"`
	ChallengeDistribution map[string]int64 `json:"challengeDistribution"`
	InterestDistribution  map[string]int64 `json:"interestDistribution"`
	WeeklyGrowthRate      string           `json:"weeklyGrowthRate"` // 百分数字符串，无老用户时为 "New"
	MarketInsights        MarketInsights   `json:"marketInsights"`
	ConversionFunnel      []FunnelStage    `json:"conversionFunnel"`
	BusinessMetrics       BusinessMetrics  `json:"businessMetrics"`
	GeneratedAt           time.Time        `json:"generatedAt"`
}

type AnalyticsSummary struct {
	SkillDistribution     map[string]int64 `json:"skillDistribution"`
	ChallengeDistribution map[string]int64 `json:"challengeDistribution"`
	InterestDistribution  map[string]int64 `json:"interestDistribution"`
	RecentSignups         int64            `json:"recentSignups"` // 近 24h
}

// StatsService 按需重算，无缓存、无增量维护。singleflight 只合并并发突发，
// 每次完整调用仍然全量扫描。
type StatsService struct {
	repo     domain.WaitlistRepository
	capacity int64
	sf       singleflight.Group
	now      func() time.Time
}

func NewStatsService(repo domain.WaitlistRepository, capacity int64) *StatsService {
	if capacity <= 0 {
		capacity = 500
	}
	return &StatsService{repo: repo, capacity: capacity, now: time.Now}
}

func (s *StatsService) BasicStats(ctx context.Context) (BasicStats, error) {
	total, err := s.repo.CountSubscribers(ctx)
	if err != nil {
		return BasicStats{}, err
	}
	return BasicStats{TotalSignups: total, SpotsLeft: spotsLeft(total, s.capacity)}, nil
}

func (s *StatsService) Analytics(ctx context.Context) (*AnalyticsSummary, error) {
	out := &AnalyticsSummary{}
	var err error
	if out.SkillDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionPrimarySkill); err != nil {
		return nil, err
	}
	if out.ChallengeDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionBiggestChallenge); err != nil {
		return nil, err
	}
	if out.InterestDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionInterestLevel); err != nil {
		return nil, err
	}
	if out.RecentSignups, err = s.repo.CountSince(ctx, s.now().Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	return out, nil
}

// ComprehensiveStats 全量报表。并发请求合并成一次计算（不缓存结果）。
func (s *StatsService) ComprehensiveStats(ctx context.Context) (*Report, error) {
	v, err, _ := s.sf.Do("comprehensive", func() (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *StatsService) compute(ctx context.Context) (*Report, error) {
	now := s.now()
	r := &Report{GeneratedAt: now}

	var err error
	if r.TotalUsers, err = s.repo.CountSubscribers(ctx); err != nil {
		return nil, err
	}
	if r.SignupsLast24h, err = s.repo.CountSince(ctx, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	if r.SignupsLast7d, err = s.repo.CountSince(ctx, now.Add(-7*24*time.Hour)); err != nil {
		return nil, err
	}
	if r.SignupsLast30d, err = s.repo.CountSince(ctx, now.Add(-30*24*time.Hour)); err != nil {
		return nil, err
	}

	times, err := s.repo.SignupTimes(ctx)
	if err != nil {
		return nil, err
	}
	// 注意：日桶按 UTC 日界，时桶按本地时区。两者口径不一致，沿用线上报表的既有行为。
	r.DailySignups = dailyBuckets(times, now)
	r.HourlySignups = hourlyBuckets(times)

	if r.SkillDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionPrimarySkill); err != nil {
		return nil, err
	}
	if r.ChallengeDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionBiggestChallenge); err != nil {
		return nil, err
	}
	if r.InterestDistribution, err = s.repo.AnswerDistribution(ctx, domain.QuestionInterestLevel); err != nil {
		return nil, err
	}

	r.WeeklyGrowthRate = growthRate(r.TotalUsers, r.SignupsLast7d)
	r.MarketInsights = insights(r)
	r.ConversionFunnel = funnel(r)
	r.BusinessMetrics = business(r)
	return r, nil
}

// dailyBuckets 覆盖 [today-29d, today] 共 30 个 UTC 日历日，无报名的日子补零
func dailyBuckets(times []time.Time, now time.Time) []DayBucket {
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -29)

	counts := make(map[string]int64, len(times))
	for _, t := range times {
		counts[t.UTC().Format("2006-01-02")]++
	}

	out := make([]DayBucket, 0, 30)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DayBucket{Date: key, Count: counts[key]})
	}
	return out
}

// hourlyBuckets 全量用户按本地时刻分 24 桶（不限时间窗）
func hourlyBuckets(times []time.Time) []HourBucket {
	out := make([]HourBucket, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, t := range times {
		out[t.Local().Hour()].Count++
	}
	return out
}

// growthRate 本周新增相对存量的百分比；没有存量（全是本周来的）返回哨兵 "New"
func growthRate(total, thisWeek int64) string {
	prior := total - thisWeek
	if prior <= 0 {
		return "New"
	}
	return fmt.Sprintf("%.1f", float64(thisWeek)/float64(prior)*100)
}

func insights(r *Report) MarketInsights {
	mi := MarketInsights{
		AvgInterestLevel: "0",
		TopSkill:         topEntry(r.SkillDistribution, domain.SkillLabel),
		TopChallenge:     topEntry(r.ChallengeDistribution, domain.ChallengeLabel),
	}

	if r.TotalUsers > 0 {
		var sum int64
		for answer, n := range r.InterestDistribution {
			if v, err := strconv.Atoi(answer); err == nil {
				sum += int64(v) * n
			}
		}
		mi.AvgInterestLevel = fmt.Sprintf("%.1f", float64(sum)/float64(r.TotalUsers))
	}

	var best int64 = -1
	for _, b := range r.HourlySignups {
		if b.Count > best {
			best = b.Count
			mi.PeakSignupHour = b.Hour
		}
	}
	return mi
}

const noDataLabel = "Not enough data yet"

func topEntry(dist map[string]int64, label func(string) string) string {
	if len(dist) == 0 {
		return noDataLabel
	}
	var bestCode string
	var best int64 = -1
	for code, n := range dist {
		if n > best || (n == best && code < bestCode) {
			best = n
			bestCode = code
		}
	}
	return label(bestCode)
}

// funnel 第一级是估算（3×报名数，固定 "100%"/"33%" 标签，没有真实 PV 来源），
// 后两级按问卷答案覆盖率实测。
func funnel(r *Report) []FunnelStage {
	withSkill := sumCounts(r.SkillDistribution)
	withInterest := sumCounts(r.InterestDistribution)
	return []FunnelStage{
		{Stage: "Landing Page Views", Count: r.TotalUsers * 3, Rate: "100%", Estimated: true},
		{Stage: "Waitlist Signups", Count: r.TotalUsers, Rate: "33%", Estimated: true},
		{Stage: "Shared Primary Skill", Count: withSkill, Rate: pct(withSkill, r.TotalUsers) + "%"},
		{Stage: "Rated Interest", Count: withInterest, Rate: pct(withInterest, r.TotalUsers) + "%"},
	}
}

func business(r *Report) BusinessMetrics {
	var highInterest int64
	for answer, n := range r.InterestDistribution {
		if v, err := strconv.Atoi(answer); err == nil && v >= 4 {
			highInterest += n
		}
	}
	completed := sumCounts(r.InterestDistribution)

	fit := "Developing"
	if len(r.ChallengeDistribution) > 0 {
		fit = "Strong"
	}
	return BusinessMetrics{
		RetentionPotential: pct(highInterest, r.TotalUsers),
		CompletionRate:     pct(completed, r.TotalUsers),
		MarketFit:          fit,
		AvgTimeToComplete:  "2.5 minutes", // 固定文案，未实测
	}
}

func sumCounts(dist map[string]int64) int64 {
	var n int64
	for _, v := range dist {
		n += v
	}
	return n
}

// pct 一位小数的百分比字符串；分母为零时回 "0"，绝不抛除零
func pct(n, d int64) string {
	if d == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(n)/float64(d)*100)
}
