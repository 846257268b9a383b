package service

import (
	"context"
	"testing"
	"time"

	"founder-waitlist/internal/domain"
)

func seedSignup(t *testing.T, repo *fakeRepo, email, skill, challenge, interest string, at time.Time) {
	t.Helper()
	sub := &domain.Subscriber{ID: email, Email: email, CreatedAt: at}
	answers := []domain.SurveyResponse{
		{ID: email + "-1", QuestionID: domain.QuestionPrimarySkill, Answer: skill},
		{ID: email + "-2", QuestionID: domain.QuestionBiggestChallenge, Answer: challenge},
		{ID: email + "-3", QuestionID: domain.QuestionInterestLevel, Answer: interest},
	}
	if err := repo.CreateSignup(context.Background(), sub, answers); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
}

func TestBasicStats(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewStatsService(repo, 500)

	got, err := svc.BasicStats(context.Background())
	if err != nil {
		t.Fatalf("BasicStats() error = %v", err)
	}
	if got.TotalSignups != 0 || got.SpotsLeft != 500 {
		t.Errorf("empty store: got %+v, want {0 500}", got)
	}

	seedSignup(t, repo, "a@x.com", "design", "pricing", "5", time.Now())
	got, err = svc.BasicStats(context.Background())
	if err != nil {
		t.Fatalf("BasicStats() error = %v", err)
	}
	if got.TotalSignups != 1 || got.SpotsLeft != 499 {
		t.Errorf("one signup: got %+v, want {1 499}", got)
	}
}

func TestGrowthRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, week int64
		want        string
	}{
		{0, 0, "New"},
		{10, 10, "New"}, // 全是本周来的，没有存量可比
		{10, 5, "100.0"},
		{15, 5, "50.0"},
		{100, 1, "1.0"},
	}
	for _, tt := range tests {
		if got := growthRate(tt.total, tt.week); got != tt.want {
			t.Errorf("growthRate(%d, %d) = %q, want %q", tt.total, tt.week, got, tt.want)
		}
	}
}

func TestPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, d int64
		want string
	}{
		{0, 0, "0"}, // 分母为零必须回 "0"
		{5, 0, "0"},
		{1, 3, "33.3"},
		{2, 2, "100.0"},
		{1, 8, "12.5"},
	}
	for _, tt := range tests {
		if got := pct(tt.n, tt.d); got != tt.want {
			t.Errorf("pct(%d, %d) = %q, want %q", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestDailyBuckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	times := []time.Time{
		now,
		now.Add(-time.Hour),
		now.Add(-2 * time.Hour),
		now.AddDate(0, 0, -29),
		now.AddDate(0, 0, -31), // 窗口外，不得出现
	}
	got := dailyBuckets(times, now)

	if len(got) != 30 {
		t.Fatalf("len = %d, want 30 buckets", len(got))
	}
	if got[0].Date != "2026-07-30" {
		t.Errorf("first bucket = %s, want 2026-07-30", got[0].Date)
	}
	if got[29].Date != "2026-08-28" || got[29].Count != 3 {
		t.Errorf("today bucket = %+v, want {2026-08-28 3}", got[29])
	}
	if got[0].Count != 1 {
		t.Errorf("oldest in-window bucket count = %d, want 1", got[0].Count)
	}
	// 中间没报名的日子补零
	if got[15].Count != 0 {
		t.Errorf("empty day count = %d, want 0", got[15].Count)
	}
}

func TestHourlyBuckets(t *testing.T) {
	t.Parallel()

	times := []time.Time{
		time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local),
		time.Date(2026, 8, 27, 9, 45, 0, 0, time.Local),
		time.Date(2026, 8, 26, 23, 5, 0, 0, time.Local),
	}
	got := hourlyBuckets(times)

	if len(got) != 24 {
		t.Fatalf("len = %d, want 24", len(got))
	}
	if got[9].Count != 2 {
		t.Errorf("hour 9 count = %d, want 2", got[9].Count)
	}
	if got[23].Count != 1 {
		t.Errorf("hour 23 count = %d, want 1", got[23].Count)
	}
	if got[0].Count != 0 {
		t.Errorf("hour 0 count = %d, want 0", got[0].Count)
	}
}

func TestTopEntry(t *testing.T) {
	t.Parallel()

	if got := topEntry(nil, domain.SkillLabel); got != "Not enough data yet" {
		t.Errorf("empty dist = %q", got)
	}
	got := topEntry(map[string]int64{"design": 3, "marketing": 1}, domain.SkillLabel)
	if got != "Design & Creative" {
		t.Errorf("topEntry = %q, want Design & Creative", got)
	}
	// 并列取代号字典序最小的那个，结果稳定
	got = topEntry(map[string]int64{"writing": 2, "design": 2}, domain.SkillLabel)
	if got != "Design & Creative" {
		t.Errorf("tie topEntry = %q, want Design & Creative", got)
	}
}

func TestComprehensiveStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	seedSignup(t, repo, "a@x.com", "design", "finding_clients", "5", now.Add(-time.Hour))
	seedSignup(t, repo, "b@x.com", "design", "pricing", "3", now.Add(-2*time.Hour))

	svc := NewStatsService(repo, 500)
	svc.now = func() time.Time { return now }

	rep, err := svc.ComprehensiveStats(context.Background())
	if err != nil {
		t.Fatalf("ComprehensiveStats() error = %v", err)
	}

	if rep.TotalUsers != 2 || rep.SignupsLast24h != 2 || rep.SignupsLast7d != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/2/2", rep.TotalUsers, rep.SignupsLast24h, rep.SignupsLast7d)
	}
	if rep.WeeklyGrowthRate != "New" {
		t.Errorf("WeeklyGrowthRate = %q, want New", rep.WeeklyGrowthRate)
	}
	if rep.MarketInsights.AvgInterestLevel != "4.0" {
		t.Errorf("AvgInterestLevel = %q, want 4.0", rep.MarketInsights.AvgInterestLevel)
	}
	if rep.MarketInsights.TopSkill != "Design & Creative" {
		t.Errorf("TopSkill = %q", rep.MarketInsights.TopSkill)
	}

	if len(rep.ConversionFunnel) != 4 {
		t.Fatalf("funnel has %d stages, want 4", len(rep.ConversionFunnel))
	}
	if f := rep.ConversionFunnel[0]; f.Count != 6 || f.Rate != "100%" || !f.Estimated {
		t.Errorf("funnel[0] = %+v, want estimated 3x count", f)
	}
	if f := rep.ConversionFunnel[1]; f.Count != 2 || f.Rate != "33%" {
		t.Errorf("funnel[1] = %+v", f)
	}
	if f := rep.ConversionFunnel[2]; f.Count != 2 || f.Rate != "100.0%" {
		t.Errorf("funnel[2] = %+v", f)
	}

	// interest 5 和 3，只有一个 >=4
	if rep.BusinessMetrics.RetentionPotential != "50.0" {
		t.Errorf("RetentionPotential = %q, want 50.0", rep.BusinessMetrics.RetentionPotential)
	}
	if rep.BusinessMetrics.CompletionRate != "100.0" {
		t.Errorf("CompletionRate = %q, want 100.0", rep.BusinessMetrics.CompletionRate)
	}
	if rep.BusinessMetrics.MarketFit != "Strong" {
		t.Errorf("MarketFit = %q, want Strong", rep.BusinessMetrics.MarketFit)
	}
	if rep.BusinessMetrics.AvgTimeToComplete != "2.5 minutes" {
		t.Errorf("AvgTimeToComplete = %q", rep.BusinessMetrics.AvgTimeToComplete)
	}

	if len(rep.DailySignups) != 30 || len(rep.HourlySignups) != 24 {
		t.Errorf("histogram sizes = %d/%d, want 30/24", len(rep.DailySignups), len(rep.HourlySignups))
	}
	if !rep.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", rep.GeneratedAt, now)
	}
}

func TestComprehensiveStats_EmptyStore(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewStatsService(repo, 500)

	rep, err := svc.ComprehensiveStats(context.Background())
	if err != nil {
		t.Fatalf("ComprehensiveStats() error = %v", err)
	}
	if rep.WeeklyGrowthRate != "New" {
		t.Errorf("WeeklyGrowthRate = %q, want New", rep.WeeklyGrowthRate)
	}
	if rep.MarketInsights.AvgInterestLevel != "0" {
		t.Errorf("AvgInterestLevel = %q, want 0", rep.MarketInsights.AvgInterestLevel)
	}
	if rep.MarketInsights.TopSkill != "Not enough data yet" {
		t.Errorf("TopSkill = %q", rep.MarketInsights.TopSkill)
	}
	if rep.BusinessMetrics.RetentionPotential != "0" {
		t.Errorf("RetentionPotential = %q, want 0", rep.BusinessMetrics.RetentionPotential)
	}
	if rep.BusinessMetrics.MarketFit != "Developing" {
		t.Errorf("MarketFit = %q, want Developing", rep.BusinessMetrics.MarketFit)
	}
	if len(rep.DailySignups) != 30 {
		t.Errorf("daily buckets = %d, want 30 zero-filled", len(rep.DailySignups))
	}
}
