package web

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"founder-waitlist/internal/service"
)

// Dashboard 服务端渲染的报表快照页（只读，不做任何写入）
type Dashboard struct {
	stats *service.StatsService
	log   *zap.Logger
}

func NewDashboard(stats *service.StatsService, log *zap.Logger) *Dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{stats: stats, log: log}
}

func (d *Dashboard) Handle(c *gin.Context) {
	rep, err := d.stats.ComprehensiveStats(c.Request.Context())
	if err != nil {
		// 上游挂了也要渲染可见的错误页，不能白屏
		d.log.Error("dashboard report failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = errorPage.Execute(c.Writer, struct{ Detail string }{Detail: err.Error()})
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := dashboardPage.Execute(c.Writer, rep); err != nil {
		d.log.Error("dashboard render failed", zap.Error(err))
	}
}

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Waitlist Dashboard</title>
  <style>
    body{font-family:-apple-system,Arial,sans-serif;margin:0;background:#f5f6fa;color:#1a1a2e}
    main{max-width:960px;margin:0 auto;padding:24px}
    h1{font-size:22px}
    .cards{display:flex;gap:16px;flex-wrap:wrap}
    .card{background:#fff;border-radius:8px;padding:16px 20px;box-shadow:0 1px 3px rgba(0,0,0,.08);min-width:140px}
    .card .num{font-size:28px;font-weight:700}
    .card .lbl{color:#666;font-size:13px}
    section{background:#fff;border-radius:8px;padding:16px 20px;margin-top:16px;box-shadow:0 1px 3px rgba(0,0,0,.08)}
    table{border-collapse:collapse;width:100%}
    td,th{padding:6px 8px;border-bottom:1px solid #eee;text-align:left;font-size:14px}
    .muted{color:#888;font-size:12px}
  </style>
</head>
<body>
<main>
  <h1>Founder Waitlist — Dashboard</h1>
  <p class="muted">Generated at {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>

  <div class="cards">
    <div class="card"><div class="num">{{.TotalUsers}}</div><div class="lbl">Total signups</div></div>
    <div class="card"><div class="num">{{.SignupsLast24h}}</div><div class="lbl">Last 24h</div></div>
    <div class="card"><div class="num">{{.SignupsLast7d}}</div><div class="lbl">Last 7 days</div></div>
    <div class="card"><div class="num">{{.SignupsLast30d}}</div><div class="lbl">Last 30 days</div></div>
    <div class="card"><div class="num">{{.WeeklyGrowthRate}}{{if ne .WeeklyGrowthRate "New"}}%{{end}}</div><div class="lbl">Weekly growth</div></div>
  </div>

  <section>
    <h2>Market insights</h2>
    <table>
      <tr><td>Average interest level</td><td>{{.MarketInsights.AvgInterestLevel}} / 5</td></tr>
      <tr><td>Top skill</td><td>{{.MarketInsights.TopSkill}}</td></tr>
      <tr><td>Top challenge</td><td>{{.MarketInsights.TopChallenge}}</td></tr>
      <tr><td>Peak signup hour</td><td>{{.MarketInsights.PeakSignupHour}}:00</td></tr>
    </table>
  </section>

  <section>
    <h2>Conversion funnel</h2>
    <table>
      <tr><th>Stage</th><th>Count</th><th>Rate</th></tr>
      {{range .ConversionFunnel}}
      <tr><td>{{.Stage}}{{if .Estimated}} <span class="muted">(estimated)</span>{{end}}</td><td>{{.Count}}</td><td>{{.Rate}}</td></tr>
      {{end}}
    </table>
  </section>

  <section>
    <h2>Business metrics</h2>
    <table>
      <tr><td>Retention potential</td><td>{{.BusinessMetrics.RetentionPotential}}%</td></tr>
      <tr><td>Survey completion rate</td><td>{{.BusinessMetrics.CompletionRate}}%</td></tr>
      <tr><td>Market fit</td><td>{{.BusinessMetrics.MarketFit}}</td></tr>
      <tr><td>Avg. time to complete</td><td>{{.BusinessMetrics.AvgTimeToComplete}}</td></tr>
    </table>
  </section>

  <section>
    <h2>Signups per day (last 30 days, UTC)</h2>
    <table>
      <tr><th>Date</th><th>Count</th></tr>
      {{range .DailySignups}}<tr><td>{{.Date}}</td><td>{{.Count}}</td></tr>{{end}}
    </table>
  </section>

  <section>
    <h2>Signups by hour of day (local time)</h2>
    <table>
      <tr><th>Hour</th><th>Count</th></tr>
      {{range .HourlySignups}}<tr><td>{{.Hour}}:00</td><td>{{.Count}}</td></tr>{{end}}
    </table>
  </section>

  <section>
    <h2>Answer distributions</h2>
    <h3>Primary skill</h3>
    <table>{{range $k, $v := .SkillDistribution}}<tr><td>{{$k}}</td><td>{{$v}}</td></tr>{{end}}</table>
    <h3>Biggest challenge</h3>
    <table>{{range $k, $v := .ChallengeDistribution}}<tr><td>{{$k}}</td><td>{{$v}}</td></tr>{{end}}</table>
    <h3>Interest level</h3>
    <table>{{range $k, $v := .InterestDistribution}}<tr><td>{{$k}}</td><td>{{$v}}</td></tr>{{end}}</table>
  </section>
</main>
</body>
</html>`))

var errorPage = template.Must(template.New("dashboard_error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Dashboard error</title></head>
<body style="font-family:Arial,sans-serif;max-width:720px;margin:48px auto;color:#1a1a2e">
  <h1>Dashboard unavailable</h1>
  <p>The analytics report could not be generated.</p>
  <pre style="background:#f5f5f5;padding:12px;border-radius:6px;white-space:pre-wrap">{{.Detail}}</pre>
</body>
</html>`))
