package mailer

import (
	htmltpl "html/template"
	texttpl "text/template"
)

type welcomeData struct {
	Position      int64
	Skill         string
	Challenge     string
	InterestLevel string
}

var welcomeHTML = htmltpl.Must(htmltpl.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif;color:#1a1a2e;max-width:560px;margin:0 auto;padding:24px">
    <h1 style="font-size:22px">Welcome aboard, founder #{{.Position}} 🎉</h1>
    <p>You've secured one of the 500 founder spots. Here's what you told us:</p>
    <table cellpadding="6" style="border-collapse:collapse">
      <tr><td><strong>Primary skill</strong></td><td>{{.Skill}}</td></tr>
      <tr><td><strong>Biggest challenge</strong></td><td>{{.Challenge}}</td></tr>
      <tr><td><strong>Interest level</strong></td><td>{{.InterestLevel}}</td></tr>
    </table>
    <p>We'll reach out as soon as early access opens. Founders go first.</p>
    <p style="color:#888;font-size:12px">You're receiving this because you joined our waitlist.</p>
  </body>
</html>`))

var welcomeText = texttpl.Must(texttpl.New("welcome_text").Parse(`Welcome aboard, founder #{{.Position}}!

You've secured one of the 500 founder spots. Here's what you told us:

  Primary skill:     {{.Skill}}
  Biggest challenge: {{.Challenge}}
  Interest level:    {{.InterestLevel}}

We'll reach out as soon as early access opens. Founders go first.
`))

var broadcastHTML = htmltpl.Must(htmltpl.New("broadcast").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif;color:#1a1a2e;max-width:560px;margin:0 auto;padding:24px">
    <div style="white-space:pre-wrap">{{.Content}}</div>
    <p style="color:#888;font-size:12px">You're receiving this because you joined our waitlist.</p>
  </body>
</html>`))
