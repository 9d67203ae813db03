package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/deepfake-detector/detector-console/internal/detector"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/policy"
	"github.com/deepfake-detector/detector-console/internal/render"
	"github.com/deepfake-detector/detector-console/internal/workflow"
	"github.com/sirupsen/logrus"
)

type indexData struct {
	Policies   []policy.Policy        `json:"-"`
	History    []models.HistoryEntry  `json:"history"`
	Health     detector.BackendHealth `json:"backend"`
	BackendURL string                 `json:"backend_url"`
}

type pageData struct {
	Policy   policy.Policy
	Snapshot workflow.Snapshot
	View     *render.View
	Alert    string
	Notice   string
}

type chatData struct {
	Transcript []models.ChatMessage
}

const layout = `
{{define "head"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; background: #0f172a; color: #e2e8f0; }
        main { max-width: 860px; margin: 0 auto; padding: 24px; }
        a { color: #93c5fd; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; }
        .card { background: #1e293b; border-radius: 8px; padding: 16px; text-decoration: none; color: inherit; }
        .alert-box { background: #7f1d1d; padding: 12px; border-radius: 6px; margin: 12px 0; }
        .notice-box { background: #14532d; padding: 12px; border-radius: 6px; margin: 12px 0; }
        .verdict { padding: 16px; border-radius: 8px; margin: 16px 0; }
        .verdict.alert { background: #ef4444; }
        .verdict.safe { background: #22c55e; }
        .bar { background: #334155; border-radius: 4px; height: 10px; }
        .bar > div { background: #f8fafc; border-radius: 4px; height: 10px; }
        .factor { border-left: 4px solid #475569; padding: 8px 12px; margin: 8px 0; background: #1e293b; }
        .muted { color: #94a3b8; font-size: 0.9em; }
        .msg-user { text-align: right; }
        .msg { margin: 6px 0; }
    </style>
</head>
<body><main>{{end}}
{{define "foot"}}</main></body></html>{{end}}
`

var indexTemplate = mustParse("index", `
{{template "head" "Deepfake Detection"}}
    <h1>Deepfake Detection</h1>
    <p class="muted">Analysis Service {{.BackendURL}}:
    {{if .Health.CheckedAt.IsZero}}not checked yet{{else if .Health.Reachable}}reachable{{else}}not responding{{end}}</p>

    <div class="cards">
    {{range .Policies}}
        <a class="card" href="{{.Path}}"><h2>{{.Icon}} {{.Title}}</h2><p class="muted">{{.Subtitle}}</p></a>
    {{end}}
        <a class="card" href="/chat"><h2>💬 Assistant</h2><p class="muted">Ask about deepfakes and your results</p></a>
    </div>

    <h2>Recent analyses</h2>
    {{range .History}}
    <div class="factor">
        <a href="{{.Path}}">{{.Icon}} {{.Name}}</a> - {{.Verdict}} ({{percent .Confidence}})
        <span class="muted">{{.Time.Format "15:04:05"}}</span>
    </div>
    {{else}}
    <p class="muted">No analyses yet.</p>
    {{end}}
{{template "foot"}}
`)

var pageTemplate = mustParse("page", `
{{template "head" .Policy.Title}}
    <p><a href="/">&larr; Back</a></p>
    <h1>{{.Policy.Icon}} {{.Policy.Title}}</h1>
    <p class="muted">{{.Policy.Subtitle}}</p>

    {{if .Alert}}<div class="alert-box" role="alert">{{.Alert}}</div>{{end}}
    {{if .Notice}}<div class="notice-box">{{.Notice}}</div>{{end}}

    <form method="post" action="{{.Policy.Path}}/select" {{if .Policy.Type.IsFile}}enctype="multipart/form-data"{{end}}>
        {{if .Policy.Type.IsFile}}
        <input type="file" name="file">
        {{else}}
        <input type="url" name="url" placeholder="https://example.com" value="{{.Snapshot.InputName}}">
        {{end}}
        <button type="submit">Select</button>
    </form>

    {{if .Snapshot.InputName}}<p>Selected: <strong>{{.Snapshot.InputName}}</strong></p>{{end}}

    <form id="analyze" method="post" action="{{.Policy.Path}}/analyze">
        <button type="submit" {{if not .Snapshot.CanAnalyze}}disabled{{end}}>Analyze</button>
        <span id="stage" class="muted">{{.Snapshot.Stage}}</span>
    </form>

    {{with .View}}
    <div class="verdict {{.Severity}}">
        <h2>{{.Verdict}}</h2>
        <p>{{.ConfidenceLabel}}: {{.ConfidenceText}}</p>
        <div class="bar"><div style="width: {{.BarWidth}}%"></div></div>
    </div>

    <h3>Contributing factors</h3>
    {{range .Factors}}
    <div class="factor">
        <strong>{{.Title}}</strong> <span class="muted">{{percent .Score}}</span>
        <div class="bar"><div style="width: {{.Width}}%"></div></div>
        <p>{{.Description}}</p>
    </div>
    {{else}}
    <p class="muted">No specific forensic anomalies detected.</p>
    {{end}}

    <p>
        <a href="{{$.Policy.Path}}/report">Download PDF report</a>
        <form method="post" action="{{$.Policy.Path}}/report/share" style="display:inline"><button type="submit">Share report</button></form>
    </p>
    {{end}}

    <script>
    document.getElementById("analyze").addEventListener("submit", function () {
        this.querySelector("button").disabled = true;
        var stage = document.getElementById("stage");
        setInterval(function () {
            fetch("{{.Policy.Path}}/status").then(function (r) { return r.json(); }).then(function (s) {
                stage.textContent = s.snapshot.stage || "";
            });
        }, 500);
    });
    </script>
{{template "foot"}}
`)

var chatTemplate = mustParse("chat", `
{{template "head" "Deepfake Detection Assistant"}}
    <p><a href="/">&larr; Back</a></p>
    <h1>💬 Assistant</h1>
    {{range .Transcript}}
    <div class="msg {{if eq .Sender "user"}}msg-user{{end}}">
        <span class="card">{{.Text}}</span>
        <div class="muted">{{.Time.Format "15:04"}}</div>
    </div>
    {{end}}
    <form method="post" action="/chat">
        <input type="text" name="message" placeholder="Ask a question" autofocus>
        <button type="submit">Send</button>
    </form>
{{template "foot"}}
`)

func mustParse(name, body string) *template.Template {
	t := template.New(name).Funcs(template.FuncMap{
		"percent": render.Percent,
	})
	template.Must(t.Parse(layout))
	return template.Must(t.Parse(body))
}

func renderPage(w http.ResponseWriter, t *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logrus.Errorf("Failed to render %s page: %v", t.Name(), err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
