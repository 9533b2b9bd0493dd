package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/model"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"ts":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
}).Parse(`# Signal Report: {{.Signal.Recommendation}}

- **Wallet:** ` + "`{{.Signal.Address}}`" + `
- **Generated:** {{ts .GeneratedAt}}
- **Recommendation:** {{.Signal.Recommendation}}
- **Confidence:** {{pct .Signal.Confidence}}
- **Risk score:** {{printf "%.2f" .Signal.RiskScore}} / 10

## Wallet

| Tokens held | Transactions | Activity | Behavior |
|---|---|---|---|
| {{.Observation.TokensHeld}} | {{.Observation.TransactionCount}} | {{.Observation.ActivityType}} | {{.Observation.BehaviorType}} |

## Patterns
{{if .Patterns}}{{range .Patterns}}
- **{{.Name}}**: {{.Description}}{{end}}
{{else}}
No patterns detected.
{{end}}
## Reason

{{.Signal.Reason}}

## Annotation

{{.Signal.Annotation}}
`))

// ReportWriter renders analyses as Markdown reports
type ReportWriter struct {
	dir    string
	logger zerolog.Logger
}

func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{
		dir:    dir,
		logger: log.With().Str("component", "report_writer").Logger(),
	}
}

// Render produces the Markdown text for one analysis
func Render(analysis model.Analysis) (string, error) {
	if analysis.GeneratedAt.IsZero() {
		analysis.GeneratedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, analysis); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

// Write renders and stores the report, returning its path
func (w *ReportWriter) Write(analysis model.Analysis) (string, error) {
	at := analysis.GeneratedAt
	if at.IsZero() {
		at = time.Now()
		analysis.GeneratedAt = at
	}
	text, err := Render(analysis)
	if err != nil {
		return "", err
	}

	path := datedPath(w.dir, at, analysis.Signal.Address, ".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	w.logger.Info().Str("path", path).Msg("Report saved")
	return path, nil
}
