package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// statusTmpl renders the monitoring plugin contract: the status line with
// performance data, note lines, one line per flagged record, then sections.
const statusTmpl = `[{{status .}}] {{.Summary}}{{with .PerfData}} |{{range .}} {{.}}{{end}}{{end}}
{{range .Notes}}{{.}}
{{end}}{{if not .OmitDetails}}{{range .Flagged}}{{detail .}}
{{end}}{{end}}{{range .Sections}}{{if .Title}}{{.Title}}:
{{end}}{{range .Lines}}{{.}}
{{end}}{{end}}`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"status": statusText,
	"detail": detailLine,
}).Parse(statusTmpl))

func statusText(r *domain.CheckReport) string {
	if r.Label != "" {
		return r.Label
	}
	return r.Status.String()
}

// detailLine prints a flagged record, as a link for the monitoring UI when
// a deep-link base is configured.
func detailLine(f domain.FlaggedRecord) string {
	if f.Link != "" {
		return fmt.Sprintf(`<a target="_blank" href="%s">%s</a> - %s <br>`, f.Link, f.Key, f.TagList())
	}
	return fmt.Sprintf("%s: %s", f.Key, f.TagList())
}

// Reporter writes check reports in the monitoring plugin text format
type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(report *domain.CheckReport) error {
	if err := reportTemplate.Execute(c.writer, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// Unknown reports a run that could not be evaluated.
func (c *Reporter) Unknown(err error) error {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	_, werr := fmt.Fprintf(c.writer, "[%s] %s\n", domain.SeverityUnknown, msg)
	return werr
}
