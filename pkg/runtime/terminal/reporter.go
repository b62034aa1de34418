package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/probes"
)

// Reporter prints the available checks to the console
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(checks []probes.Probe) error {
	tmpl := `Available checks:
{{range .}}  {{printf "%-22s" .Name}} {{.Description}}
{{end}}`
	t, err := template.New("checks").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, checks)
}
