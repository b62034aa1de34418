package domain

import (
	"strconv"
	"strings"
	"time"
)

// CheckReport is the result of one probe run
type CheckReport struct {
	Check  string
	Status Severity
	// Label replaces the status name in the rendered status line when set.
	Label     string
	Summary   string
	Total     int
	Errors    int
	TagCounts map[FindingTag]int
	Flagged   []FlaggedRecord
	Global    []Finding
	PerfData  []PerfDatum
	Notes     []string
	Sections  []ReportSection
	// OmitDetails leaves the per-record lines out of the text output when
	// Sections already list the flagged records.
	OmitDetails bool
	CheckedAt   time.Time
}

// ReportSection is a free-form block printed after the flagged records (tables, listings)
type ReportSection struct {
	Title string
	Lines []string
}

// PerfDatum is one performance data token: label=value;warn;crit;min;max;
type PerfDatum struct {
	Label string
	Value int64
	Warn  *int64
	Crit  *int64
	Min   *int64
	Max   *int64
}

func (p PerfDatum) String() string {
	var sb strings.Builder
	sb.WriteString(p.Label)
	sb.WriteByte('=')
	sb.WriteString(strconv.FormatInt(p.Value, 10))
	for _, bound := range []*int64{p.Warn, p.Crit, p.Min, p.Max} {
		sb.WriteByte(';')
		if bound != nil {
			sb.WriteString(strconv.FormatInt(*bound, 10))
		}
	}
	sb.WriteByte(';')
	return sb.String()
}

// Perf builds a perf datum without bounds.
func Perf(label string, value int64) PerfDatum {
	return PerfDatum{Label: label, Value: value}
}

// Bound is a helper for the optional perf bounds.
func Bound(v int64) *int64 {
	return &v
}
