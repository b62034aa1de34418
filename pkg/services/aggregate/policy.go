package aggregate

import (
	"math"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// Value names understood by the built-in policies.
const (
	ValueTotal     = "total"
	ValueAvailable = "available"
	ValueTarget    = "target"
)

// Counts is the input of a severity policy.
type Counts struct {
	Total  int
	Errors int
	Global int
	Tags   map[domain.FindingTag]int
	Values map[string]int64
}

// Policy maps counts to a severity. Implementations must be pure.
type Policy interface {
	Derive(c Counts) domain.Severity
}

// DeriveSeverity applies p to c; a nil policy always yields OK.
func DeriveSeverity(c Counts, p Policy) domain.Severity {
	if p == nil {
		return domain.SeverityOK
	}
	return p.Derive(c)
}

// AnyFinding raises Level as soon as any record or global finding exists.
type AnyFinding struct {
	Level domain.Severity
}

func (a AnyFinding) Derive(c Counts) domain.Severity {
	if c.Errors > 0 || c.Global > 0 {
		return a.Level
	}
	return domain.SeverityOK
}

// AnyTag raises Level when one of Tags was reported. Other tags are informational.
type AnyTag struct {
	Level domain.Severity
	Tags  []domain.FindingTag
}

func (a AnyTag) Derive(c Counts) domain.Severity {
	for _, tag := range a.Tags {
		if c.Tags[tag] > 0 {
			return a.Level
		}
	}
	return domain.SeverityOK
}

// PercentBands compares the available value against percentages of the
// target value. A zero total means there is nothing to judge.
type PercentBands struct {
	WarningPercent  float64
	CriticalPercent float64
}

// Floors returns the minimum available counts that avoid WARNING and CRITICAL.
func (p PercentBands) Floors(target int64) (warn, crit int64) {
	warn = int64(math.Ceil(float64(target) * p.WarningPercent / 100))
	crit = int64(math.Ceil(float64(target) * p.CriticalPercent / 100))
	return warn, crit
}

func (p PercentBands) Derive(c Counts) domain.Severity {
	if NoData(c) {
		return domain.SeverityOK
	}
	warn, crit := p.Floors(c.Values[ValueTarget])
	available := c.Values[ValueAvailable]
	switch {
	case available < crit:
		return domain.SeverityCritical
	case available < warn:
		return domain.SeverityWarning
	default:
		return domain.SeverityOK
	}
}

// NoData reports whether the counts carry no total to compare against.
func NoData(c Counts) bool {
	return c.Values[ValueTotal] == 0
}

// AbsoluteThresholds compares a named value against fixed limits. Max, when
// set, is a hard ceiling that is CRITICAL when reached.
type AbsoluteThresholds struct {
	Value     string
	Warning   int64
	Critical  int64
	Max       *int64
	Inclusive bool
}

func (a AbsoluteThresholds) Derive(c Counts) domain.Severity {
	v := c.Values[a.Value]
	switch {
	case a.AtCeiling(c):
		return domain.SeverityCritical
	case a.exceeds(v, a.Critical):
		return domain.SeverityCritical
	case a.exceeds(v, a.Warning):
		return domain.SeverityWarning
	default:
		return domain.SeverityOK
	}
}

// AtCeiling reports whether the value reached Max.
func (a AbsoluteThresholds) AtCeiling(c Counts) bool {
	return a.Max != nil && c.Values[a.Value] >= *a.Max
}

func (a AbsoluteThresholds) exceeds(v, limit int64) bool {
	if a.Inclusive {
		return v >= limit
	}
	return v > limit
}

type worst []Policy

// Worst combines policies, keeping the most severe outcome.
func Worst(policies ...Policy) Policy {
	return worst(policies)
}

func (w worst) Derive(c Counts) domain.Severity {
	level := domain.SeverityOK
	for _, p := range w {
		level = domain.Worst(level, p.Derive(c))
	}
	return level
}
