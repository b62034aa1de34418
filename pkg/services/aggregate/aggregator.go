package aggregate

import (
	"maps"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// Aggregator collects per-record findings of one check run. It is not safe
// for concurrent use; feed it after evaluation finished.
type Aggregator struct {
	check   string
	total   int
	flagged []domain.FlaggedRecord
	global  []domain.Finding
	tags    map[domain.FindingTag]int
	values  map[string]int64
	linkFn  func(domain.Key) string
}

func New(check string) *Aggregator {
	return &Aggregator{
		check:  check,
		tags:   map[domain.FindingTag]int{},
		values: map[string]int64{},
	}
}

// LinkWith sets the function building deep links for flagged records.
func (a *Aggregator) LinkWith(fn func(domain.Key) string) *Aggregator {
	a.linkFn = fn
	return a
}

// Add counts one evaluated record. Records without findings only add to the total.
func (a *Aggregator) Add(key domain.Key, findings []domain.Finding) {
	a.total++
	if len(findings) == 0 {
		return
	}
	flagged := domain.FlaggedRecord{Key: key, Findings: findings}
	if a.linkFn != nil {
		flagged.Link = a.linkFn(key)
	}
	a.flagged = append(a.flagged, flagged)
	for _, f := range findings {
		a.tags[f.Tag]++
	}
}

// AddGlobal records a finding that belongs to the collection rather than a record.
func (a *Aggregator) AddGlobal(f domain.Finding) {
	a.global = append(a.global, f)
	a.tags[f.Tag]++
}

func (a *Aggregator) Set(name string, v int64) {
	a.values[name] = v
}

func (a *Aggregator) Inc(name string) {
	a.values[name]++
}

func (a *Aggregator) Value(name string) int64 {
	return a.values[name]
}

func (a *Aggregator) Counts() Counts {
	return Counts{
		Total:  a.total,
		Errors: len(a.flagged),
		Global: len(a.global),
		Tags:   maps.Clone(a.tags),
		Values: maps.Clone(a.values),
	}
}

// Report builds the check report with the severity derived by p.
func (a *Aggregator) Report(p Policy, now time.Time) *domain.CheckReport {
	c := a.Counts()
	return &domain.CheckReport{
		Check:     a.check,
		Status:    DeriveSeverity(c, p),
		Total:     c.Total,
		Errors:    c.Errors,
		TagCounts: c.Tags,
		Flagged:   a.flagged,
		Global:    a.global,
		CheckedAt: now,
	}
}
