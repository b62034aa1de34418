package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/index"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownRule = errors.New("unknown rule")

// Context carries everything a rule may consult besides the record itself.
type Context struct {
	Now     time.Time
	Indexes index.Set
}

// Rule inspects one record and produces at most one finding.
type Rule interface {
	Name() string
	Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool)
}

// Option tweaks how a rule is registered.
type Option func(*entry)

// DisabledByDefault registers a rule that only runs once enabled explicitly.
func DisabledByDefault() Option {
	return func(e *entry) {
		e.enabled = false
	}
}

type entry struct {
	rule    Rule
	enabled bool
}

// RuleState describes a registered rule for listings.
type RuleState struct {
	Name    string
	Enabled bool
}

// Registry is an ordered set of named rules.
type Registry struct {
	entries []*entry
	byName  map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]*entry{}}
}

func (r *Registry) Register(rule Rule, opts ...Option) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	name := rule.Name()
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("rule %q is already registered", name)
	}

	e := &entry{rule: rule, enabled: true}
	for _, opt := range opts {
		opt(e)
	}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	return nil
}

func (r *Registry) Enable(name string) error {
	return r.toggle(name, true)
}

func (r *Registry) Disable(name string) error {
	return r.toggle(name, false)
}

func (r *Registry) toggle(name string, enabled bool) error {
	e, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRule, name)
	}
	e.enabled = enabled
	return nil
}

func (r *Registry) Rules() []RuleState {
	states := make([]RuleState, 0, len(r.entries))
	for _, e := range r.entries {
		states = append(states, RuleState{Name: e.rule.Name(), Enabled: e.enabled})
	}
	return states
}

// Evaluate runs the enabled rules in declaration order. A tag reported by more
// than one rule is kept once, with the first rule's detail.
func (r *Registry) Evaluate(rec domain.Record, ctx Context) []domain.Finding {
	var findings []domain.Finding
	seen := map[domain.FindingTag]struct{}{}
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}
		finding, ok := safeEvaluate(e.rule, rec, ctx)
		if !ok {
			continue
		}
		if _, dup := seen[finding.Tag]; dup {
			continue
		}
		seen[finding.Tag] = struct{}{}
		findings = append(findings, finding)
	}
	return findings
}

func safeEvaluate(rule Rule, rec domain.Record, ctx Context) (finding domain.Finding, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			finding = domain.Finding{
				Tag:    domain.TagEvaluationFailed,
				Detail: fmt.Sprintf("rule %s: %v", rule.Name(), p),
			}
			ok = true
		}
	}()
	return rule.Evaluate(rec, ctx)
}

// Result holds the findings of one record.
type Result struct {
	Record   domain.Record
	Findings []domain.Finding
}

// EvaluateAll evaluates every record with at most workers goroutines. Results
// keep the order of records.
func EvaluateAll(
	ctx context.Context,
	reg *Registry,
	records []domain.Record,
	evalCtx Context,
	workers int,
) ([]Result, error) {
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Result{Record: rec, Findings: reg.Evaluate(rec, evalCtx)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to evaluate records: %w", err)
	}
	return results, nil
}
