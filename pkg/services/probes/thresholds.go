package probes

import (
	"context"
	"fmt"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/aap"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type namespaceCount struct {
	warning  int64
	critical int64
	max      int64
}

func NewNamespaceCount() Probe { return &namespaceCount{} }

func (p *namespaceCount) Name() string { return "namespace-count" }

func (p *namespaceCount) Description() string {
	return "Number of cluster namespaces against warning, critical and engineering limits"
}

func (p *namespaceCount) Flags(fs *pflag.FlagSet) {
	fs.IntP("warning", "w", 0, "namespace count above which the check warns")
	fs.IntP("critical", "r", 0, "namespace count above which the check is critical")
	fs.IntP("max", "m", 0, "engineering limit of the cluster")
}

func (p *namespaceCount) Configure(s config.Scope) error {
	limits := map[string]*int64{"warning": &p.warning, "critical": &p.critical, "max": &p.max}
	for _, name := range []string{"warning", "critical", "max"} {
		v, err := s.RequireInt(name)
		if err != nil {
			return err
		}
		*limits[name] = int64(v)
	}
	return nil
}

func (p *namespaceCount) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency, source.Namespaces)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(p.Name())
	for _, ns := range fetched[source.Namespaces.Name] {
		agg.Add(ns.Key(), nil)
	}
	count := int64(len(fetched[source.Namespaces.Name]))
	agg.Set("namespaces", count)

	policy := aggregate.AbsoluteThresholds{
		Value:    "namespaces",
		Warning:  p.warning,
		Critical: p.critical,
		Max:      domain.Bound(p.max),
	}
	report := agg.Report(policy, env.Now)
	switch {
	case policy.AtCeiling(agg.Counts()):
		report.Label = "CRITICAL FAILURE"
		report.Summary = fmt.Sprintf("maximum namespaces exceeded: at %d with %d max;", count, p.max)
	case report.Status == domain.SeverityCritical:
		report.Summary = fmt.Sprintf("namespaces above critical level: at %d with %d critical;", count, p.critical)
	case report.Status == domain.SeverityWarning:
		report.Summary = fmt.Sprintf("namespaces above warning level: at %d with %d warning;", count, p.warning)
	default:
		report.Summary = fmt.Sprintf("namespaces within normal range: %d namespaces", count)
	}
	report.PerfData = []domain.PerfDatum{{
		Label: "namespaces",
		Value: count,
		Warn:  domain.Bound(p.warning),
		Crit:  domain.Bound(p.critical),
		Min:   domain.Bound(0),
		Max:   domain.Bound(p.max),
	}}
	return report, nil
}

// jobLimits are the inclusive thresholds of one job state.
type jobLimits struct {
	state    string
	warning  int64
	critical int64
}

type aap2Jobs struct {
	limits []jobLimits
}

func NewAAP2Jobs() Probe { return &aap2Jobs{} }

func (p *aap2Jobs) Name() string { return "aap2-jobs" }

func (p *aap2Jobs) Description() string {
	return "Automation controller jobs piling up in pending, running or waiting states"
}

var thresholdStates = []string{"pending", "running", "waiting"}

func (p *aap2Jobs) Flags(fs *pflag.FlagSet) {
	for _, state := range thresholdStates {
		fs.Int(state+"-warning", 0, fmt.Sprintf("count of %s jobs that constitutes warning", state))
		fs.Int(state+"-critical", 0, fmt.Sprintf("count of %s jobs that constitutes critical", state))
	}
}

func (p *aap2Jobs) Configure(s config.Scope) error {
	p.limits = p.limits[:0]
	for _, state := range thresholdStates {
		warn, err := s.RequireInt(state + "-warning")
		if err != nil {
			return err
		}
		crit, err := s.RequireInt(state + "-critical")
		if err != nil {
			return err
		}
		p.limits = append(p.limits, jobLimits{state: state, warning: int64(warn), critical: int64(crit)})
	}
	return nil
}

func (p *aap2Jobs) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	if env.Clients == nil {
		return nil, fmt.Errorf("%w: no automation controller configured", config.ErrUsage)
	}
	jobs, err := env.Clients.Jobs()
	if err != nil {
		return nil, err
	}
	counts, err := jobs.JobCounts(ctx, aap.JobStates)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(p.Name())
	for state, n := range counts {
		agg.Set(state, n)
	}

	policies := make([]aggregate.Policy, 0, len(p.limits))
	for _, l := range p.limits {
		policies = append(policies, aggregate.AbsoluteThresholds{
			Value:     l.state,
			Warning:   l.warning,
			Critical:  l.critical,
			Inclusive: true,
		})
	}
	report := agg.Report(aggregate.Worst(policies...), env.Now)
	switch report.Status {
	case domain.SeverityCritical:
		report.Summary = "Ansible Controller jobs status is in critical state;"
	case domain.SeverityWarning:
		report.Summary = "Ansible Controller jobs status is in warning state;"
	default:
		report.Summary = "Ansible Controller jobs status is ok;"
	}
	for _, state := range []string{"running", "new", "pending", "waiting", "successful", "failed"} {
		report.PerfData = append(report.PerfData, domain.Perf(state, counts[state]))
	}

	zerolog.Ctx(ctx).Info().Interface("counts", counts).Msg("Counted controller jobs")
	return report, nil
}
