package probes

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rollup"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	TagPoolWarning      domain.FindingTag = "poolWarning"
	TagPoolCritical     domain.FindingTag = "poolCritical"
	TagHandleListFailed domain.FindingTag = "handleListFailed"

	poolNameLabel = "poolboy.gpte.redhat.com/resource-pool-name"
)

type babylonPools struct {
	namespace string
	bands     aggregate.PercentBands
	skipZero  bool
}

func NewBabylonPools() Probe { return &babylonPools{} }

func (p *babylonPools) Name() string { return "babylon-pools" }

func (p *babylonPools) Description() string {
	return "Available handles of each resource pool against its minimum"
}

func (p *babylonPools) Flags(fs *pflag.FlagSet) {
	fs.String("namespace", "poolboy", "namespace of the resource pools and handles")
	fs.IntP("warning", "w", 50, "percent of the pool minimum below which the pool warns")
	fs.IntP("critical", "r", 10, "percent of the pool minimum below which the pool is critical")
	fs.BoolP("skipzero", "z", true, "skip pools with a minimum of 0")
}

func (p *babylonPools) Configure(s config.Scope) error {
	p.namespace = s.String("namespace")
	p.bands = aggregate.PercentBands{
		WarningPercent:  float64(s.Int("warning")),
		CriticalPercent: float64(s.Int("critical")),
	}
	p.skipZero = s.Bool("skipzero")
	if p.bands.CriticalPercent > p.bands.WarningPercent {
		return fmt.Errorf("%w: --critical must not exceed --warning", config.ErrUsage)
	}
	return nil
}

// resolveHandle looks up the downstream subjects of a handle. Lookup failures
// make the resource unavailable, they do not fail the run.
func resolveHandle(ctx context.Context, src source.Source, rec domain.Record) rollup.Handle {
	handle, refs := rollup.HandleFromRecord(rec)
	if handle.Claimed {
		return handle
	}
	for _, ref := range refs {
		if ref.Kind != rollup.SubjectKind {
			handle.Resources = append(handle.Resources, rollup.Resource{Ref: ref})
			continue
		}
		subject, err := src.Get(ctx, source.AnarchySubjects, ref.Namespace, ref.Name)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).
				Str("handle", handle.Name).
				Str("subject", ref.Namespace+"/"+ref.Name).
				Msg("Subject lookup failed")
			subject = nil
		}
		handle.Resources = append(handle.Resources, rollup.ResourceFromSubject(ref, subject))
	}
	return handle
}

func (p *babylonPools) poolStatus(ctx context.Context, src source.Source, pool rollup.Pool) (rollup.PoolStatus, error) {
	handles, err := src.List(ctx, source.ResourceHandles.
		InNamespace(p.namespace).
		WithSelector(poolNameLabel+"="+pool.Name))
	if err != nil {
		return rollup.PoolStatus{}, err
	}
	resolved := make([]rollup.Handle, 0, len(handles))
	for _, h := range handles {
		resolved = append(resolved, resolveHandle(ctx, src, h))
	}
	return rollup.Evaluate(pool, resolved), nil
}

func levelLabel(level domain.Severity) string {
	if level == domain.SeverityOK {
		return "---"
	}
	return level.String()
}

func (p *babylonPools) table(statuses []rollup.PoolStatus, labels []string) []string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tMIN\tAVAILABLE\tTAKEN\tTOTAL\tSTATUS")
	fmt.Fprintln(w, "----\t---\t---------\t-----\t-----\t------")
	for i, s := range statuses {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Name, s.MinAvailable, s.Available, s.Taken, s.Total, labels[i])
	}
	_ = w.Flush()
	return strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
}

func (p *babylonPools) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency, source.ResourcePools.InNamespace(p.namespace))
	if err != nil {
		return nil, err
	}

	var pools []rollup.Pool
	for _, rec := range fetched[source.ResourcePools.Name] {
		if matches(rec.Name(), env.Settings) {
			pools = append(pools, rollup.PoolFromRecord(rec))
		}
	}

	// a pool whose handles cannot be listed is reported on its own, the
	// other pools are still evaluated
	statuses := make([]rollup.PoolStatus, len(pools))
	listErrs := make([]error, len(pools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(env.Settings.Concurrency, 1))
	for i, pool := range pools {
		i, pool := i, pool
		g.Go(func() error {
			status, err := p.poolStatus(gctx, src, pool)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				zerolog.Ctx(ctx).Warn().Err(err).Str("pool", pool.Name).Msg("Handle listing failed")
				statuses[i] = rollup.PoolStatus{Pool: pool}
				listErrs[i] = err
				return nil
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := aggregate.New(p.Name())
	var taken, available, total int64
	var shown []rollup.PoolStatus
	var levels []domain.Severity
	var labels []string
	for i, status := range statuses {
		taken += int64(status.Taken)
		available += int64(status.Available)
		total += int64(status.Total)
		if p.skipZero && status.MinAvailable == 0 {
			continue
		}

		if listErrs[i] != nil {
			agg.Add(domain.Key{Name: status.Name}, []domain.Finding{{
				Tag:    TagHandleListFailed,
				Detail: listErrs[i].Error(),
			}})
			shown = append(shown, status)
			levels = append(levels, domain.SeverityWarning)
			labels = append(labels, "UNKNOWN")
			continue
		}

		level := aggregate.DeriveSeverity(status.Counts(), p.bands)
		var findings []domain.Finding
		warnFloor, critFloor := p.bands.Floors(status.MinAvailable)
		switch level {
		case domain.SeverityCritical:
			findings = append(findings, domain.Finding{
				Tag:    TagPoolCritical,
				Detail: fmt.Sprintf("%d available, critical below %d", status.Available, critFloor),
			})
		case domain.SeverityWarning:
			findings = append(findings, domain.Finding{
				Tag:    TagPoolWarning,
				Detail: fmt.Sprintf("%d available, warning below %d", status.Available, warnFloor),
			})
		}
		agg.Add(domain.Key{Name: status.Name}, findings)
		shown = append(shown, status)
		levels = append(levels, level)
		labels = append(labels, levelLabel(level))
	}
	agg.Set("in-Use", taken)
	agg.Set(aggregate.ValueAvailable, available)
	agg.Set(aggregate.ValueTotal, total)

	report := agg.Report(aggregate.Worst(
		aggregate.AnyTag{Level: domain.SeverityCritical, Tags: []domain.FindingTag{TagPoolCritical}},
		aggregate.AnyTag{Level: domain.SeverityWarning, Tags: []domain.FindingTag{TagPoolWarning, TagHandleListFailed}},
	), env.Now)

	if len(pools) == 0 {
		report.Status = domain.SeverityWarning
		report.Summary = "Could not get pool information"
		return report, nil
	}

	report.Summary = fmt.Sprintf("Pools list (warning %d%%, critical %d%%):",
		int(p.bands.WarningPercent), int(p.bands.CriticalPercent))
	report.PerfData = []domain.PerfDatum{
		{Label: "in-Use", Value: taken, Min: domain.Bound(0), Max: domain.Bound(total)},
		{Label: "available", Value: available, Min: domain.Bound(0), Max: domain.Bound(total)},
	}

	// a degraded run only lists the pools in trouble
	if report.Status != domain.SeverityOK {
		var troubled []rollup.PoolStatus
		var troubledLabels []string
		for i, level := range levels {
			if level != domain.SeverityOK {
				troubled = append(troubled, shown[i])
				troubledLabels = append(troubledLabels, labels[i])
			}
		}
		shown, labels = troubled, troubledLabels
	}
	report.Sections = []domain.ReportSection{{Lines: p.table(shown, labels)}}
	report.OmitDetails = true
	return report, nil
}
