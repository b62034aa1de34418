package probes

import (
	"context"
	"fmt"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
)

// collectionCheck describes a check over a single collection where every
// flagged record raises a WARNING.
type collectionCheck struct {
	name       string
	collection source.Collection
	// noun is used in the summary, e.g. "Anarchy Runs"
	noun       string
	countLabel string
	errorLabel string
	link       linkMode
	// skip leaves records out of the run entirely
	skip func(domain.Record) bool
	// recovered counts records whose error marker was cleared; the counter
	// is only reported when set.
	recovered func(domain.Record) bool
}

func (c collectionCheck) run(ctx context.Context, env Env, reg *rules.Registry) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency, c.collection)
	if err != nil {
		return nil, err
	}

	recs := make([]domain.Record, 0, len(fetched[c.collection.Name]))
	for _, rec := range fetched[c.collection.Name] {
		if c.skip != nil && c.skip(rec) {
			continue
		}
		recs = append(recs, rec)
	}

	agg := aggregate.New(c.name).LinkWith(linker(env.Settings.Deeplink, c.link))
	recovered := 0
	err = evaluate(ctx, env, reg, recs, nil, func(r rules.Result) {
		agg.Add(r.Record.Key(), r.Findings)
		if c.recovered != nil && c.recovered(r.Record) {
			recovered++
		}
	})
	if err != nil {
		return nil, err
	}

	report := agg.Report(aggregate.AnyFinding{Level: domain.SeverityWarning}, env.Now)
	if report.Errors == 0 {
		report.Summary = fmt.Sprintf("No %s in Error found;", c.noun)
	} else {
		report.Summary = fmt.Sprintf("%d %s in Error found;", report.Errors, c.noun)
	}
	report.PerfData = []domain.PerfDatum{
		perf(c.countLabel, report.Total),
		perf(c.errorLabel, report.Errors),
	}
	if c.recovered != nil {
		report.PerfData = append(report.PerfData, perf("recovered", recovered))
	}

	zerolog.Ctx(ctx).Info().
		Int("total", report.Total).
		Int("errors", report.Errors).
		Msg("Evaluated records")
	return report, nil
}

// kopfProgress is the marker left by the operator framework while a handler
// is retrying.
var kopfProgress = []string{"status", "kopf", "progress"}

// kopfRecovered reports records whose progress marker exists but is empty.
func kopfRecovered(rec domain.Record) bool {
	return rec.HasPath(kopfProgress...) && !rec.Truthy(kopfProgress...)
}
