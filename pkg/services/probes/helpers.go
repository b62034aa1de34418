package probes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/index"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// fetchAll lists the collections concurrently. Any failure is fatal for the run.
func fetchAll(
	ctx context.Context,
	src source.Source,
	concurrency int,
	collections ...source.Collection,
) (map[string][]domain.Record, error) {
	slots := make([][]domain.Record, len(collections))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, c := range collections {
		i, c := i, c
		g.Go(func() error {
			records, err := src.List(gctx, c)
			if err != nil {
				return err
			}
			slots[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]domain.Record, len(collections))
	for i, c := range collections {
		out[c.Name] = slots[i]
	}
	zerolog.Ctx(ctx).Debug().Int("collections", len(collections)).Msg("Fetched collections")
	return out, nil
}

// records returns the source for cluster backed checks.
func records(env Env) (source.Source, error) {
	if env.Clients == nil {
		return nil, fmt.Errorf("%w: no record source configured", config.ErrUsage)
	}
	return env.Clients.Records()
}

// applyRuleToggles applies --enable-rule and --disable-rule. Names unknown to
// this check are ignored so a shared config can toggle rules of several checks.
func applyRuleToggles(ctx context.Context, reg *rules.Registry, settings config.Settings) error {
	toggle := func(names []string, fn func(string) error) error {
		for _, name := range names {
			err := fn(name)
			if errors.Is(err, rules.ErrUnknownRule) {
				zerolog.Ctx(ctx).Debug().Str("rule", name).Msg("Rule not known to this check")
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := toggle(settings.EnableRules, reg.Enable); err != nil {
		return err
	}
	return toggle(settings.DisableRules, reg.Disable)
}

// evaluate runs reg over records and feeds the results to add.
func evaluate(
	ctx context.Context,
	env Env,
	reg *rules.Registry,
	recs []domain.Record,
	indexes index.Set,
	add func(rules.Result),
) error {
	if err := applyRuleToggles(ctx, reg, env.Settings); err != nil {
		return err
	}
	results, err := rules.EvaluateAll(ctx, reg, recs, rules.Context{Now: env.Now, Indexes: indexes}, env.Settings.Concurrency)
	if err != nil {
		return err
	}
	for _, r := range results {
		add(r)
	}
	return nil
}

// matches applies the --pattern and --ignorepattern substring filters.
func matches(name string, settings config.Settings) bool {
	if settings.Pattern != "" && !strings.Contains(name, settings.Pattern) {
		return false
	}
	if settings.IgnorePattern != "" && strings.Contains(name, settings.IgnorePattern) {
		return false
	}
	return true
}

type linkMode int

const (
	linkNone linkMode = iota
	// linkNamespaced links to {deeplink}{namespace}/{name}
	linkNamespaced
	// linkName links to {deeplink}{name}
	linkName
)

// linker builds deep links for flagged records, or nil without a base URL.
func linker(base string, mode linkMode) func(domain.Key) string {
	if base == "" || mode == linkNone {
		return nil
	}
	return func(k domain.Key) string {
		if mode == linkNamespaced && k.Namespace != "" {
			return base + k.Namespace + "/" + k.Name
		}
		return base + k.Name
	}
}

func perf(label string, v int) domain.PerfDatum {
	return domain.Perf(label, int64(v))
}
