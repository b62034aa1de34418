package probes

import (
	"context"
	"strings"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	TagNoRunnerDefaultPods domain.FindingTag = "NoRunnerDefaultPods"
	TagNoRunnerPod         domain.FindingTag = "NoRunnerPod"
	TagOtherException      domain.FindingTag = "OtherException"
	TagPodNotRunning       domain.FindingTag = "podNotRunning"
	TagPodListFailed       domain.FindingTag = "podListFailed"

	runnerDefaultPrefix = "anarchy-runner-default"
	anarchyPodPrefix    = "anarchy-"
)

type babylonNamespaces struct {
	selector string
	skip     string
}

func NewBabylonNamespaces() Probe { return &babylonNamespaces{} }

func (p *babylonNamespaces) Name() string { return "babylon-namespaces" }

func (p *babylonNamespaces) Description() string {
	return "Anarchy namespaces without running operator or runner pods"
}

func (p *babylonNamespaces) Flags(fs *pflag.FlagSet) {
	fs.String("selector", "app.kubernetes.io/name=anarchy", "label selector of the anarchy namespaces")
	fs.String("skip-namespace", "anarchy", "namespace left out of the check")
}

func (p *babylonNamespaces) Configure(s config.Scope) error {
	p.selector = s.String("selector")
	p.skip = s.String("skip-namespace")
	return nil
}

type podPhase struct {
	name  string
	phase string
}

// podsOf reads the pods attached to a namespace record by Run.
func podsOf(rec domain.Record) []podPhase {
	raw, _ := rec.Slice("pods")
	pods := make([]podPhase, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := domain.Record(m).String("name")
		phase, _ := domain.Record(m).String("phase")
		pods = append(pods, podPhase{name: name, phase: phase})
	}
	return pods
}

func isRunnerDefault(name string) bool { return strings.HasPrefix(name, runnerDefaultPrefix) }

func isOperator(name string) bool {
	return strings.HasPrefix(name, anarchyPodPrefix) && !isRunnerDefault(name)
}

// podRule runs check on the pods of a namespace whose pod listing succeeded.
func podRule(tag domain.FindingTag, check func(pods []podPhase) (string, bool)) rules.Rule {
	return rules.Chain(string(tag),
		rules.When(rules.Has("podListError"), rules.Pass()),
		rules.Otherwise(rules.Func(string(tag), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
			detail, flagged := check(podsOf(rec))
			if !flagged {
				return domain.Finding{}, false
			}
			return domain.Finding{Tag: tag, Detail: detail}, true
		})),
	)
}

func runningWith(pods []podPhase, match func(string) bool) bool {
	for _, pod := range pods {
		if match(pod.name) && pod.phase == "Running" {
			return true
		}
	}
	return false
}

func (p *babylonNamespaces) rules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(podRule(TagNoRunnerDefaultPods, func(pods []podPhase) (string, bool) {
		return "no running " + runnerDefaultPrefix + " pod", !runningWith(pods, isRunnerDefault)
	}))
	_ = reg.Register(podRule(TagNoRunnerPod, func(pods []podPhase) (string, bool) {
		return "no running operator pod", !runningWith(pods, isOperator)
	}))
	_ = reg.Register(podRule(TagOtherException, func(pods []podPhase) (string, bool) {
		if len(pods) == 0 {
			return "no pods", true
		}
		for _, pod := range pods {
			if !strings.HasPrefix(pod.name, anarchyPodPrefix) {
				return "unexpected pod " + pod.name, true
			}
		}
		return "", false
	}))
	_ = reg.Register(podRule(TagPodNotRunning, func(pods []podPhase) (string, bool) {
		var stuck []string
		for _, pod := range pods {
			if strings.HasPrefix(pod.name, anarchyPodPrefix) && pod.phase != "Running" {
				stuck = append(stuck, pod.name+"="+pod.phase)
			}
		}
		return strings.Join(stuck, ","), len(stuck) > 0
	}))
	_ = reg.Register(rules.Func(string(TagPodListFailed), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
		msg, ok := rec.String("podListError")
		if !ok {
			return domain.Finding{}, false
		}
		return domain.Finding{Tag: TagPodListFailed, Detail: msg}, true
	}))
	return reg
}

// withPods returns a copy of the namespace record carrying its pod phases,
// or the listing error.
func withPods(ns domain.Record, pods []domain.Record, listErr error) domain.Record {
	rec := domain.Record{"metadata": ns["metadata"]}
	if listErr != nil {
		rec["podListError"] = listErr.Error()
		return rec
	}
	phases := make([]any, 0, len(pods))
	for _, pod := range pods {
		phase, _ := pod.String("status", "phase")
		phases = append(phases, map[string]any{"name": pod.Name(), "phase": phase})
	}
	rec["pods"] = phases
	return rec
}

func (p *babylonNamespaces) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency, source.Namespaces.WithSelector(p.selector))
	if err != nil {
		return nil, err
	}

	var namespaces []domain.Record
	for _, ns := range fetched[source.Namespaces.Name] {
		if ns.Name() != p.skip {
			namespaces = append(namespaces, ns)
		}
	}

	recs := make([]domain.Record, len(namespaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(env.Settings.Concurrency, 1))
	for i, ns := range namespaces {
		i, ns := i, ns
		g.Go(func() error {
			pods, err := src.List(gctx, source.Pods.InNamespace(ns.Name()))
			if err != nil {
				zerolog.Ctx(gctx).Warn().Err(err).Str("namespace", ns.Name()).Msg("Failed to list pods")
			}
			recs[i] = withPods(ns, pods, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := aggregate.New(p.Name())
	err = evaluate(ctx, env, p.rules(), recs, nil, func(r rules.Result) {
		agg.Add(domain.Key{Name: r.Record.Name()}, r.Findings)
	})
	if err != nil {
		return nil, err
	}

	report := agg.Report(aggregate.AnyFinding{Level: domain.SeverityWarning}, env.Now)
	if report.Errors == 0 {
		report.Summary = "Anarchy Namespaces are good;"
	} else {
		report.Summary = "Anarchy Namespaces in Error found;"
	}
	report.PerfData = []domain.PerfDatum{
		perf("namespaces", report.Total),
		perf("errornamespaces", report.Errors),
	}
	return report, nil
}
