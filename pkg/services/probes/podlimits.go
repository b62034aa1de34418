package probes

import (
	"context"
	"fmt"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/api/resource"
)

const (
	TagRestarts        domain.FindingTag = "restarts"
	TagCPUOverLimit    domain.FindingTag = "cpuOverLimit"
	TagMemoryOverLimit domain.FindingTag = "memoryOverLimit"
)

type podLimits struct {
	maxRestarts int64
}

func NewPodLimits() Probe { return &podLimits{} }

func (p *podLimits) Name() string { return "pod-limits" }

func (p *podLimits) Description() string {
	return "Containers restarting too often or using more than their limits"
}

func (p *podLimits) Flags(fs *pflag.FlagSet) {
	fs.Int("restarts", 200, "container restart count reported as a concern")
}

func (p *podLimits) Configure(s config.Scope) error {
	p.maxRestarts = int64(s.Int("restarts"))
	return nil
}

// containerUsage joins the pod spec, pod status and pod metrics of one container.
type containerUsage struct {
	pod      domain.Key
	name     string
	restarts int64
	limits   map[string]string
	usage    map[string]string
}

func (c *containerUsage) record() domain.Record {
	return domain.Record{
		"metadata": map[string]any{
			"namespace": c.pod.Namespace,
			"name":      c.pod.Name + "::" + c.name,
		},
		"restarts": c.restarts,
		"limits":   toAny(c.limits),
		"usage":    toAny(c.usage),
	}
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		if s, ok := raw.(string); ok {
			out[k] = s
		}
	}
	return out
}

// joinContainers builds one entry per container, in pod order. Containers
// only known to the metrics API are appended.
func joinContainers(pods, metrics []domain.Record) []*containerUsage {
	var ordered []*containerUsage
	byKey := map[string]*containerUsage{}
	get := func(pod domain.Key, name string) *containerUsage {
		k := pod.String() + "::" + name
		if c, ok := byKey[k]; ok {
			return c
		}
		c := &containerUsage{pod: pod, name: name}
		byKey[k] = c
		ordered = append(ordered, c)
		return c
	}

	for _, pod := range pods {
		containers, _ := pod.Slice("spec", "containers")
		for _, raw := range containers {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			container := domain.Record(m)
			name, _ := container.String("name")
			limits, _ := container.GetPath("resources", "limits")
			get(pod.Key(), name).limits = stringMap(limits)
		}
		statuses, _ := pod.Slice("status", "containerStatuses")
		for _, raw := range statuses {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			status := domain.Record(m)
			name, _ := status.String("name")
			restarts, _ := status.Int64("restartCount")
			get(pod.Key(), name).restarts = restarts
		}
	}

	for _, pm := range metrics {
		containers, _ := pm.Slice("containers")
		for _, raw := range containers {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			container := domain.Record(m)
			name, _ := container.String("name")
			if name == "POD" {
				continue
			}
			usage, _ := container.GetPath("usage")
			get(pm.Key(), name).usage = stringMap(usage)
		}
	}
	return ordered
}

// overLimit compares usage and limit of one resource. Containers without a
// limit or without usage are never over.
func overLimit(tag domain.FindingTag, res, unit string, scale func(resource.Quantity) int64) rules.Rule {
	return rules.Func(string(tag), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
		rawLimit, okLimit := rec.String("limits", res)
		rawUsage, okUsage := rec.String("usage", res)
		if !okLimit || !okUsage {
			return domain.Finding{}, false
		}
		limit, err := resource.ParseQuantity(rawLimit)
		if err != nil {
			return domain.Finding{Tag: tag, Detail: fmt.Sprintf("invalid %s limit %q", res, rawLimit)}, true
		}
		usage, err := resource.ParseQuantity(rawUsage)
		if err != nil {
			return domain.Finding{Tag: tag, Detail: fmt.Sprintf("invalid %s usage %q", res, rawUsage)}, true
		}
		if scale(usage) <= scale(limit) {
			return domain.Finding{}, false
		}
		return domain.Finding{
			Tag:    tag,
			Detail: fmt.Sprintf("%s limit:%d usage:%d", unit, scale(limit), scale(usage)),
		}, true
	})
}

func (p *podLimits) rules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(rules.Func(string(TagRestarts), func(rec domain.Record, _ rules.Context) (domain.Finding, bool) {
		restarts, _ := rec.Int64("restarts")
		if restarts < p.maxRestarts {
			return domain.Finding{}, false
		}
		return domain.Finding{Tag: TagRestarts, Detail: fmt.Sprintf("Restarts at %d", restarts)}, true
	}))
	_ = reg.Register(overLimit(TagCPUOverLimit, "cpu", "CPU milli", func(q resource.Quantity) int64 { return q.MilliValue() }))
	_ = reg.Register(overLimit(TagMemoryOverLimit, "memory", "RAM bytes", func(q resource.Quantity) int64 { return q.Value() }))
	return reg
}

func (p *podLimits) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency, source.Pods, source.PodMetrics)
	if err != nil {
		return nil, err
	}

	pods := fetched[source.Pods.Name]
	containers := joinContainers(pods, fetched[source.PodMetrics.Name])
	recs := make([]domain.Record, 0, len(containers))
	for _, c := range containers {
		recs = append(recs, c.record())
	}

	agg := aggregate.New(p.Name())
	err = evaluate(ctx, env, p.rules(), recs, nil, func(r rules.Result) {
		agg.Add(r.Record.Key(), r.Findings)
	})
	if err != nil {
		return nil, err
	}

	report := agg.Report(aggregate.AnyFinding{Level: domain.SeverityWarning}, env.Now)
	if report.Errors == 0 {
		report.Summary = "Pod resources show no errors;"
	} else {
		report.Summary = "Pods with resource concerns found;"
	}
	report.PerfData = []domain.PerfDatum{
		perf("pods", len(pods)),
		perf("containers", report.Total),
		perf("errors", report.Errors),
	}
	return report, nil
}
