package probes

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/staleness"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/spf13/pflag"
)

const (
	TagVMError  domain.FindingTag = "vmError"
	TagVMAged   domain.FindingTag = "vmAged"
	TagPVCError domain.FindingTag = "pvcError"
	TagPVError  domain.FindingTag = "pvError"
)

var (
	vmTransitionalStates = []string{
		"Stopping", "Terminating", "Migrating", "WaitingForVolumeBinding", "Unknown", "Error", "Starting",
	}
	vmSteadyStates = []string{"Running", "Paused", "Stopped"}
)

type ocpVirt struct {
	transitionGrace time.Duration
	provisionGrace  time.Duration
	maxAge          time.Duration
	bindGrace       time.Duration
	listLimit       int
}

func NewOCPVirt() Probe { return &ocpVirt{} }

func (p *ocpVirt) Name() string { return "ocp-virt" }

func (p *ocpVirt) Description() string {
	return "Virtual machines stuck in transitions or aged, unbound volume claims and volumes"
}

func (p *ocpVirt) Flags(fs *pflag.FlagSet) {
	fs.Duration("transition-grace", 30*time.Minute, "time a VM may stay in a transitional state")
	fs.Duration("provision-grace", 2*time.Hour, "time a VM may stay provisioning")
	fs.Duration("max-age", 14*24*time.Hour, "age after which a running, paused or stopped VM is reported as aged")
	fs.Duration("bind-grace", 30*time.Minute, "time a PVC or PV may stay unbound")
	fs.Int("list-limit", 25, "number of oldest items listed per group")
}

func (p *ocpVirt) Configure(s config.Scope) error {
	p.transitionGrace = s.Duration("transition-grace")
	p.provisionGrace = s.Duration("provision-grace")
	p.maxAge = s.Duration("max-age")
	p.bindGrace = s.Duration("bind-grace")
	p.listLimit = s.Int("list-limit")
	return nil
}

// vmState returns the printable status of a VM and the time it entered it:
// the last condition transition, else the creation time.
func vmState(rec domain.Record) (string, string) {
	status, ok := rec.String("status", "printableStatus")
	if !ok || status == "" {
		status = "Unknown"
	}
	conditions, _ := rec.Slice("status", "conditions")
	if len(conditions) > 0 {
		if last, ok := conditions[len(conditions)-1].(map[string]any); ok {
			if ts, ok := domain.Record(last).String("lastTransitionTime"); ok && ts != "" {
				return status, ts
			}
		}
	}
	created, _ := rec.CreationTimestamp()
	return status, created
}

func phase(rec domain.Record) string {
	s, _ := rec.String("status", "phase")
	return s
}

// stateAge flags records in one of states for at least grace.
func stateAge(
	name string,
	tag domain.FindingTag,
	grace time.Duration,
	state func(domain.Record) (string, string),
	in func(string) bool,
) rules.Rule {
	return rules.Func(name, func(rec domain.Record, ctx rules.Context) (domain.Finding, bool) {
		status, raw := state(rec)
		if !in(status) {
			return domain.Finding{}, false
		}
		ref, err := staleness.Parse(raw)
		if err != nil {
			return domain.Finding{Tag: domain.TagMalformedTimestamp, Detail: err.Error()}, true
		}
		if !(staleness.Window{Threshold: grace}).Check(ctx.Now, ref) {
			return domain.Finding{}, false
		}
		return domain.Finding{
			Tag:    tag,
			Detail: fmt.Sprintf("status: %s age %s ago", status, staleness.FormatAge(staleness.Age(ctx.Now, ref))),
		}, true
	})
}

func oneOf(states []string) func(string) bool {
	return func(s string) bool { return slices.Contains(states, s) }
}

func volumeState(rec domain.Record) (string, string) {
	created, _ := rec.CreationTimestamp()
	return phase(rec), created
}

func (p *ocpVirt) vmRules() *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(stateAge(string(TagVMError), TagVMError, p.transitionGrace, vmState, oneOf(vmTransitionalStates)))
	_ = reg.Register(stateAge("vmProvisioning", TagVMError, p.provisionGrace, vmState, oneOf([]string{"Provisioning"})))
	_ = reg.Register(stateAge(string(TagVMAged), TagVMAged, p.maxAge, vmState, oneOf(vmSteadyStates)))
	return reg
}

func (p *ocpVirt) volumeRules(tag domain.FindingTag) *rules.Registry {
	reg := rules.NewRegistry()
	_ = reg.Register(stateAge(string(tag), tag, p.bindGrace, volumeState, func(s string) bool { return s != "Bound" }))
	return reg
}

type virtItem struct {
	kind    string
	key     domain.Key
	finding domain.Finding
	age     time.Duration
}

func (i virtItem) line() string {
	where := ""
	if i.key.Namespace != "" {
		where = " in " + i.key.Namespace
	}
	return fmt.Sprintf("[WARN] - %s %s%s %s", i.kind, i.key.Name, where, i.finding.Detail)
}

func (p *ocpVirt) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	src, err := records(env)
	if err != nil {
		return nil, err
	}
	fetched, err := fetchAll(ctx, src, env.Settings.Concurrency,
		source.VirtualMachines, source.PersistentVolumeClaims, source.PersistentVolumes)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(p.Name())
	groups := map[domain.FindingTag][]virtItem{}
	collect := func(kind string, state func(domain.Record) (string, string)) func(rules.Result) {
		return func(r rules.Result) {
			key := r.Record.Key()
			agg.Add(domain.Key{Namespace: key.Namespace, Name: kind + "/" + key.Name}, r.Findings)
			_, raw := state(r.Record)
			ref, _ := staleness.Parse(raw)
			for _, f := range r.Findings {
				groups[f.Tag] = append(groups[f.Tag], virtItem{
					kind: kind, key: key, finding: f, age: staleness.Age(env.Now, ref),
				})
			}
		}
	}

	vms := fetched[source.VirtualMachines.Name]
	pvcs := fetched[source.PersistentVolumeClaims.Name]
	pvs := fetched[source.PersistentVolumes.Name]
	if err := evaluate(ctx, env, p.vmRules(), vms, nil, collect("VM", vmState)); err != nil {
		return nil, err
	}
	if err := evaluate(ctx, env, p.volumeRules(TagPVCError), pvcs, nil, collect("PVC", volumeState)); err != nil {
		return nil, err
	}
	if err := evaluate(ctx, env, p.volumeRules(TagPVError), pvs, nil, collect("PV", volumeState)); err != nil {
		return nil, err
	}

	report := agg.Report(aggregate.AnyTag{
		Level: domain.SeverityWarning,
		Tags:  []domain.FindingTag{TagVMError, TagPVCError, TagPVError, domain.TagMalformedTimestamp},
	}, env.Now)

	if report.Status == domain.SeverityOK {
		report.Summary = "- All VMs, PVCs, and PVs are in a healthy state"
	} else {
		report.Summary = "- Items in error-state found"
	}
	report.OmitDetails = true
	for _, g := range []struct {
		title string
		tag   domain.FindingTag
	}{
		{"VM Aged", TagVMAged},
		{"VM Errors", TagVMError},
		{"PVC Errors", TagPVCError},
		{"PV Errors", TagPVError},
		{"Malformed timestamps", domain.TagMalformedTimestamp},
	} {
		items := groups[g.tag]
		if len(items) == 0 && g.tag == domain.TagMalformedTimestamp {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].age > items[j].age })
		if p.listLimit > 0 && len(items) > p.listLimit {
			items = items[:p.listLimit]
		}
		section := domain.ReportSection{Title: g.title}
		for _, item := range items {
			section.Lines = append(section.Lines, item.line())
		}
		report.Sections = append(report.Sections, section)
	}

	report.PerfData = []domain.PerfDatum{
		perf("vms_total", len(vms)),
		perf("vms_aged", report.TagCounts[TagVMAged]),
		perf("vms_errors", report.TagCounts[TagVMError]),
		perf("pvcs_total", len(pvcs)),
		perf("pvcs_errors", report.TagCounts[TagPVCError]),
		perf("pvs_total", len(pvs)),
		perf("pvs_errors", report.TagCounts[TagPVError]),
	}
	return report, nil
}
