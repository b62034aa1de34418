package probes

import (
	"testing"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vm(name, status string, created time.Duration, transitions ...string) domain.Record {
	st := map[string]any{}
	if status != "" {
		st["printableStatus"] = status
	}
	if len(transitions) > 0 {
		conditions := make([]any, 0, len(transitions))
		for _, at := range transitions {
			conditions = append(conditions, map[string]any{"type": "Ready", "lastTransitionTime": at})
		}
		st["conditions"] = conditions
	}
	return object("vm-ns", name, created, map[string]any{"status": st})
}

func volume(ns, name, phase string, created time.Duration) domain.Record {
	return object(ns, name, created, map[string]any{"status": map[string]any{"phase": phase}})
}

func virtFixture(vms ...domain.Record) *memSource {
	return &memSource{records: map[string][]domain.Record{
		source.VirtualMachines.Name: vms,
		source.PersistentVolumeClaims.Name: {
			volume("vm-ns", "pvc-bound", "Bound", 5*time.Hour),
			volume("vm-ns", "pvc-pending", "Pending", time.Hour),
		},
		source.PersistentVolumes.Name: {
			volume("", "pv-ok", "Bound", 5*time.Hour),
			volume("", "pv-released", "Released", 40*time.Minute),
		},
	}}
}

func sectionLines(report *domain.CheckReport) map[string][]string {
	out := map[string][]string{}
	for _, s := range report.Sections {
		out[s.Title] = s.Lines
	}
	return out
}

func TestOCPVirt(t *testing.T) {
	vms := []domain.Record{
		vm("vm-run", "Running", 20*24*time.Hour),
		vm("vm-young", "Running", 48*time.Hour),
		vm("vm-stuck", "Starting", 5*time.Hour, ts(4*time.Hour), ts(45*time.Minute)),
		vm("vm-prov", "Provisioning", time.Hour),
		vm("vm-prov-old", "Provisioning", 3*time.Hour),
		vm("vm-nostatus", "", 10*time.Minute),
	}

	t.Run("errors and aged machines", func(t *testing.T) {
		report := runProbe(t, NewOCPVirt(), virtFixture(vms...), config.DefaultSettings())

		assert.Equal(t, domain.SeverityWarning, report.Status)
		assert.Equal(t, "- Items in error-state found", report.Summary)
		assert.True(t, report.OmitDetails)
		assert.Equal(t, map[string][]string{
			"VM Aged": {"[WARN] - VM vm-run in vm-ns status: Running age 20d_0h_0m ago"},
			"VM Errors": {
				"[WARN] - VM vm-prov-old in vm-ns status: Provisioning age 0d_3h_0m ago",
				"[WARN] - VM vm-stuck in vm-ns status: Starting age 0d_0h_45m ago",
			},
			"PVC Errors": {"[WARN] - PVC pvc-pending in vm-ns status: Pending age 0d_1h_0m ago"},
			"PV Errors":  {"[WARN] - PV pv-released status: Released age 0d_0h_40m ago"},
		}, sectionLines(report))
		assert.Equal(t, []string{
			"vms_total=6;;;;;",
			"vms_aged=1;;;;;",
			"vms_errors=2;;;;;",
			"pvcs_total=2;;;;;",
			"pvcs_errors=1;;;;;",
			"pvs_total=2;;;;;",
			"pvs_errors=1;;;;;",
		}, perfLine(report))
		assert.Equal(t, "vmAged", flaggedTags(report)["vm-ns/VM/vm-run"])
	})

	t.Run("aged machines are informational", func(t *testing.T) {
		src := virtFixture(vms[0])
		src.records[source.PersistentVolumeClaims.Name] = nil
		src.records[source.PersistentVolumes.Name] = nil

		report := runProbe(t, NewOCPVirt(), src, config.DefaultSettings())

		assert.Equal(t, domain.SeverityOK, report.Status)
		assert.Equal(t, "- All VMs, PVCs, and PVs are in a healthy state", report.Summary)
		require.Len(t, report.Sections, 4)
		assert.Len(t, report.Sections[0].Lines, 1)
		assert.Empty(t, report.Sections[1].Lines)
	})

	t.Run("list limit keeps the oldest", func(t *testing.T) {
		report := runProbe(t, NewOCPVirt(), virtFixture(vms...), config.DefaultSettings(), "--list-limit=1")

		assert.Equal(t, []string{
			"[WARN] - VM vm-prov-old in vm-ns status: Provisioning age 0d_3h_0m ago",
		}, sectionLines(report)["VM Errors"])
		assert.Equal(t, 2, report.TagCounts[TagVMError])
	})

	t.Run("malformed transition time", func(t *testing.T) {
		report := runProbe(t, NewOCPVirt(), virtFixture(vm("vm-bad", "Stopping", time.Hour, "yesterday")),
			config.DefaultSettings())

		assert.Equal(t, domain.SeverityWarning, report.Status)
		require.Len(t, sectionLines(report)["Malformed timestamps"], 1)
		assert.Contains(t, sectionLines(report)["Malformed timestamps"][0], "VM vm-bad in vm-ns")
	})
}
