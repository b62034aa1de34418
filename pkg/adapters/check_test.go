package adapters

import (
	"testing"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/api"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapSeverityDomainToApi(t *testing.T) {
	assert.Equal(t, api.StatusOK, MapSeverityDomainToApi(domain.SeverityOK))
	assert.Equal(t, api.StatusWarning, MapSeverityDomainToApi(domain.SeverityWarning))
	assert.Equal(t, api.StatusCritical, MapSeverityDomainToApi(domain.SeverityCritical))
	assert.Equal(t, api.StatusUnknown, MapSeverityDomainToApi(domain.Severity(42)))
}

func TestMapCheckReportDomainToApi(t *testing.T) {
	checkedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full report", func(t *testing.T) {
		report := MapCheckReportDomainToApi(domain.CheckReport{
			Check:     "anarchy-runs",
			Status:    domain.SeverityCritical,
			Label:     "CRITICAL FAILURE",
			Summary:   "1 Anarchy Runs in Error found;",
			Total:     3,
			Errors:    1,
			TagCounts: map[domain.FindingTag]int{"runRefNotExists": 1},
			Flagged: []domain.FlaggedRecord{{
				Key:      domain.Key{Namespace: "babylon-anarchy", Name: "r1"},
				Link:     "https://console/r1",
				Findings: []domain.Finding{{Tag: "runRefNotExists", Detail: "missing"}},
			}},
			Global:    []domain.Finding{{Tag: domain.TagInsufficientSample}},
			PerfData:  []domain.PerfDatum{{Label: "countruns", Value: 3, Max: domain.Bound(10)}},
			Notes:     []string{"note"},
			Sections:  []domain.ReportSection{{Title: "Table", Lines: []string{"a"}}},
			CheckedAt: checkedAt,
		})

		assert.Equal(t, api.CheckReport{
			Check:     "anarchy-runs",
			Status:    api.StatusCritical,
			Label:     "CRITICAL FAILURE",
			ExitCode:  2,
			Summary:   "1 Anarchy Runs in Error found;",
			Total:     3,
			Errors:    1,
			TagCounts: map[string]int{"runRefNotExists": 1},
			Flagged: []api.FlaggedRecord{{
				Key:      "babylon-anarchy/r1",
				Link:     "https://console/r1",
				Findings: []api.Finding{{Tag: "runRefNotExists", Detail: "missing"}},
			}},
			Global:    []api.Finding{{Tag: "insufficientSample"}},
			PerfData:  []api.PerfDatum{{Label: "countruns", Value: 3, Max: domain.Bound(10)}},
			Notes:     []string{"note"},
			Sections:  []api.Section{{Title: "Table", Lines: []string{"a"}}},
			CheckedAt: checkedAt,
		}, report)
	})

	t.Run("empty report keeps an empty flagged list", func(t *testing.T) {
		report := MapCheckReportDomainToApi(domain.CheckReport{Check: "users", Status: domain.SeverityOK})

		assert.NotNil(t, report.Flagged)
		assert.Empty(t, report.Flagged)
		assert.Nil(t, report.TagCounts)
		assert.Nil(t, report.Global)
	})
}
