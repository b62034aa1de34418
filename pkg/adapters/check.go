package adapters

import (
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/api"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

func MapSeverityDomainToApi(s domain.Severity) api.Status {
	switch s {
	case domain.SeverityOK:
		return api.StatusOK
	case domain.SeverityWarning:
		return api.StatusWarning
	case domain.SeverityCritical:
		return api.StatusCritical
	default:
		return api.StatusUnknown
	}
}

func MapFindingsDomainToApi(findings []domain.Finding) []api.Finding {
	result := make([]api.Finding, 0, len(findings))
	for _, f := range findings {
		result = append(result, api.Finding{Tag: string(f.Tag), Detail: f.Detail})
	}
	return result
}

func MapFlaggedRecordDomainToApi(r domain.FlaggedRecord) api.FlaggedRecord {
	return api.FlaggedRecord{
		Key:      r.Key.String(),
		Link:     r.Link,
		Findings: MapFindingsDomainToApi(r.Findings),
	}
}

func MapPerfDatumDomainToApi(p domain.PerfDatum) api.PerfDatum {
	return api.PerfDatum{
		Label:    p.Label,
		Value:    p.Value,
		Warning:  p.Warn,
		Critical: p.Crit,
		Min:      p.Min,
		Max:      p.Max,
	}
}

func MapCheckReportDomainToApi(r domain.CheckReport) api.CheckReport {
	report := api.CheckReport{
		Check:     r.Check,
		Status:    MapSeverityDomainToApi(r.Status),
		Label:     r.Label,
		ExitCode:  r.Status.ExitCode(),
		Summary:   r.Summary,
		Total:     r.Total,
		Errors:    r.Errors,
		Flagged:   make([]api.FlaggedRecord, 0, len(r.Flagged)),
		Notes:     r.Notes,
		CheckedAt: r.CheckedAt,
	}

	if len(r.TagCounts) > 0 {
		report.TagCounts = make(map[string]int, len(r.TagCounts))
		for tag, n := range r.TagCounts {
			report.TagCounts[string(tag)] = n
		}
	}
	for _, f := range r.Flagged {
		report.Flagged = append(report.Flagged, MapFlaggedRecordDomainToApi(f))
	}
	if len(r.Global) > 0 {
		report.Global = MapFindingsDomainToApi(r.Global)
	}
	for _, p := range r.PerfData {
		report.PerfData = append(report.PerfData, MapPerfDatumDomainToApi(p))
	}
	for _, s := range r.Sections {
		report.Sections = append(report.Sections, api.Section{Title: s.Title, Lines: s.Lines})
	}
	return report
}
