package api

import "time"

type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusUnknown  Status = "UNKNOWN"
)

type Check struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Finding struct {
	Tag    string `json:"tag"`
	Detail string `json:"detail,omitempty"`
}

type FlaggedRecord struct {
	Key      string    `json:"key"`
	Link     string    `json:"link,omitempty"`
	Findings []Finding `json:"findings"`
}

type PerfDatum struct {
	Label    string `json:"label"`
	Value    int64  `json:"value"`
	Warning  *int64 `json:"warning,omitempty"`
	Critical *int64 `json:"critical,omitempty"`
	Min      *int64 `json:"min,omitempty"`
	Max      *int64 `json:"max,omitempty"`
}

type Section struct {
	Title string   `json:"title,omitempty"`
	Lines []string `json:"lines"`
}

type CheckReport struct {
	Check     string          `json:"check"`
	Status    Status          `json:"status"`
	Label     string          `json:"label,omitempty"`
	ExitCode  int             `json:"exit_code"`
	Summary   string          `json:"summary"`
	Total     int             `json:"total"`
	Errors    int             `json:"errors"`
	TagCounts map[string]int  `json:"tag_counts,omitempty"`
	Flagged   []FlaggedRecord `json:"flagged"`
	Global    []Finding       `json:"global,omitempty"`
	PerfData  []PerfDatum     `json:"perfdata,omitempty"`
	Notes     []string        `json:"notes,omitempty"`
	Sections  []Section       `json:"sections,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

type Error struct {
	Error string `json:"error"`
}
