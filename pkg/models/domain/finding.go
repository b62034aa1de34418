package domain

import "strings"

// FindingTag is the short identifier of a detected problem, e.g. "noProject".
type FindingTag string

const (
	TagMissingReference   FindingTag = "missingReference"
	TagMalformedTimestamp FindingTag = "malformedTimestamp"
	TagInsufficientSample FindingTag = "insufficientSample"
	TagEvaluationFailed   FindingTag = "evaluationFailed"
)

// Finding is a single problem detected on a record (or, for global findings,
// on the collection as a whole).
type Finding struct {
	Tag    FindingTag
	Detail string
}

// FlaggedRecord is a record with at least one finding.
type FlaggedRecord struct {
	Key      Key
	Link     string
	Findings []Finding
}

func (f FlaggedRecord) Tags() []string {
	tags := make([]string, 0, len(f.Findings))
	for _, finding := range f.Findings {
		tags = append(tags, string(finding.Tag))
	}
	return tags
}

func (f FlaggedRecord) TagList() string {
	return strings.Join(f.Tags(), ",")
}

// HasTag reports whether the findings contain the tag.
func HasTag(findings []Finding, tag FindingTag) bool {
	for _, f := range findings {
		if f.Tag == tag {
			return true
		}
	}
	return false
}
