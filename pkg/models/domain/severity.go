package domain

// Severity is the aggregate state of a check. OK < WARNING < CRITICAL;
// UNKNOWN is reserved for runs that could not be evaluated at all.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityUnknown
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode maps the severity to the monitoring plugin exit code.
func (s Severity) ExitCode() int {
	switch s {
	case SeverityOK:
		return 0
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 3
	}
}

// Worst returns the most severe of the given values, SeverityOK when empty.
func Worst(levels ...Severity) Severity {
	worst := SeverityOK
	for _, l := range levels {
		if l > worst {
			worst = l
		}
	}
	return worst
}
