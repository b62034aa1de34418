package staleness

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInsufficientSample = errors.New("insufficient sample")
)

// Parse reads an RFC 3339 timestamp such as 2024-01-01T00:00:00Z.
func Parse(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrMalformedTimestamp, raw, err)
	}
	return ts, nil
}

// Age is the elapsed time between ref and now; negative for future timestamps.
func Age(now, ref time.Time) time.Duration {
	return now.Sub(ref)
}

// Window flags references that are at least Threshold old.
type Window struct {
	Threshold time.Duration
}

// Check reports whether ref is stale. A timestamp in the future is never stale.
func (w Window) Check(now, ref time.Time) bool {
	age := Age(now, ref)
	if age < 0 {
		return false
	}
	return age >= w.Threshold
}

// CheckString parses raw and applies the window.
func (w Window) CheckString(now time.Time, raw string) (bool, error) {
	ref, err := Parse(raw)
	if err != nil {
		return false, err
	}
	return w.Check(now, ref), nil
}

// Sample is the outcome of a k-th most recent check.
type Sample struct {
	Stale     bool
	Reference time.Time
	Age       time.Duration
	Size      int
	Malformed int
}

// KthMostRecent sorts the parseable timestamps and checks the k-th most recent
// one against threshold. Malformed values are left out of the sample and counted.
func KthMostRecent(now time.Time, stamps []string, k int, threshold time.Duration) (Sample, error) {
	if k <= 0 {
		return Sample{}, fmt.Errorf("k must be positive, got %d", k)
	}

	parsed := make([]time.Time, 0, len(stamps))
	malformed := 0
	for _, raw := range stamps {
		ts, err := Parse(raw)
		if err != nil {
			malformed++
			continue
		}
		parsed = append(parsed, ts)
	}

	sample := Sample{Size: len(parsed), Malformed: malformed}
	if len(parsed) < k {
		return sample, fmt.Errorf("%w: need %d timestamps, have %d", ErrInsufficientSample, k, len(parsed))
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })
	sample.Reference = parsed[len(parsed)-k]
	sample.Age = Age(now, sample.Reference)
	sample.Stale = Window{Threshold: threshold}.Check(now, sample.Reference)
	return sample, nil
}

// FormatAge renders a duration as 3d_4h_12m.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%dd_%dh_%dm", days, hours, minutes)
}
