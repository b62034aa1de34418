package rollup

import (
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/aggregate"
)

// SubjectKind is the only downstream resource kind able to report readiness.
const SubjectKind = "AnarchySubject"

type ResourceRef struct {
	Kind      string
	Namespace string
	Name      string
}

// Resource is the downstream state of one handle resource. Found is false
// when the lookup failed or the resource does not exist.
type Resource struct {
	Ref     ResourceRef
	Found   bool
	Desired string
	Current string
	Healthy bool
}

func (r Resource) Ready() bool {
	return r.Found && r.Desired != "" && r.Desired == r.Current && r.Healthy
}

type HandleState int

const (
	HandleEmpty HandleState = iota
	HandleTaken
	HandleAvailable
	HandleUnavailable
)

type Handle struct {
	Name      string
	Claimed   bool
	Resources []Resource
}

// State classifies the handle: claimed handles are taken, handles without
// resources are neither taken nor available.
func (h Handle) State() HandleState {
	if h.Claimed {
		return HandleTaken
	}
	if len(h.Resources) == 0 {
		return HandleEmpty
	}
	for _, r := range h.Resources {
		if !r.Ready() {
			return HandleUnavailable
		}
	}
	return HandleAvailable
}

type Pool struct {
	Name         string
	MinAvailable int64
}

type PoolStatus struct {
	Pool
	Total     int
	Taken     int
	Available int
}

func Evaluate(pool Pool, handles []Handle) PoolStatus {
	status := PoolStatus{Pool: pool, Total: len(handles)}
	for _, h := range handles {
		switch h.State() {
		case HandleTaken:
			status.Taken++
		case HandleAvailable:
			status.Available++
		}
	}
	return status
}

// Counts exposes the pool numbers to the percent band policy.
func (s PoolStatus) Counts() aggregate.Counts {
	return aggregate.Counts{
		Total: s.Total,
		Values: map[string]int64{
			aggregate.ValueTotal:     int64(s.Total),
			aggregate.ValueTarget:    s.MinAvailable,
			aggregate.ValueAvailable: int64(s.Available),
		},
	}
}

func PoolFromRecord(rec domain.Record) Pool {
	minAvailable, _ := rec.Int64("spec", "minAvailable")
	return Pool{Name: rec.Name(), MinAvailable: minAvailable}
}

// HandleFromRecord reads the claim binding and resource references of a
// resource handle. Resource states are left unresolved.
func HandleFromRecord(rec domain.Record) (Handle, []ResourceRef) {
	h := Handle{Name: rec.Name(), Claimed: rec.HasPath("spec", "resourceClaim")}
	items, _ := rec.Slice("spec", "resources")
	refs := make([]ResourceRef, 0, len(items))
	for _, item := range items {
		res := domain.Record{}
		if m, ok := item.(map[string]any); ok {
			res = m
		}
		kind, _ := res.String("reference", "kind")
		ns, _ := res.String("reference", "namespace")
		name, _ := res.String("reference", "name")
		refs = append(refs, ResourceRef{Kind: kind, Namespace: ns, Name: name})
	}
	return h, refs
}

// ResourceFromSubject reads the readiness vars of an AnarchySubject.
func ResourceFromSubject(ref ResourceRef, subject domain.Record) Resource {
	if subject == nil {
		return Resource{Ref: ref}
	}
	desired, _ := subject.String("spec", "vars", "desired_state")
	current, _ := subject.String("spec", "vars", "current_state")
	healthy, _ := subject.Bool("spec", "vars", "healthy")
	return Resource{Ref: ref, Found: true, Desired: desired, Current: current, Healthy: healthy}
}
