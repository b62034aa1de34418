package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/staleness"
)

// PresenceRule flags a record depending on whether a field path exists.
type PresenceRule struct {
	name      string
	tag       domain.FindingTag
	path      []string
	flagWhen  bool
	nonEmpty  bool
	olderThan time.Duration
}

// Present flags records where the path exists, e.g. an in-progress marker
// that should have been cleared.
func Present(name string, tag domain.FindingTag, path ...string) *PresenceRule {
	return &PresenceRule{name: name, tag: tag, path: path, flagWhen: true}
}

// Absent flags records where a required path is missing.
func Absent(name string, tag domain.FindingTag, path ...string) *PresenceRule {
	return &PresenceRule{name: name, tag: tag, path: path, flagWhen: false}
}

// NonEmpty makes Present ignore empty values.
func (p *PresenceRule) NonEmpty() *PresenceRule {
	p.nonEmpty = true
	return p
}

// OlderThan only flags records created at least d ago.
func (p *PresenceRule) OlderThan(d time.Duration) *PresenceRule {
	p.olderThan = d
	return p
}

func (p *PresenceRule) Name() string { return p.name }

func (p *PresenceRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	present := rec.HasPath(p.path...)
	if p.nonEmpty {
		present = rec.Truthy(p.path...)
	}
	if present != p.flagWhen {
		return domain.Finding{}, false
	}

	if p.olderThan > 0 {
		created, ok := rec.CreationTimestamp()
		if !ok {
			return malformed("metadata.creationTimestamp missing")
		}
		old, err := staleness.Window{Threshold: p.olderThan}.CheckString(ctx.Now, created)
		if err != nil {
			return malformed(err.Error())
		}
		if !old {
			return domain.Finding{}, false
		}
	}

	verb := "missing"
	if p.flagWhen {
		verb = "present"
	}
	return domain.Finding{Tag: p.tag, Detail: fmt.Sprintf("%s %s", joinPath(p.path), verb)}, true
}

// EnumRule checks a string field against a set of values.
type EnumRule struct {
	name     string
	tag      domain.FindingTag
	path     []string
	values   []string
	allowed  bool
	required bool
}

// OneOf flags records whose value is not one of allowed.
func OneOf(name string, tag domain.FindingTag, allowed []string, path ...string) *EnumRule {
	return &EnumRule{name: name, tag: tag, path: path, values: allowed, allowed: true}
}

// NoneOf flags records whose value is one of forbidden.
func NoneOf(name string, tag domain.FindingTag, forbidden []string, path ...string) *EnumRule {
	return &EnumRule{name: name, tag: tag, path: path, values: forbidden, allowed: false}
}

// Required also flags records where the field is missing.
func (e *EnumRule) Required() *EnumRule {
	e.required = true
	return e
}

func (e *EnumRule) Name() string { return e.name }

func (e *EnumRule) Evaluate(rec domain.Record, _ Context) (domain.Finding, bool) {
	value, ok := rec.GetPath(e.path...)
	if !ok {
		if e.required {
			return domain.Finding{Tag: e.tag, Detail: joinPath(e.path) + " missing"}, true
		}
		return domain.Finding{}, false
	}

	s := fmt.Sprint(value)
	if slices.Contains(e.values, s) != e.allowed {
		return domain.Finding{Tag: e.tag, Detail: fmt.Sprintf("%s is %q", joinPath(e.path), s)}, true
	}
	return domain.Finding{}, false
}

// KeysFunc extracts foreign keys from a record.
type KeysFunc func(rec domain.Record) []string

// ReferenceRule flags records whose foreign keys are not in an index.
type ReferenceRule struct {
	name      string
	tag       domain.FindingTag
	indexName string
	keys      KeysFunc
}

// References produces one finding listing every dangling key. The tag
// defaults to missingReference.
func References(name string, tag domain.FindingTag, indexName string, keys KeysFunc) *ReferenceRule {
	if tag == "" {
		tag = domain.TagMissingReference
	}
	return &ReferenceRule{name: name, tag: tag, indexName: indexName, keys: keys}
}

func (r *ReferenceRule) Name() string { return r.name }

func (r *ReferenceRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	idx := ctx.Indexes.Lookup(r.indexName)
	var missing []string
	for _, key := range r.keys(rec) {
		if !idx.Contains(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Tag:    r.tag,
		Detail: fmt.Sprintf("%s not found: %s", r.indexName, strings.Join(missing, ",")),
	}, true
}

// FieldKey returns the string at path as a single foreign key.
func FieldKey(path ...string) KeysFunc {
	return func(rec domain.Record) []string {
		s, ok := rec.String(path...)
		if !ok || s == "" {
			return nil
		}
		return []string{s}
	}
}

// MembershipRule flags records that are not listed in the members of the
// groups derived from them. A group that does not exist has no members, so
// it fails here as well as in a References rule over the same keys.
type MembershipRule struct {
	name      string
	tag       domain.FindingTag
	indexName string
	groups    KeysFunc
	member    func(rec domain.Record) string
}

func Membership(
	name string,
	tag domain.FindingTag,
	indexName string,
	groups KeysFunc,
	member func(rec domain.Record) string,
) *MembershipRule {
	return &MembershipRule{name: name, tag: tag, indexName: indexName, groups: groups, member: member}
}

func (m *MembershipRule) Name() string { return m.name }

func (m *MembershipRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	idx := ctx.Indexes.Lookup(m.indexName)
	who := m.member(rec)
	var outside []string
	for _, name := range m.groups(rec) {
		group, ok := idx.Get(name)
		if !ok {
			outside = append(outside, name)
			continue
		}
		users, _ := group.Slice("users")
		if !slices.ContainsFunc(users, func(u any) bool { return u == who }) {
			outside = append(outside, name)
		}
	}
	if len(outside) == 0 {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Tag:    m.tag,
		Detail: fmt.Sprintf("%s not a member of %s", who, strings.Join(outside, ",")),
	}, true
}

// TimeFunc extracts a reference timestamp from a record.
type TimeFunc func(rec domain.Record) (string, bool)

// At reads the timestamp at path.
func At(path ...string) TimeFunc {
	return func(rec domain.Record) (string, bool) {
		return rec.String(path...)
	}
}

// StaleRule flags records whose reference timestamp is at least threshold old.
// Records without the timestamp are skipped.
type StaleRule struct {
	name      string
	tag       domain.FindingTag
	threshold time.Duration
	timeFn    TimeFunc
}

func Stale(name string, tag domain.FindingTag, threshold time.Duration, timeFn TimeFunc) *StaleRule {
	return &StaleRule{name: name, tag: tag, threshold: threshold, timeFn: timeFn}
}

func (s *StaleRule) Name() string { return s.name }

func (s *StaleRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	raw, ok := s.timeFn(rec)
	if !ok {
		return domain.Finding{}, false
	}
	ref, err := staleness.Parse(raw)
	if err != nil {
		return malformed(err.Error())
	}
	if !(staleness.Window{Threshold: s.threshold}).Check(ctx.Now, ref) {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Tag:    s.tag,
		Detail: fmt.Sprintf("%s old (threshold %s)", staleness.Age(ctx.Now, ref).Truncate(time.Second), s.threshold),
	}, true
}

// FuncRule adapts a plain function.
type FuncRule struct {
	name string
	fn   func(rec domain.Record, ctx Context) (domain.Finding, bool)
}

func Func(name string, fn func(rec domain.Record, ctx Context) (domain.Finding, bool)) *FuncRule {
	return &FuncRule{name: name, fn: fn}
}

func (f *FuncRule) Name() string { return f.name }

func (f *FuncRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	return f.fn(rec, ctx)
}

func malformed(detail string) (domain.Finding, bool) {
	return domain.Finding{Tag: domain.TagMalformedTimestamp, Detail: detail}, true
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
