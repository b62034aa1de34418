package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ts(ago time.Duration) string {
	return now.Add(-ago).Format(time.RFC3339)
}

func record(name string, created time.Duration, fields map[string]any) domain.Record {
	rec := domain.Record{
		"metadata": map[string]any{
			"name":              name,
			"creationTimestamp": ts(created),
		},
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

func TestPresenceRule(t *testing.T) {
	ctx := Context{Now: now}

	t.Run("present flags existing marker", func(t *testing.T) {
		rule := Present("kopf", "kopfProgressExists", "status", "kopf", "progress")
		rec := record("a", time.Hour, map[string]any{
			"status": map[string]any{"kopf": map[string]any{"progress": map[string]any{}}},
		})

		f, ok := rule.Evaluate(rec, ctx)

		require.True(t, ok)
		assert.Equal(t, domain.FindingTag("kopfProgressExists"), f.Tag)
	})

	t.Run("non-empty ignores cleared marker", func(t *testing.T) {
		rule := Present("kopf", "kopfProgressExists", "status", "kopf", "progress").NonEmpty()
		rec := record("a", time.Hour, map[string]any{
			"status": map[string]any{"kopf": map[string]any{"progress": map[string]any{}}},
		})

		_, ok := rule.Evaluate(rec, ctx)

		assert.False(t, ok)
	})

	t.Run("absent flags missing field", func(t *testing.T) {
		rule := Absent("subjectRef", "subjectRefNotExists", "spec", "subjectRef")

		_, ok := rule.Evaluate(record("a", time.Hour, nil), ctx)
		assert.True(t, ok)

		_, ok = rule.Evaluate(record("b", time.Hour, map[string]any{
			"spec": map[string]any{"subjectRef": map[string]any{"name": "s"}},
		}), ctx)
		assert.False(t, ok)
	})

	t.Run("grace period", func(t *testing.T) {
		rule := Absent("provision", "provisionJobMissing", "status", "towerJobs", "provision").OlderThan(31 * time.Minute)

		_, ok := rule.Evaluate(record("young", 30*time.Minute, nil), ctx)
		assert.False(t, ok)

		_, ok = rule.Evaluate(record("old", 31*time.Minute, nil), ctx)
		assert.True(t, ok)
	})

	t.Run("grace period with bad creation timestamp", func(t *testing.T) {
		rule := Absent("provision", "provisionJobMissing", "status", "towerJobs", "provision").OlderThan(time.Minute)
		rec := domain.Record{"metadata": map[string]any{"name": "x", "creationTimestamp": "not-a-time"}}

		f, ok := rule.Evaluate(rec, ctx)

		require.True(t, ok)
		assert.Equal(t, domain.TagMalformedTimestamp, f.Tag)
	})
}

func TestEnumRule(t *testing.T) {
	ctx := Context{Now: now}
	good := []string{"started", "stopped"}

	rec := func(state any) domain.Record {
		if state == nil {
			return record("s", 0, nil)
		}
		return record("s", 0, map[string]any{"spec": map[string]any{"vars": map[string]any{"desired_state": state}}})
	}

	oneOf := OneOf("desired", "badDesiredStatus", good, "spec", "vars", "desired_state")
	required := OneOf("desired", "badDesiredStatus", good, "spec", "vars", "desired_state").Required()
	noneOf := NoneOf("current", "badCurrentStatus", []string{"provision-failed"}, "spec", "vars", "desired_state")

	_, ok := oneOf.Evaluate(rec("started"), ctx)
	assert.False(t, ok)
	_, ok = oneOf.Evaluate(rec("exploded"), ctx)
	assert.True(t, ok)
	_, ok = oneOf.Evaluate(rec(nil), ctx)
	assert.False(t, ok)
	_, ok = required.Evaluate(rec(nil), ctx)
	assert.True(t, ok)
	_, ok = noneOf.Evaluate(rec("provision-failed"), ctx)
	assert.True(t, ok)
	_, ok = noneOf.Evaluate(rec("started"), ctx)
	assert.False(t, ok)
}

func TestReferenceRule(t *testing.T) {
	namespaces := index.Build("namespaces", []domain.Record{record("user-a", 0, nil)}, index.ByName)
	ctx := Context{Now: now, Indexes: index.NewSet(namespaces)}
	rule := References("project", "", "namespaces", FieldKey("metadata", "name"))

	t.Run("present key", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(rule))

		findings := reg.Evaluate(record("user-a", 0, nil), ctx)

		assert.Empty(t, findings)
	})

	t.Run("absent key yields exactly one finding", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(rule))

		findings := reg.Evaluate(record("user-b", 0, nil), ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, domain.TagMissingReference, findings[0].Tag)
		assert.Contains(t, findings[0].Detail, "user-b")
	})

	t.Run("several dangling keys still one finding", func(t *testing.T) {
		multi := References("rb", "noRolebinding", "namespaces", func(domain.Record) []string {
			return []string{"x", "user-a", "y"}
		})

		f, ok := multi.Evaluate(record("any", 0, nil), ctx)

		require.True(t, ok)
		assert.Equal(t, "namespaces not found: x,y", f.Detail)
	})
}

func TestMembershipRule(t *testing.T) {
	groups := index.Build("groups", []domain.Record{
		{"metadata": map[string]any{"name": "identity-provider.ldap"}, "users": []any{"alice"}},
		{"metadata": map[string]any{"name": "email-domain.example.com"}, "users": []any{"bob"}},
	}, index.ByName)
	ctx := Context{Now: now, Indexes: index.NewSet(groups)}

	rule := Membership("idGroup", "notInIDGroup", "groups",
		func(domain.Record) []string { return []string{"identity-provider.ldap", "identity-provider.missing"} },
		func(rec domain.Record) string { return rec.Name() },
	)

	t.Run("missing group has no members", func(t *testing.T) {
		f, ok := rule.Evaluate(record("alice", 0, nil), ctx)
		require.True(t, ok)
		assert.Equal(t, domain.FindingTag("notInIDGroup"), f.Tag)
		assert.Equal(t, "alice not a member of identity-provider.missing", f.Detail)
	})

	t.Run("not listed in existing group", func(t *testing.T) {
		f, ok := rule.Evaluate(record("carol", 0, nil), ctx)
		require.True(t, ok)
		assert.Equal(t, "carol not a member of identity-provider.ldap,identity-provider.missing", f.Detail)
	})

	t.Run("member of every group", func(t *testing.T) {
		only := Membership("idGroup", "notInIDGroup", "groups",
			func(domain.Record) []string { return []string{"identity-provider.ldap"} },
			func(rec domain.Record) string { return rec.Name() },
		)
		_, ok := only.Evaluate(record("alice", 0, nil), ctx)
		assert.False(t, ok)
	})
}

func TestStaleRule(t *testing.T) {
	ctx := Context{Now: now}
	rule := Stale("runScheduled", "runScheduledError", 30*time.Minute, At("status", "runScheduled"))
	rec := func(raw string) domain.Record {
		return record("a", 0, map[string]any{"status": map[string]any{"runScheduled": raw}})
	}

	tests := []struct {
		name string
		raw  string
		tag  domain.FindingTag
	}{
		{name: "1800 seconds", raw: ts(1800 * time.Second), tag: "runScheduledError"},
		{name: "1799 seconds", raw: ts(1799 * time.Second)},
		{name: "future", raw: ts(-2 * time.Hour)},
		{name: "malformed", raw: "2024-13-45", tag: domain.TagMalformedTimestamp},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f, ok := rule.Evaluate(rec(tt.raw), ctx)
			assert.Equal(t, tt.tag != "", ok)
			assert.Equal(t, tt.tag, f.Tag)
		})
	}

	t.Run("missing timestamp", func(t *testing.T) {
		_, ok := rule.Evaluate(record("a", 0, nil), ctx)
		assert.False(t, ok)
	})
}

func TestChainRule(t *testing.T) {
	ctx := Context{Now: now}
	chain := Chain("runScheduledError",
		When(Has("status", "finishedTimestamp"), Pass()),
		When(Has("status", "runScheduled"),
			Stale("scheduled", "runScheduledError", 30*time.Minute, At("status", "runScheduled"))),
		When(Has("status", "state"),
			OneOf("state", "runScheduledError", []string{"successful"}, "status", "state")),
		Otherwise(Flag("runScheduledError", "no schedule or state")),
	)

	tests := []struct {
		name    string
		status  map[string]any
		flagged bool
	}{
		{name: "finished wins over stale schedule", status: map[string]any{
			"finishedTimestamp": ts(time.Minute), "runScheduled": ts(10 * time.Hour),
		}},
		{name: "stale schedule", status: map[string]any{"runScheduled": ts(time.Hour)}, flagged: true},
		{name: "schedule wins over failed state", status: map[string]any{
			"runScheduled": ts(time.Minute), "state": "failed",
		}},
		{name: "failed state", status: map[string]any{"state": "failed"}, flagged: true},
		{name: "successful state", status: map[string]any{"state": "successful"}},
		{name: "nothing", status: map[string]any{}, flagged: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, ok := chain.Evaluate(record("a", 0, map[string]any{"status": tt.status}), ctx)
			assert.Equal(t, tt.flagged, ok)
		})
	}
}

func TestRegistry(t *testing.T) {
	ctx := Context{Now: now}

	t.Run("declared order and tag dedup", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(Flag("b", "first")))
		require.NoError(t, reg.Register(Func("a", func(domain.Record, Context) (domain.Finding, bool) {
			return domain.Finding{Tag: "a"}, true
		})))
		require.NoError(t, reg.Register(Func("b-again", func(domain.Record, Context) (domain.Finding, bool) {
			return domain.Finding{Tag: "b", Detail: "second"}, true
		})))

		findings := reg.Evaluate(record("x", 0, nil), ctx)

		require.Len(t, findings, 2)
		assert.Equal(t, domain.Finding{Tag: "b", Detail: "first"}, findings[0])
		assert.Equal(t, domain.FindingTag("a"), findings[1].Tag)
	})

	t.Run("disabled by default until enabled", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(Flag("runRefMissing", ""), DisabledByDefault()))

		assert.Empty(t, reg.Evaluate(record("x", 0, nil), ctx))
		assert.Equal(t, []RuleState{{Name: "runRefMissing", Enabled: false}}, reg.Rules())

		require.NoError(t, reg.Enable("runRefMissing"))
		assert.Len(t, reg.Evaluate(record("x", 0, nil), ctx), 1)

		require.NoError(t, reg.Disable("runRefMissing"))
		assert.Empty(t, reg.Evaluate(record("x", 0, nil), ctx))
	})

	t.Run("unknown and duplicate rules", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(Pass()))

		assert.Error(t, reg.Register(Pass()))
		assert.ErrorIs(t, reg.Enable("nope"), ErrUnknownRule)
	})

	t.Run("panicking rule becomes a finding", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(Func("boom", func(domain.Record, Context) (domain.Finding, bool) {
			panic("bad shape")
		})))

		findings := reg.Evaluate(record("x", 0, nil), ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, domain.TagEvaluationFailed, findings[0].Tag)
		assert.Contains(t, findings[0].Detail, "boom")
	})
}

func TestEvaluateAll(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Present("flag", "flagged", "spec", "bad")))

	records := make([]domain.Record, 0, 50)
	for i := 0; i < 50; i++ {
		fields := map[string]any{"spec": map[string]any{}}
		if i%2 == 0 {
			fields["spec"] = map[string]any{"bad": true}
		}
		records = append(records, record(fmt.Sprintf("r-%02d", i), 0, fields))
	}

	results, err := EvaluateAll(context.Background(), reg, records, Context{Now: now}, 4)

	require.NoError(t, err)
	require.Len(t, results, 50)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("r-%02d", i), res.Record.Name())
		assert.Equal(t, i%2 == 0, len(res.Findings) == 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EvaluateAll(ctx, reg, records, Context{Now: now}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
