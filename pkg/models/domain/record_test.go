package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRecord() Record {
	return Record{
		"metadata": map[string]any{
			"name":              "user-a",
			"namespace":         "babylon",
			"creationTimestamp": "2024-01-01T00:00:00Z",
			"annotations": map[string]any{
				"babylon.gpte.redhat.com/last-login": "2024-01-02T00:00:00Z",
			},
		},
		"status": map[string]any{
			"kopf": map[string]any{
				"progress": map[string]any{},
			},
			"resources": []any{
				map[string]any{"validationError": "bad template"},
			},
			"count": float64(3),
		},
		"spec": map[string]any{
			"enabled":  true,
			"optional": nil,
		},
	}
}

func TestRecord_GetPath(t *testing.T) {
	rec := sampleRecord()

	t.Run("nested map", func(t *testing.T) {
		v, ok := rec.String("metadata", "name")
		assert.True(t, ok)
		assert.Equal(t, "user-a", v)
	})

	t.Run("list index", func(t *testing.T) {
		v, ok := rec.String("status", "resources", "0", "validationError")
		assert.True(t, ok)
		assert.Equal(t, "bad template", v)
	})

	t.Run("list index out of range", func(t *testing.T) {
		assert.False(t, rec.HasPath("status", "resources", "1"))
		assert.False(t, rec.HasPath("status", "resources", "x"))
	})

	t.Run("missing intermediate", func(t *testing.T) {
		assert.False(t, rec.HasPath("status", "runnerPod", "name"))
	})

	t.Run("walking through a scalar", func(t *testing.T) {
		assert.False(t, rec.HasPath("metadata", "name", "first"))
	})

	t.Run("explicit null is present", func(t *testing.T) {
		assert.True(t, rec.HasPath("spec", "optional"))
		assert.False(t, rec.Truthy("spec", "optional"))
	})
}

func TestRecord_TypedAccessors(t *testing.T) {
	rec := sampleRecord()

	n, ok := rec.Int64("status", "count")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	b, ok := rec.Bool("spec", "enabled")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = rec.Bool("metadata", "name")
	assert.False(t, ok)

	assert.True(t, rec.HasPath("status", "kopf", "progress"))
	assert.False(t, rec.Truthy("status", "kopf", "progress"))

	assert.Equal(t, Key{Namespace: "babylon", Name: "user-a"}, rec.Key())
	assert.Equal(t, "2024-01-02T00:00:00Z", rec.Annotations()["babylon.gpte.redhat.com/last-login"])
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "ns/name", Key{Namespace: "ns", Name: "name"}.String())
	assert.Equal(t, "name", Key{Name: "name"}.String())
}

func TestPerfDatum_String(t *testing.T) {
	assert.Equal(t, "countactions=3;;;;;", Perf("countactions", 3).String())
	assert.Equal(t, "namespaces=12;10;20;0;30;", PerfDatum{
		Label: "namespaces",
		Value: 12,
		Warn:  Bound(10),
		Crit:  Bound(20),
		Min:   Bound(0),
		Max:   Bound(30),
	}.String())
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, 0, SeverityOK.ExitCode())
	assert.Equal(t, 1, SeverityWarning.ExitCode())
	assert.Equal(t, 2, SeverityCritical.ExitCode())
	assert.Equal(t, 3, SeverityUnknown.ExitCode())
	assert.Equal(t, SeverityCritical, Worst(SeverityWarning, SeverityCritical, SeverityOK))
	assert.Equal(t, SeverityOK, Worst())
	assert.Equal(t, "WARNING", SeverityWarning.String())
}
