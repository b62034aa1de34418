package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSource_List(t *testing.T) {
	// Given
	dir := t.TempDir()
	writeDump(t, dir, "resourcehandles.yaml", `apiVersion: v1
kind: List
items:
- metadata:
    name: guid-1
    namespace: poolboy
    creationTimestamp: 2024-01-01T00:00:00Z
    labels:
      poolboy.gpte.redhat.com/resource-pool-name: pool-a
  spec:
    resourceClaim:
      name: claim-1
- metadata:
    name: guid-2
    namespace: poolboy
    labels:
      poolboy.gpte.redhat.com/resource-pool-name: pool-b
- metadata:
    name: guid-3
    namespace: elsewhere
`)
	src := NewSource(dir)
	ctx := context.Background()

	// When
	all, err := src.List(ctx, source.ResourceHandles)
	selected, selErr := src.List(ctx, source.ResourceHandles.
		InNamespace("poolboy").
		WithSelector("poolboy.gpte.redhat.com/resource-pool-name=pool-a"))

	// Then
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, selErr)
	require.Len(t, selected, 1)
	assert.Equal(t, "guid-1", selected[0].Name())
	created, ok := selected[0].CreationTimestamp()
	assert.True(t, ok, "timestamps stay strings")
	assert.Equal(t, "2024-01-01T00:00:00Z", created)
}

func TestSource_JSONSequence(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "namespaces.json", `[{"metadata": {"name": "user-a"}}, {"metadata": {"name": "user-b"}}]`)

	records, err := NewSource(dir).List(context.Background(), source.Namespaces)

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSource_Get(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "anarchysubjects.yaml", `items:
- metadata: {name: subject-1, namespace: babylon-anarchy}
  spec: {vars: {desired_state: started, current_state: started, healthy: true}}
`)
	src := NewSource(dir)

	rec, err := src.Get(context.Background(), source.AnarchySubjects, "babylon-anarchy", "subject-1")
	require.NoError(t, err)
	healthy, _ := rec.Bool("spec", "vars", "healthy")
	assert.True(t, healthy)

	_, err = src.Get(context.Background(), source.AnarchySubjects, "babylon-anarchy", "subject-2")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestSource_Errors(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "users.yaml", "items: [1, 2]")
	src := NewSource(dir)

	_, err := src.List(context.Background(), source.Groups)
	var fetchErr *source.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = src.List(context.Background(), source.Users)
	assert.Error(t, err)

	_, err = src.List(context.Background(), source.Namespaces.WithSelector("a=("))
	assert.Error(t, err)
}
