package kube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	fakedynamic "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
)

func object(apiVersion, kind, namespace, name string, labels map[string]any) *unstructured.Unstructured {
	meta := map[string]any{"name": name}
	if namespace != "" {
		meta["namespace"] = namespace
	}
	if labels != nil {
		meta["labels"] = labels
	}
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   meta,
	}}
}

func newFakeSource(objs ...runtime.Object) (*Source, *fakedynamic.FakeDynamicClient) {
	client := fakedynamic.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), source.ListKinds(), objs...)
	return NewSource(client, 0), client
}

func TestSource_List(t *testing.T) {
	ctx := context.Background()
	src, _ := newFakeSource(
		object("poolboy.gpte.redhat.com/v1", "ResourceHandle", "poolboy", "guid-1",
			map[string]any{"poolboy.gpte.redhat.com/resource-pool-name": "pool-a"}),
		object("poolboy.gpte.redhat.com/v1", "ResourceHandle", "poolboy", "guid-2",
			map[string]any{"poolboy.gpte.redhat.com/resource-pool-name": "pool-b"}),
		object("poolboy.gpte.redhat.com/v1", "ResourceHandle", "other", "guid-3", nil),
		object("v1", "Namespace", "", "user-a", nil),
	)

	t.Run("all namespaces", func(t *testing.T) {
		records, err := src.List(ctx, source.ResourceHandles)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("namespace and label selector", func(t *testing.T) {
		c := source.ResourceHandles.
			InNamespace("poolboy").
			WithSelector("poolboy.gpte.redhat.com/resource-pool-name=pool-a")

		records, err := src.List(ctx, c)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "guid-1", records[0].Name())
	})

	t.Run("cluster scoped", func(t *testing.T) {
		records, err := src.List(ctx, source.Namespaces)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "user-a", records[0].Name())
	})
}

func TestSource_Get(t *testing.T) {
	ctx := context.Background()
	src, _ := newFakeSource(
		object("anarchy.gpte.redhat.com/v1", "AnarchySubject", "babylon-anarchy", "subject-1", nil),
	)

	rec, err := src.Get(ctx, source.AnarchySubjects, "babylon-anarchy", "subject-1")
	require.NoError(t, err)
	assert.Equal(t, "subject-1", rec.Name())

	_, err = src.Get(ctx, source.AnarchySubjects, "babylon-anarchy", "missing")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestSource_ListErrors(t *testing.T) {
	src, client := newFakeSource()
	client.PrependReactor("list", "anarchyactions", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewUnauthorized("token expired")
	})

	_, err := src.List(context.Background(), source.AnarchyActions)

	var fetchErr *source.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.True(t, fetchErr.Unauthorized)
	assert.Equal(t, "anarchyactions", fetchErr.Collection)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestRestConfig(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("sha256~abc\n"), 0o600))

	cfg, err := RestConfig(Config{APIURL: "https://api.cluster.example.com:6443", TokenFile: tokenPath, CAFile: "/tmp/ca.crt"})

	require.NoError(t, err)
	assert.Equal(t, "https://api.cluster.example.com:6443", cfg.Host)
	assert.Equal(t, "sha256~abc", cfg.BearerToken)
	assert.Equal(t, "/tmp/ca.crt", cfg.TLSClientConfig.CAFile)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = RestConfig(Config{TokenFile: empty})
	assert.Error(t, err)

	_, err = RestConfig(Config{TokenFile: filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
