package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/labels"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Source replays records captured from a cluster. Each collection lives in
// <dir>/<collection name>.yaml as a List document (an object with items) or
// a plain sequence of records.
type Source struct {
	dir string

	mu    sync.Mutex
	cache map[string][]domain.Record
}

func NewSource(dir string) *Source {
	return &Source{dir: dir, cache: map[string][]domain.Record{}}
}

func (s *Source) List(ctx context.Context, c source.Collection) ([]domain.Record, error) {
	all, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}

	selector := labels.Everything()
	if c.LabelSelector != "" {
		selector, err = labels.Parse(c.LabelSelector)
		if err != nil {
			return nil, &source.FetchError{Collection: c.Name, Op: "list", Err: err}
		}
	}

	var records []domain.Record
	for _, rec := range all {
		if c.Namespace != "" && rec.Namespace() != c.Namespace {
			continue
		}
		if !selector.Matches(labels.Set(rec.Labels())) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Source) Get(ctx context.Context, c source.Collection, namespace, name string) (domain.Record, error) {
	all, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.Name() == name && rec.Namespace() == namespace {
			return rec, nil
		}
	}
	key := domain.Key{Namespace: namespace, Name: name}
	return nil, &source.FetchError{
		Collection: c.Name,
		Op:         "get",
		Err:        fmt.Errorf("%w: %s", source.ErrNotFound, key),
	}
}

func (s *Source) load(ctx context.Context, c source.Collection) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records, ok := s.cache[c.Name]; ok {
		return records, nil
	}

	path, err := s.find(c.Name)
	if err != nil {
		return nil, &source.FetchError{Collection: c.Name, Op: "list", Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &source.FetchError{Collection: c.Name, Op: "list", Err: err}
	}
	records, err := Decode(data)
	if err != nil {
		return nil, &source.FetchError{Collection: c.Name, Op: "list", Err: fmt.Errorf("%s: %w", path, err)}
	}

	zerolog.Ctx(ctx).Debug().
		Str("collection", c.Name).
		Str("path", path).
		Int("items", len(records)).
		Msg("loaded records from file")

	s.cache[c.Name] = records
	return records, nil
}

func (s *Source) find(name string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no dump for %s in %s: %w", name, s.dir, os.ErrNotExist)
}

// Decode parses a List document or a sequence of records. JSON is valid YAML,
// so both formats go through the same decoder.
func Decode(data []byte) ([]domain.Record, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		items = v
	case map[string]any:
		list, ok := v["items"].([]any)
		if !ok && v["items"] != nil {
			return nil, errors.New("items is not a list")
		}
		items = list
	default:
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}

	records := make([]domain.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		records = append(records, domain.Record(m))
	}
	return records, nil
}
