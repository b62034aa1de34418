package index

import (
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// KeyFunc derives the lookup key of a record. An empty key means the record
// cannot be indexed and is skipped.
type KeyFunc func(domain.Record) string

// Index is a read-only map from key to record, built once per run.
type Index struct {
	name    string
	records map[string]domain.Record
}

// Build indexes the records by key. Duplicate keys keep the last record seen.
func Build(name string, records []domain.Record, keyFn KeyFunc) *Index {
	idx := &Index{
		name:    name,
		records: make(map[string]domain.Record, len(records)),
	}
	for _, rec := range records {
		key := keyFn(rec)
		if key == "" {
			continue
		}
		idx.records[key] = rec
	}
	return idx
}

func (i *Index) Name() string {
	return i.name
}

func (i *Index) Contains(key string) bool {
	if i == nil {
		return false
	}
	_, ok := i.records[key]
	return ok
}

func (i *Index) Get(key string) (domain.Record, bool) {
	if i == nil {
		return nil, false
	}
	rec, ok := i.records[key]
	return rec, ok
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.records)
}

// ByName keys records by metadata.name.
func ByName(rec domain.Record) string {
	return rec.Name()
}

// ByNamespacedName keys records by namespace/name.
func ByNamespacedName(rec domain.Record) string {
	return rec.Key().String()
}

// ByPath keys records by the string value at path.
func ByPath(path ...string) KeyFunc {
	return func(rec domain.Record) string {
		s, _ := rec.String(path...)
		return s
	}
}

// Set is a named collection of indexes handed to the rule evaluator.
type Set map[string]*Index

func NewSet(indexes ...*Index) Set {
	s := make(Set, len(indexes))
	for _, idx := range indexes {
		s[idx.Name()] = idx
	}
	return s
}

// Lookup returns the named index; a missing index behaves as an empty one.
func (s Set) Lookup(name string) *Index {
	return s[name]
}
