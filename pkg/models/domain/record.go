package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is an untyped resource as returned by the control plane: a nested
// map of strings, numbers, booleans, lists and maps. Records are read-only.
type Record map[string]any

// Key identifies a record inside its collection.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}

// GetPath walks nested maps (and lists, for numeric segments) and returns the
// value at the end of the path.
func (r Record) GetPath(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// HasPath reports whether the path exists, regardless of the value stored there.
func (r Record) HasPath(path ...string) bool {
	_, ok := r.GetPath(path...)
	return ok
}

func (r Record) String(path ...string) (string, bool) {
	v, ok := r.GetPath(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (r Record) Bool(path ...string) (bool, bool) {
	v, ok := r.GetPath(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int64 accepts every numeric representation the JSON and YAML decoders produce.
func (r Record) Int64(path ...string) (int64, bool) {
	v, ok := r.GetPath(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func (r Record) Slice(path ...string) ([]any, bool) {
	v, ok := r.GetPath(path...)
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

func (r Record) Map(path ...string) (map[string]any, bool) {
	v, ok := r.GetPath(path...)
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

// Truthy reports whether the path exists and holds a non-empty value.
func (r Record) Truthy(path ...string) bool {
	v, ok := r.GetPath(path...)
	if !ok {
		return false
	}
	return IsTruthy(v)
}

// IsTruthy treats nil, false, zero numbers and empty strings, lists and maps as empty.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case Record:
		return len(t) > 0
	default:
		return true
	}
}

func (r Record) Name() string {
	s, _ := r.String("metadata", "name")
	return s
}

func (r Record) Namespace() string {
	s, _ := r.String("metadata", "namespace")
	return s
}

func (r Record) Key() Key {
	return Key{Namespace: r.Namespace(), Name: r.Name()}
}

func (r Record) CreationTimestamp() (string, bool) {
	return r.String("metadata", "creationTimestamp")
}

func (r Record) Labels() map[string]string {
	return r.stringMap("metadata", "labels")
}

func (r Record) Annotations() map[string]string {
	return r.stringMap("metadata", "annotations")
}

func (r Record) stringMap(path ...string) map[string]string {
	m, ok := r.Map(path...)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
