package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

var ErrNotFound = errors.New("record not found")

// Source fetches untyped records from a remote control plane.
type Source interface {
	List(ctx context.Context, c Collection) ([]domain.Record, error)
	Get(ctx context.Context, c Collection, namespace, name string) (domain.Record, error)
}

// FetchError reports a failed remote call. Probes treat it as fatal for
// required collections.
type FetchError struct {
	Collection   string
	Op           string
	Unauthorized bool
	Err          error
}

func (e *FetchError) Error() string {
	if e.Unauthorized {
		return fmt.Sprintf("%s %s: unauthorized: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
