package probes

import (
	"context"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/aap"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/spf13/pflag"
)

// Probe is one health check. A probe instance serves a single run: it is
// created by its factory, configured, then run.
type Probe interface {
	Name() string
	Description() string
	// Flags declares the check specific options and their defaults.
	Flags(fs *pflag.FlagSet)
	// Configure reads the options declared by Flags.
	Configure(scope config.Scope) error
	Run(ctx context.Context, env Env) (*domain.CheckReport, error)
}

// Clients hands out the remote clients lazily, so a check only needs the
// settings of the systems it talks to.
type Clients interface {
	Records() (source.Source, error)
	Jobs() (aap.JobCounter, error)
}

// Env is everything a run needs besides the probe options.
type Env struct {
	Clients  Clients
	Settings config.Settings
	Now      time.Time
}
