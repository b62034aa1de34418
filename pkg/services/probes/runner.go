package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Runner runs checks on demand with settings resolved once, for long running
// services. Check options come from v, their flag defaults fill the gaps.
type Runner struct {
	registry Registry
	viper    *viper.Viper
	settings config.Settings
	clients  Clients
	now      func() time.Time
}

func NewRunner(registry Registry, v *viper.Viper, settings config.Settings, clients Clients) (*Runner, error) {
	for _, name := range registry.List() {
		p, err := registry.Create(name)
		if err != nil {
			return nil, err
		}
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		p.Flags(fs)
		if err := config.BindFlags(v, fs, config.NewScope(v, name).Prefix()); err != nil {
			return nil, fmt.Errorf("failed to bind options of %s: %w", name, err)
		}
	}
	return &Runner{
		registry: registry,
		viper:    v,
		settings: settings,
		clients:  clients,
		now:      time.Now,
	}, nil
}

// Checks returns a fresh instance of every registered check.
func (r *Runner) Checks() []Probe {
	names := r.registry.List()
	checks := make([]Probe, 0, len(names))
	for _, name := range names {
		if p, err := r.registry.Create(name); err == nil {
			checks = append(checks, p)
		}
	}
	return checks
}

func (r *Runner) Run(ctx context.Context, name string) (*domain.CheckReport, error) {
	p, err := r.registry.Create(name)
	if err != nil {
		return nil, err
	}
	if err := p.Configure(config.NewScope(r.viper, name)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.settings.Timeout)
	defer cancel()

	logger := zerolog.Ctx(ctx).With().Str("check", name).Logger()
	ctx = logger.WithContext(ctx)

	report, err := p.Run(ctx, Env{Clients: r.clients, Settings: r.settings, Now: r.now()})
	if err != nil {
		return nil, fmt.Errorf("check %s failed: %w", name, err)
	}
	logger.Debug().Str("status", report.Status.String()).Msg("Check finished")
	return report, nil
}
