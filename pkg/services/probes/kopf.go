package probes

import (
	"context"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/rules"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/spf13/pflag"
)

const TagValidationError domain.FindingTag = "validationError"

// kopfCheck covers the operator managed resources whose only health signal
// is a non-empty retry marker.
type kopfCheck struct {
	check       collectionCheck
	description string
	extra       []rules.Rule
}

func (p *kopfCheck) Name() string { return p.check.name }

func (p *kopfCheck) Description() string { return p.description }

func (p *kopfCheck) Flags(*pflag.FlagSet) {}

func (p *kopfCheck) Configure(config.Scope) error { return nil }

func (p *kopfCheck) Run(ctx context.Context, env Env) (*domain.CheckReport, error) {
	reg := rules.NewRegistry()
	_ = reg.Register(rules.Present(string(TagKopfProgressExists), TagKopfProgressExists, kopfProgress...).NonEmpty())
	for _, r := range p.extra {
		_ = reg.Register(r)
	}
	return p.check.run(ctx, env, reg)
}

func NewWorkshops() Probe {
	return &kopfCheck{
		description: "Babylon workshops stuck in operator retries",
		check: collectionCheck{
			name:       "workshops",
			collection: source.Workshops,
			noun:       "Workshops",
			countLabel: "workshops",
			errorLabel: "errorworkshops",
		},
	}
}

func NewWorkshopProvisions() Probe {
	return &kopfCheck{
		description: "Babylon workshop provisions stuck in operator retries",
		check: collectionCheck{
			name:       "workshop-provisions",
			collection: source.WorkshopProvisions,
			noun:       "Workshop Provisions",
			countLabel: "workshopprovisions",
			errorLabel: "errorworkshopprovisions",
		},
	}
}

func NewResourceClaims() Probe {
	return &kopfCheck{
		description: "Poolboy resource claims stuck in operator retries or failing validation",
		check: collectionCheck{
			name:       "resource-claims",
			collection: source.ResourceClaims,
			noun:       "Resource Claims",
			countLabel: "resourceclaims",
			errorLabel: "errorresourceclaims",
		},
		extra: []rules.Rule{
			rules.Present(string(TagValidationError), TagValidationError, "status", "resources", "0", "validationError").
				NonEmpty(),
		},
	}
}

func NewResourceHandles() Probe {
	return &kopfCheck{
		description: "Poolboy resource handles stuck in operator retries",
		check: collectionCheck{
			name:       "resource-handles",
			collection: source.ResourceHandles,
			noun:       "Resource Handles",
			countLabel: "resourcehandles",
			errorLabel: "errorresourcehandles",
			link:       linkName,
			recovered:  kopfRecovered,
		},
	}
}
