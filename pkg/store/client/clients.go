package client

import (
	"fmt"
	"sync"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/aap"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/file"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/kube"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
)

// Clients creates the remote clients of a run on first use, so that a check
// only requires the settings of the system it talks to.
type Clients struct {
	settings config.Settings

	recordsOnce sync.Once
	records     source.Source
	recordsErr  error

	jobsOnce sync.Once
	jobs     *aap.Client
	jobsErr  error
}

func New(settings config.Settings) *Clients {
	return &Clients{settings: settings}
}

// Records returns the cluster record source, or the directory replay source
// when --from-dir is set.
func (c *Clients) Records() (source.Source, error) {
	c.recordsOnce.Do(func() {
		if err := c.settings.ValidateCluster(); err != nil {
			c.recordsErr = err
			return
		}
		if c.settings.FromDir != "" {
			c.records = file.NewSource(c.settings.FromDir)
			return
		}
		src, err := kube.NewSourceForConfig(kube.Config{
			APIURL:    c.settings.APIURL,
			TokenFile: c.settings.SecretFile,
			CAFile:    c.settings.CACert,
		})
		if err != nil {
			c.recordsErr = fmt.Errorf("%w: %v", config.ErrUsage, err)
			return
		}
		c.records = src
	})
	return c.records, c.recordsErr
}

// Jobs returns the automation controller client.
func (c *Clients) Jobs() (aap.JobCounter, error) {
	c.jobsOnce.Do(func() {
		if err := c.settings.ValidateController(); err != nil {
			c.jobsErr = err
			return
		}
		jobs, err := aap.NewClient(aap.Config{
			Host:         c.settings.APIURL,
			Username:     c.settings.Username,
			PasswordFile: c.settings.SecretFile,
			CAFile:       c.settings.CACert,
			Timeout:      c.settings.Timeout,
		})
		if err != nil {
			c.jobsErr = fmt.Errorf("%w: %v", config.ErrUsage, err)
			return
		}
		c.jobs = jobs
	})
	if c.jobsErr != nil {
		return nil, c.jobsErr
	}
	return c.jobs, nil
}
