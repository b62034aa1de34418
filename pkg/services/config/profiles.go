package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const DefaultProfilesFile = ".rhdp-probes.ini"

// Connection holds the settings needed to reach a cluster or controller.
type Connection struct {
	APIURL     string `mapstructure:"apiurl"`
	SecretFile string `mapstructure:"secret-file"`
	CACert     string `mapstructure:"cacert"`
	Username   string `mapstructure:"username"`
	Deeplink   string `mapstructure:"deeplink"`
}

// Registry reads named connection profiles from an ini file:
//
//	[prod-east]
//	apiurl = https://api.prod-east.example.com:6443
//	secret_file = /etc/nagios/secrets/prod-east.token
//	cacert = /etc/nagios/secrets/prod-east.crt
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetConnection(ctx context.Context, profile string) (*Connection, error)
}

type iniRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", path, err)
	}
	return &iniRegistry{cfg: cfg}, nil
}

// DefaultProfilesPath is $HOME/.rhdp-probes.ini.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultProfilesFile
	}
	return filepath.Join(home, DefaultProfilesFile)
}

func (r *iniRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range r.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (r *iniRegistry) GetConnection(_ context.Context, profile string) (*Connection, error) {
	section, err := r.cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	return &Connection{
		APIURL:     section.Key("apiurl").String(),
		SecretFile: section.Key("secret_file").String(),
		CACert:     section.Key("cacert").String(),
		Username:   section.Key("username").String(),
		Deeplink:   section.Key("deeplink").String(),
	}, nil
}

// Merge fills the empty fields of c from the profile.
func (c *Connection) Merge(profile *Connection) {
	if profile == nil {
		return
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.APIURL, profile.APIURL)
	fill(&c.SecretFile, profile.SecretFile)
	fill(&c.CACert, profile.CACert)
	fill(&c.Username, profile.Username)
	fill(&c.Deeplink, profile.Deeplink)
}
