package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "RHDP_PROBE"

// ErrUsage marks configuration problems the operator has to fix.
var ErrUsage = errors.New("usage error")

// Settings are the options shared by every check.
type Settings struct {
	Connection    `mapstructure:",squash"`
	Profile       string        `mapstructure:"profile"`
	ProfilesFile  string        `mapstructure:"profiles-file"`
	FromDir       string        `mapstructure:"from-dir"`
	Pattern       string        `mapstructure:"pattern"`
	IgnorePattern string        `mapstructure:"ignorepattern"`
	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	LogLevel      string        `mapstructure:"log-level"`
	EnableRules   []string      `mapstructure:"enable-rule"`
	DisableRules  []string      `mapstructure:"disable-rule"`
}

// DefaultSettings returns the defaults used when neither flags, environment
// nor config file say otherwise.
func DefaultSettings() Settings {
	return Settings{
		ProfilesFile: DefaultProfilesPath(),
		Concurrency:  4,
		Timeout:      60 * time.Second,
		LogLevel:     "warn",
	}
}

// NewViper returns a viper instance reading RHDP_PROBE_* environment
// variables. Nested and dashed keys map to underscores:
// checks.babylon-pools.warning is RHDP_PROBE_CHECKS_BABYLON_POOLS_WARNING.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: failed to read config file: %v", ErrUsage, err)
	}
	return nil
}

// BindFlags binds every flag of fs to prefix.<flag name>. An empty prefix
// binds flags to their own name.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, prefix string) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}

// LoadSettings decodes the shared settings and completes the connection from
// the selected profile. Explicit values win over the profile.
func LoadSettings(ctx context.Context, v *viper.Viper) (Settings, error) {
	settings := DefaultSettings()
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("%w: failed to parse settings: %v", ErrUsage, err)
	}

	if settings.Profile != "" {
		registry, err := NewRegistry(settings.ProfilesFile)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		profile, err := registry.GetConnection(ctx, settings.Profile)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		settings.Connection.Merge(profile)
	}

	if settings.Concurrency <= 0 {
		return Settings{}, fmt.Errorf("%w: concurrency must be positive", ErrUsage)
	}
	if settings.Timeout <= 0 {
		return Settings{}, fmt.Errorf("%w: timeout must be positive", ErrUsage)
	}
	return settings, nil
}

// ValidateCluster checks the settings needed to reach the cluster API.
func (s Settings) ValidateCluster() error {
	if s.FromDir != "" {
		return nil
	}
	var missing []string
	if s.APIURL == "" {
		missing = append(missing, "--apiurl")
	}
	if s.SecretFile == "" {
		missing = append(missing, "--secret-file")
	}
	if s.CACert == "" {
		missing = append(missing, "--cacert")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s (or --profile/--from-dir)", ErrUsage, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateController checks the settings needed to reach the automation controller.
func (s Settings) ValidateController() error {
	var missing []string
	if s.APIURL == "" {
		missing = append(missing, "--apiurl")
	}
	if s.SecretFile == "" {
		missing = append(missing, "--secret-file")
	}
	if s.Username == "" {
		missing = append(missing, "--username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrUsage, strings.Join(missing, ", "))
	}
	return nil
}

// Scope reads the settings of one check, stored under checks.<name>.
type Scope struct {
	v      *viper.Viper
	prefix string
}

func NewScope(v *viper.Viper, check string) Scope {
	return Scope{v: v, prefix: "checks." + check}
}

// Prefix is the key prefix flags of the check are bound to.
func (s Scope) Prefix() string {
	return s.prefix
}

func (s Scope) key(name string) string {
	return s.prefix + "." + name
}

func (s Scope) Int(name string) int {
	return s.v.GetInt(s.key(name))
}

func (s Scope) Float64(name string) float64 {
	return s.v.GetFloat64(s.key(name))
}

func (s Scope) Bool(name string) bool {
	return s.v.GetBool(s.key(name))
}

func (s Scope) String(name string) string {
	return s.v.GetString(s.key(name))
}

func (s Scope) Duration(name string) time.Duration {
	return s.v.GetDuration(s.key(name))
}

func (s Scope) IsSet(name string) bool {
	return s.v.IsSet(s.key(name))
}

// RequireInt reads a threshold that has no sensible default.
func (s Scope) RequireInt(name string) (int, error) {
	if !s.IsSet(name) {
		return 0, fmt.Errorf("%w: --%s is required", ErrUsage, name)
	}
	return s.Int(name), nil
}
