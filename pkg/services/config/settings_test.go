package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commonFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("apiurl", "", "")
	fs.String("secret-file", "", "")
	fs.String("cacert", "", "")
	fs.String("username", "", "")
	fs.String("deeplink", "", "")
	fs.String("profile", "", "")
	fs.String("profiles-file", "", "")
	fs.String("from-dir", "", "")
	fs.String("pattern", "", "")
	fs.String("ignorepattern", "", "")
	fs.Int("concurrency", 4, "")
	fs.Duration("timeout", time.Minute, "")
	fs.String("log-level", "warn", "")
	fs.StringSlice("enable-rule", nil, "")
	fs.StringSlice("disable-rule", nil, "")
	return fs
}

func TestLoadSettings_FlagsAndProfile(t *testing.T) {
	// Given
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles.ini")
	content := `[prod]
apiurl = https://api.prod.example.com:6443
secret_file = /secrets/prod.token
cacert = /secrets/prod.crt
deeplink = https://ui.prod.example.com/admin/anarchysubjects/
`
	require.NoError(t, os.WriteFile(profiles, []byte(content), 0o644))

	fs := commonFlags()
	v := NewViper()
	require.NoError(t, BindFlags(v, fs, ""))
	require.NoError(t, fs.Parse([]string{
		"--profile", "prod",
		"--profiles-file", profiles,
		"--cacert", "/override/ca.crt",
		"--timeout", "30s",
		"--enable-rule", "runRefMissing,tooManyIdentities",
	}))

	// When
	settings, err := LoadSettings(context.Background(), v)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "https://api.prod.example.com:6443", settings.APIURL)
	assert.Equal(t, "/secrets/prod.token", settings.SecretFile)
	assert.Equal(t, "/override/ca.crt", settings.CACert)
	assert.Equal(t, "https://ui.prod.example.com/admin/anarchysubjects/", settings.Deeplink)
	assert.Equal(t, 30*time.Second, settings.Timeout)
	assert.Equal(t, 4, settings.Concurrency)
	assert.Equal(t, []string{"runRefMissing", "tooManyIdentities"}, settings.EnableRules)
	assert.NoError(t, settings.ValidateCluster())
}

func TestLoadSettings_UnknownProfile(t *testing.T) {
	// Given
	profiles := filepath.Join(t.TempDir(), "profiles.ini")
	require.NoError(t, os.WriteFile(profiles, []byte("[dev]\napiurl = https://dev\n"), 0o644))
	fs := commonFlags()
	v := NewViper()
	require.NoError(t, BindFlags(v, fs, ""))
	require.NoError(t, fs.Parse([]string{"--profile", "prod", "--profiles-file", profiles}))

	// When
	_, err := LoadSettings(context.Background(), v)

	// Then
	assert.ErrorIs(t, err, ErrUsage)
}

func TestSettings_Validate(t *testing.T) {
	assert.ErrorIs(t, Settings{}.ValidateCluster(), ErrUsage)
	assert.NoError(t, Settings{FromDir: "/dumps"}.ValidateCluster())
	assert.NoError(t, Settings{Connection: Connection{APIURL: "a", SecretFile: "s", CACert: "c"}}.ValidateCluster())

	err := Settings{Connection: Connection{APIURL: "a", SecretFile: "s"}}.ValidateCluster()
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "missing --cacert")

	err = Settings{Connection: Connection{APIURL: "a", SecretFile: "s"}}.ValidateController()
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "--username")
}

func TestScope(t *testing.T) {
	// Given
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "probes.yaml")
	content := `checks:
  babylon-pools:
    critical: 20
  namespace-count:
    max: 10000
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	fs := pflag.NewFlagSet("babylon-pools", pflag.ContinueOnError)
	fs.Int("warning", 50, "")
	fs.Int("critical", 10, "")
	fs.Bool("skipzero", true, "")

	v := NewViper()
	scope := NewScope(v, "babylon-pools")
	require.NoError(t, BindFlags(v, fs, scope.Prefix()))
	require.NoError(t, ReadFile(v, cfgPath))
	require.NoError(t, fs.Parse([]string{"--skipzero=false"}))
	t.Setenv("RHDP_PROBE_CHECKS_BABYLON_POOLS_WARNING", "60")

	// When / Then
	assert.Equal(t, 60, scope.Int("warning"), "environment wins over flag default")
	assert.Equal(t, 20, scope.Int("critical"), "config file wins over flag default")
	assert.False(t, scope.Bool("skipzero"), "explicit flag")

	other := NewScope(v, "namespace-count")
	limit, err := other.RequireInt("max")
	require.NoError(t, err)
	assert.Equal(t, 10000, limit)

	_, err = other.RequireInt("warning")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestReadFile_Missing(t *testing.T) {
	assert.NoError(t, ReadFile(NewViper(), ""))
	assert.ErrorIs(t, ReadFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml")), ErrUsage)
}

func TestRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.ini")
	require.NoError(t, os.WriteFile(path, []byte("[a]\napiurl = x\n[b]\napiurl = y\nusername = monitor\n"), 0o644))

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	profiles, err := registry.GetProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, profiles)

	conn, err := registry.GetConnection(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, &Connection{APIURL: "y", Username: "monitor"}, conn)
}

func TestAddFlags_Defaults(t *testing.T) {
	// Given the shared flags bound without any value on the command line
	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	AddFlags(fs)
	v := NewViper()
	require.NoError(t, BindFlags(v, fs, ""))
	require.NoError(t, fs.Parse([]string{"-a", "https://api.example:6443"}))

	// When the settings are loaded
	settings, err := LoadSettings(context.Background(), v)
	require.NoError(t, err)

	// Then the flag defaults and the parsed value apply
	assert.Equal(t, "https://api.example:6443", settings.APIURL)
	assert.Equal(t, 4, settings.Concurrency)
	assert.Equal(t, 60*time.Second, settings.Timeout)
	assert.Equal(t, "warn", settings.LogLevel)
	assert.Empty(t, settings.EnableRules)
}
