package config

import "github.com/spf13/pflag"

// AddFlags registers the shared settings on fs with their defaults.
func AddFlags(fs *pflag.FlagSet) {
	defaults := DefaultSettings()
	fs.StringP("apiurl", "a", "", "API URL of the cluster or automation controller")
	fs.StringP("secret-file", "s", "", "file holding the bearer token or controller password")
	fs.StringP("cacert", "c", "", "CA bundle for the API endpoint")
	fs.StringP("username", "u", "", "automation controller user")
	fs.StringP("deeplink", "d", "", "base URL of the links printed for flagged records")
	fs.String("profile", "", "named connection profile")
	fs.String("profiles-file", defaults.ProfilesFile, "ini file holding the connection profiles")
	fs.String("config", "", "YAML config file with shared settings and per check options")
	fs.StringP("pattern", "p", "", "only check items whose name contains this text")
	fs.StringP("ignorepattern", "i", "", "skip items whose name contains this text")
	fs.Int("concurrency", defaults.Concurrency, "maximum parallel remote calls and evaluations")
	fs.Duration("timeout", defaults.Timeout, "deadline of the whole run")
	fs.String("log-level", defaults.LogLevel, "log level")
	fs.String("from-dir", "", "replay collections from YAML/JSON dumps in this directory")
	fs.StringSlice("enable-rule", nil, "enable a rule that is off by default")
	fs.StringSlice("disable-rule", nil, "disable a rule")
}
