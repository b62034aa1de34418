package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/runtime/terminal/export"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/probes"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/client"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI represents the command-line interface
type CLI struct {
	registry probes.Registry
	reporter *export.Reporter
	catalog  *Reporter
	clients  func(config.Settings) probes.Clients
	now      func() time.Time
	logOut   io.Writer
	viper    *viper.Viper
	rootCmd  *cobra.Command
	exitCode int
}

// Options contain configuration for the CLI
type Options struct {
	Registry probes.Registry
	// Output receives the check result, the only text a monitoring agent reads.
	Output io.Writer
	// LogOutput receives the structured logs. Defaults to stderr.
	LogOutput io.Writer
	// Clients builds the remote clients from the resolved settings.
	Clients func(config.Settings) probes.Clients
	Now     func() time.Time
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Clients == nil {
		opts.Clients = func(s config.Settings) probes.Clients { return client.New(s) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cli := &CLI{
		registry: opts.Registry,
		reporter: export.NewReporter(opts.Output),
		catalog:  NewReporter(opts.Output),
		clients:  opts.Clients,
		now:      opts.Now,
		logOut:   opts.LogOutput,
		viper:    config.NewViper(),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command line and returns the process exit code.
func (cli *CLI) Execute(ctx context.Context, args []string) int {
	cli.exitCode = 0
	cli.rootCmd.SetArgs(args)
	if err := cli.rootCmd.ExecuteContext(ctx); err != nil {
		if werr := cli.reporter.Unknown(err); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
		}
		return domain.SeverityUnknown.ExitCode()
	}
	return cli.exitCode
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rhdp-probe",
		Short:         "Health checks for RHDP clusters in the monitoring plugin format",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.PersistentFlags()
	config.AddFlags(fs)
	// flag names are fixed, binding cannot fail
	_ = config.BindFlags(cli.viper, fs, "")

	cmd.AddCommand(cli.newListCmd())
	for _, name := range cli.registry.List() {
		cmd.AddCommand(cli.newCheckCmd(name))
	}
	return cmd
}

func (cli *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var checks []probes.Probe
			for _, name := range cli.registry.List() {
				p, err := cli.registry.Create(name)
				if err != nil {
					return err
				}
				checks = append(checks, p)
			}
			return cli.catalog.Handle(checks)
		},
	}
}

func (cli *CLI) newCheckCmd(name string) *cobra.Command {
	// registered names always resolve
	p, _ := cli.registry.Create(name)
	cmd := &cobra.Command{
		Use:   name,
		Short: p.Description(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.runCheck(cmd.Context(), name)
		},
	}
	p.Flags(cmd.Flags())
	_ = config.BindFlags(cli.viper, cmd.Flags(), config.NewScope(cli.viper, name).Prefix())
	return cmd
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("%w: invalid log level %q", config.ErrUsage, level)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func (cli *CLI) runCheck(ctx context.Context, name string) error {
	if err := config.ReadFile(cli.viper, cli.viper.GetString("config")); err != nil {
		return err
	}
	settings, err := config.LoadSettings(ctx, cli.viper)
	if err != nil {
		return err
	}
	logger, err := newLogger(cli.logOut, settings.LogLevel)
	if err != nil {
		return err
	}
	logger = logger.With().Str("run_id", uuid.NewString()).Str("check", name).Logger()
	ctx = logger.WithContext(ctx)

	probe, err := cli.registry.Create(name)
	if err != nil {
		return err
	}
	if err := probe.Configure(config.NewScope(cli.viper, name)); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	report, err := probe.Run(ctx, probes.Env{
		Clients:  cli.clients(settings),
		Settings: settings,
		Now:      cli.now(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Check failed")
		return err
	}

	logger.Info().
		Str("status", report.Status.String()).
		Int("total", report.Total).
		Int("errors", report.Errors).
		Msg("Check finished")

	cli.exitCode = report.Status.ExitCode()
	return cli.reporter.Handle(report)
}
