package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/server"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/config"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/probes"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/client"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	v := config.NewViper()

	var rootCmd = &cobra.Command{
		Use:   "rhdp-probe-web",
		Short: "Serve the RHDP checks over HTTP and as Prometheus metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, v)
		},
	}

	config.AddFlags(rootCmd.Flags())
	if err := config.BindFlags(v, rootCmd.Flags(), ""); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, v *viper.Viper) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	if err := config.ReadFile(v, v.GetString("config")); err != nil {
		return err
	}
	settings, err := config.LoadSettings(cmd.Context(), v)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: invalid log level %q", config.ErrUsage, settings.LogLevel)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	runner, err := probes.NewRunner(probes.DefaultRegistry(), v, settings, client.New(settings))
	if err != nil {
		return fmt.Errorf("failed to create check runner: %w", err)
	}

	if settings.Profile != "" {
		logger.Info().Msgf("Connection profile `%s` loaded from `%s`.", settings.Profile, settings.ProfilesFile)
	}
	if settings.FromDir != "" {
		logger.Info().Msgf("Replaying collections from `%s`.", settings.FromDir)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:         net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{Runner: runner},
	})
	return webAPI.Start()
}
