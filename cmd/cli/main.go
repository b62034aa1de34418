package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/runtime/terminal"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/services/probes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := terminal.NewCLI(terminal.Options{
		Registry: probes.DefaultRegistry(),
		Output:   os.Stdout,
	})

	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
