package cmd

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/assay/cli/config"
)

// PingCommand returns the ping command: a read-only readiness probe of
// the cluster's router before a scenario is run against it.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the cluster router is up and healthy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to assay.yaml",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Probe timeout",
				Value: 10 * time.Second,
			},
		},
		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}
	if err := cfg.Cluster.Validate(); err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	client := influxdb2.NewClient(cfg.Cluster.Router, cfg.Cluster.AuthToken)
	defer client.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	up, err := client.Ping(ctx)
	if err != nil || !up {
		return cli.Exit(fmt.Sprintf("router %s is not responding: %v", cfg.Cluster.Router, err), exitStepFailure)
	}

	health, err := client.Health(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("health check against %s failed: %v", cfg.Cluster.Router, err), exitStepFailure)
	}
	if health.Status != domain.HealthCheckStatusPass {
		msg := ""
		if health.Message != nil {
			msg = ": " + *health.Message
		}
		return cli.Exit(fmt.Sprintf("router %s is unhealthy (%s)%s", cfg.Cluster.Router, health.Status, msg), exitStepFailure)
	}

	fmt.Fprintf(c.App.Writer, "router %s is healthy\n", cfg.Cluster.Router)
	return nil
}
