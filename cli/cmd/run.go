// Package cmd implements the assay CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/assay/cli/config"
	"github.com/justapithecus/assay/cluster"
	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/metrics"
	"github.com/justapithecus/assay/poll"
	"github.com/justapithecus/assay/report"
	"github.com/justapithecus/assay/scenario"
	"github.com/justapithecus/assay/steps"
	"github.com/justapithecus/assay/types"
)

// Exit codes for run.
const (
	exitSuccess     = 0
	exitStepFailure = 1
	exitUsageError  = 2
)

// RunCommand returns the run command, the only command that executes
// steps against a cluster.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a scenario against a live cluster",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to assay.yaml",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "scenario",
				Usage:    "Path to scenario YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated if omitted)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Run report path, \"-\" for stderr (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}
	if err := cfg.Cluster.Validate(); err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	sc, err := scenario.Load(c.String("scenario"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	runMeta := &types.RunMeta{RunID: runID, Namespace: cfg.Cluster.Namespace}
	logger := log.NewLogger(runMeta)

	cl, err := cluster.NewHTTPCluster(cluster.HTTPConfig{
		Router:    cfg.Cluster.Router,
		Querier:   cfg.Cluster.Querier,
		Ingester:  cfg.Cluster.Ingester,
		Compactor: cfg.Cluster.Compactor,
		Namespace: cfg.Cluster.Namespace,
		AuthToken: cfg.Cluster.AuthToken,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	pollCfg := poll.DefaultConfig()
	if cfg.Poll.Tick.Duration > 0 {
		pollCfg.Tick = cfg.Poll.Tick.Duration
	}
	if cfg.Poll.Timeout.Duration > 0 {
		pollCfg.Timeout = cfg.Poll.Timeout.Duration
	}

	collector := metrics.NewCollector(runID, cfg.Cluster.Namespace)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	test := steps.NewStepTest(cl, sc.Steps,
		steps.WithLogger(logger),
		steps.WithCollector(collector),
		steps.WithPollConfig(pollCfg),
	)
	runErr := test.Run(ctx)
	duration := time.Since(start)

	rep := report.BuildRunReport(runMeta, len(sc.Steps), runErr, collector.Snapshot(), duration)
	if err := writeReport(ctx, c, cfg, rep); err != nil {
		// A report failure must not mask the run outcome; log and move on.
		logger.Sugar().Errorf("failed to write run report: %v", err)
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("scenario %q failed: %v", sc.Name, runErr), exitStepFailure)
	}

	if !c.Bool("quiet") {
		fmt.Fprintf(c.App.Writer, "scenario %q passed: %d steps in %s\n", sc.Name, len(sc.Steps), duration.Round(time.Millisecond))
	}
	return nil
}

// writeReport writes the run report to the configured file destination
// and, when configured, archives it to S3.
func writeReport(ctx context.Context, c *cli.Context, cfg *config.Config, rep *report.RunReport) error {
	path := c.String("report")
	if path == "" {
		path = cfg.Report.Path
	}
	if path != "" {
		if err := report.WriteRunReport(rep, path); err != nil {
			return err
		}
	}

	if s3cfg := cfg.Report.S3; s3cfg != nil {
		archiver, err := report.NewArchiver(ctx, report.S3Config{
			Bucket:       s3cfg.Bucket,
			Prefix:       s3cfg.Prefix,
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			UsePathStyle: s3cfg.UsePathStyle,
		})
		if err != nil {
			return err
		}
		if _, err := archiver.Archive(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}
