package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tp-distribuidos-2c2025/measurements/orchestrator"
	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
	"github.com/tp-distribuidos-2c2025/measurements/shared/config"
	"github.com/tp-distribuidos-2c2025/measurements/shared/health_server"
	"github.com/tp-distribuidos-2c2025/measurements/shared/metrics"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware"
	"github.com/tp-distribuidos-2c2025/measurements/shared/middleware/workerqueue"
	"github.com/tp-distribuidos-2c2025/measurements/writter"
)

const component = "Client"

type options struct {
	configPath  string
	workers     int
	queueDepth  int
	batchSize   int
	format      string
	logLevel    string
	metricsAddr string
	publish     bool
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "client [file]",
		Short: "Aggregate min/mean/max per key over a measurements file",
		Long: `Reads a file of "<key>;<value>" lines, aggregates every key in parallel and
prints min/mean/max per key. Use "-" to read from standard input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0], stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	flags.IntVar(&opts.queueDepth, "queue-depth", 0, "per-worker queue capacity in batches, 0 for unbounded")
	flags.IntVar(&opts.batchSize, "batch-size", config.DefaultBatchSize, "lines handed to a worker at once")
	flags.StringVarP(&opts.format, "format", "f", config.DefaultFormat, "output format: "+strings.Join(writter.Formats, ", "))
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error or quiet")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /health and /metrics on this address during the run")
	flags.BoolVar(&opts.publish, "publish", false, "publish the result table to RabbitMQ")

	return cmd
}

// loadConfig layers explicitly set flags over the file and environment
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("queue-depth") {
		cfg.QueueDepth = opts.queueDepth
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if opts.publish {
		cfg.RabbitMQ.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	level, err := middleware.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := middleware.NewLogger(stderr, level)

	resultWriter, err := writter.NewResultWriter(cfg.Format)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	stats := metrics.NewPrometheusStats(registry)

	if cfg.MetricsAddr != "" {
		hs := health_server.NewHealthServer(cfg.MetricsAddr, registry, logger)
		if err := hs.Start(); err != nil {
			return err
		}
		defer hs.Stop()
	}

	input, err := openInput(path, stdin)
	if err != nil {
		return err
	}
	defer input.Close()

	pipeline := orchestrator.NewOrchestrator(orchestrator.Config{
		Workers:      cfg.Workers,
		QueueDepth:   cfg.QueueDepth,
		BatchSize:    cfg.BatchSize,
		MaxLineBytes: cfg.MaxLineBytes,
	}, logger, stats)

	table, summary, err := pipeline.Run(ctx, input)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	if err := resultWriter.Write(out, table); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	logger.LogInfo(component, "Summary: %d lines, %d records, %d malformed, %d keys, %d workers, %v",
		summary.Lines, summary.Records, summary.Malformed(), summary.Keys, summary.Workers, summary.Elapsed)

	if cfg.RabbitMQ.Enabled {
		return publishResults(ctx, cfg, table, logger)
	}
	return nil
}

func publishResults(ctx context.Context, cfg *config.Config, table *aggregate.Table, logger *middleware.Logger) error {
	conn, err := middleware.WaitForConnection(cfg.RabbitMQ.Connection, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryInterval)
	if err != nil {
		logger.LogError(component, "Results were not published: %v", err)
		return err
	}
	defer conn.Close()

	queue := workerqueue.NewMessageMiddlewareQueue(cfg.RabbitMQ.Queue, conn.Channel, logger)
	return writter.NewPublisher(queue, logger).Publish(ctx, table)
}
