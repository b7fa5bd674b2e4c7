// Package main is the entry point for the rosnode monitoring agent.
// It loads configuration, registers the rosnode collector, starts the
// scheduler, and runs as either a Windows service or a foreground process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vitalis-app/rosnode-agent/internal/buffer"
	"github.com/vitalis-app/rosnode-agent/internal/collector"
	"github.com/vitalis-app/rosnode-agent/internal/command"
	"github.com/vitalis-app/rosnode-agent/internal/config"
	"github.com/vitalis-app/rosnode-agent/internal/hostinfo"
	"github.com/vitalis-app/rosnode-agent/internal/scheduler"
	"github.com/vitalis-app/rosnode-agent/internal/sender"
	"github.com/vitalis-app/rosnode-agent/internal/service"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "Path to configuration file (default: auto-discover)")
		serverURL   = pflag.String("url", "", "API server URL, overrides config")
		token       = pflag.String("token", "", "Machine token, overrides config")
		once        = pflag.Bool("once", false, "Run a single collection cycle, print values as JSON and exit")
		showVersion = pflag.BoolP("version", "v", false, "Show version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("rosnode-agent %s\n", version)
		os.Exit(0)
	}

	cli := config.CLIOverrides{URL: *serverURL, Token: *token}
	var (
		cfg *config.Config
		err error
	)
	if pflag.CommandLine.Changed("config") {
		cfg, err = config.LoadLayered(cli, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	if *once {
		if err := runOnce(cfg, logger); err != nil {
			logger.Fatal("Collection failed", zap.Error(err))
		}
		return
	}

	logger.Info("Starting rosnode agent",
		zap.String("version", version),
		zap.String("sink", cfg.Sink.Kind))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			runAgent(ctx, cfg, logger)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runAgent(ctx, cfg, logger)
	logger.Info("Agent stopped")
}

// newRosnodeCollector builds the rosnode collector from configuration.
func newRosnodeCollector(cfg *config.Config, logger *zap.Logger) *collector.RosnodeCollector {
	return collector.NewRosnodeCollector(collector.RosnodeOptions{
		ListCommand:    cfg.Rosnode.ListCommand,
		InfoCommand:    cfg.Rosnode.InfoCommand,
		CommandTimeout: cfg.Rosnode.CommandTimeout.Duration,
	}, command.NewRunner(), command.NewChecker(), logger)
}

// runOnce runs a single cycle and writes the values to stdout.
func runOnce(cfg *config.Config, logger *zap.Logger) error {
	timeout := cfg.Collection.CycleTimeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	values, err := newRosnodeCollector(cfg, logger).Collect(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(values)
}

// runAgent initializes all components and starts the collection/send loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	host, err := hostinfo.Lookup(ctx)
	if err != nil {
		logger.Warn("Host lookup incomplete", zap.Error(err))
	}

	buf, err := buffer.New(cfg.Buffer.Dir, cfg.Buffer.MaxSizeMB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize buffer", zap.Error(err))
	}

	sink, err := sender.NewSink(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize sink", zap.Error(err))
	}

	registry := collector.NewRegistry(logger)
	registry.Register(newRosnodeCollector(cfg, logger), cfg.Rosnode.JobConfig)

	dispatcher := sender.NewDispatcher(sink, buf, host, cfg.Server.MachineToken, registry.Definitions, logger)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("Failed to close sink", zap.Error(err))
		}
	}()

	// Flush any buffered batches from previous runs
	dispatcher.FlushBuffer()

	sched := scheduler.New(registry, cfg.Collection, logger)
	sched.OnBatchReady(dispatcher.Send)

	logger.Info("Agent running",
		zap.String("host", host.Hostname),
		zap.Duration("update_every", cfg.Collection.UpdateEvery.Duration),
		zap.Duration("batch_interval", cfg.Collection.BatchInterval.Duration))
	sched.Start(ctx)
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
// Console output goes to stderr so --once can keep stdout for values.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
