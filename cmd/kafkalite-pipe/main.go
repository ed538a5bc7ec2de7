// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Command kafkalite-pipe publishes newline delimited records read from stdin
// (or a file) to a Kafka topic and checkpoints the last delivered line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"github.com/twmb/franz-go/plugin/kslog"
	"github.com/xmidt-org/kafkalite"
	"github.com/xmidt-org/kafkalite/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := flag.NewFlagSet("kafkalite-pipe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	inputPath := fs.String("input", "", "read records from this file instead of stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, cfg.Log)

	input := stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	store, err := openCheckpoint(cfg.CheckpointFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	delivery, err := metrics.New(reg)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	producer := &kafkalite.Producer[int64]{
		Brokers:                  cfg.Brokers,
		Config:                   kafkalite.EntriesFromMap(cfg.Producer),
		Checkpoint:               store.save,
		Logger:                   kslog.New(logger),
		Hooks:                    []kgo.Hook{kprom.NewMetrics("kafkalite_pipe", kprom.Registerer(sharedRegisterer{reg}), kprom.Gatherer(reg))},
		InitialDeliveryListeners: []func(*kafkalite.DeliveryEvent){delivery.Listener()},
	}
	if err := producer.Start(); err != nil {
		return err
	}
	defer producer.Close()

	topic, err := producer.NewTopic(cfg.Topic, kafkalite.EntriesFromMap(cfg.TopicConfig))
	if err != nil {
		return err
	}
	defer topic.Close()

	skip := int64(0)
	if cfg.Resume {
		skip = store.line
		logger.Info("resuming after checkpoint", "line", skip)
	}

	p := &pipe{
		producer: producer,
		topic:    topic,
		store:    store,
		logger:   logger,

		partition:    cfg.Partition,
		pollInterval: cfg.PollInterval,
		closeTimeout: cfg.CloseTimeout,
		skip:         skip,
	}
	return p.run(ctx, input)
}

// newLogger builds the slog logger used by the host and franz-go.
func newLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	return srv
}

// sharedRegisterer lets a single kprom.Metrics be installed on each of the
// producer's clients. Registering a collector that is already present is not
// an error.
type sharedRegisterer struct {
	prometheus.Registerer
}

func (r sharedRegisterer) Register(c prometheus.Collector) error {
	err := r.Registerer.Register(c)
	if are := (prometheus.AlreadyRegisteredError{}); errors.As(err, &are) {
		return nil
	}
	return err
}

func (r sharedRegisterer) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}
