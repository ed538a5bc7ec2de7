// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/xmidt-org/kafkalite"
)

const envPrefix = "KAFKALITE_"

// Config is the demo host configuration.
type Config struct {
	Brokers        string         `koanf:"brokers"`
	Topic          string         `koanf:"topic"`
	Partition      int32          `koanf:"partition"`
	PollInterval   time.Duration  `koanf:"poll_interval"`
	CloseTimeout   time.Duration  `koanf:"close_timeout"`
	CheckpointFile string         `koanf:"checkpoint_file"`
	Resume         bool           `koanf:"resume"`
	MetricsAddr    string         `koanf:"metrics_addr"`
	Log            LogConfig      `koanf:"log"`
	Producer       map[string]any `koanf:"producer"`
	TopicConfig    map[string]any `koanf:"topic_config"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// LoadConfig merges the YAML file at path (if present) with environment
// variables prefixed KAFKALITE_. Sections are separated by "__"; inside the
// producer and topic_config sections a single "_" stands for the "." of a
// property name, so KAFKALITE_PRODUCER__LINGER_MS sets producer "linger.ms".
func LoadConfig(path string) (Config, error) {
	// Property names contain dots, so the key delimiter is "/".
	k := koanf.New("/")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, "/", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Config{
		Partition:    kafkalite.PartitionUnassigned,
		PollInterval: 100 * time.Millisecond,
		CloseTimeout: 10 * time.Second,
		Log:          LogConfig{Level: "info"},
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps KAFKALITE_PRODUCER__QUEUE_BUFFERING_MAX_MS to
// producer/queue.buffering.max.ms and KAFKALITE_POLL_INTERVAL to
// poll_interval.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.Split(s, "__")
	if len(parts) > 1 && (parts[0] == "producer" || parts[0] == "topic_config") {
		for i := 1; i < len(parts); i++ {
			parts[i] = strings.ReplaceAll(parts[i], "_", ".")
		}
	}
	return strings.Join(parts, "/")
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.Brokers) == "" {
		errs = append(errs, errors.New("brokers is required"))
	}
	if c.Topic == "" {
		errs = append(errs, errors.New("topic is required"))
	}
	if c.Partition < kafkalite.PartitionUnassigned {
		errs = append(errs, fmt.Errorf("partition %d is invalid", c.Partition))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.Resume && c.CheckpointFile == "" {
		errs = append(errs, errors.New("resume requires checkpoint_file"))
	}
	return errors.Join(errs...)
}
