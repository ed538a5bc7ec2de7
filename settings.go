// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

// Defaults applied when a property is not set.
const (
	defaultMessageMaxBytes  = 1000000
	defaultQueueMaxMessages = 100000
	defaultQueueMaxKBytes   = 1048576
	defaultMessageTimeout   = 300 * time.Second
	defaultDestroyTimeout   = 2 * time.Second

	// batchOverhead is added to message.max.bytes when sizing produce
	// batches so a payload at the limit still fits its record framing.
	batchOverhead = 512

	// kgoMetadataMinAge is franz-go's default MetadataMinAge.
	kgoMetadataMinAge = 5 * time.Second
)

// topicSettings are the topic properties that franz-go applies per client.
// Topics whose settings differ from the producer's share a derived client.
type topicSettings struct {
	acks        Acks
	compression Compression
	timeout     time.Duration
}

// override returns ts with any topic properties set in c applied.
func (ts topicSettings) override(c *Config) topicSettings {
	if v, ok := c.stringValue(propRequestRequiredAcks); ok {
		if a, err := parseAcks(v); err == nil {
			ts.acks = a
		}
	}
	if v, ok := c.stringValue(propCompressionCodec); ok {
		if codec, err := parseCompression(v); err == nil {
			ts.compression = codec
		}
	}
	if d, ok := c.msValue(propMessageTimeoutMs); ok {
		ts.timeout = d
	}
	return ts
}

// partitionStrategy returns the partitioner set in c, or fallback.
func partitionStrategy(c *Config, fallback PartitionStrategy) PartitionStrategy {
	if v, ok := c.stringValue(propPartitioner); ok {
		if s, err := parsePartitionStrategy(v); err == nil {
			return s
		}
	}
	return fallback
}

// producerSettings is the resolved form of a producer Config.
type producerSettings struct {
	seeds           []string
	clientID        string
	maxMessageBytes int
	maxMessages     int64
	maxBytes        int64
	linger          time.Duration
	retries         int64
	retryBackoff    time.Duration
	requestTimeout  time.Duration
	dialTimeout     time.Duration
	metadataMaxAge  time.Duration
	idempotence     *bool
	autoCreate      bool
	protocol        string
	mechanism       string
	username        string
	password        string
	caLocation      string

	topic       topicSettings
	partitioner PartitionStrategy
}

// resolveProducerSettings applies defaults and checks the properties that
// depend on each other. Cross-property failures are *RejectedConfigError.
func resolveProducerSettings(c *Config, seeds []string) (*producerSettings, error) {
	s := &producerSettings{
		seeds:           seeds,
		maxMessageBytes: defaultMessageMaxBytes,
		maxMessages:     defaultQueueMaxMessages,
		maxBytes:        defaultQueueMaxKBytes * 1024,
		protocol:        "plaintext",
		mechanism:       "PLAIN",
		topic: topicSettings{
			acks:        AcksAll,
			compression: CompressionNone,
			timeout:     defaultMessageTimeout,
		},
		partitioner: PartitionConsistentRandom,
	}

	if v, ok := c.stringValue(propBootstrapServers); ok {
		// Already validated, so at least one address parses.
		extra, _, _ := parseBrokers(v)
		for _, addr := range extra {
			if !slices.Contains(s.seeds, addr) {
				s.seeds = append(s.seeds, addr)
			}
		}
	}

	s.clientID, _ = c.stringValue(propClientID)
	if n, ok := c.intValue(propMessageMaxBytes); ok {
		s.maxMessageBytes = int(n)
	}
	if n, ok := c.intValue(propQueueMaxMessages); ok {
		s.maxMessages = n
	}
	if n, ok := c.intValue(propQueueMaxKBytes); ok {
		s.maxBytes = n * 1024
	}
	s.linger, _ = c.msValue(propQueueMaxMs)
	if n, ok := c.intValue(propRetries); ok {
		s.retries = n
	} else {
		s.retries = -1
	}
	s.retryBackoff, _ = c.msValue(propRetryBackoffMs)
	s.requestTimeout, _ = c.msValue(propSocketTimeoutMs)
	s.dialTimeout, _ = c.msValue(propConnectTimeoutMs)
	s.metadataMaxAge, _ = c.msValue(propMetadataRefreshMs)
	if b, ok := c.boolValue(propEnableIdempotence); ok {
		s.idempotence = &b
	}
	s.autoCreate, _ = c.boolValue(propAllowAutoCreate)
	if v, ok := c.stringValue(propSecurityProtocol); ok {
		s.protocol = strings.ToLower(v)
	}
	if v, ok := c.stringValue(propSASLMechanisms); ok {
		s.mechanism = strings.ToUpper(v)
	}
	s.username, _ = c.stringValue(propSASLUsername)
	s.password, _ = c.stringValue(propSASLPassword)
	s.caLocation, _ = c.stringValue(propSSLCALocation)

	s.topic = s.topic.override(c)
	s.partitioner = partitionStrategy(c, s.partitioner)

	if err := s.checkIdempotence(s.topic); err != nil {
		return nil, err
	}

	if s.usesSASL() {
		if s.username == "" {
			return nil, &RejectedConfigError{
				Key:    propSASLUsername,
				Value:  "",
				Reason: fmt.Sprintf("required when %s is %s", propSecurityProtocol, s.protocol),
			}
		}
		if s.password == "" {
			return nil, &RejectedConfigError{
				Key:    propSASLPassword,
				Value:  "",
				Reason: fmt.Sprintf("required when %s is %s", propSecurityProtocol, s.protocol),
			}
		}
	}

	return s, nil
}

// checkIdempotence rejects an explicit enable.idempotence=true combined with
// acks other than all.
func (s *producerSettings) checkIdempotence(ts topicSettings) error {
	if s.idempotence != nil && *s.idempotence && ts.acks != AcksAll {
		return &RejectedConfigError{
			Key:    propEnableIdempotence,
			Value:  "true",
			Reason: fmt.Sprintf("requires %s=all, got %s", propRequestRequiredAcks, ts.acks),
		}
	}
	return nil
}

func (s *producerSettings) usesSASL() bool {
	return strings.HasPrefix(s.protocol, "sasl_")
}

func (s *producerSettings) usesTLS() bool {
	return s.protocol == "ssl" || s.protocol == "sasl_ssl"
}

// tlsConfig builds the TLS configuration, loading ssl.ca.location if set.
func (s *producerSettings) tlsConfig() (*tls.Config, error) {
	if !s.usesTLS() {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.caLocation == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(s.caLocation)
	if err != nil {
		return nil, fmt.Errorf("ssl.ca.location: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ssl.ca.location: no certificates found in %s", s.caLocation)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// saslMechanism returns the configured SASL mechanism, or nil.
func (s *producerSettings) saslMechanism() sasl.Mechanism {
	if !s.usesSASL() {
		return nil
	}

	switch s.mechanism {
	case "SCRAM-SHA-256":
		return scram.Auth{User: s.username, Pass: s.password}.AsSha256Mechanism()
	case "SCRAM-SHA-512":
		return scram.Auth{User: s.username, Pass: s.password}.AsSha512Mechanism()
	default:
		return plain.Auth{User: s.username, Pass: s.password}.AsMechanism()
	}
}

// toKgoOpts converts the settings to franz-go client options for one
// combination of client-scoped topic settings.
func (s *producerSettings) toKgoOpts(ts topicSettings, tlsCfg *tls.Config) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(s.seeds...),
		//nolint:gosec // G115: message.max.bytes is capped well below MaxInt32
		kgo.ProducerBatchMaxBytes(int32(s.maxMessageBytes + batchOverhead)),
		kgo.MaxBufferedRecords(int(s.maxMessages)),
		kgo.MaxBufferedBytes(int(s.maxBytes)),
		kgo.RequiredAcks(ts.acks.kgo()),
		kgo.ProducerBatchCompression(ts.compression.kgo()),
	}

	if s.clientID != "" {
		opts = append(opts, kgo.ClientID(s.clientID))
	}

	if s.linger > 0 {
		opts = append(opts, kgo.ProducerLinger(s.linger))
	}

	// <0 = franz-go default, N = retry N times
	if s.retries >= 0 {
		opts = append(opts, kgo.RecordRetries(int(s.retries)))
	}

	if s.retryBackoff > 0 {
		backoff := s.retryBackoff
		opts = append(opts, kgo.RetryBackoffFn(func(int) time.Duration { return backoff }))
	}

	if s.requestTimeout > 0 {
		opts = append(opts, kgo.RequestTimeoutOverhead(s.requestTimeout))
	}

	if s.dialTimeout > 0 {
		opts = append(opts, kgo.DialTimeout(s.dialTimeout))
	}

	if s.metadataMaxAge > 0 {
		opts = append(opts, kgo.MetadataMaxAge(s.metadataMaxAge))
		// franz-go rejects a max age below its min age.
		if s.metadataMaxAge < kgoMetadataMinAge {
			opts = append(opts, kgo.MetadataMinAge(s.metadataMaxAge))
		}
	}

	if ts.acks != AcksAll || (s.idempotence != nil && !*s.idempotence) {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}

	// 0 = no delivery timeout
	if ts.timeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(ts.timeout))
	}

	if s.autoCreate {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}

	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}

	if m := s.saslMechanism(); m != nil {
		opts = append(opts, kgo.SASL(m))
	}

	return opts
}
