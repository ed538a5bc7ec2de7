// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// property describes one configuration property accepted by BuildConfig.
type property struct {
	name     string
	aliases  []string
	scope    Scope
	validate func(string) error
}

// Property names. Aliases are listed in the table below.
const (
	propBootstrapServers    = "bootstrap.servers"
	propClientID            = "client.id"
	propMessageMaxBytes     = "message.max.bytes"
	propQueueMaxMessages    = "queue.buffering.max.messages"
	propQueueMaxKBytes      = "queue.buffering.max.kbytes"
	propQueueMaxMs          = "queue.buffering.max.ms"
	propRetries             = "message.send.max.retries"
	propRetryBackoffMs      = "retry.backoff.ms"
	propSocketTimeoutMs     = "socket.timeout.ms"
	propConnectTimeoutMs    = "socket.connection.setup.timeout.ms"
	propMetadataRefreshMs   = "topic.metadata.refresh.interval.ms"
	propEnableIdempotence   = "enable.idempotence"
	propAllowAutoCreate     = "allow.auto.create.topics"
	propSecurityProtocol    = "security.protocol"
	propSASLMechanisms      = "sasl.mechanisms"
	propSASLUsername        = "sasl.username"
	propSASLPassword        = "sasl.password"
	propSSLCALocation       = "ssl.ca.location"
	propRequestRequiredAcks = "request.required.acks"
	propCompressionCodec    = "compression.codec"
	propMessageTimeoutMs    = "message.timeout.ms"
	propPartitioner         = "partitioner"
)

var properties = []property{
	{name: propBootstrapServers, aliases: []string{"metadata.broker.list"}, scope: ScopeProducer, validate: validBrokerList},
	{name: propClientID, scope: ScopeProducer, validate: nonEmpty},
	{name: propMessageMaxBytes, scope: ScopeProducer, validate: intRange(1000, 100000000)},
	{name: propQueueMaxMessages, scope: ScopeProducer, validate: intRange(1, 10000000)},
	{name: propQueueMaxKBytes, scope: ScopeProducer, validate: intRange(1, 2147483647)},
	{name: propQueueMaxMs, aliases: []string{"linger.ms"}, scope: ScopeProducer, validate: intRange(0, 60000)},
	{name: propRetries, aliases: []string{"retries"}, scope: ScopeProducer, validate: intRange(0, 2147483647)},
	{name: propRetryBackoffMs, scope: ScopeProducer, validate: intRange(1, 300000)},
	{name: propSocketTimeoutMs, scope: ScopeProducer, validate: intRange(1000, 300000)},
	{name: propConnectTimeoutMs, scope: ScopeProducer, validate: intRange(1000, 2147483647)},
	{name: propMetadataRefreshMs, aliases: []string{"metadata.max.age.ms"}, scope: ScopeProducer, validate: intRange(1000, 3600000)},
	{name: propEnableIdempotence, scope: ScopeProducer, validate: boolean},
	{name: propAllowAutoCreate, scope: ScopeProducer, validate: boolean},
	{name: propSecurityProtocol, scope: ScopeProducer, validate: oneOf("plaintext", "ssl", "sasl_plaintext", "sasl_ssl")},
	{name: propSASLMechanisms, aliases: []string{"sasl.mechanism"}, scope: ScopeProducer, validate: oneOf("PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512")},
	{name: propSASLUsername, scope: ScopeProducer, validate: anyString},
	{name: propSASLPassword, scope: ScopeProducer, validate: anyString},
	{name: propSSLCALocation, scope: ScopeProducer, validate: nonEmpty},

	{name: propRequestRequiredAcks, aliases: []string{"acks"}, scope: ScopeTopic, validate: validAcks},
	{name: propCompressionCodec, aliases: []string{"compression.type"}, scope: ScopeTopic, validate: validCompression},
	{name: propMessageTimeoutMs, aliases: []string{"delivery.timeout.ms"}, scope: ScopeTopic, validate: zeroOr(intRange(1000, 2147483647))},
	{name: propPartitioner, scope: ScopeTopic, validate: validPartitioner},
}

var propertyIndex map[string]*property

func init() {
	propertyIndex = make(map[string]*property, len(properties)*2)
	for i := range properties {
		p := &properties[i]
		propertyIndex[p.name] = p
		for _, alias := range p.aliases {
			propertyIndex[alias] = p
		}
	}
}

// lookupProperty finds a property by name or alias.
func lookupProperty(key string) (*property, bool) {
	p, ok := propertyIndex[key]
	return p, ok
}

func anyString(string) error {
	return nil
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value must not be empty")
	}
	return nil
}

func boolean(s string) error {
	if _, err := strconv.ParseBool(s); err != nil {
		return fmt.Errorf("expected bool value, got %q", s)
	}
	return nil
}

func intRange(lo, hi int64) func(string) error {
	return func(s string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("expected integer value, got %q", s)
		}
		if n < lo || n > hi {
			return fmt.Errorf("value %d out of range %d..%d", n, lo, hi)
		}
		return nil
	}
}

// zeroOr accepts 0 ("disabled") in addition to whatever check allows.
func zeroOr(check func(string) error) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "0" {
			return nil
		}
		if err := check(s); err != nil {
			return fmt.Errorf("%w, or 0", err)
		}
		return nil
	}
}

func oneOf(values ...string) func(string) error {
	return func(s string) error {
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(s), v) {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(values, ", "))
	}
}

func validAcks(s string) error {
	_, err := parseAcks(s)
	return err
}

func validCompression(s string) error {
	_, err := parseCompression(s)
	return err
}

func validPartitioner(s string) error {
	_, err := parsePartitionStrategy(s)
	return err
}

func validBrokerList(s string) error {
	_, _, err := parseBrokers(s)
	return err
}

// The accessors below read values that have already been validated, so
// parse errors cannot occur and are treated as "unset".

func (c *Config) stringValue(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.values[name]
	return strings.TrimSpace(v), ok
}

func (c *Config) intValue(name string) (int64, bool) {
	v, ok := c.stringValue(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Config) boolValue(name string) (bool, bool) {
	v, ok := c.stringValue(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func (c *Config) msValue(name string) (time.Duration, bool) {
	n, ok := c.intValue(name)
	if !ok {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}
