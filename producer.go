// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/eventor"
)

// Producer publishes byte payloads to Kafka and reports delivery results in
// batches through Poll. T is the type of the correlation token attached to
// every Send and handed back to Checkpoint.
//
// Thread Safety: a Producer and the topics derived from it are meant to be
// driven by one goroutine (the host loop). Delivery reports arrive from
// franz-go's goroutines and are queued internally until Poll drains them.
type Producer[T any] struct {
	// --- STATIC CONFIGURATION (set before Start, immutable after) ---

	// Brokers is the comma separated list of broker addresses ("host[:port]").
	// Required. Entries that cannot be parsed are skipped; at least one must
	// be usable.
	Brokers string

	// Config holds producer properties (librdkafka names, e.g.
	// "queue.buffering.max.messages"). Topic properties set here become the
	// defaults for every topic.
	// Optional.
	Config Entries

	// Checkpoint is called by Poll, at most once per call, with the token of
	// the last delivery report drained and the number of failures among the
	// drained reports. It is not called when no report was drained. An error
	// returned here is returned by Poll wrapped in *CallbackError.
	// Optional. When nil and no InitialDeliveryListeners are set, delivery
	// reports are not tracked at all.
	Checkpoint func(token T, failures int) error

	// Logger is the logger instance (same interface as franz-go).
	// Optional. If nil, a no-op logger is used for both this package and
	// franz-go.
	Logger kgo.Logger

	// Hooks are franz-go hooks (for example kprom metrics) installed on every
	// client the producer creates. A topic whose acks, compression or message
	// timeout differ from the producer's gets a client of its own, so a hook
	// may see more than one client.
	// Optional.
	Hooks []kgo.Hook

	// InitialDeliveryListeners are registered when Start() is called and
	// receive a DeliveryEvent for every drained report and every refused send.
	// Optional.
	InitialDeliveryListeners []func(*DeliveryEvent)

	// DestroyTimeout bounds how long Close waits for the clients to shut
	// down. Default: 2s.
	DestroyTimeout time.Duration

	// --- INTERNAL FIELDS (not for user configuration) ---

	// logger is the actively used logger instance (never nil after Start).
	logger kgo.Logger

	// clientFactory creates Kafka clients, can be overridden for mocking in tests.
	clientFactory clientFactory

	// mu protects the lifecycle flags, clients and topic set.
	mu     sync.Mutex
	closed bool

	// conf and settings are built by Start and never modified afterwards.
	conf     *Config
	settings *producerSettings
	tls      *tls.Config

	// client serves every topic whose settings match the producer's;
	// variants serve the rest, keyed by their settings.
	client   kafkaClient
	variants map[topicSettings]kafkaClient

	// topics holds the topics that have not been closed yet.
	topics map[*Topic[T]]struct{}

	partitioner *partitioner

	// bridged is true when delivery reports are queued for Poll.
	bridged    bool
	deliveries deliveryQueue[T]

	// queuedRecords and queuedBytes count records from Send until their
	// report is drained (or, without a bridge, until franz-go is done).
	queuedRecords atomic.Int64
	queuedBytes   atomic.Int64

	deliveryListeners            eventor.Eventor[func(*DeliveryEvent)]
	registerInitialListenersOnce sync.Once
}

// AddDeliveryListener adds a listener for delivery events. Listeners are
// called from Poll and Send on the caller's goroutine. Drained reports only
// exist when the producer was started with Checkpoint or
// InitialDeliveryListeners set.
//
// The returned function removes the listener.
func (p *Producer[T]) AddDeliveryListener(fn func(*DeliveryEvent)) func() {
	return p.deliveryListeners.Add(fn)
}

// Start validates the configuration and creates the Kafka client.
// Must be called before NewTopic().
//
// Returns an error if:
//   - A configuration entry is invalid (*InvalidValueTypeError, *RejectedConfigError)
//   - Brokers holds no usable address (ErrNoValidBrokers)
//   - The client cannot be created (*ConnectionError)
//   - Already started (ErrAlreadyStarted) or closed (ErrClosed)
func (p *Producer[T]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.client != nil {
		return ErrAlreadyStarted
	}

	if p.clientFactory == nil {
		p.clientFactory = defaultClientFactory
	}

	logger := p.Logger
	if logger == nil {
		logger = &nopLogger{}
	}
	p.logger = logger

	p.registerInitialListenersOnce.Do(func() {
		for _, listener := range p.InitialDeliveryListeners {
			p.deliveryListeners.Add(listener)
		}
	})

	conf, err := BuildConfig(ScopeProducer, p.Config)
	if err != nil {
		return err
	}

	seeds, skipped, err := parseBrokers(p.Brokers)
	for _, s := range skipped {
		logAt(p.logger, kgo.LogLevelWarn, "skipping invalid broker address", "broker", s)
	}
	if err != nil {
		return err
	}

	settings, err := resolveProducerSettings(conf, seeds)
	if err != nil {
		return err
	}

	tlsCfg, err := settings.tlsConfig()
	if err != nil {
		return &ConnectionError{Err: err}
	}

	p.conf = conf
	p.settings = settings
	p.tls = tlsCfg
	p.partitioner = newPartitioner(settings.partitioner)
	p.bridged = p.Checkpoint != nil || len(p.InitialDeliveryListeners) > 0

	client, err := p.newClient(settings.topic)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	p.client = client
	p.variants = make(map[topicSettings]kafkaClient)
	p.topics = make(map[*Topic[T]]struct{})

	logAt(p.logger, kgo.LogLevelInfo, "producer started",
		"brokers", strings.Join(settings.seeds, ","),
		"delivery_reports", p.bridged,
	)

	return nil
}

// newClient creates a franz-go client for one set of topic settings.
func (p *Producer[T]) newClient(ts topicSettings) (kafkaClient, error) {
	opts := p.settings.toKgoOpts(ts, p.tls)
	opts = append(opts,
		kgo.WithLogger(p.logger),
		kgo.RecordPartitioner(p.partitioner),
	)
	if len(p.Hooks) > 0 {
		opts = append(opts, kgo.WithHooks(p.Hooks...))
	}
	return p.clientFactory(opts...)
}

// clientForLocked returns the client serving ts, deriving it on first use.
// p.mu must be held.
func (p *Producer[T]) clientForLocked(ts topicSettings) (kafkaClient, error) {
	if ts == p.settings.topic {
		return p.client, nil
	}
	if c, ok := p.variants[ts]; ok {
		return c, nil
	}

	if err := p.settings.checkIdempotence(ts); err != nil {
		return nil, err
	}

	c, err := p.newClient(ts)
	if err != nil {
		return nil, err
	}
	p.variants[ts] = c

	logAt(p.logger, kgo.LogLevelDebug, "derived client for topic settings",
		"acks", string(ts.acks),
		"compression", string(ts.compression),
		"message_timeout", ts.timeout.String(),
	)
	return c, nil
}

// NewTopic derives a topic handle from the producer. The topic must be closed
// before the producer; Close on the producer abandons topics still open.
//
// Returns an error if:
//   - The producer is not running (ErrNotStarted, ErrClosed)
//   - A configuration entry is invalid (*InvalidValueTypeError, *RejectedConfigError)
//   - The topic name is invalid or its client cannot be derived (*TopicCreationError)
func (p *Producer[T]) NewTopic(name string, config Entries) (*Topic[T], error) {
	conf, err := BuildConfig(ScopeTopic, config)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.runningLocked(); err != nil {
		return nil, err
	}

	if err := validateTopicName(name); err != nil {
		return nil, &TopicCreationError{Topic: name, Err: err}
	}

	ts := p.settings.topic.override(conf)
	client, err := p.clientForLocked(ts)
	if err != nil {
		return nil, &TopicCreationError{Topic: name, Err: err}
	}

	want := partitionStrategy(conf, p.settings.partitioner)
	got := p.partitioner.register(name, want)
	if got != want {
		logAt(p.logger, kgo.LogLevelWarn, "topic partitioner already set",
			"topic", name, "partitioner", string(got), "ignored", string(want))
	}

	t := &Topic[T]{
		name:     name,
		conf:     conf,
		producer: p,
		client:   client,
		strategy: got,
	}
	p.topics[t] = struct{}{}

	logAt(p.logger, kgo.LogLevelDebug, "topic created", "topic", name)
	return t, nil
}

// Poll drains the delivery reports queued so far without waiting for more,
// then calls Checkpoint once if at least one report was drained. Each call
// starts a fresh tally: the result covers only the reports drained by this
// call.
//
// Poll never blocks on network I/O. Hosts must call it regularly; while the
// bridge is active a record keeps its queue slot until its report has been
// drained, so a host that stops polling eventually sees ErrQueueFull.
func (p *Producer[T]) Poll() (PollResult[T], error) {
	var result PollResult[T]

	p.mu.Lock()
	err := p.runningLocked()
	p.mu.Unlock()
	if err != nil {
		return result, err
	}

	reports := p.deliveries.drain()
	for i := range reports {
		r := &reports[i]
		result.Deliveries++
		if r.err != nil {
			result.Failures++
		}
		result.Token = r.token

		p.release(r.bytes)
		p.dispatchEvent(r.event())
	}

	if result.Deliveries == 0 || p.Checkpoint == nil {
		return result, nil
	}

	if err := p.Checkpoint(result.Token, result.Failures); err != nil {
		return result, &CallbackError{Err: err}
	}

	return result, nil
}

// Flush waits until every buffered record has been sent or ctx is done. It
// does not drain delivery reports; call Poll afterwards.
func (p *Producer[T]) Flush(ctx context.Context) error {
	p.mu.Lock()
	if err := p.runningLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	clients := p.clientsLocked()
	p.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close abandons any topics still open, closes the Kafka clients without
// waiting for buffered records, and waits up to DestroyTimeout for the
// clients to shut down. Records still buffered fail with
// kgo.ErrClientClosed. A timeout is logged and otherwise ignored.
//
// Close returns ErrClosed when called more than once.
func (p *Producer[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true

	for t := range p.topics {
		t.state.Store(topicAbandoned)
		logAt(p.logger, kgo.LogLevelWarn, "topic still open at producer close", "topic", t.name)
	}
	p.topics = nil

	clients := p.clientsLocked()
	p.client = nil
	p.variants = nil
	p.mu.Unlock()

	if len(clients) == 0 {
		return nil
	}

	timeout := p.DestroyTimeout
	if timeout <= 0 {
		timeout = defaultDestroyTimeout
	}

	var bufferedRecords, bufferedBytes int64
	for _, c := range clients {
		bufferedRecords += c.BufferedProduceRecords()
		bufferedBytes += c.BufferedProduceBytes()
	}
	logAt(p.logger, kgo.LogLevelInfo, "closing producer",
		"buffered_records", bufferedRecords,
		"buffered_bytes", bufferedBytes,
		"pending_reports", p.deliveries.len(),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, c := range clients {
			c.Close()
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		logAt(p.logger, kgo.LogLevelInfo, "producer closed")
	case <-timer.C:
		logAt(p.logger, kgo.LogLevelWarn, "timed out waiting for producer to close",
			"timeout", timeout.String())
	}

	return nil
}

// BufferedRecords returns the number of records and bytes holding a queue
// slot together with the configured limits
// (queue.buffering.max.messages, queue.buffering.max.kbytes).
// Returns zeros if the producer is not running.
func (p *Producer[T]) BufferedRecords() (currentRecords, maxRecords int, currentBytes, maxBytes int64) {
	p.mu.Lock()
	err := p.runningLocked()
	p.mu.Unlock()
	if err != nil {
		return 0, 0, 0, 0
	}

	return int(p.queuedRecords.Load()), int(p.settings.maxMessages),
		p.queuedBytes.Load(), p.settings.maxBytes
}

// runningLocked reports whether the producer can be used. p.mu must be held.
func (p *Producer[T]) runningLocked() error {
	if p.closed {
		return ErrClosed
	}
	if p.client == nil {
		return ErrNotStarted
	}
	return nil
}

// clientsLocked returns every client owned by the producer. p.mu must be held.
func (p *Producer[T]) clientsLocked() []kafkaClient {
	if p.client == nil {
		return nil
	}
	clients := make([]kafkaClient, 0, 1+len(p.variants))
	clients = append(clients, p.client)
	for _, c := range p.variants {
		clients = append(clients, c)
	}
	return clients
}

// reserve takes a queue slot for a record of size bytes.
func (p *Producer[T]) reserve(size int) bool {
	if p.queuedRecords.Add(1) > p.settings.maxMessages {
		p.queuedRecords.Add(-1)
		return false
	}
	if p.queuedBytes.Add(int64(size)) > p.settings.maxBytes {
		p.queuedRecords.Add(-1)
		p.queuedBytes.Add(-int64(size))
		return false
	}
	return true
}

// release returns a queue slot taken by reserve.
func (p *Producer[T]) release(size int) {
	p.queuedRecords.Add(-1)
	p.queuedBytes.Add(-int64(size))
}

// promise builds the franz-go promise for one record.
func (p *Producer[T]) promise(token T, size int) func(*kgo.Record, error) {
	if !p.bridged {
		return func(*kgo.Record, error) {
			p.release(size)
		}
	}

	start := time.Now()
	return func(r *kgo.Record, err error) {
		p.deliveries.push(deliveryReport[T]{
			token:   token,
			record:  r,
			err:     err,
			bytes:   size,
			latency: time.Since(start),
		})
	}
}

// dispatchEvent dispatches a DeliveryEvent to all registered listeners.
func (p *Producer[T]) dispatchEvent(event *DeliveryEvent) {
	p.deliveryListeners.Visit(func(listener func(*DeliveryEvent)) {
		listener(event)
	})
}
