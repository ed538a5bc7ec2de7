// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
)

const maxTopicNameLength = 249

// Topic states.
const (
	topicOpen int32 = iota
	topicClosed
	topicAbandoned
)

// Topic publishes records to one Kafka topic. It is derived from a Producer
// with NewTopic and must be closed before that producer.
type Topic[T any] struct {
	name     string
	conf     *Config
	producer *Producer[T]
	client   kafkaClient
	strategy PartitionStrategy
	state    atomic.Int32
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Config returns the topic configuration the handle was created with.
func (t *Topic[T]) Config() *Config {
	return t.conf
}

// Partitioner returns the strategy used for records sent with
// PartitionUnassigned.
func (t *Topic[T]) Partitioner() PartitionStrategy {
	return t.strategy
}

// Send queues payload for asynchronous delivery and returns immediately. The
// payload is copied, so the caller may reuse it as soon as Send returns.
//
// partition selects the destination partition; PartitionUnassigned lets the
// topic's partitioner choose. token is returned unchanged through Poll once
// the record's delivery completes or fails.
//
// A non-nil error is always an *EnqueueError and means the record was never
// queued: no delivery report will follow for token. Use ErrorCode to obtain
// the errno form.
//
// Only negative partitions other than PartitionUnassigned fail here with
// ESRCH. An explicit partition at or above the topic's partition count is
// queued, and its delivery report fails with an unknown_partition error
// once franz-go has loaded the topic's metadata.
func (t *Topic[T]) Send(partition int32, payload []byte, token T) error {
	p := t.producer

	if t.state.Load() != topicOpen {
		return t.refuse(partition, len(payload), syscall.EBADF, ErrClosed, Rejected)
	}

	if partition < PartitionUnassigned {
		return t.refuse(partition, len(payload), syscall.ESRCH,
			fmt.Errorf("%w: %d", ErrUnknownPartition, partition), Rejected)
	}

	if len(payload) > p.settings.maxMessageBytes {
		return t.refuse(partition, len(payload), syscall.EMSGSIZE,
			fmt.Errorf("%w: %d bytes exceeds %d", ErrMsgSizeTooLarge, len(payload), p.settings.maxMessageBytes),
			Rejected)
	}

	if !p.reserve(len(payload)) {
		return t.refuse(partition, len(payload), syscall.ENOBUFS, ErrQueueFull, Dropped)
	}

	record := &kgo.Record{
		Topic:     t.name,
		Partition: partition,
		Value:     bytes.Clone(payload),
	}

	t.client.TryProduce(context.Background(), record, p.promise(token, len(payload)))

	return nil
}

// refuse builds the EnqueueError for a record Send did not queue and tells
// the delivery listeners about it.
func (t *Topic[T]) refuse(partition int32, size int, code syscall.Errno, err error, outcome Outcome) error {
	ee := &EnqueueError{
		Topic:     t.name,
		Partition: partition,
		Code:      code,
		Err:       err,
	}

	t.producer.dispatchEvent(&DeliveryEvent{
		Topic:     t.name,
		Partition: partition,
		Offset:    -1,
		Bytes:     size,
		Outcome:   outcome,
		Error:     ee,
		ErrorType: errorType(ee),
	})

	return ee
}

// Close detaches the topic from its producer. Records already queued are
// still delivered and reported through Poll.
//
// Close returns ErrClosed when called twice and ErrProducerClosed when the
// producer was closed first.
func (t *Topic[T]) Close() error {
	p := t.producer

	p.mu.Lock()
	defer p.mu.Unlock()

	switch t.state.Load() {
	case topicClosed:
		return ErrClosed
	case topicAbandoned:
		return ErrProducerClosed
	}

	t.state.Store(topicClosed)
	delete(p.topics, t)

	logAt(p.logger, kgo.LogLevelDebug, "topic closed", "topic", t.name)
	return nil
}

// validateTopicName applies Kafka's topic naming rules.
func validateTopicName(name string) error {
	switch {
	case name == "":
		return errors.New("topic name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("topic name %q is not allowed", name)
	case len(name) > maxTopicNameLength:
		return fmt.Errorf("topic name is longer than %d characters", maxTopicNameLength)
	}

	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return fmt.Errorf("topic name %q contains invalid character %q", name, c)
		}
	}
	return nil
}
