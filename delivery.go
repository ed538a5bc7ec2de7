// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// PollResult summarizes the delivery reports drained by one Poll call.
type PollResult[T any] struct {
	// Token is the correlation token of the last delivery report drained.
	// Reports are drained in the order franz-go completed them, which need
	// not match send order. Earlier tokens from the same cycle are not
	// reported. Token is the zero value when Deliveries is 0.
	Token T

	// Failures is the number of drained reports that carried an error.
	Failures int

	// Deliveries is the number of reports drained, successful or not.
	Deliveries int
}

// DeliveryEvent describes the fate of a single record. Listeners receive one
// event per delivery report drained by Poll, and one per record refused by
// Send.
type DeliveryEvent struct {
	// Topic is the topic the record was sent to.
	Topic string

	// Partition is the partition the record landed on, or the partition
	// requested when the record never left the producer.
	Partition int32

	// Offset is the record's offset when Outcome is Delivered, otherwise -1.
	Offset int64

	// Bytes is the payload size.
	Bytes int

	// Outcome classifies what happened.
	Outcome Outcome

	// Error is nil for delivered records.
	Error error

	// ErrorType is the error classification (empty for delivered records).
	// Values: "queue_full", "msg_size_too_large", "broker_error", "timeout", etc.
	ErrorType string

	// Latency is the time from Send to the delivery report.
	Latency time.Duration
}

// deliveryReport is what the franz-go promise leaves for Poll.
type deliveryReport[T any] struct {
	token   T
	record  *kgo.Record
	err     error
	bytes   int
	latency time.Duration
}

func (r *deliveryReport[T]) event() *DeliveryEvent {
	event := DeliveryEvent{
		Topic:     r.record.Topic,
		Partition: r.record.Partition,
		Offset:    r.record.Offset,
		Bytes:     r.bytes,
		Outcome:   Delivered,
		Latency:   r.latency,
	}
	if r.err != nil {
		event.Outcome = Failed
		event.Offset = -1
		event.Error = r.err
		event.ErrorType = errorType(r.err)
	}
	return &event
}

// deliveryQueue collects reports from franz-go's goroutines until the owner
// drains them.
type deliveryQueue[T any] struct {
	mu      sync.Mutex
	reports []deliveryReport[T]
}

func (q *deliveryQueue[T]) push(r deliveryReport[T]) {
	q.mu.Lock()
	q.reports = append(q.reports, r)
	q.mu.Unlock()
}

// drain takes every report queued so far. It never waits for more.
func (q *deliveryQueue[T]) drain() []deliveryReport[T] {
	q.mu.Lock()
	reports := q.reports
	q.reports = nil
	q.mu.Unlock()
	return reports
}

func (q *deliveryQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reports)
}
