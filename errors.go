// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	// ErrConfig indicates a configuration entry was rejected.
	ErrConfig = &metricError{
		metric:  "config_error",
		message: "configuration error",
	}

	// ErrConnection indicates the native client could not be constructed.
	ErrConnection = &metricError{
		metric:  "connection_error",
		message: "failed to create kafka producer",
	}

	// ErrNoValidBrokers indicates the broker list held no usable address.
	ErrNoValidBrokers = &metricError{
		metric:  "no_valid_brokers",
		message: "no valid brokers specified",
	}

	// ErrTopicCreation indicates a topic handle could not be derived.
	ErrTopicCreation = &metricError{
		metric:  "topic_creation_error",
		message: "failed to create kafka topic",
	}

	// ErrQueueFull indicates the producer's enqueue capacity is exhausted.
	ErrQueueFull = &metricError{
		metric:  "queue_full",
		message: "queue full",
	}

	// ErrMsgSizeTooLarge indicates the payload exceeds message.max.bytes.
	ErrMsgSizeTooLarge = &metricError{
		metric:  "msg_size_too_large",
		message: "message size too large",
	}

	// ErrUnknownPartition indicates an invalid partition was requested.
	ErrUnknownPartition = &metricError{
		metric:  "unknown_partition",
		message: "unknown partition",
	}

	// ErrCallback indicates the checkpoint callback returned an error.
	ErrCallback = &metricError{
		metric:  "callback_error",
		message: "checkpoint callback failed",
	}

	// ErrBroker indicates the broker rejected a record.
	ErrBroker = &metricError{
		metric:  "broker_error",
		message: "broker error",
	}

	// ErrTimeout indicates a record was not delivered within message.timeout.ms.
	ErrTimeout = &metricError{
		metric:  "timeout",
		message: "timeout",
	}

	// ErrNotStarted indicates the producer has not been started.
	ErrNotStarted = &metricError{
		metric:  "not_started",
		message: "producer not started",
	}

	// ErrAlreadyStarted indicates the producer has already been started.
	ErrAlreadyStarted = &metricError{
		metric:  "already_started",
		message: "producer already started",
	}

	// ErrClosed indicates the handle has already been closed.
	ErrClosed = &metricError{
		metric:  "closed",
		message: "handle closed",
	}

	// ErrProducerClosed indicates a topic was used or closed after the
	// producer it was derived from.
	ErrProducerClosed = &metricError{
		metric:  "producer_closed",
		message: "producer closed before topic",
	}
)

// metricError is an internal error type that wraps errors with a type classification
// for metrics and observability.
type metricError struct {
	metric  string // Type classification for metrics (e.g., "queue_full", "config_error")
	message string // Human-readable message
}

// Error implements the error interface.
func (e *metricError) Error() string {
	return e.message
}

func (e *metricError) Metric() string {
	return e.metric
}

func (e *metricError) Is(target error) bool {
	if t, ok := target.(*metricError); ok {
		return e.message == t.message
	}
	return false
}

// InvalidValueTypeError is returned when a configuration value is not a
// string, number or boolean.
type InvalidValueTypeError struct {
	Key  string
	Type string
}

func (e *InvalidValueTypeError) Error() string {
	return fmt.Sprintf("invalid config value type for %s: %s", e.Key, e.Type)
}

func (e *InvalidValueTypeError) Unwrap() error {
	return ErrConfig
}

// RejectedConfigError is returned when a configuration property is unknown,
// set in the wrong scope, or given a malformed value.
type RejectedConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (e *RejectedConfigError) Error() string {
	return fmt.Sprintf("failed to set %s = %s : %s", e.Key, e.Value, e.Reason)
}

func (e *RejectedConfigError) Unwrap() error {
	return ErrConfig
}

// ConnectionError is returned when the native client cannot be constructed.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to create a kafka producer: %v", e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

// TopicCreationError is returned when a topic handle cannot be derived from
// its producer.
type TopicCreationError struct {
	Topic string
	Err   error
}

func (e *TopicCreationError) Error() string {
	return fmt.Sprintf("failed to create kafka topic %q: %v", e.Topic, e.Err)
}

func (e *TopicCreationError) Unwrap() []error {
	return []error{ErrTopicCreation, e.Err}
}

// EnqueueError is returned by Send when a record could not be queued. No
// delivery report is ever produced for a record that failed to enqueue.
type EnqueueError struct {
	Topic     string
	Partition int32
	Code      syscall.Errno
	Err       error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("enqueue to %s[%d] failed: %v", e.Topic, e.Partition, e.Err)
}

// Unwrap allows errors.Is against both the sentinel and the errno.
func (e *EnqueueError) Unwrap() []error {
	return []error{e.Err, e.Code}
}

// CallbackError wraps an error returned by the checkpoint callback.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("checkpoint callback: %v", e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrCallback, e.Err}
}

// ErrorCode converts the result of Send into the integer form used at the
// host boundary: 0 on success, the errno of an EnqueueError otherwise, and
// EIO for any other error.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *EnqueueError
	if errors.As(err, &ee) {
		return int(ee.Code)
	}

	return int(syscall.EIO)
}

// invalidPartitionMessage prefixes the error franz-go reports for a record
// sent to a partition the topic does not have.
const invalidPartitionMessage = "invalid record partitioning choice"

// errorType extracts the error type string for metrics classification.
// Walks the error chain to find metricError types, then falls back to the
// franz-go error families seen in delivery reports.
func errorType(err error) string {
	if err == nil {
		return ""
	}

	var me *metricError
	if errors.As(err, &me) {
		return me.Metric()
	}

	switch {
	case errors.Is(err, kgo.ErrRecordTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.Metric()
	case errors.Is(err, kgo.ErrMaxBuffered):
		return ErrQueueFull.Metric()
	case errors.Is(err, kgo.ErrClientClosed):
		return ErrClosed.Metric()
	}

	// franz-go fails records whose explicit partition does not exist with an
	// unexported, formatted error.
	if strings.Contains(err.Error(), invalidPartitionMessage) {
		return ErrUnknownPartition.Metric()
	}

	var ke *kerr.Error
	if errors.As(err, &ke) {
		if errors.Is(err, kerr.MessageTooLarge) || errors.Is(err, kerr.RecordListTooLarge) {
			return ErrMsgSizeTooLarge.Metric()
		}
		if errors.Is(err, kerr.UnknownTopicOrPartition) {
			return ErrUnknownPartition.Metric()
		}
		return ErrBroker.Metric()
	}

	return "unknown"
}
