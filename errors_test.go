// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("sentinel errors", func(t *testing.T) {
		t.Parallel()
		sentinels := []error{
			ErrConfig,
			ErrConnection,
			ErrNoValidBrokers,
			ErrTopicCreation,
			ErrQueueFull,
			ErrMsgSizeTooLarge,
			ErrUnknownPartition,
			ErrCallback,
			ErrBroker,
			ErrTimeout,
			ErrNotStarted,
			ErrAlreadyStarted,
			ErrClosed,
			ErrProducerClosed,
		}

		for _, sentinel := range sentinels {
			me, ok := sentinel.(*metricError) // nolint:errorlint
			assert.True(t, ok, "sentinel should be *metricError")
			assert.NotEmpty(t, me.message)
			assert.NotEmpty(t, me.metric)
			assert.Equal(t, me.message, me.Error())
			assert.Equal(t, me.metric, me.Metric())
		}
	})

	t.Run("Is() method semantics", func(t *testing.T) {
		t.Parallel()

		assert.True(t, errors.Is(ErrQueueFull, ErrQueueFull))
		assert.False(t, errors.Is(ErrQueueFull, ErrBroker))

		newErr := &metricError{metric: "queue_full", message: "test"}
		assert.False(t, errors.Is(newErr, ErrQueueFull))

		assert.False(t, errors.Is(nil, ErrQueueFull))
		assert.False(t, errors.Is(ErrQueueFull, nil))
	})

	t.Run("typed errors unwrap to sentinels", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("boom")

		tests := []struct {
			name     string
			err      error
			sentinel error
		}{
			{"invalid value type", &InvalidValueTypeError{Key: "k", Type: "[]string"}, ErrConfig},
			{"rejected config", &RejectedConfigError{Key: "k", Value: "v", Reason: "r"}, ErrConfig},
			{"connection", &ConnectionError{Err: cause}, ErrConnection},
			{"topic creation", &TopicCreationError{Topic: "t", Err: cause}, ErrTopicCreation},
			{"callback", &CallbackError{Err: cause}, ErrCallback},
			{"enqueue", &EnqueueError{Topic: "t", Code: syscall.ENOBUFS, Err: ErrQueueFull}, ErrQueueFull},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				assert.ErrorIs(t, tt.err, tt.sentinel)
				assert.ErrorIs(t, fmt.Errorf("outer: %w", tt.err), tt.sentinel)
			})
		}

		assert.ErrorIs(t, &ConnectionError{Err: cause}, cause)
		assert.ErrorIs(t, &CallbackError{Err: cause}, cause)
		assert.ErrorIs(t, &EnqueueError{Code: syscall.EMSGSIZE, Err: ErrMsgSizeTooLarge}, syscall.EMSGSIZE)
	})

	t.Run("rejected config message", func(t *testing.T) {
		t.Parallel()
		err := &RejectedConfigError{Key: "linger.ms", Value: "soon", Reason: "not a number"}
		assert.Equal(t, "failed to set linger.ms = soon : not a number", err.Error())
	})

	t.Run("error types for metrics", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			err      error
			expected string
		}{
			{"nil error", nil, ""},
			{"unknown error", fmt.Errorf("random"), "unknown"},
			{"queue full", ErrQueueFull, "queue_full"},
			{"wrapped queue full", errors.Join(ErrQueueFull, fmt.Errorf("test")), "queue_full"},
			{"enqueue error", &EnqueueError{Code: syscall.EMSGSIZE, Err: ErrMsgSizeTooLarge}, "msg_size_too_large"},
			{"config", &RejectedConfigError{}, "config_error"},
			{"record timeout", kgo.ErrRecordTimeout, "timeout"},
			{"deadline", context.DeadlineExceeded, "timeout"},
			{"franz-go buffer", kgo.ErrMaxBuffered, "queue_full"},
			{"client closed", kgo.ErrClientClosed, "closed"},
			{"broker too large", kerr.MessageTooLarge, "msg_size_too_large"},
			{"broker unknown partition", kerr.UnknownTopicOrPartition, "unknown_partition"},
			{"broker other", kerr.NotEnoughReplicas, "broker_error"},
			{"partition out of range", fmt.Errorf("invalid record partitioning choice of 7 from 3 available"), "unknown_partition"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				assert.Equal(t, tt.expected, errorType(tt.err))
			})
		}
	})
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, 0},
		{"queue full", &EnqueueError{Code: syscall.ENOBUFS, Err: ErrQueueFull}, int(syscall.ENOBUFS)},
		{"too large", &EnqueueError{Code: syscall.EMSGSIZE, Err: ErrMsgSizeTooLarge}, int(syscall.EMSGSIZE)},
		{"wrapped", fmt.Errorf("send: %w", &EnqueueError{Code: syscall.EBADF, Err: ErrClosed}), int(syscall.EBADF)},
		{"other", errors.New("something"), int(syscall.EIO)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ErrorCode(tt.err))
		})
	}
}
