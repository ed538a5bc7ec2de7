// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicSend(t *testing.T) {
	t.Parallel()

	t.Run("unassigned partition is accepted", func(t *testing.T) {
		t.Parallel()
		p, ff, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		defer topic.Close()

		require.NoError(t, topic.Send(PartitionUnassigned, []byte("a"), 1))
		assert.Equal(t, 0, ErrorCode(nil))

		records := ff.client(0).records()
		require.Len(t, records, 1)
		assert.Equal(t, "events", records[0].Topic)
		assert.Equal(t, PartitionUnassigned, records[0].Partition)
	})

	t.Run("explicit partition is kept", func(t *testing.T) {
		t.Parallel()
		p, ff, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		defer topic.Close()

		require.NoError(t, topic.Send(11, []byte("a"), 1))
		assert.Equal(t, int32(11), ff.client(0).records()[0].Partition)
	})

	t.Run("payload is copied", func(t *testing.T) {
		t.Parallel()
		p, ff, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		defer topic.Close()

		payload := []byte{0x00, 0x01, 0xff, 'l', 'e', 'n'}
		want := append([]byte(nil), payload...)
		require.NoError(t, topic.Send(PartitionUnassigned, payload, 1))

		for i := range payload {
			payload[i] = 'x'
		}

		assert.Equal(t, want, ff.client(0).records()[0].Value)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		p, ff, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		defer topic.Close()

		require.NoError(t, topic.Send(PartitionUnassigned, nil, 1))
		assert.Empty(t, ff.client(0).records()[0].Value)
	})

	t.Run("refusals", func(t *testing.T) {
		t.Parallel()
		p, ff, calls := newTestProducer(t, Entries{{Key: "message.max.bytes", Value: 1000}})
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)

		tests := []struct {
			name      string
			partition int32
			payload   []byte
			code      syscall.Errno
			sentinel  error
		}{
			{"invalid partition", -2, []byte("a"), syscall.ESRCH, ErrUnknownPartition},
			{"too large", PartitionUnassigned, make([]byte, 1001), syscall.EMSGSIZE, ErrMsgSizeTooLarge},
		}

		for _, tt := range tests {
			err := topic.Send(tt.partition, tt.payload, 1)
			require.Error(t, err, tt.name)

			var ee *EnqueueError
			require.ErrorAs(t, err, &ee, tt.name)
			assert.Equal(t, "events", ee.Topic)
			assert.Equal(t, tt.partition, ee.Partition)
			assert.Equal(t, tt.code, ee.Code)
			assert.ErrorIs(t, err, tt.sentinel, tt.name)
			assert.ErrorIs(t, err, tt.code, tt.name)
			assert.Equal(t, int(tt.code), ErrorCode(err), tt.name)
		}

		assert.NoError(t, topic.Send(PartitionUnassigned, make([]byte, 1000), 2), "payload at the limit")

		require.NoError(t, topic.Close())
		err = topic.Send(PartitionUnassigned, []byte("a"), 3)
		assert.Equal(t, int(syscall.EBADF), ErrorCode(err))
		assert.ErrorIs(t, err, ErrClosed)

		assert.Len(t, ff.client(0).records(), 1)
		ff.client(0).complete(-1, nil)
		_, err = p.Poll()
		require.NoError(t, err)
		assert.Equal(t, []checkpointCall{{token: 2, failures: 0}}, *calls)
	})

	t.Run("send after producer close", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTestProducer(t, nil)

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		require.NoError(t, p.Close())

		err = topic.Send(PartitionUnassigned, []byte("a"), 1)
		assert.Equal(t, int(syscall.EBADF), ErrorCode(err))
	})
}

func TestTopicClose(t *testing.T) {
	t.Parallel()

	t.Run("close twice", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)
		require.NoError(t, topic.Close())
		assert.ErrorIs(t, topic.Close(), ErrClosed)
		assert.Empty(t, p.topics)
	})

	t.Run("close after producer", func(t *testing.T) {
		t.Parallel()
		logger := &recordingLogger{}
		ff := &fakeFactory{}
		p := &Producer[int]{Brokers: "localhost", Logger: logger, clientFactory: ff.new}
		require.NoError(t, p.Start())

		topic, err := p.NewTopic("events", nil)
		require.NoError(t, err)

		require.NoError(t, p.Close())
		assert.True(t, logger.logged("topic still open at producer close"))

		err = topic.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProducerClosed)
	})

	t.Run("accessors", func(t *testing.T) {
		t.Parallel()
		p, _, _ := newTestProducer(t, nil)
		defer p.Close()

		topic, err := p.NewTopic("events.v1", Entries{{Key: "message.timeout.ms", Value: 1000}})
		require.NoError(t, err)
		defer topic.Close()

		assert.Equal(t, "events.v1", topic.Name())
		assert.Equal(t, ScopeTopic, topic.Config().Scope())
		assert.Equal(t, []string{"message.timeout.ms"}, topic.Config().Keys())
		assert.Equal(t, PartitionConsistentRandom, topic.Partitioner())
	})
}

func TestValidateTopicName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "events"},
		{name: "device-events_v1.2"},
		{name: strings.Repeat("a", 249)},
		{name: "", wantErr: true},
		{name: ".", wantErr: true},
		{name: "..", wantErr: true},
		{name: strings.Repeat("a", 250), wantErr: true},
		{name: "with space", wantErr: true},
		{name: "événements", wantErr: true},
		{name: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateTopicName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
