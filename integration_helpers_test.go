// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package kafkalite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/kafkalite"
)

const (
	messageConsumeWait = 10 * time.Second
	deliveryWait       = 15 * time.Second
)

// setupKafka starts Kafka using testcontainers and returns the broker address.
// Automatically registers cleanup to stop Kafka when test completes.
func setupKafka(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// confluent-local is designed for testcontainers; the version tag is
	// validated for KRaft mode.
	kafkaContainer, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "Failed to start Kafka container")

	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "Failed to get Kafka brokers")
	require.NotEmpty(t, brokers, "No Kafka brokers available")

	broker := brokers[0]
	t.Logf("Kafka broker available at: %s", broker)

	require.NoError(t, waitForKafka(ctx, t, broker))
	return broker
}

// waitForKafka attempts to connect to Kafka broker until it responds or timeout.
func waitForKafka(ctx context.Context, t *testing.T, broker string) error {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(broker),
			kgo.RequestTimeoutOverhead(5*time.Second),
		)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := client.Ping(pingCtx)
			cancel()
			client.Close()

			if err == nil {
				return nil
			}
			t.Logf("Kafka not ready yet: %v", err)
		}

		time.Sleep(1 * time.Second)
	}

	return context.DeadlineExceeded
}

// checkpoints collects Checkpoint invocations.
type checkpoints struct {
	mu    sync.Mutex
	calls []checkpoint
}

type checkpoint struct {
	token    int
	failures int
}

func (c *checkpoints) record(token, failures int) error {
	c.mu.Lock()
	c.calls = append(c.calls, checkpoint{token: token, failures: failures})
	c.mu.Unlock()
	return nil
}

func (c *checkpoints) all() []checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]checkpoint(nil), c.calls...)
}

// startProducer starts a producer against broker with topic auto-creation on.
func startProducer(t *testing.T, broker string, cp *checkpoints, config ...kafkalite.Entry) *kafkalite.Producer[int] {
	t.Helper()

	p := &kafkalite.Producer[int]{
		Brokers: broker,
		Config: append(kafkalite.Entries{
			{Key: "allow.auto.create.topics", Value: true},
			{Key: "client.id", Value: "kafkalite-integration"},
		}, config...),
	}
	if cp != nil {
		p.Checkpoint = cp.record
	}

	require.NoError(t, p.Start())
	return p
}

// pollUntil polls p until the accumulated delivery count reaches want or
// deliveryWait passes. It returns the results of every poll that drained
// something.
func pollUntil(t *testing.T, p *kafkalite.Producer[int], want int) []kafkalite.PollResult[int] {
	t.Helper()

	var results []kafkalite.PollResult[int]
	total := 0
	deadline := time.Now().Add(deliveryWait)
	for total < want && time.Now().Before(deadline) {
		result, err := p.Poll()
		require.NoError(t, err)
		if result.Deliveries > 0 {
			results = append(results, result)
			total += result.Deliveries
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.Equal(t, want, total, "timed out waiting for delivery reports")
	return results
}

// consumeMessages consumes messages from a Kafka topic with a timeout.
// Returns all messages received before timeout.
func consumeMessages(t *testing.T, broker string, topic string, want int) []*kgo.Record {
	t.Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err, "Failed to create Kafka consumer")
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), messageConsumeWait)
	defer cancel()

	var records []*kgo.Record
	for len(records) < want {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			t.Logf("Fetch error on %s[%d]: %v", topic, partition, err)
		})

		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}

	return records
}
