// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"
)

// PartitionUnassigned asks the topic's partitioner to choose the partition.
const PartitionUnassigned int32 = -1

// PartitionStrategy selects how records sent with PartitionUnassigned are
// spread across a topic's partitions. The names follow the partitioner
// topic property.
type PartitionStrategy string

const (
	// PartitionRandom spreads records round-robin, ignoring keys.
	PartitionRandom PartitionStrategy = "random"

	// PartitionConsistent hashes the key with CRC32. Unkeyed records all
	// land on one partition.
	PartitionConsistent PartitionStrategy = "consistent"

	// PartitionConsistentRandom hashes keyed records with CRC32 and spreads
	// unkeyed records round-robin. This is the default.
	PartitionConsistentRandom PartitionStrategy = "consistent_random"

	// PartitionMurmur2 hashes the key the way the Java client does.
	PartitionMurmur2 PartitionStrategy = "murmur2"

	// PartitionMurmur2Random is PartitionMurmur2 with unkeyed records spread
	// round-robin.
	PartitionMurmur2Random PartitionStrategy = "murmur2_random"

	// PartitionFNV1a hashes the key with FNV-1a.
	PartitionFNV1a PartitionStrategy = "fnv1a"

	// PartitionFNV1aRandom is PartitionFNV1a with unkeyed records spread
	// round-robin.
	PartitionFNV1aRandom PartitionStrategy = "fnv1a_random"
)

var partitionStrategyTypes map[PartitionStrategy]struct{}
var partitionStrategyList []string

func init() {
	list := []PartitionStrategy{
		PartitionRandom,
		PartitionConsistent,
		PartitionConsistentRandom,
		PartitionMurmur2,
		PartitionMurmur2Random,
		PartitionFNV1a,
		PartitionFNV1aRandom,
	}

	partitionStrategyTypes = make(map[PartitionStrategy]struct{})
	for _, s := range list {
		partitionStrategyTypes[s] = struct{}{}
		partitionStrategyList = append(partitionStrategyList, string(s))
	}
}

// parsePartitionStrategy validates a partitioner value.
func parsePartitionStrategy(s string) (PartitionStrategy, error) {
	strategy := PartitionStrategy(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := partitionStrategyTypes[strategy]; ok {
		return strategy, nil
	}

	list := strings.Join(partitionStrategyList, "', '")
	list = "'" + list + "'"
	return "", fmt.Errorf("partitioner '%s' is invalid: must be %s", s, list)
}

// spreadsUnkeyed reports whether unkeyed records are spread round-robin.
func (s PartitionStrategy) spreadsUnkeyed() bool {
	switch s {
	case PartitionConsistent, PartitionMurmur2, PartitionFNV1a:
		return false
	default:
		return true
	}
}

// partitioner is the kgo.Partitioner shared by every client of a producer.
// Topics register their strategy when their handle is created; a topic that
// was never registered uses the producer default.
type partitioner struct {
	mu         sync.Mutex
	fallback   PartitionStrategy
	strategies map[string]PartitionStrategy
}

var _ kgo.Partitioner = (*partitioner)(nil)

func newPartitioner(fallback PartitionStrategy) *partitioner {
	return &partitioner{
		fallback:   fallback,
		strategies: make(map[string]PartitionStrategy),
	}
}

// register records the strategy for a topic. The first registration for a
// topic wins, because franz-go caches the TopicPartitioner once it has
// asked for it.
func (p *partitioner) register(topic string, strategy PartitionStrategy) PartitionStrategy {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.strategies[topic]; ok {
		return existing
	}
	p.strategies[topic] = strategy
	return strategy
}

// ForTopic implements kgo.Partitioner.
func (p *partitioner) ForTopic(topic string) kgo.TopicPartitioner {
	p.mu.Lock()
	strategy, ok := p.strategies[topic]
	p.mu.Unlock()

	if !ok {
		strategy = p.fallback
	}

	return &topicPartitioner{
		strategy: strategy,
		murmur2:  kgo.StickyKeyPartitioner(nil).ForTopic(topic),
	}
}

type topicPartitioner struct {
	strategy PartitionStrategy
	murmur2  kgo.TopicPartitioner
	next     atomic.Uint64
}

// RequiresConsistency implements kgo.TopicPartitioner. Explicit partitions
// and hashed keys must not be moved to another partition.
func (tp *topicPartitioner) RequiresConsistency(r *kgo.Record) bool {
	if r.Partition >= 0 {
		return true
	}
	return !tp.roundRobin(r)
}

// Partition implements kgo.TopicPartitioner.
func (tp *topicPartitioner) Partition(r *kgo.Record, n int) int {
	if r.Partition >= 0 {
		return int(r.Partition)
	}

	if n <= 0 {
		return 0
	}

	if tp.roundRobin(r) {
		//nolint:gosec // G115: Modulo ensures result fits in int range
		return int((tp.next.Add(1) - 1) % uint64(n))
	}

	switch tp.strategy {
	case PartitionMurmur2, PartitionMurmur2Random:
		if len(r.Key) == 0 {
			return 0
		}
		return tp.murmur2.Partition(r, n)
	case PartitionFNV1a, PartitionFNV1aRandom:
		return hashFNV1a(r.Key, n)
	default:
		return hashCRC32(r.Key, n)
	}
}

func (tp *topicPartitioner) roundRobin(r *kgo.Record) bool {
	if tp.strategy == PartitionRandom {
		return true
	}
	return len(r.Key) == 0 && tp.strategy.spreadsUnkeyed()
}

// hashFNV1a computes FNV-1a hash of a key and returns the index within bounds [0, n).
// Returns 0 if n <= 0.
func hashFNV1a(key []byte, n int) int {
	if n <= 0 {
		return 0
	}

	h := fnv.New32a()
	h.Write(key)

	//nolint:gosec // G115: Modulo ensures result fits in int range
	return int(h.Sum32() % uint32(n))
}

// hashCRC32 computes the CRC32 (IEEE) of a key and returns the index within bounds [0, n).
// Returns 0 if n <= 0.
func hashCRC32(key []byte, n int) int {
	if n <= 0 {
		return 0
	}

	//nolint:gosec // G115: Modulo ensures result fits in int range
	return int(crc32.ChecksumIEEE(key) % uint32(n))
}
