// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/twmb/franz-go/pkg/kgo"
)

// mockKafkaClient is a mock implementation of kafkaClient for testing.
type mockKafkaClient struct {
	mock.Mock
}

func (m *mockKafkaClient) TryProduce(ctx context.Context, r *kgo.Record, cb func(*kgo.Record, error)) {
	m.Called(ctx, r, cb)
}

func (m *mockKafkaClient) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockKafkaClient) Close() {
	m.Called()
}

func (m *mockKafkaClient) BufferedProduceRecords() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *mockKafkaClient) BufferedProduceBytes() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

// pendingRecord is a record held by fakeKafkaClient until the test
// completes it.
type pendingRecord struct {
	record  *kgo.Record
	promise func(*kgo.Record, error)
}

// fakeKafkaClient keeps produced records so tests can decide when and how
// each delivery completes.
type fakeKafkaClient struct {
	mu      sync.Mutex
	opts    []kgo.Opt
	pending []pendingRecord
	closed  bool

	// closeDelay blocks Close until it is closed, if set.
	closeDelay chan struct{}
}

func (f *fakeKafkaClient) TryProduce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		promise(r, kgo.ErrClientClosed)
		return
	}
	f.pending = append(f.pending, pendingRecord{record: r, promise: promise})
	f.mu.Unlock()
}

func (f *fakeKafkaClient) Flush(context.Context) error {
	f.complete(-1, nil)
	return nil
}

func (f *fakeKafkaClient) Close() {
	if f.closeDelay != nil {
		<-f.closeDelay
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.complete(-1, kgo.ErrClientClosed)
}

func (f *fakeKafkaClient) BufferedProduceRecords() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pending))
}

func (f *fakeKafkaClient) BufferedProduceBytes() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.pending {
		n += int64(len(p.record.Value))
	}
	return n
}

// records returns the records produced so far, completed or not.
func (f *fakeKafkaClient) records() []*kgo.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*kgo.Record, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p.record)
	}
	return out
}

// complete finishes the first n pending records (all of them when n < 0)
// with err, in order. Delivered records get consecutive offsets.
func (f *fakeKafkaClient) complete(n int, err error) {
	f.mu.Lock()
	if n < 0 || n > len(f.pending) {
		n = len(f.pending)
	}
	done := f.pending[:n]
	f.pending = append([]pendingRecord(nil), f.pending[n:]...)
	f.mu.Unlock()

	for i, p := range done {
		if err == nil {
			p.record.Offset = int64(i)
			if p.record.Partition < 0 {
				p.record.Partition = 0
			}
		}
		p.promise(p.record, err)
	}
}

// fakeFactory hands out fakeKafkaClients and remembers them.
type fakeFactory struct {
	mu      sync.Mutex
	clients []*fakeKafkaClient
	err     error
}

func (ff *fakeFactory) new(opts ...kgo.Opt) (kafkaClient, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.err != nil {
		return nil, ff.err
	}
	c := &fakeKafkaClient{opts: opts}
	ff.clients = append(ff.clients, c)
	return c, nil
}

func (ff *fakeFactory) client(i int) *fakeKafkaClient {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.clients[i]
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.clients)
}

// recordingLogger keeps log messages for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Level() kgo.LogLevel { return kgo.LogLevelDebug }

func (l *recordingLogger) Log(_ kgo.LogLevel, msg string, _ ...any) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}
