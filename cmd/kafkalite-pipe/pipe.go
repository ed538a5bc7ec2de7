// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/xmidt-org/kafkalite"
)

const maxLineBytes = 1 << 20

// pipe owns the producer and topic and is their only user.
type pipe struct {
	producer *kafkalite.Producer[int64]
	topic    *kafkalite.Topic[int64]
	store    *checkpointStore
	logger   *slog.Logger

	partition    int32
	pollInterval time.Duration
	closeTimeout time.Duration

	// skip is the number of leading lines already delivered.
	skip int64

	sent    int64
	refused int64
}

// run sends every line of r and polls on the configured interval. A line
// refused because the queue is full is retried after the next poll. run
// returns once r is exhausted and outstanding deliveries were drained, or
// ctx is done.
func (p *pipe) run(ctx context.Context, r io.Reader) error {
	lines, readErr := readLines(ctx, r)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	var (
		lineNo  int64
		pending []byte
		retry   bool
	)

	for {
		in := lines
		if retry {
			in = nil
		}

		select {
		case <-ctx.Done():
			p.logger.Info("interrupted, draining", "line", lineNo)
			return p.drain()

		case <-ticker.C:
			if err := p.poll(); err != nil {
				return err
			}
			if retry && p.send(pending, lineNo) {
				pending, retry = nil, false
			}

		case line, ok := <-in:
			if !ok {
				if err := <-readErr; err != nil {
					return errors.Join(err, p.drain())
				}
				return p.drain()
			}

			lineNo++
			if lineNo <= p.skip {
				continue
			}
			if !p.send(line, lineNo) {
				pending, retry = line, true
			}
		}
	}
}

// send queues one line. It returns false when the line must be retried.
func (p *pipe) send(line []byte, lineNo int64) bool {
	err := p.topic.Send(p.partition, line, lineNo)
	switch {
	case err == nil:
		p.sent++
		return true
	case errors.Is(err, kafkalite.ErrQueueFull):
		p.logger.Debug("queue full, waiting for deliveries", "line", lineNo)
		return false
	default:
		p.refused++
		p.logger.Warn("line not sent", "line", lineNo, "errno", kafkalite.ErrorCode(err), "err", err)
		return true
	}
}

func (p *pipe) poll() error {
	result, err := p.producer.Poll()
	if err != nil {
		return err
	}
	if result.Deliveries > 0 {
		p.logger.Debug("delivery reports",
			"deliveries", result.Deliveries,
			"failures", result.Failures,
			"line", result.Token,
		)
	}
	return nil
}

// drain waits up to closeTimeout for queued records and checkpoints the
// reports they produced.
func (p *pipe) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.closeTimeout)
	defer cancel()

	if err := p.producer.Flush(ctx); err != nil {
		p.logger.Warn("flush incomplete", "err", err)
	}
	err := p.poll()

	p.logger.Info("pipe finished",
		"sent", p.sent,
		"refused", p.refused,
		"checkpoint", p.store.line,
		"failures", p.store.failures,
	)
	return err
}

// readLines scans r on its own goroutine. The error channel receives the
// scanner's error before the line channel is closed.
func readLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- bytes.Clone(scanner.Bytes()):
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}
