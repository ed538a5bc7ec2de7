// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package kafkalite provides a small, embeddable Kafka producer that lets its
// host checkpoint progress only after the broker has confirmed delivery.
//
// # Overview
//
// A Producer is bound to a broker list and a set of librdkafka style
// properties. Topics are derived from it, records are queued with Send, and
// the host calls Poll on its own cadence. Poll drains the delivery reports
// that have arrived since the previous call, without waiting for more, and
// hands the host the correlation token of the last one together with the
// number of failures.
//
// # Quick Start
//
//	producer := &kafkalite.Producer[int64]{
//	    Brokers: "localhost:9092",
//	    Config: kafkalite.Entries{
//	        {Key: "client.id", Value: "ingest"},
//	        {Key: "queue.buffering.max.messages", Value: 50000},
//	    },
//	    Checkpoint: func(line int64, failures int) error {
//	        return store.Save(line, failures)
//	    },
//	}
//	if err := producer.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer producer.Close()
//
//	topic, err := producer.NewTopic("events", kafkalite.Entries{
//	    {Key: "request.required.acks", Value: "1"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer topic.Close()
//
//	if err := topic.Send(kafkalite.PartitionUnassigned, payload, line); err != nil {
//	    // queue full, payload too large, ...
//	    log.Printf("send failed: errno %d", kafkalite.ErrorCode(err))
//	}
//
//	// once per tick of the host loop
//	if _, err := producer.Poll(); err != nil {
//	    log.Printf("checkpoint failed: %v", err)
//	}
//
// # Configuration
//
// Producer and topic properties use the librdkafka names (for example
// "queue.buffering.max.ms", "compression.codec" or "request.required.acks")
// and common Java client aliases ("linger.ms", "acks"). Every entry is
// validated when the producer is started or the topic is created; the first
// bad entry aborts the operation with a *RejectedConfigError or an
// *InvalidValueTypeError.
//
// Topic properties that franz-go only supports per client (acks, compression
// and message timeout) are honored by sharing an additional client between
// the topics that need the same combination.
//
// # Delivery Reports
//
// Reports are only tracked when Checkpoint or InitialDeliveryListeners is
// set. A record then keeps its slot in the send queue until Poll drains its
// report, so a host that stops polling eventually sees ENOBUFS from Send.
// Only the last token of each Poll is surfaced; PollResult.Deliveries says
// how many reports it covered.
//
// # Observability
//
// Logging goes through franz-go's kgo.Logger interface and is disabled by
// default. Per-record DeliveryEvents are available to listeners; the metrics
// sub-package turns them into Prometheus series.
//
// # Thread Safety
//
// A Producer and its topics are meant to be driven by a single goroutine.
// Delivery reports arriving from franz-go's goroutines are queued safely.
package kafkalite
