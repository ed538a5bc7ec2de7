// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package metrics turns kafkalite delivery events into Prometheus series.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/kafkalite"
)

const (
	defaultNamespace = "kafkalite"
)

var defaultLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds the delivery collectors.
type Metrics struct {
	deliveries *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// Option configures New.
type Option func(*options)

type options struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
}

// WithNamespace replaces the "kafkalite" metric namespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels adds labels to every series.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = labels
	}
}

// WithLatencyBuckets sets the latency histogram buckets, in seconds.
func WithLatencyBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, opts ...Option) (*Metrics, error) {
	o := options{
		namespace: defaultNamespace,
		buckets:   defaultLatencyBuckets,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "deliveries_total",
			Help:        "Records by final outcome.",
			ConstLabels: o.constLabels,
		}, []string{"topic", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "delivery_errors_total",
			Help:        "Records that failed or were refused, by error type.",
			ConstLabels: o.constLabels,
		}, []string{"topic", "error_type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "delivery_latency_seconds",
			Help:        "Time from Send to the delivery report.",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}, []string{"topic"}),
	}

	var err error
	if m.deliveries, err = register(reg, m.deliveries); err != nil {
		return nil, err
	}
	if m.errors, err = register(reg, m.errors); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}

	return m, nil
}

// register registers c, or returns the identical collector registered
// before it.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// Observe records one delivery event.
func (m *Metrics) Observe(e *kafkalite.DeliveryEvent) {
	if e == nil {
		return
	}

	m.deliveries.WithLabelValues(e.Topic, e.Outcome.String()).Inc()
	if e.Error != nil {
		m.errors.WithLabelValues(e.Topic, e.ErrorType).Inc()
	}

	// refused records never reached franz-go
	if e.Outcome == kafkalite.Delivered || e.Outcome == kafkalite.Failed {
		m.latency.WithLabelValues(e.Topic).Observe(e.Latency.Seconds())
	}
}

// Listener returns Observe as a delivery listener.
func (m *Metrics) Listener() func(*kafkalite.DeliveryEvent) {
	return m.Observe
}
