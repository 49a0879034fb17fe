// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package metrics exposes extraction results as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/h2t/unpack"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	typeLabel   = "type"
	resultLabel = "result"
	stageLabel  = "stage"

	resultSuccess = "success"
	resultPartial = "partial"
	resultFailed  = "failed"
)

// Collector holds the metrics that are updated for every extraction.
type Collector struct {
	extractions *prometheus.CounterVec
	entries     *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unpack_extractions_total",
				Help: "Number of finished extractions",
			},
			[]string{typeLabel, resultLabel},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unpack_extracted_entries_total",
				Help: "Number of extracted files, directories and symlinks",
			},
			[]string{typeLabel},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unpack_extracted_bytes_total",
				Help: "Number of bytes written to the destination",
			},
			[]string{typeLabel},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unpack_failures_total",
				Help: "Number of failures during extraction",
			},
			[]string{typeLabel, stageLabel},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "unpack_extraction_duration_seconds",
				Help: "Duration of extractions",
				Buckets: []float64{
					10 * time.Millisecond.Seconds(),
					100 * time.Millisecond.Seconds(),
					1 * time.Second.Seconds(),
					10 * time.Second.Seconds(),
					1 * time.Minute.Seconds(),
					5 * time.Minute.Seconds(),
				},
			},
			[]string{typeLabel},
		),
	}

	for _, col := range []prometheus.Collector{c.extractions, c.entries, c.bytes, c.failures, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "cannot register metric")
		}
	}
	return c, nil
}

// Observe updates the metrics with r.
func (c *Collector) Observe(_ context.Context, r *unpack.Result) {
	typ := r.ExtractedType

	c.extractions.WithLabelValues(typ, outcome(r)).Inc()
	c.entries.WithLabelValues(typ).Add(float64(r.ExtractedFiles + r.ExtractedDirs + r.ExtractedSymlinks))
	c.bytes.WithLabelValues(typ).Add(float64(r.ExtractionSize))
	c.duration.WithLabelValues(typ).Observe(r.ExtractionDuration.Seconds())
	for _, f := range r.Failures {
		c.failures.WithLabelValues(typ, string(f.Stage)).Inc()
	}
}

// outcome classifies a result, only failures of single entries count as partial.
func outcome(r *unpack.Result) string {
	if len(r.Failures) == 0 {
		return resultSuccess
	}
	for _, f := range r.Failures {
		if f.Stage != unpack.StageEntry {
			return resultFailed
		}
	}
	return resultPartial
}

// NewPrometheusHook registers the extraction metrics with reg and returns a hook
// that updates them.
func NewPrometheusHook(reg prometheus.Registerer) (unpack.ResultHook, error) {
	c, err := NewCollector(reg)
	if err != nil {
		return nil, err
	}
	return c.Observe, nil
}

// Chain returns a hook that calls all hooks in order.
func Chain(hooks ...unpack.ResultHook) unpack.ResultHook {
	return func(ctx context.Context, r *unpack.Result) {
		for _, h := range hooks {
			if h != nil {
				h(ctx, r)
			}
		}
	}
}
