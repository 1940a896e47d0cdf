package kv

import (
	"context"
	"time"

	"github.com/lorekeep/lorekeep/internal/metrics"
)

// Instrumented wraps a Store and records read/write timings on a collector.
type Instrumented struct {
	inner Store
	mc    *metrics.Collector
}

// NewInstrumented decorates a store with metrics recording.
func NewInstrumented(inner Store, mc *metrics.Collector) *Instrumented {
	return &Instrumented{inner: inner, mc: mc}
}

func (i *Instrumented) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	v, err := i.inner.Get(ctx, key)
	i.mc.RecordTiming(metrics.OpKVRead, time.Since(start))
	return v, err
}

func (i *Instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.inner.Set(ctx, key, value)
	i.mc.RecordTiming(metrics.OpKVWrite, time.Since(start))
	return err
}

func (i *Instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.inner.Remove(ctx, key)
	i.mc.RecordTiming(metrics.OpKVWrite, time.Since(start))
	return err
}
