// Package telemetry forwards simulation output to a storage backend through
// a buffered channel, so a slow backend never stalls the tick loop.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/sandk/offroad-dynamics/internal/channel"
	"github.com/sandk/offroad-dynamics/internal/storage"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

const defaultBufferSize = 10_000

// item is one queued write: either a vehicle sample or tick stats.
type item struct {
	sample *core.VehicleSample
	stats  *core.TickStats
}

// Recorder decimates and queues simulation output for a storage backend.
// A single drain goroutine performs the backend writes.
type Recorder struct {
	backend     storage.Backend
	sampleEvery uint64

	ch     channel.Channel[item]
	wg     sync.WaitGroup
	closed sync.Once

	recorded  metric.Int64Counter
	dropped   metric.Int64Counter
	queueSize metric.Int64ObservableGauge

	logger zerolog.Logger
}

// Options configures a Recorder.
type Options struct {
	// SampleEvery records vehicle samples on every Nth tick. Zero or one
	// records every tick. Tick stats are always recorded.
	SampleEvery int
	// BufferSize is the queue capacity between the tick loop and the
	// backend writer. Defaults to 10000.
	BufferSize int
}

// New creates a Recorder draining into the given backend.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(backend storage.Backend, opts Options, logger zerolog.Logger) (*Recorder, error) {
	sampleEvery := uint64(1)
	if opts.SampleEvery > 1 {
		sampleEvery = uint64(opts.SampleEvery)
	}
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	r := &Recorder{
		backend:     backend,
		sampleEvery: sampleEvery,
		ch:          channel.New[item](bufferSize),
		logger:      logger,
	}

	m := meter()

	var err error
	r.recorded, err = m.Int64Counter(
		"telemetry.samples.recorded",
		metric.WithDescription("Total telemetry records queued for storage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating recorded counter: %w", err)
	}

	r.dropped, err = m.Int64Counter(
		"telemetry.samples.dropped",
		metric.WithDescription("Total telemetry records dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	r.queueSize, err = m.Int64ObservableGauge(
		"telemetry.queue.size",
		metric.WithDescription("Current number of records waiting for the backend"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(r.queueSize, int64(r.ch.Len()))
			return nil
		},
		r.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	r.wg.Add(1)
	go r.drain()

	return r, nil
}

// RecordTick queues one tick's output. Samples are decimated by SampleEvery;
// tick stats always go through. Non-blocking; records are dropped when the
// queue is full.
func (r *Recorder) RecordTick(stats core.TickStats, samples []core.VehicleSample) {
	if stats.Tick%r.sampleEvery == 0 {
		for i := range samples {
			r.push(item{sample: &samples[i]})
		}
	}
	s := stats
	r.push(item{stats: &s})
}

func (r *Recorder) push(it item) {
	if r.ch.TrySend(it) {
		r.recorded.Add(context.Background(), 1)
	} else {
		r.dropped.Add(context.Background(), 1)
		r.logger.Warn().Msg("Telemetry queue full, dropping record")
	}
}

// drain is the single backend writer.
func (r *Recorder) drain() {
	defer r.wg.Done()
	for it := range r.ch.Receive() {
		var err error
		switch {
		case it.sample != nil:
			err = r.backend.RecordSample(it.sample)
		case it.stats != nil:
			err = r.backend.RecordTickStats(it.stats)
		}
		if err != nil {
			r.logger.Error().Err(err).Msg("Backend write failed")
		}
	}
}

// Close drains any queued records and stops the writer goroutine.
// The Recorder must not be used after Close.
func (r *Recorder) Close() {
	r.closed.Do(func() {
		r.ch.Close()
	})
	r.wg.Wait()
}
