package sampling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teletap/teletap/core"
)

// Runner drives one Sampler on a fixed interval and hands each tick's
// observation to the sink. Every counter kind gets its own Runner, so
// kinds tick concurrently and independently.
//
// A tick is disposable: if it errors or panics it is logged and
// skipped, the timer continues, nothing is retried. A missed tick is
// simply absent data.
type Runner struct {
	id       string
	sampler  *Sampler
	metric   string
	interval time.Duration
	sink     core.Sink
	logger   core.Logger

	stopCh  chan struct{}
	stopped sync.Once
	started sync.Once
	wg      sync.WaitGroup
}

// NewRunner creates a runner for one sampler. metric is the sink
// identity observations are recorded under.
func NewRunner(sampler *Sampler, metric string, interval time.Duration, sink core.Sink, logger core.Logger) *Runner {
	if sink == nil {
		sink = &core.NoOpSink{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Runner{
		id:       string(sampler.Kind()) + "-" + uuid.New().String()[:8],
		sampler:  sampler,
		metric:   metric,
		interval: interval,
		sink:     sink,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sampling loop. Safe to call once; later calls
// are no-ops.
func (r *Runner) Start() {
	r.started.Do(func() {
		r.wg.Add(1)
		go r.loop()

		r.logger.Info("Sampler started", map[string]interface{}{
			"runner":   r.id,
			"kind":     r.sampler.Kind(),
			"metric":   r.metric,
			"interval": r.interval.String(),
		})
	})
}

// Stop terminates the loop and waits for the in-flight tick to finish
func (r *Runner) Stop() {
	r.stopped.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stopCh:
			return
		}
	}
}

// tick runs one sampling pass. Panics from a misbehaving process
// source are confined to this tick.
func (r *Runner) tick() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Sampling tick panicked", map[string]interface{}{
				"runner": r.id,
				"kind":   r.sampler.Kind(),
				"panic":  rec,
			})
		}
	}()

	ctx := context.Background()

	obs, err := r.sampler.Sample(ctx)
	if err != nil {
		r.logger.Warn("Sampling tick skipped", map[string]interface{}{
			"runner": r.id,
			"kind":   r.sampler.Kind(),
			"error":  err,
		})
		return
	}

	if err := r.sink.RecordSample(ctx, r.metric, obs.Label, float64(obs.Value)); err != nil {
		r.logger.Error("Failed to record sample", map[string]interface{}{
			"runner": r.id,
			"metric": r.metric,
			"error":  err,
		})
	}
}
