package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
	// StopOnError cancels the remaining inputs after the first failure.
	StopOnError bool
	// OnOutput, if set, is called by the worker right after an input
	// succeeds. A returned error becomes the item's error. Handlers may drop
	// out.Data once it is stored elsewhere.
	OnOutput func(index int, out *Output) error
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// BatchItem is the outcome for one input of a batch, at the input's index.
type BatchItem struct {
	Index  int
	Name   string
	Output *Output
	Err    error
}

type batchJob struct {
	index int
	input Input
}

// ErrNoInputs is returned when a batch is empty.
var ErrNoInputs = errors.New("no inputs provided")

// ProcessBatch processes inputs with a worker pool and returns one item per
// input in input order. Per-input failures are recorded on the item; the
// returned error is ErrNoInputs, or the context error if ctx was cancelled.
func (p *Pipeline) ProcessBatch(parent context.Context, inputs []Input, config ParallelConfig) ([]BatchItem, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(inputs))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(inputs))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan batchJob)
	items := make([]BatchItem, len(inputs))
	for i, in := range inputs {
		items[i] = BatchItem{Index: i, Name: in.Name}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				out, err := p.processJob(ctx, job, config.OnOutput)
				// Each worker writes only its own index.
				items[job.index].Output = out
				items[job.index].Err = err

				mu.Lock()
				processed++
				current := processed
				mu.Unlock()

				if config.ProgressCallback != nil {
					if err != nil {
						config.ProgressCallback.OnError(job.index, err)
					}
					config.ProgressCallback.OnProgress(current, len(inputs))
				}
				if err != nil && config.StopOnError {
					cancel()
				}
			}
		}()
	}

send:
	for i, in := range inputs {
		select {
		case jobs <- batchJob{index: i, input: in}:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	for i := range items {
		if items[i].Output == nil && items[i].Err == nil {
			items[i].Err = fmt.Errorf("not processed: %w", ctx.Err())
		}
	}
	if err := parent.Err(); err != nil {
		return items, err
	}
	return items, nil
}

func (p *Pipeline) processJob(ctx context.Context, job batchJob, onOutput func(int, *Output) error) (*Output, error) {
	in, err := job.input.load()
	if err != nil {
		return nil, err
	}
	out, err := p.ProcessContext(ctx, in)
	if err != nil {
		return nil, err
	}
	if onOutput != nil {
		if err := onOutput(job.index, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// load reads Path into Data when no data was supplied.
func (in Input) load() (Input, error) {
	if len(in.Data) > 0 || in.Path == "" {
		return in, nil
	}
	data, err := os.ReadFile(in.Path) //nolint:gosec // G304: paths come from user-selected inputs
	if err != nil {
		return in, fmt.Errorf("read %s: %w", in.Path, err)
	}
	in.Data = data
	return in, nil
}

// BatchStats summarises a processed batch.
type BatchStats struct {
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	ByMethod   map[string]int `json:"by_method"`
	TotalTime  time.Duration  `json:"total_time_ns"`
	MeanTime   time.Duration  `json:"mean_time_ns"`
	Confidence float64        `json:"mean_confidence"`
}

// CalculateBatchStats aggregates per-item outcomes.
func CalculateBatchStats(items []BatchItem) BatchStats {
	stats := BatchStats{Total: len(items), ByMethod: map[string]int{}}
	var confSum float64
	for _, it := range items {
		if it.Err != nil || it.Output == nil {
			stats.Failed++
			continue
		}
		stats.Succeeded++
		stats.ByMethod[string(it.Output.Method)]++
		stats.TotalTime += it.Output.Duration
		confSum += it.Output.Confidence
	}
	if stats.Succeeded > 0 {
		stats.MeanTime = stats.TotalTime / time.Duration(stats.Succeeded)
		stats.Confidence = confSum / float64(stats.Succeeded)
	}
	return stats
}
