// Package pipeline drives a featurization run: it reads interleaved rows,
// extracts per-channel features, and writes feature rows in input order to the
// CSV output and any attached sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sensor.features/internal/featureio"
	"github.com/banshee-data/sensor.features/internal/features"
	"github.com/banshee-data/sensor.features/internal/fsutil"
	"github.com/banshee-data/sensor.features/internal/monitoring"
	"github.com/banshee-data/sensor.features/internal/timeutil"
)

// RowSink receives every feature row after it has been written to the
// output. index is zero-based and strictly increasing.
type RowSink interface {
	WriteRow(index int, row features.Row) error
}

// Stats summarises a run.
type Stats struct {
	Rows            int
	ChannelFailures int
	Elapsed         time.Duration
}

// Processor runs the row loop. The zero value processes rows sequentially
// with the default extractor and logs through monitoring.Logf.
type Processor struct {
	// Workers is the number of concurrent extractors. Values below 2 run
	// rows on the calling goroutine.
	Workers int

	// Extract computes one channel's vector; nil means features.Extract.
	Extract features.ExtractFunc

	Sinks []RowSink
	Logf  monitoring.LogFunc
	Clock timeutil.Clock

	// LogEvery emits a progress line every N rows when positive.
	LogEvery int
}

type job struct {
	index  int
	record []string
}

type result struct {
	index int
	row   features.Row
}

func (p *Processor) logf(format string, v ...interface{}) {
	if p.Logf != nil {
		p.Logf(format, v...)
		return
	}
	monitoring.Logf(format, v...)
}

func (p *Processor) clock() timeutil.Clock {
	if p.Clock == nil {
		return timeutil.RealClock{}
	}
	return p.Clock
}

// Run reads every row from in and writes the header plus one feature row per
// input row to out. Output rows are always in input order regardless of
// Workers. Channel failures are logged and counted but never stop the run.
func (p *Processor) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	clock := p.clock()
	start := clock.Now()
	var stats Stats

	r := featureio.NewReader(in)
	w := featureio.NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return stats, err
	}

	emit := func(index int, row features.Row) error {
		if err := w.WriteRow(row); err != nil {
			return err
		}
		for _, cerr := range row.Failures() {
			stats.ChannelFailures++
			p.logf("row %d: %v", index+1, cerr)
		}
		for _, s := range p.Sinks {
			if err := s.WriteRow(index, row); err != nil {
				return fmt.Errorf("sink row %d: %w", index+1, err)
			}
		}
		stats.Rows++
		if p.LogEvery > 0 && stats.Rows%p.LogEvery == 0 {
			p.logf("processed %d rows", stats.Rows)
		}
		return nil
	}

	var err error
	if p.Workers < 2 {
		err = p.runSequential(ctx, r, emit)
	} else {
		err = p.runPool(ctx, r, emit)
	}
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	stats.Elapsed = clock.Since(start)
	return stats, err
}

func (p *Processor) runSequential(ctx context.Context, r *featureio.Reader, emit func(int, features.Row) error) error {
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(index, features.ExtractRowWith(rec, p.Extract)); err != nil {
			return err
		}
	}
}

// runPool fans rows out to Workers extractors and reassembles results by
// index before emitting them.
func (p *Processor) runPool(ctx context.Context, r *featureio.Reader, emit func(int, features.Row) error) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, p.Workers)
	results := make(chan result, p.Workers)

	g.Go(func() error {
		defer close(jobs)
		for index := 0; ; index++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case jobs <- job{index: index, record: rec}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for n := 0; n < p.Workers; n++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				row := features.ExtractRowWith(j.record, p.Extract)
				select {
				case results <- result{index: j.index, row: row}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]features.Row)
		next := 0
		for res := range results {
			pending[res.index] = res.row
			for {
				row, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := emit(next, row); err != nil {
					return err
				}
				next++
			}
		}
		return nil
	})

	return g.Wait()
}

// RunFiles opens inputPath and creates outputPath through fsys, then runs the
// processor over them. A missing input returns an error wrapping
// fs.ErrNotExist and leaves no output file behind.
func (p *Processor) RunFiles(ctx context.Context, fsys fsutil.FileSystem, inputPath, outputPath string) (Stats, error) {
	in, err := fsys.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := fsys.Create(outputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}

	stats, err := p.Run(ctx, in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return stats, err
}
