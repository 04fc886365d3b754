// Package pipe moves lines from a reader through a Processor to a writer,
// either one at a time or through an ordered worker pool.
package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"hashpipe/internal/logctx"
)

// DefaultBatchSize bounds how many lines a worker pool holds at once.
const DefaultBatchSize = 256

const readBufferSize = 64 * 1024

// Processor transforms one line. The line includes its terminator, if any.
type Processor interface {
	Process(line []byte) ([]byte, error)
}

// Options controls how Run schedules work.
type Options struct {
	// Workers above 1 process lines concurrently. Output order always
	// equals input order.
	Workers int
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
}

// Stats summarizes a run.
type Stats struct {
	Lines int
}

// Run reads lines from in until EOF, processes them with p and writes the
// results to out. Lines are split after '\n'; a final line without one is
// processed as well. Output is flushed whenever no more input is buffered,
// so results appear as soon as their input line has arrived.
//
// Canceling ctx stops Run even while it waits for input. Lines written
// before an error stay written.
func Run(ctx context.Context, in io.Reader, out io.Writer, p Processor, opts Options) (Stats, error) {
	lg := logctx.FromContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := readLines(ctx, bufio.NewReaderSize(in, readBufferSize))
	w := bufio.NewWriter(out)

	var (
		stats Stats
		err   error
	)
	if opts.Workers <= 1 {
		stats, err = runSequential(ctx, lines, w, p)
	} else {
		if opts.BatchSize <= 0 {
			opts.BatchSize = DefaultBatchSize
		}
		stats, err = runPool(ctx, lines, w, p, opts)
	}

	if ferr := w.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("write output: %w", ferr)
	}
	lg.Debug("pipe finished", "lines", stats.Lines, "workers", opts.Workers, "err", err)
	return stats, err
}

// chunk is one read from the input. idle is set when nothing more was
// buffered after the line, so the caller should flush.
type chunk struct {
	line []byte
	err  error
	idle bool
}

// readLines reads from r on its own goroutine so a blocked Read never
// keeps Run from seeing ctx canceled. The channel is closed after the
// chunk carrying a read error, or when ctx is done.
func readLines(ctx context.Context, r *bufio.Reader) <-chan chunk {
	lines := make(chan chunk)
	go func() {
		defer close(lines)
		for {
			line, err := r.ReadBytes('\n')
			c := chunk{line: line, err: err, idle: r.Buffered() == 0}
			select {
			case lines <- c:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// next waits for the following chunk or for ctx to be done. A canceled
// ctx wins over input that is already available.
func next(ctx context.Context, lines <-chan chunk) (chunk, error) {
	if err := ctx.Err(); err != nil {
		return chunk{}, err
	}
	select {
	case <-ctx.Done():
		return chunk{}, ctx.Err()
	case c := <-lines:
		return c, nil
	}
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("read input: %w", err)
}

func runSequential(ctx context.Context, lines <-chan chunk, w *bufio.Writer, p Processor) (Stats, error) {
	var stats Stats
	for {
		c, err := next(ctx, lines)
		if err != nil {
			return stats, err
		}

		if len(c.line) > 0 {
			res, err := p.Process(c.line)
			if err != nil {
				return stats, fmt.Errorf("line %d: %w", stats.Lines+1, err)
			}
			if _, err := w.Write(res); err != nil {
				return stats, fmt.Errorf("write output: %w", err)
			}
			stats.Lines++
		}

		if c.err != nil {
			return stats, endOfInput(c.err)
		}
		if c.idle {
			if err := w.Flush(); err != nil {
				return stats, fmt.Errorf("write output: %w", err)
			}
		}
	}
}

type result struct {
	line []byte
	err  error
}

func runPool(ctx context.Context, lines <-chan chunk, w *bufio.Writer, p Processor, opts Options) (Stats, error) {
	var stats Stats
	batch := make([][]byte, 0, opts.BatchSize)
	results := make([]result, opts.BatchSize)

	for {
		batch = batch[:0]
		var rerr error
		for len(batch) < opts.BatchSize {
			c, err := next(ctx, lines)
			if err != nil {
				return stats, err
			}
			if len(c.line) > 0 {
				batch = append(batch, c.line)
			}
			if c.err != nil {
				rerr = c.err
				break
			}
			if c.idle {
				break
			}
		}

		processBatch(p, batch, results[:len(batch)], opts.Workers)

		for i := range batch {
			res := results[i]
			results[i] = result{}
			if res.err != nil {
				return stats, fmt.Errorf("line %d: %w", stats.Lines+1, res.err)
			}
			if _, err := w.Write(res.line); err != nil {
				return stats, fmt.Errorf("write output: %w", err)
			}
			stats.Lines++
		}
		if err := w.Flush(); err != nil {
			return stats, fmt.Errorf("write output: %w", err)
		}

		if rerr != nil {
			return stats, endOfInput(rerr)
		}
	}
}

// processBatch fills results[i] for batch[i] using at most workers
// goroutines.
func processBatch(p Processor, batch [][]byte, results []result, workers int) {
	if len(batch) == 0 {
		return
	}
	if workers > len(batch) {
		workers = len(batch)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range idx {
				line, err := p.Process(batch[j])
				results[j] = result{line: line, err: err}
			}
		}()
	}
	for j := range batch {
		idx <- j
	}
	close(idx)
	wg.Wait()
}
