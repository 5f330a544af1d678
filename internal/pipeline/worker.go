package pipeline

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/ironsheep/dataset-augment/internal/imaging"
	"github.com/ironsheep/dataset-augment/internal/metadata"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// task is one sampled source image. Duplicated samples are separate tasks.
type task struct {
	index int
	path  string
	stem  string
	rng   *rand.Rand
}

// taskResult carries the rows of one task back to the dispatcher.
type taskResult struct {
	index    int
	rows     []metadata.Row
	variants []imaging.Variant
	bytes    int64
	skipped  bool
	err      error
}

// Worker composites sampled images and propagates their metadata rows.
//
// Workers only read the shared table; everything they produce travels back in
// a taskResult.
type Worker struct {
	ID         int
	compositor *imaging.Compositor
	table      *metadata.Table
	runID      string
	policy     metadata.MatchPolicy
	count      int
	skipDecode bool
}

// Start processes tasks until the channel is closed or ctx is cancelled.
func (w *Worker) Start(ctx context.Context, tasks <-chan task, results chan<- taskResult) {
	klog.V(2).Infof("worker %d started", w.ID)
	for {
		select {
		case <-ctx.Done():
			klog.V(2).Infof("worker %d stopping: %v", w.ID, ctx.Err())
			return

		case t, ok := <-tasks:
			if !ok {
				return
			}
			result := w.process(ctx, t)

			select {
			case results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, t task) taskResult {
	variants, err := w.compositor.Compose(ctx, t.path, t.stem, w.count, t.rng)
	if err != nil {
		if w.skipDecode && errors.Is(err, imaging.ErrImageDecode) {
			klog.Warningf("skipping %s: %v", t.path, err)
			return taskResult{index: t.index, skipped: true}
		}
		return taskResult{index: t.index, err: errors.WithMessagef(err, "worker %d", w.ID)}
	}

	r := taskResult{index: t.index, rows: make([]metadata.Row, 0, len(variants)), variants: variants}
	for _, v := range variants {
		row, err := metadata.Propagate(w.table, v, w.runID, w.policy)
		if err != nil {
			return taskResult{index: t.index, err: errors.WithMessagef(err, "image %q", t.path)}
		}
		r.rows = append(r.rows, row)
		r.bytes += v.Bytes
	}
	return r
}

// runPool runs tasks on up to width workers built by newWorker and returns the
// results indexed like tasks.
//
// The first failing task cancels the others and its error is returned. done is
// called once per finished task.
func runPool(ctx context.Context, width int, tasks []task, newWorker func(id int) *Worker, done func()) ([]taskResult, error) {
	results := make([]taskResult, len(tasks))
	if len(tasks) == 0 {
		return results, ctx.Err()
	}
	if width > len(tasks) {
		width = len(tasks)
	}
	if width < 1 {
		width = 1
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan task)
	resultCh := make(chan taskResult)

	var wg sync.WaitGroup
	for id := 0; id < width; id++ {
		w := newWorker(id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(poolCtx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-poolCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var firstErr error
	finished := 0
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		results[r.index] = r
		finished++
		if done != nil {
			done()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if finished != len(tasks) {
		return nil, errors.Errorf("only %d of %d tasks finished", finished, len(tasks))
	}
	return results, nil
}
