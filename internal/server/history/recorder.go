// Package history archives the summaries of finished tests into the store.
package history

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"tgdash/internal/poller"
	"tgdash/internal/stats"
	"tgdash/internal/store"
	"tgdash/pkg/model"
)

// Recorder remembers which tests of the current run were archived.
// A multi-test run reports finished tests in previous_statistics. A run is
// new when it reports fewer finished tests than the last snapshot, or when
// the running test's elapsed time goes back without a test finishing.
type Recorder struct {
	st  store.Store
	log *zap.Logger
	Now func() time.Time

	mu      sync.Mutex
	seen    map[string]bool
	prev    int
	elapsed float64
}

func NewRecorder(st store.Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{st: st, log: log, Now: time.Now, seen: make(map[string]bool)}
}

// Observe archives tests that finished since the last call. Tests without a
// known definition are retried on the next call.
func (r *Recorder) Observe(ctx context.Context, snap poller.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observe(ctx, snap)
}

func (r *Recorder) observe(ctx context.Context, snap poller.Snapshot) error {
	s := snap.Statistics
	if s == nil {
		return nil
	}
	n := len(s.PreviousStatistics)
	if n < r.prev || (n == r.prev && s.ElapsedTime > 0 && s.ElapsedTime < r.elapsed) {
		r.log.Debug("new run detected", zap.Int("finished", n))
		r.seen = make(map[string]bool)
	}
	r.prev = n
	if s.ElapsedTime > 0 {
		r.elapsed = s.ElapsedTime
	}

	numbers := make([]string, 0, n)
	for k := range s.PreviousStatistics {
		numbers = append(numbers, k)
	}
	model.SortPortIDs(numbers)
	for _, k := range numbers {
		if r.seen[k] {
			continue
		}
		ok, err := r.archive(ctx, k, s.PreviousStatistics[k], snap.Tests)
		if err != nil {
			return err
		}
		if ok {
			r.seen[k] = true
		}
	}
	return nil
}

// Finish archives every test of the run, including the one still running.
// It is called once the generator has stopped; calling it again for the same
// run archives nothing.
func (r *Recorder) Finish(ctx context.Context, snap poller.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.observe(ctx, snap); err != nil {
		return err
	}
	s := snap.Statistics
	if s == nil || s.ElapsedTime <= 0 {
		return nil
	}
	running := strconv.Itoa(len(s.PreviousStatistics) + 1)
	if r.seen[running] {
		return nil
	}
	ok, err := r.archive(ctx, running, s, snap.Tests)
	if err != nil {
		return err
	}
	if ok {
		r.seen[running] = true
	}
	return nil
}

// Run observes the poller until ctx is done.
func (r *Recorder) Run(ctx context.Context, src interface {
	Snapshot() poller.Snapshot
	Subscribe() (<-chan poller.Event, func())
}) {
	events, cancel := src.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != poller.EventStatistics {
				continue
			}
			if err := r.Observe(ctx, src.Snapshot()); err != nil {
				r.log.Warn("archive results failed", zap.Error(err))
			}
		}
	}
}

// archive reports false when the test has no statistics or no definition yet.
func (r *Recorder) archive(ctx context.Context, number string, s *model.Statistics, tests model.TestList) (bool, error) {
	if s == nil {
		return false, nil
	}
	def, ok := tests[number]
	if !ok {
		r.log.Debug("no definition for finished test yet", zap.String("test", number))
		return false, nil
	}
	res := store.Result{
		Test:       number,
		Name:       def.Name,
		FinishedAt: r.Now().UTC(),
		Summary:    stats.Summarize(s, def.PortTxRxMapping, &def),
	}
	if err := r.st.ArchiveResult(ctx, res); err != nil {
		return false, err
	}
	r.log.Info("test archived", zap.String("test", number), zap.String("name", def.Name))
	return true, nil
}
