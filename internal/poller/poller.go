// Package poller keeps the latest controller state fresh with independent
// periodic requests.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tgdash/internal/controller"
	"tgdash/pkg/model"
)

// Source is the part of the controller API the poller reads.
type Source interface {
	Statistics(ctx context.Context) (*model.Statistics, error)
	TimeStatistics(ctx context.Context, limit int) (*model.TimeStatistics, error)
	TrafficGen(ctx context.Context) (model.TestList, error)
}

type Config struct {
	Statistics     time.Duration
	TimeStatistics time.Duration
	Tests          time.Duration
	TimeLimit      int
}

type Kind int

const (
	EventStatistics Kind = iota
	EventTimeStatistics
	EventTests
	EventError
)

func (k Kind) String() string {
	switch k {
	case EventStatistics:
		return "statistics"
	case EventTimeStatistics:
		return "time_statistics"
	case EventTests:
		return "tests"
	case EventError:
		return "error"
	}
	return "unknown"
}

type Event struct {
	Kind Kind
	At   time.Time
	Err  error
}

// Snapshot is the latest known state. The pointed-to values are never
// modified after they are stored, so readers may keep them.
type Snapshot struct {
	Statistics     *model.Statistics
	TimeStatistics *model.TimeStatistics
	Tests          model.TestList
	Online         bool
	LastError      error
	Updated        time.Time
}

type Poller struct {
	src Source
	cfg Config
	log *zap.Logger

	mu   sync.RWMutex
	snap Snapshot

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func New(src Source, cfg Config, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{src: src, cfg: cfg, log: log, subs: make(map[int]chan Event)}
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Run polls until ctx is done. No poll waits for another.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []struct {
		every time.Duration
		poll  func(context.Context)
	}{
		{p.cfg.Statistics, p.pollStatistics},
		{p.cfg.TimeStatistics, p.pollTimeStatistics},
		{p.cfg.Tests, p.pollTests},
	}
	for _, l := range loops {
		if l.every <= 0 {
			continue
		}
		wg.Add(1)
		go func(every time.Duration, poll func(context.Context)) {
			defer wg.Done()
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				poll(ctx)
				select {
				case <-ctx.Done():
					return
				case <-t.C:
				}
			}
		}(l.every, l.poll)
	}
	wg.Wait()
	p.log.Debug("pollers stopped")
}

// Refresh fetches everything once, in order.
func (p *Poller) Refresh(ctx context.Context) {
	p.pollStatistics(ctx)
	p.pollTimeStatistics(ctx)
	p.pollTests(ctx)
}

func (p *Poller) pollStatistics(ctx context.Context) {
	s, err := p.src.Statistics(ctx)
	p.store(ctx, EventStatistics, err, func(snap *Snapshot) { snap.Statistics = s })
}

func (p *Poller) pollTimeStatistics(ctx context.Context) {
	ts, err := p.src.TimeStatistics(ctx, p.cfg.TimeLimit)
	p.store(ctx, EventTimeStatistics, err, func(snap *Snapshot) { snap.TimeStatistics = ts })
}

func (p *Poller) pollTests(ctx context.Context) {
	tests, err := p.src.TrafficGen(ctx)
	p.store(ctx, EventTests, err, func(snap *Snapshot) { snap.Tests = tests })
}

// store applies a finished request. Results that arrive after ctx is done are dropped.
func (p *Poller) store(ctx context.Context, kind Kind, err error, apply func(*Snapshot)) {
	if ctx.Err() != nil {
		return
	}
	now := time.Now()
	p.mu.Lock()
	if err != nil {
		p.snap.LastError = err
		if controller.IsUnreachable(err) {
			p.snap.Online = false
		}
	} else {
		apply(&p.snap)
		p.snap.Online = true
		p.snap.LastError = nil
		p.snap.Updated = now
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Debug("poll failed", zap.Stringer("kind", kind), zap.Error(err))
		p.publish(Event{Kind: EventError, At: now, Err: err})
		return
	}
	p.publish(Event{Kind: kind, At: now})
}

// Subscribe returns a channel of update events. Events are dropped while the
// channel is full. cancel closes the channel.
func (p *Poller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
			close(ch)
		})
	}
}

func (p *Poller) publish(e Event) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
