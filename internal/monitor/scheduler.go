// Package monitor polls the feed, raises alerts and drives acquisitions.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/dedup"
	"post-sniper/internal/domain"
	"post-sniper/internal/feed"
	"post-sniper/internal/observability"
)

// Acquirer opens positions; *venue.Router implements it.
type Acquirer interface {
	Acquire(ctx context.Context, chain domain.Chain, assetID string) domain.ExecutionResult
}

// PositionSink receives successful acquisitions; *tracker.Tracker implements it.
type PositionSink interface {
	Add(result domain.ExecutionResult, chain domain.Chain, assetID string) (domain.Position, error)
}

// AlertEmitter presents and delivers alerts; *notify.Alerter implements it.
type AlertEmitter interface {
	Emit(ctx context.Context, alert domain.Alert) int
}

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Defaults.
const (
	DefaultInterval   = 10 * time.Second
	DefaultFetchLimit = 10
	DefaultPacing     = 2 * time.Second
)

// Options configures a Scheduler.
type Options struct {
	Feed       feed.Source
	Handle     string
	FetchLimit int
	Interval   time.Duration

	Ledger    dedup.Ledger
	Alerts    AlertEmitter
	Router    Acquirer
	Positions PositionSink

	AutoExecute bool
	Pacing      time.Duration // delay between consecutive router calls

	Logger *logrus.Entry
	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

// Scheduler runs Tick immediately on Start and then every interval.
// Ticks never overlap; Stop lets an in-flight tick finish.
type Scheduler struct {
	feed       feed.Source
	handle     string
	fetchLimit int
	interval   time.Duration

	ledger    dedup.Ledger
	alerts    AlertEmitter
	router    Acquirer
	positions PositionSink

	autoExecute bool
	pacing      time.Duration

	logger *logrus.Entry
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	ticks    int
	lastTick *TickResult
}

// New creates a stopped scheduler.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = DefaultFetchLimit
	}
	if opts.Pacing < 0 {
		opts.Pacing = 0
	}
	if opts.Ledger == nil {
		opts.Ledger = dedup.NewSet()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Scheduler{
		feed:        opts.Feed,
		handle:      opts.Handle,
		fetchLimit:  opts.FetchLimit,
		interval:    opts.Interval,
		ledger:      opts.Ledger,
		alerts:      opts.Alerts,
		router:      opts.Router,
		positions:   opts.Positions,
		autoExecute: opts.AutoExecute,
		pacing:      opts.Pacing,
		logger:      opts.Logger.WithField("component", "monitor"),
		now:         opts.Now,
		sleep:       opts.Sleep,
		state:       StateStopped,
	}
}

// Start begins polling. Calling Start on a running scheduler logs a warning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		s.logger.Warn("scheduler already running")
		return nil
	}
	if s.feed == nil {
		return errors.New("monitor: feed source is required")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	observability.SetSchedulerRunning(true)

	go s.loop(loopCtx, s.done)

	s.logger.WithFields(logrus.Fields{
		"handle":       s.handle,
		"interval":     s.interval,
		"auto_execute": s.autoExecute,
	}).Info("scheduler started")
	return nil
}

// Stop cancels future ticks and waits for an in-flight tick. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		observability.SetSchedulerRunning(false)
		s.logger.Info("scheduler stopped")
		close(done)
	}()

	// Ticks run detached so that Stop never interrupts one midway.
	tickCtx := context.WithoutCancel(ctx)

	s.Tick(tickCtx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Tick(tickCtx)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Scheduler) recordTick(res TickResult) {
	s.mu.Lock()
	s.ticks++
	s.lastTick = &res
	s.mu.Unlock()
	observability.RecordTick("scheduler", res.Duration.Seconds(), res.StartedAt.Unix())
}

// Status is the scheduler view served on /status.
type Status struct {
	State       State       `json:"state"`
	Handle      string      `json:"handle"`
	AutoExecute bool        `json:"auto_execute"`
	Interval    string      `json:"interval"`
	Ticks       int         `json:"ticks"`
	LastTick    *TickResult `json:"last_tick,omitempty"`
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:       s.state,
		Handle:      s.handle,
		AutoExecute: s.autoExecute,
		Interval:    s.interval.String(),
		Ticks:       s.ticks,
	}
	if s.lastTick != nil {
		last := *s.lastTick
		st.LastTick = &last
	}
	return st
}

// PostURL returns the public link of a post.
func PostURL(author, postID string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", author, postID)
}
