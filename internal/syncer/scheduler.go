package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/remote"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
	"github.com/thejonthinator/frysen/pkg/metrics"
)

const (
	defaultDebounce     = 2 * time.Second
	defaultWriteTimeout = 15 * time.Second
)

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("syncer: scheduler closed")

// Pending is what one write uploads.
type Pending struct {
	FamilyID string
	DeviceID string
	Data     inventory.Snapshot
}

// Source returns the state to upload at the moment a write runs. ok is false
// when there is nothing to write.
type Source func() (p Pending, ok bool)

// Params configures a Scheduler.
type Params struct {
	Gateway      remote.Gateway
	Source       Source
	Logger       *logger.Logger
	Metrics      *metrics.SyncMetrics
	Debounce     time.Duration
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Scheduler coalesces bursts of local changes into one remote write. Each
// Schedule marks the cell dirty and restarts the quiet-period timer; the
// write reads the state from Source when it runs, so it never uploads a
// snapshot that was replaced in the meantime.
type Scheduler struct {
	gateway      remote.Gateway
	source       Source
	logg         *logger.Logger
	metrics      *metrics.SyncMetrics
	debounce     time.Duration
	writeTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	dirty       bool
	timer       *time.Timer
	generation  uint64
	closed      bool
	lastSuccess time.Time

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

func New(params Params) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Source == nil {
		return nil, errors.New("source required")
	}
	debounce := params.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	writeTimeout := params.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		gateway:      params.Gateway,
		source:       params.Source,
		logg:         params.Logger,
		metrics:      params.Metrics,
		debounce:     debounce,
		writeTimeout: writeTimeout,
		now:          now,
	}, nil
}

// Schedule marks the cell dirty and rearms the timer.
func (s *Scheduler) Schedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
	s.metrics.IncScheduled()
	return nil
}

// fire runs on the timer goroutine; a timer that lost a race with a newer
// Schedule sees a stale generation and leaves the cell alone.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	if !s.take() {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	_ = s.write(context.Background())
}

// take clears the dirty mark and reports whether it was set; callers hold mu.
func (s *Scheduler) take() bool {
	dirty := s.dirty
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return dirty
}

// Flush writes now instead of waiting for the timer. Nothing is written
// unless a change was scheduled.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.take() {
		s.mu.Unlock()
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	return s.write(ctx)
}

// Cancel drops the pending write, if any. Source is not consulted.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.take()
}

// Close flushes what is pending, refuses further work and waits for writes in
// progress.
func (s *Scheduler) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.take()
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// HasPending reports whether a write is waiting for its timer.
func (s *Scheduler) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// InFlight reports whether a write is running.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// LastSuccess is the time of the last successful write.
func (s *Scheduler) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// write must not be called with mu held: Source takes the owner's lock.
func (s *Scheduler) write(ctx context.Context) error {
	if s.gateway == nil {
		s.metrics.ObserveWrite(metrics.WriteSkipped, 0)
		return nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.ObserveWrite(metrics.WriteDropped, 0)
		s.logg.Debug(ctx, "sync already in flight, dropping write")
		return nil
	}
	defer s.inFlight.Store(false)

	p, ok := s.source()
	if !ok || p.FamilyID == "" {
		s.metrics.ObserveWrite(metrics.WriteSkipped, 0)
		return nil
	}
	ctx = s.logg.WithFamilyID(ctx, p.FamilyID)

	drawers, err := inventory.Encode(p.Data)
	if err != nil {
		s.metrics.ObserveWrite(metrics.WriteFailure, 0)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot")
	}
	stamped := inventory.ParseDateString(p.Data.LastUpdated)
	if stamped.IsZero() {
		stamped = s.now()
	}
	stamped = stamped.UTC()
	snap := remote.Snapshot{
		FamilyID:     p.FamilyID,
		Drawers:      drawers,
		ShoppingList: p.Data.ShoppingList,
		LastUpdated:  stamped,
		Version:      inventory.DataVersion,
		DeviceID:     p.DeviceID,
	}
	if snap.ShoppingList == nil {
		snap.ShoppingList = []inventory.ShoppingItem{}
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	start := time.Now()
	if err := s.gateway.WriteSnapshot(writeCtx, p.FamilyID, snap); err != nil {
		s.metrics.ObserveWrite(metrics.WriteFailure, time.Since(start))
		s.logg.Error(ctx, "family sync write failed", err)
		return err
	}
	s.metrics.ObserveWrite(metrics.WriteSuccess, time.Since(start))

	s.mu.Lock()
	s.lastSuccess = s.now()
	s.mu.Unlock()
	s.logg.Debug(ctx, "family snapshot synced")
	return nil
}
