package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/localstore"
	"github.com/thejonthinator/frysen/internal/remote"
	"github.com/thejonthinator/frysen/internal/syncer"
	"github.com/thejonthinator/frysen/internal/updates"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
	"github.com/thejonthinator/frysen/pkg/metrics"
)

// errUnchanged lets a mutation report that it left the snapshot as it was.
var errUnchanged = errors.New("engine: nothing changed")

// UpdateChecker reports whether a newer release exists.
type UpdateChecker interface {
	Check(ctx context.Context) (updates.Result, error)
}

// Params wires an Engine. Gateway and Updates are optional; without a gateway
// the engine runs local-only.
type Params struct {
	Store        localstore.Store
	Gateway      remote.Gateway
	Updates      UpdateChecker
	Logger       *logger.Logger
	Metrics      *metrics.SyncMetrics
	Debounce     time.Duration
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Engine owns the canonical inventory state. Every entry point takes mu, so
// UI calls, timer callbacks and remote events are applied one at a time in
// arrival order.
type Engine struct {
	store     localstore.Store
	gateway   remote.Gateway
	checker   UpdateChecker
	logg      *logger.Logger
	metrics   *metrics.SyncMetrics
	scheduler *syncer.Scheduler
	now       func() time.Time

	mu           sync.Mutex
	initialized  bool
	snap         inventory.Snapshot
	display      DisplayMode
	history      []string
	deviceID     string
	familyID     string
	revision     uint64
	lastModified time.Time
	lastRemote   time.Time
	sub          remote.Subscription
	update       updates.Result

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	baseCtx context.Context
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// New constructs an engine; call Initialize before using it.
func New(params Params) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("local store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:     params.Store,
		gateway:   params.Gateway,
		checker:   params.Updates,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
		snap:      inventory.NewSnapshot(),
		display:   DisplayDate,
		listeners: map[int]Listener{},
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
	scheduler, err := syncer.New(syncer.Params{
		Gateway:      params.Gateway,
		Source:       e.upload,
		Logger:       params.Logger,
		Metrics:      params.Metrics,
		Debounce:     params.Debounce,
		WriteTimeout: params.WriteTimeout,
		Now:          now,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	e.scheduler = scheduler
	return e, nil
}

// Dispose flushes any pending sync, closes the realtime subscription and
// waits for background work.
func (e *Engine) Dispose(ctx context.Context) error {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.initialized = false
	e.mu.Unlock()

	var err error
	if sub != nil {
		err = multierr.Append(err, sub.Close())
	}
	err = multierr.Append(err, e.scheduler.Close(ctx))
	e.bg.Wait()
	e.cancel()
	return err
}

// State returns a copy of the current snapshot.
func (e *Engine) State() inventory.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// Revision increases with every change to the inventory, local or remote.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// DeviceID is this installation's stable identifier.
func (e *Engine) DeviceID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceID
}

func (e *Engine) requireInitialized() error {
	if !e.initialized {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "engine is not initialized")
	}
	return nil
}

// mutate applies fn to a copy of the snapshot and, when it succeeds, persists
// the copy, adopts it and schedules an outbound sync. Names passed in
// remember are added to the item-name history.
func (e *Engine) mutate(ctx context.Context, fn func(*inventory.Snapshot) error, remember ...string) error {
	return e.mutateRemembering(ctx, func(s *inventory.Snapshot) ([]string, error) {
		return remember, fn(s)
	})
}

// mutateRemembering is mutate for operations that only learn which names to
// remember while running.
func (e *Engine) mutateRemembering(ctx context.Context, fn func(*inventory.Snapshot) ([]string, error)) error {
	e.mu.Lock()
	if err := e.requireInitialized(); err != nil {
		e.mu.Unlock()
		return err
	}

	next := e.snap.Clone()
	remember, err := fn(&next)
	if err != nil {
		e.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	now := e.now()
	next.LastUpdated = inventory.FormatDate(now)

	if err := e.persistSnapshotLocked(ctx, next); err != nil {
		e.mu.Unlock()
		return err
	}
	if len(remember) > 0 {
		history := inventory.RememberNames(e.history, remember...)
		if err := localstore.SetJSON(ctx, e.store, localstore.KeyItemHistory, history); err != nil {
			e.logg.Warn(ctx, "persist item history failed: "+err.Error())
		} else {
			e.history = history
		}
	}

	e.snap = next
	e.revision++
	e.lastModified = now
	e.scheduleLocked()
	change := Change{Source: SourceLocal, Revision: e.revision}
	e.mu.Unlock()

	e.notify(change)
	return nil
}

// persistSnapshotLocked writes the snapshot and the standalone shopping list
// key older releases read.
func (e *Engine) persistSnapshotLocked(ctx context.Context, snap inventory.Snapshot) error {
	raw, err := inventory.Encode(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot")
	}
	if err := e.store.Set(ctx, localstore.KeySnapshot, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist snapshot")
	}
	list := snap.ShoppingList
	if list == nil {
		list = []inventory.ShoppingItem{}
	}
	if err := localstore.SetJSON(ctx, e.store, localstore.KeyShoppingList, list); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist shopping list")
	}
	return nil
}

// scheduleLocked marks the snapshot for upload. The scheduler reads the state
// through upload when the write runs.
func (e *Engine) scheduleLocked() {
	if err := e.scheduler.Schedule(); err != nil && !errors.Is(err, syncer.ErrClosed) {
		e.logg.Warn(e.baseCtx, "schedule sync failed: "+err.Error())
	}
}

// upload is the scheduler's view of the canonical state. It is called without
// the scheduler's lock held, so taking mu here cannot deadlock.
func (e *Engine) upload() (syncer.Pending, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.familyID == "" {
		return syncer.Pending{}, false
	}
	return syncer.Pending{
		FamilyID: e.familyID,
		DeviceID: e.deviceID,
		Data:     e.snap.Clone(),
	}, true
}
