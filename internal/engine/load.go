package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/localstore"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

const deviceIDPrefix = "device_"

type auxState struct {
	display  DisplayMode
	history  []string
	shopping []inventory.ShoppingItem
	familyID string
}

// Initialize loads state from the local store, migrating older layouts, and
// starts family sync when a family is configured. Storage read failures are
// returned; unreadable snapshots fall back to an empty inventory.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}

	deviceID, err := e.loadDeviceID(ctx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	snap, migrated, err := e.loadSnapshot(ctx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	aux, err := e.loadAux(ctx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if snap.ShoppingList == nil {
		snap.ShoppingList = aux.shopping
	}

	e.snap = snap
	e.display = aux.display
	e.history = aux.history
	e.deviceID = deviceID
	e.familyID = aux.familyID
	e.lastModified = inventory.ParseDateString(snap.LastUpdated)
	e.initialized = true
	e.revision++
	rev := e.revision
	familyID := e.familyID

	if migrated {
		e.persistMigrated(rev, snap.Clone())
	}
	e.mu.Unlock()

	logCtx := e.logg.WithDeviceID(ctx, deviceID)
	e.logg.Info(logCtx, "inventory loaded")
	e.notify(Change{Source: SourceLoad, Revision: rev})

	if familyID != "" && e.gateway != nil {
		e.startFamilySync(ctx, familyID, false)
	}
	return nil
}

// persistMigrated writes a freshly migrated snapshot back in the background
// so the next start skips migration. A mutation that lands first has already
// persisted newer state, in which case nothing is written.
func (e *Engine) persistMigrated(rev uint64, snap inventory.Snapshot) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.revision != rev {
			return
		}
		if err := e.persistSnapshotLocked(e.baseCtx, snap); err != nil {
			e.logg.Error(e.baseCtx, "persist migrated snapshot failed", err)
			return
		}
		e.logg.Info(e.baseCtx, "migrated snapshot persisted")
	}()
}

func (e *Engine) loadDeviceID(ctx context.Context) (string, error) {
	var id string
	found, err := localstore.GetJSON(ctx, e.store, localstore.KeyDeviceID, &id)
	if err != nil && !found {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read device id")
	}
	if found && err == nil && strings.TrimSpace(id) != "" {
		return id, nil
	}
	id = deviceIDPrefix + uuid.NewString()
	if err := localstore.SetJSON(ctx, e.store, localstore.KeyDeviceID, id); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist device id")
	}
	return id, nil
}

// loadSnapshot finds the newest stored snapshot and normalizes it. migrated
// reports whether the result differs from what the current key holds.
func (e *Engine) loadSnapshot(ctx context.Context) (inventory.Snapshot, bool, error) {
	var fallback *inventory.Snapshot

	raw, err := e.store.Get(ctx, localstore.KeySnapshot)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
	case err != nil:
		return inventory.Snapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read snapshot")
	default:
		decoded, derr := inventory.Decode(raw)
		if derr != nil {
			e.logg.Warn(ctx, "stored snapshot is not valid json, checking older keys")
		}
		switch decoded.Kind {
		case inventory.KindModular:
			if len(decoded.Modular.Containers) > 0 {
				return *decoded.Modular, false, nil
			}
			// An empty modular record usually means an earlier migration
			// never finished; rerun detection against the legacy keys.
			if err := e.store.Delete(ctx, localstore.KeySnapshot); err != nil {
				return inventory.Snapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop empty snapshot")
			}
			fallback = decoded.Modular
		case inventory.KindLegacy:
			return inventory.Migrate(*decoded.Legacy), true, nil
		}
	}

	for _, key := range localstore.LegacySnapshotKeys {
		raw, err := e.store.Get(ctx, key)
		if errors.Is(err, localstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return inventory.Snapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read "+key)
		}
		decoded, derr := inventory.Decode(raw)
		if derr != nil || decoded.Kind == inventory.KindUnrecognized {
			continue
		}
		ctx := e.logg.WithField(ctx, "source_key", key)
		e.logg.Info(ctx, "migrating snapshot from older key")
		return inventory.Normalize(decoded), true, nil
	}

	if fallback != nil {
		return *fallback, true, nil
	}
	return inventory.NewSnapshot(), false, nil
}

func (e *Engine) loadAux(ctx context.Context) (auxState, error) {
	aux := auxState{display: DisplayDate, history: []string{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var mode string
		found, err := localstore.GetJSON(gctx, e.store, localstore.KeyDateDisplay, &mode)
		if err != nil && !found {
			return err
		}
		if found && err == nil {
			aux.display = ParseDisplayMode(mode)
		}
		return nil
	})
	g.Go(func() error {
		var history []string
		found, err := localstore.GetJSON(gctx, e.store, localstore.KeyItemHistory, &history)
		if err != nil && !found {
			return err
		}
		if found && err == nil && history != nil {
			aux.history = history
		}
		return nil
	})
	g.Go(func() error {
		var list []inventory.ShoppingItem
		found, err := localstore.GetJSON(gctx, e.store, localstore.KeyShoppingList, &list)
		if err != nil && !found {
			return err
		}
		if found && err == nil {
			aux.shopping = list
		}
		return nil
	})
	g.Go(func() error {
		var familyID string
		found, err := localstore.GetJSON(gctx, e.store, localstore.KeyFamilyID, &familyID)
		if err != nil && !found {
			return err
		}
		if found && err == nil {
			aux.familyID = strings.TrimSpace(familyID)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return auxState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read preferences")
	}
	return aux, nil
}
