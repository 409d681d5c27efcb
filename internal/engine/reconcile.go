package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/remote"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/metrics"
)

// Outcome is what happened to one inbound remote snapshot.
type Outcome string

const (
	OutcomeApplied   Outcome = metrics.EventApplied
	OutcomeEcho      Outcome = metrics.EventEcho
	OutcomeStale     Outcome = metrics.EventStale
	OutcomeInvalid   Outcome = metrics.EventInvalid
	OutcomeUnchanged Outcome = metrics.EventUnchanged
)

// ApplyRemote merges a snapshot pushed by the family channel. Own writes
// coming back are dropped, as are snapshots older than the last local edit.
// Applied state is persisted locally and replaces any upload still waiting.
func (e *Engine) ApplyRemote(ctx context.Context, snap remote.Snapshot) (Outcome, error) {
	return e.applyRemote(ctx, snap, false)
}

// RefetchFromRemote reads the family row and applies it regardless of who
// wrote it or when.
func (e *Engine) RefetchFromRemote(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	if err := e.requireInitialized(); err != nil {
		e.mu.Unlock()
		return "", err
	}
	familyID := e.familyID
	e.mu.Unlock()

	if e.gateway == nil || familyID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnavailable, "no family configured")
	}
	snap, err := e.gateway.ReadSnapshot(ctx, familyID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read family snapshot")
	}
	if snap == nil {
		return OutcomeUnchanged, nil
	}
	return e.applyRemote(ctx, *snap, true)
}

// onRemote is the subscription callback.
func (e *Engine) onRemote(snap remote.Snapshot) {
	_, _ = e.applyRemote(e.baseCtx, snap, false)
}

func (e *Engine) applyRemote(ctx context.Context, snap remote.Snapshot, force bool) (Outcome, error) {
	ctx = e.logg.WithFields(ctx, map[string]any{
		"family_id":        snap.FamilyID,
		"remote_device_id": snap.DeviceID,
	})
	outcome, change, err := e.applyRemoteLocked(ctx, snap, force)
	e.metrics.IncEvent(string(outcome))

	switch outcome {
	case OutcomeInvalid:
		e.logg.Error(ctx, "remote snapshot rejected", err)
	case OutcomeApplied:
		e.logg.Info(ctx, "remote snapshot applied")
	default:
		if err != nil {
			e.logg.Error(ctx, "remote snapshot not applied", err)
			break
		}
		e.logg.Debug(ctx, "remote snapshot ignored: "+string(outcome))
	}
	if change != nil {
		e.notify(*change)
	}
	return outcome, err
}

func (e *Engine) applyRemoteLocked(ctx context.Context, snap remote.Snapshot, force bool) (outcome Outcome, change *Change, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			outcome, change = OutcomeInvalid, nil
			err = pkgerrors.Newf(pkgerrors.CodeInternal, "apply remote snapshot: %v", r)
		}
	}()

	if err := e.requireInitialized(); err != nil {
		return OutcomeUnchanged, nil, err
	}
	if !force {
		if snap.DeviceID != "" && snap.DeviceID == e.deviceID {
			return OutcomeEcho, nil, nil
		}
		if snap.FamilyID != "" && snap.FamilyID != e.familyID {
			return OutcomeStale, nil, nil
		}
		if !snap.LastUpdated.IsZero() && snap.LastUpdated.Before(e.lastModified) {
			return OutcomeStale, nil, nil
		}
	}

	decoded, derr := inventory.Decode(snap.Drawers)
	if derr != nil {
		return OutcomeInvalid, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, derr, "decode remote drawers")
	}

	next := e.snap.Clone()
	switch decoded.Kind {
	case inventory.KindModular:
		next.DefaultDrawer = decoded.Modular.DefaultDrawer
		next.Containers = decoded.Modular.Containers
	case inventory.KindLegacy:
		next.ReplaceDrawers(decoded.Legacy.Drawers)
	}
	if snap.ShoppingList != nil && inventory.ShoppingListsDiffer(next.ShoppingList, snap.ShoppingList) {
		next.ShoppingList = append([]inventory.ShoppingItem{}, snap.ShoppingList...)
	}

	same, err := sameContent(e.snap, next)
	if err != nil {
		return OutcomeInvalid, nil, err
	}
	if same && !force {
		return OutcomeUnchanged, nil, nil
	}

	if !snap.LastUpdated.IsZero() {
		next.LastUpdated = inventory.FormatDate(snap.LastUpdated)
	}
	if err := e.persistSnapshotLocked(ctx, next); err != nil {
		return OutcomeUnchanged, nil, err
	}
	e.snap = next
	e.revision++
	e.lastRemote = e.now()
	if snap.LastUpdated.After(e.lastModified) {
		e.lastModified = snap.LastUpdated
	}
	// The canonical state now matches the family row. A write that already
	// read the older state has to be followed by one carrying this state;
	// a write still waiting for its timer has nothing left to say.
	if e.scheduler.InFlight() {
		e.scheduleLocked()
	} else {
		e.scheduler.Cancel()
	}
	return OutcomeApplied, &Change{Source: SourceRemote, Revision: e.revision}, nil
}

// sameContent compares two snapshots ignoring their lastUpdated stamps.
func sameContent(a, b inventory.Snapshot) (bool, error) {
	a.LastUpdated, b.LastUpdated = "", ""
	left, err := inventory.Encode(a)
	if err != nil {
		return false, fmt.Errorf("encode current snapshot: %w", err)
	}
	right, err := inventory.Encode(b)
	if err != nil {
		return false, fmt.Errorf("encode remote snapshot: %w", err)
	}
	return bytes.Equal(left, right), nil
}
