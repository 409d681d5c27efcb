package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thejonthinator/frysen/internal/localstore"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// SyncStatus summarizes the family sync state for display.
type SyncStatus struct {
	Configured     bool      `json:"configured"`
	FamilyID       string    `json:"familyId,omitempty"`
	DeviceID       string    `json:"deviceId"`
	LastSync       time.Time `json:"lastSync"`
	LastRemote     time.Time `json:"lastRemote"`
	Syncing        bool      `json:"syncing"`
	Pending        bool      `json:"pending"`
	RealtimeActive bool      `json:"realtimeActive"`
}

func (e *Engine) SyncStatus() SyncStatus {
	e.mu.Lock()
	status := SyncStatus{
		Configured:     e.gateway != nil,
		FamilyID:       e.familyID,
		DeviceID:       e.deviceID,
		LastRemote:     e.lastRemote,
		RealtimeActive: e.sub != nil,
	}
	e.mu.Unlock()

	status.LastSync = e.scheduler.LastSuccess()
	status.Syncing = e.scheduler.InFlight()
	status.Pending = e.scheduler.HasPending()
	return status
}

// FamilyID returns the configured family, or "" when running local-only.
func (e *Engine) FamilyID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.familyID
}

// CreateFamily registers a new family, joins it and uploads the local
// inventory as its first snapshot.
func (e *Engine) CreateFamily(ctx context.Context, name string) (string, error) {
	deviceID, err := e.familyPreconditions()
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "family name is required")
	}

	familyID, err := e.gateway.CreateFamily(ctx, name, deviceID)
	if err != nil {
		return "", asCoded(err, "create family")
	}
	ctx = e.logg.WithFamilyID(ctx, familyID)
	if err := e.setFamily(ctx, familyID); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.scheduleLocked()
	e.mu.Unlock()
	if err := e.scheduler.Flush(ctx); err != nil {
		e.logg.Warn(ctx, "initial family upload failed: "+err.Error())
	}
	e.startFamilySync(ctx, familyID, false)
	e.logg.Info(ctx, "family created")
	return familyID, nil
}

// JoinFamily switches to an existing family and replaces the local inventory
// with the family's snapshot.
func (e *Engine) JoinFamily(ctx context.Context, familyID string) error {
	if _, err := e.familyPreconditions(); err != nil {
		return err
	}
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	if err := e.gateway.JoinFamily(ctx, familyID); err != nil {
		return asCoded(err, "join family")
	}

	ctx = e.logg.WithFamilyID(ctx, familyID)
	e.scheduler.Cancel()
	e.closeSubscription()
	if err := e.setFamily(ctx, familyID); err != nil {
		return err
	}
	e.startFamilySync(ctx, familyID, true)
	e.logg.Info(ctx, "family joined")
	return nil
}

// LeaveFamily stops syncing and forgets the family; local data stays.
func (e *Engine) LeaveFamily(ctx context.Context) error {
	e.mu.Lock()
	if err := e.requireInitialized(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.familyID == "" {
		e.mu.Unlock()
		return nil
	}
	if err := e.store.Delete(ctx, localstore.KeyFamilyID); err != nil && !errors.Is(err, localstore.ErrNotFound) {
		e.mu.Unlock()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forget family id")
	}
	ctx = e.logg.WithFamilyID(ctx, e.familyID)
	e.familyID = ""
	change := Change{Source: SourceFamily, Revision: e.revision}
	e.mu.Unlock()

	e.scheduler.Cancel()
	e.closeSubscription()
	e.logg.Info(ctx, "family left")
	e.notify(change)
	return nil
}

// SyncNow uploads the current snapshot without waiting for the debounce.
func (e *Engine) SyncNow(ctx context.Context) error {
	e.mu.Lock()
	if err := e.requireInitialized(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.gateway == nil || e.familyID == "" {
		e.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeUnavailable, "no family configured")
	}
	e.scheduleLocked()
	e.mu.Unlock()
	return e.scheduler.Flush(ctx)
}

func (e *Engine) familyPreconditions() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return "", err
	}
	if e.gateway == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnavailable, "family sync is not configured")
	}
	return e.deviceID, nil
}

func (e *Engine) setFamily(ctx context.Context, familyID string) error {
	e.mu.Lock()
	if err := localstore.SetJSON(ctx, e.store, localstore.KeyFamilyID, familyID); err != nil {
		e.mu.Unlock()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist family id")
	}
	e.familyID = familyID
	change := Change{Source: SourceFamily, Revision: e.revision}
	e.mu.Unlock()

	e.notify(change)
	return nil
}

// startFamilySync subscribes to the family channel and pulls the current row.
// A forced pull replaces local data even when this device wrote the row.
// Failures leave the engine running local-only.
func (e *Engine) startFamilySync(ctx context.Context, familyID string, force bool) {
	ctx = e.logg.WithFamilyID(ctx, familyID)

	sub, err := e.gateway.Subscribe(e.baseCtx, familyID, e.onRemote)
	if err != nil {
		e.logg.Warn(ctx, "realtime subscription failed, continuing local-only: "+err.Error())
	} else {
		e.mu.Lock()
		if !e.initialized || e.familyID != familyID {
			e.mu.Unlock()
			_ = sub.Close()
			return
		}
		previous := e.sub
		e.sub = sub
		e.mu.Unlock()
		if previous != nil {
			_ = previous.Close()
		}
	}

	row, err := e.gateway.ReadSnapshot(ctx, familyID)
	if err != nil {
		e.logg.Warn(ctx, "family snapshot read failed: "+err.Error())
		return
	}
	if row == nil {
		return
	}
	outcome, _ := e.applyRemote(ctx, *row, force)
	if outcome == OutcomeApplied {
		return
	}

	// Edits made while the family was unreachable are newer than the row.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.familyID == familyID && e.lastModified.After(row.LastUpdated) {
		e.logg.Info(ctx, "local snapshot is newer than the family row, uploading")
		e.scheduleLocked()
	}
}

func (e *Engine) closeSubscription() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
}

// asCoded keeps coded gateway errors as they are and marks the rest as
// dependency failures.
func asCoded(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
