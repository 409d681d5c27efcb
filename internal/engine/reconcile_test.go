package engine

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/remote"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

func remoteWith(t *testing.T, deviceID string, at time.Time, names ...string) remote.Snapshot {
	t.Helper()
	snap := inventory.NewSnapshot()
	for _, name := range names {
		_, err := snap.AddItem(inventory.DefaultDrawerID, name, at)
		require.NoError(t, err)
	}
	raw, err := inventory.Encode(snap)
	require.NoError(t, err)
	return remote.Snapshot{
		Drawers:      raw,
		ShoppingList: []inventory.ShoppingItem{},
		LastUpdated:  at,
		Version:      inventory.DataVersion,
		DeviceID:     deviceID,
	}
}

func TestApplyRemoteDropsOwnEcho(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)
	before := f.engine.State()
	rev := f.engine.Revision()
	writes := f.store.Writes()

	outcome, err := f.engine.ApplyRemote(ctx, remoteWith(t, f.engine.DeviceID(), f.clock.Now(), "Lax"))
	require.NoError(t, err)
	require.Equal(t, OutcomeEcho, outcome)
	require.Equal(t, before, f.engine.State())
	require.Equal(t, rev, f.engine.Revision())
	require.Equal(t, writes, f.store.Writes())
}

func TestApplyRemoteMergesOtherDevice(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)

	var changes []Change
	f.engine.Subscribe(func(c Change) { changes = append(changes, c) })

	snap := remoteWith(t, "device_other", f.clock.Now(), "Lax", "Sill")
	snap.ShoppingList = []inventory.ShoppingItem{{ID: "s1", Name: "Dill"}}
	outcome, err := f.engine.ApplyRemote(ctx, snap)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	state := f.engine.State()
	require.Len(t, state.DefaultDrawer.Items, 2)
	require.Equal(t, "Dill", state.ShoppingList[0].Name)
	require.Equal(t, "Sill", storedSnapshot(t, f.store).Modular.DefaultDrawer.Items[1].Name)
	require.Len(t, changes, 1)
	require.Equal(t, SourceRemote, changes[0].Source)

	outcome, err = f.engine.ApplyRemote(ctx, snap)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, outcome)
}

func TestApplyRemoteIgnoresSnapshotsOlderThanLocalEdit(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)

	older := remoteWith(t, "device_other", f.clock.Now().Add(-time.Minute), "Gammal")
	_, err := f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Ny")
	require.NoError(t, err)

	outcome, err := f.engine.ApplyRemote(ctx, older)
	require.NoError(t, err)
	require.Equal(t, OutcomeStale, outcome)
	require.Equal(t, "Ny", f.engine.State().DefaultDrawer.Items[0].Name)
}

func TestApplyRemoteRejectsMalformedDrawers(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)
	_, err := f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Kvar")
	require.NoError(t, err)

	snap := remote.Snapshot{
		Drawers:     json.RawMessage(`{"broken":`),
		LastUpdated: f.clock.Now().Add(time.Second),
		DeviceID:    "device_other",
	}
	outcome, err := f.engine.ApplyRemote(ctx, snap)
	require.Equal(t, OutcomeInvalid, outcome)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	require.Equal(t, "Kvar", f.engine.State().DefaultDrawer.Items[0].Name)
}

func TestApplyRemoteMigratesLegacyDrawers(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)
	_, err := f.engine.AddShoppingItem(ctx, "Smör")
	require.NoError(t, err)

	snap := remote.Snapshot{
		Drawers:     json.RawMessage(`{"1":[{"id":"a","name":"Ärtor","quantity":1}],"5":[{"id":"b","name":"Fisk","quantity":1}]}`),
		LastUpdated: f.clock.Now().Add(time.Second),
		DeviceID:    "device_other",
	}
	outcome, err := f.engine.ApplyRemote(ctx, snap)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	state := f.engine.State()
	require.Equal(t, "Ärtor", state.DefaultDrawer.Items[0].Name)
	require.Equal(t, "Låda 4", state.Containers[inventory.MigratedContainerID].Drawers["drawer-005"].Name)
	// no shopping list in the payload keeps the local one
	require.Equal(t, "Smör", state.ShoppingList[0].Name)
}

func TestApplyRemoteKeepsInventoryForUnrecognizedDrawers(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)
	_, err := f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Kvar")
	require.NoError(t, err)

	snap := remote.Snapshot{
		Drawers:      json.RawMessage(`{}`),
		ShoppingList: []inventory.ShoppingItem{{ID: "s", Name: "Te"}},
		LastUpdated:  f.clock.Now().Add(time.Second),
		DeviceID:     "device_other",
	}
	outcome, err := f.engine.ApplyRemote(ctx, snap)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	state := f.engine.State()
	require.Equal(t, "Kvar", state.DefaultDrawer.Items[0].Name)
	require.Equal(t, "Te", state.ShoppingList[0].Name)
}

func TestRemoteApplyDoesNotScheduleUpload(t *testing.T) {
	ctx := context.Background()
	gw := remote.NewMemoryGateway()
	f := initialized(t, gw)
	familyID, err := f.engine.CreateFamily(ctx, "Hemma")
	require.NoError(t, err)
	uploads := len(gw.Writes())

	gw.Publish(familyID, remoteWith(t, "device_other", f.clock.Now().Add(time.Second), "Från mobilen"))
	require.Equal(t, "Från mobilen", f.engine.State().DefaultDrawer.Items[0].Name)

	time.Sleep(80 * time.Millisecond)
	require.Len(t, gw.Writes(), uploads)
	require.False(t, f.engine.SyncStatus().Pending)
}

func TestRefetchAppliesOwnRow(t *testing.T) {
	ctx := context.Background()
	gw := remote.NewMemoryGateway()
	f := initialized(t, gw)
	familyID, err := f.engine.CreateFamily(ctx, "Hemma")
	require.NoError(t, err)

	row := remoteWith(t, f.engine.DeviceID(), f.clock.Now().Add(-time.Hour), "Återställd")
	require.NoError(t, gw.WriteSnapshot(ctx, familyID, row))
	gw.WaitDelivered()
	require.Empty(t, f.engine.State().DefaultDrawer.Items)

	outcome, err := f.engine.RefetchFromRemote(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
	require.Equal(t, "Återställd", f.engine.State().DefaultDrawer.Items[0].Name)
}

func TestRefetchWithoutFamily(t *testing.T) {
	f := initialized(t, remote.NewMemoryGateway())
	_, err := f.engine.RefetchFromRemote(context.Background())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnavailable))
}

func itemNames(items []inventory.Item) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

func rowNames(t *testing.T, gw *remote.MemoryGateway, familyID string) []string {
	t.Helper()
	row, err := gw.ReadSnapshot(context.Background(), familyID)
	require.NoError(t, err)
	require.NotNil(t, row)
	decoded, err := inventory.Decode(row.Drawers)
	require.NoError(t, err)
	require.Equal(t, inventory.KindModular, decoded.Kind)
	return itemNames(decoded.Modular.DefaultDrawer.Items)
}

func TestNewerRemoteSnapshotReplacesWaitingUpload(t *testing.T) {
	ctx := context.Background()
	gw := remote.NewMemoryGateway()
	f := initialized(t, gw)
	familyID, err := f.engine.CreateFamily(ctx, "Hemma")
	require.NoError(t, err)
	uploads := len(gw.Writes())

	_, err = f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Lax")
	require.NoError(t, err)
	require.True(t, f.engine.SyncStatus().Pending)

	gw.Publish(familyID, remoteWith(t, "device_other", f.clock.Now().Add(time.Second), "Sill"))
	require.False(t, f.engine.SyncStatus().Pending)

	time.Sleep(80 * time.Millisecond)
	require.Len(t, gw.Writes(), uploads)
	require.Equal(t, []string{"Sill"}, itemNames(f.engine.State().DefaultDrawer.Items))
	require.Equal(t, []string{"Sill"}, rowNames(t, gw, familyID))
}

type gatedGateway struct {
	*remote.MemoryGateway
	closed  atomic.Bool
	started chan struct{}
	release chan struct{}
}

func (g *gatedGateway) WriteSnapshot(ctx context.Context, familyID string, snap remote.Snapshot) error {
	if g.closed.Load() {
		g.started <- struct{}{}
		<-g.release
	}
	return g.MemoryGateway.WriteSnapshot(ctx, familyID, snap)
}

func TestRemoteSnapshotDuringUploadIsWrittenBack(t *testing.T) {
	ctx := context.Background()
	gw := &gatedGateway{
		MemoryGateway: remote.NewMemoryGateway(),
		started:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	f := initialized(t, gw)
	familyID, err := f.engine.CreateFamily(ctx, "Hemma")
	require.NoError(t, err)

	gw.closed.Store(true)
	_, err = f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Lax")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- f.engine.SyncNow(ctx) }()
	<-gw.started

	gw.Publish(familyID, remoteWith(t, "device_other", f.clock.Now().Add(time.Second), "Sill"))
	require.Equal(t, []string{"Sill"}, itemNames(f.engine.State().DefaultDrawer.Items))

	gw.closed.Store(false)
	close(gw.release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		names := rowNames(t, gw.MemoryGateway, familyID)
		return len(names) == 1 && names[0] == "Sill"
	}, 2*time.Second, 5*time.Millisecond)
	gw.WaitDelivered()
	require.Equal(t, []string{"Sill"}, itemNames(f.engine.State().DefaultDrawer.Items))
}
