package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/localstore"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

func seed(t *testing.T, store *localstore.MemoryStore, key, raw string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), key, []byte(raw)))
}

func storedSnapshot(t *testing.T, store *localstore.MemoryStore) inventory.Decoded {
	t.Helper()
	raw, err := store.Get(context.Background(), localstore.KeySnapshot)
	require.NoError(t, err)
	decoded, err := inventory.Decode(raw)
	require.NoError(t, err)
	return decoded
}

func TestInitializeEmptyStore(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))

	state := f.engine.State()
	require.Equal(t, inventory.SchemaVersion, state.SchemaVersion)
	require.Equal(t, inventory.DefaultDrawerID, state.DefaultDrawer.ID)
	require.Empty(t, state.Containers)
	require.Equal(t, DisplayDate, f.engine.DisplayMode())
	require.True(t, strings.HasPrefix(f.engine.DeviceID(), "device_"))
}

func TestInitializeKeepsDeviceID(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeyDeviceID, `"device_fixed"`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))
	require.Equal(t, "device_fixed", f.engine.DeviceID())
}

func TestInitializeMigratesLegacyCurrentKey(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeySnapshot, `{"drawers":{
		"1":[{"id":"x","name":"Ärtor","addedDate":"2024-01-02T10:00:00.000Z","quantity":1}],
		"3":[{"id":"y","name":"Lax","addedDate":"2024-01-03T10:00:00.000Z","quantity":2}]
	},"shoppingList":[{"id":"s","name":"Mjöl","addedDate":"2024-01-04T10:00:00.000Z","completed":false}]}`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))

	state := f.engine.State()
	require.Equal(t, "Ärtor", state.DefaultDrawer.Items[0].Name)
	frys := state.Containers[inventory.MigratedContainerID]
	require.NotNil(t, frys)
	require.Equal(t, []string{"drawer-003"}, frys.DrawerOrder)
	require.Equal(t, "Fack 2", frys.Drawers["drawer-003"].Name)
	require.Equal(t, 2, frys.Drawers["drawer-003"].Items[0].Quantity)
	require.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), frys.Drawers["drawer-003"].Items[0].AddedDate.UTC())
	require.Len(t, state.ShoppingList, 1)

	require.Eventually(t, func() bool {
		raw, err := store.Get(context.Background(), localstore.KeySnapshot)
		if err != nil {
			return false
		}
		decoded, err := inventory.Decode(raw)
		return err == nil && decoded.Kind == inventory.KindModular
	}, time.Second, 5*time.Millisecond)
}

func TestInitializeFallsBackToOlderKeys(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, "frysen_v3", `{"1":[{"id":"a","name":"Bullar","addedDate":"2023-11-01","quantity":1}],"2":[{"id":"b","name":"Glass","addedDate":"2023-11-02","quantity":1}]}`)
	seed(t, store, "frysen", `{"1":[{"id":"old","name":"Gammalt","quantity":1}]}`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))

	state := f.engine.State()
	require.Equal(t, "Bullar", state.DefaultDrawer.Items[0].Name)
	require.Equal(t, "Fack 1", state.Containers[inventory.MigratedContainerID].Drawers["drawer-002"].Name)

	require.NoError(t, f.engine.Dispose(context.Background()))
	require.Equal(t, inventory.KindModular, storedSnapshot(t, store).Kind)
	_, err := store.Get(context.Background(), "frysen_v3")
	require.NoError(t, err)
}

func TestInitializeAdoptsModularSnapshot(t *testing.T) {
	store := localstore.NewMemoryStore()
	snap := inventory.NewSnapshot()
	c, err := snap.AddContainer(inventory.NewContainer{Title: "Garage"})
	require.NoError(t, err)
	d, err := snap.AddDrawer(c.ID, "Nedre")
	require.NoError(t, err)
	_, err = snap.AddItem(d.ID, "Hjortfärs", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	raw, err := inventory.Encode(snap)
	require.NoError(t, err)
	seed(t, store, localstore.KeySnapshot, string(raw))
	writes := store.Writes()

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))
	require.NoError(t, f.engine.Dispose(context.Background()))

	state := f.engine.State()
	require.Equal(t, "Hjortfärs", state.Containers[c.ID].Drawers[d.ID].Items[0].Name)
	// only the new device id was written
	require.Equal(t, writes+1, store.Writes())
}

func TestInitializeHealsEmptyModularSnapshot(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeySnapshot, `{"schemaVersion":"2.0.0","defaultDrawer":{"id":"default","name":"Köksbänken","items":[]},"containers":{}}`)
	seed(t, store, "frysen_v5", `{"drawers":{"1":[],"2":[{"id":"k","name":"Kyckling","quantity":1}]}}`)
	seed(t, store, "frysen_v2", `{"drawers":{"1":[{"id":"z","name":"Äldre","quantity":1}]}}`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))

	state := f.engine.State()
	require.Empty(t, state.DefaultDrawer.Items)
	require.Equal(t, "Kyckling", state.Containers[inventory.MigratedContainerID].Drawers["drawer-002"].Items[0].Name)

	require.NoError(t, f.engine.Dispose(context.Background()))
	_, err := store.Get(context.Background(), "frysen_v5")
	require.NoError(t, err)
	decoded := storedSnapshot(t, store)
	require.Equal(t, inventory.KindModular, decoded.Kind)
	require.Contains(t, decoded.Modular.Containers, inventory.MigratedContainerID)
}

func TestInitializeKeepsEmptyModularWithoutLegacySource(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeySnapshot, `{"schemaVersion":"2.0.0","defaultDrawer":{"id":"default","name":"Köksbänken","items":[{"id":"m","name":"Mjölk","quantity":1}]},"containers":{}}`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))
	require.Equal(t, "Mjölk", f.engine.State().DefaultDrawer.Items[0].Name)

	require.NoError(t, f.engine.Dispose(context.Background()))
	decoded := storedSnapshot(t, store)
	require.Equal(t, "Mjölk", decoded.Modular.DefaultDrawer.Items[0].Name)
}

func TestInitializeIgnoresGarbage(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeySnapshot, `not json`)
	seed(t, store, "frysen_v4", `[1,2,3]`)

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))
	require.Empty(t, f.engine.State().DefaultDrawer.Items)
}

func TestInitializeLoadsPreferences(t *testing.T) {
	store := localstore.NewMemoryStore()
	seed(t, store, localstore.KeyDateDisplay, `"duration"`)
	seed(t, store, localstore.KeyItemHistory, `["Lax","Sill"]`)
	list, err := json.Marshal([]inventory.ShoppingItem{{ID: "s1", Name: "Bröd"}})
	require.NoError(t, err)
	seed(t, store, localstore.KeyShoppingList, string(list))

	f := newFixture(t, store, nil, nil)
	require.NoError(t, f.engine.Initialize(context.Background()))

	require.Equal(t, DisplayDuration, f.engine.DisplayMode())
	require.Equal(t, []string{"Lax", "Sill"}, f.engine.History())
	require.Equal(t, "Bröd", f.engine.State().ShoppingList[0].Name)
}

func TestInitializePropagatesStorageErrors(t *testing.T) {
	store := localstore.NewMemoryStore()
	store.FailWith(errors.New("io error"))

	f := newFixture(t, store, nil, nil)
	err := f.engine.Initialize(context.Background())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
