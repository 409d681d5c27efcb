package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/thejonthinator/frysen/internal/inventory"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

const completeLegacy = `{
	"1":[{"id":"a","name":"Ärtor","addedDate":"2024-01-01","quantity":1}],
	"2":[],"3":[],"4":[],"5":[],"6":[],"7":[],
	"8":[{"id":"b","name":"Pizza","addedDate":"2024-01-02","quantity":3}]
}`

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := initialized(t, nil)
	c, err := src.engine.AddContainer(ctx, inventory.NewContainer{Title: "Källare"})
	require.NoError(t, err)
	d, err := src.engine.AddDrawer(ctx, c.ID, "Hylla")
	require.NoError(t, err)
	_, err = src.engine.AddItem(ctx, d.ID, "Lingonsylt")
	require.NoError(t, err)
	_, err = src.engine.AddShoppingItem(ctx, "Socker")
	require.NoError(t, err)

	raw, err := src.engine.ExportAs(FormatJSON)
	require.NoError(t, err)

	dst := initialized(t, nil)
	require.NoError(t, dst.engine.Import(ctx, raw))

	state := dst.engine.State()
	require.Equal(t, "Lingonsylt", state.Containers[c.ID].Drawers[d.ID].Items[0].Name)
	require.Equal(t, []string{d.ID}, state.Containers[c.ID].DrawerOrder)
	require.Equal(t, "Socker", state.ShoppingList[0].Name)
}

func TestImportLegacyNeedsEveryDrawer(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)

	err := f.engine.Import(ctx, []byte(`{"1":[],"2":[]}`))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	require.NoError(t, f.engine.Import(ctx, []byte(completeLegacy)))
	state := f.engine.State()
	require.Equal(t, "Ärtor", state.DefaultDrawer.Items[0].Name)
	frys := state.Containers[inventory.MigratedContainerID]
	require.Equal(t, []string{"drawer-008"}, frys.DrawerOrder)
	require.Equal(t, "Låda 7", frys.Drawers["drawer-008"].Name)
	require.Equal(t, 3, frys.Drawers["drawer-008"].Items[0].Quantity)
}

func TestImportRejectsUnknownInput(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)

	err := f.engine.Import(ctx, []byte(`{"hello":"world"}`))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	err = f.engine.Import(ctx, []byte(`{{`))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestExportYAML(t *testing.T) {
	ctx := context.Background()
	f := initialized(t, nil)
	_, err := f.engine.AddItem(ctx, inventory.DefaultDrawerID, "Kanelbullar")
	require.NoError(t, err)

	out, err := f.engine.ExportAs(FormatYAML)
	require.NoError(t, err)

	var doc struct {
		SchemaVersion string `yaml:"schemaVersion"`
		DefaultDrawer struct {
			Items []struct {
				Name string `yaml:"name"`
			} `yaml:"items"`
		} `yaml:"defaultDrawer"`
	}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.Equal(t, inventory.SchemaVersion, doc.SchemaVersion)
	require.Equal(t, "Kanelbullar", doc.DefaultDrawer.Items[0].Name)

	_, err = f.engine.ExportAs("xml")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
