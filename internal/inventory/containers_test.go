package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

func TestContainerLifecycle(t *testing.T) {
	snap := NewSnapshot()

	first, err := snap.AddContainer(NewContainer{Title: "Frys"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.ID, "container-"))
	require.Equal(t, 0, first.Order)

	second, err := snap.AddContainer(NewContainer{Title: "Kyl"})
	require.NoError(t, err)
	require.Equal(t, 1, second.Order)

	title := "Kylskåp"
	order := -1
	updated, err := snap.UpdateContainer(second.ID, ContainerUpdate{Title: &title, Order: &order})
	require.NoError(t, err)
	require.Equal(t, "Kylskåp", updated.Title)

	sorted := snap.SortedContainers()
	require.Equal(t, second.ID, sorted[0].ID)

	require.NoError(t, snap.DeleteContainer(first.ID))
	require.True(t, pkgerrors.Is(snap.DeleteContainer(first.ID), pkgerrors.CodeNotFound))
}

func TestDrawerOrderStaysAPermutation(t *testing.T) {
	snap := NewSnapshot()
	c, err := snap.AddContainer(NewContainer{Title: "Frys"})
	require.NoError(t, err)

	var drawerIDs []string
	for _, name := range []string{"Översta", "Mitten", "Nedersta"} {
		d, err := snap.AddDrawer(c.ID, name)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(d.ID, "drawer-"))
		drawerIDs = append(drawerIDs, d.ID)
		require.True(t, c.OrderConsistent())
	}
	require.Equal(t, drawerIDs, c.DrawerOrder)

	reversed := []string{drawerIDs[2], drawerIDs[1], drawerIDs[0]}
	require.NoError(t, snap.ReorderDrawers(c.ID, reversed))
	require.Equal(t, reversed, c.DrawerOrder)
	require.Equal(t, "Nedersta", c.OrderedDrawers()[0].Name)

	bad := [][]string{
		{drawerIDs[0], drawerIDs[1]},
		{drawerIDs[0], drawerIDs[0], drawerIDs[1]},
		{drawerIDs[0], drawerIDs[1], "drawer-ghost"},
	}
	for _, order := range bad {
		err := snap.ReorderDrawers(c.ID, order)
		require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "%v", order)
		require.Equal(t, reversed, c.DrawerOrder)
	}

	require.NoError(t, snap.DeleteDrawer(c.ID, drawerIDs[1]))
	require.Equal(t, []string{drawerIDs[2], drawerIDs[0]}, c.DrawerOrder)
	require.True(t, c.OrderConsistent())

	renamed, err := snap.UpdateDrawer(c.ID, drawerIDs[0], "Topp")
	require.NoError(t, err)
	require.Equal(t, "Topp", renamed.Name)
}

func TestDeleteDrawerOnlyWhenEmpty(t *testing.T) {
	snap := NewSnapshot()
	c, err := snap.AddContainer(NewContainer{Title: "Frys"})
	require.NoError(t, err)
	d, err := snap.AddDrawer(c.ID, "Fack")
	require.NoError(t, err)
	_, err = snap.AddItem(d.ID, "Köttbullar", day)
	require.NoError(t, err)

	err = snap.DeleteDrawer(c.ID, d.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	require.Equal(t, []string{d.ID}, c.DrawerOrder)

	err = snap.DeleteContainer(c.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	_, err = snap.RemoveItem(d.ID, 0)
	require.NoError(t, err)
	require.NoError(t, snap.DeleteDrawer(c.ID, d.ID))
	require.Empty(t, c.DrawerOrder)
	require.NoError(t, snap.DeleteContainer(c.ID))
}

func TestShoppingOperations(t *testing.T) {
	snap := NewSnapshot()
	milk, err := snap.AddShoppingItem("Mjölk", day)
	require.NoError(t, err)
	bread, err := snap.AddShoppingItem("Bröd", day)
	require.NoError(t, err)

	toggled, err := snap.ToggleShoppingItem(milk.ID)
	require.NoError(t, err)
	require.True(t, toggled.Completed)

	renamed, err := snap.EditShoppingItem(bread.ID, "Limpa")
	require.NoError(t, err)
	require.Equal(t, "Limpa", renamed.Name)

	require.Equal(t, 1, snap.ClearCompletedShoppingItems())
	require.Len(t, snap.ShoppingList, 1)

	require.NoError(t, snap.RemoveShoppingItem(bread.ID))
	require.Empty(t, snap.ShoppingList)
	require.True(t, pkgerrors.Is(snap.RemoveShoppingItem(bread.ID), pkgerrors.CodeNotFound))
}

func TestShoppingListsDiffer(t *testing.T) {
	a := []ShoppingItem{{ID: "1", Name: "Mjölk"}, {ID: "2", Name: "Bröd", Completed: true}}
	same := []ShoppingItem{{ID: "1", Name: "Mjölk", AddedDate: day}, {ID: "2", Name: "Bröd", Completed: true}}
	require.False(t, ShoppingListsDiffer(a, same))
	require.True(t, ShoppingListsDiffer(a, a[:1]))
	require.True(t, ShoppingListsDiffer(a, []ShoppingItem{a[1], a[0]}))
	require.True(t, ShoppingListsDiffer(a, []ShoppingItem{a[0], {ID: "2", Name: "Bröd"}}))
}
