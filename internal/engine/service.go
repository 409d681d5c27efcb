package engine

import (
	"context"
	"time"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/updates"
)

// Service is the surface the HTTP layer and CLI drive.
type Service interface {
	State() inventory.Snapshot
	Revision() uint64
	Subscribe(l Listener) func()

	AddItem(ctx context.Context, drawerID, name string) (inventory.Item, error)
	AddItems(ctx context.Context, drawerID string, names []string) ([]inventory.Item, error)
	EditItem(ctx context.Context, drawerID string, idx int, update inventory.ItemUpdate) (inventory.Item, error)
	RemoveItem(ctx context.Context, drawerID string, idx int) error
	IncreaseQuantity(ctx context.Context, drawerID string, idx int) (inventory.Item, error)
	DecreaseQuantity(ctx context.Context, drawerID string, idx int) (inventory.Item, error)
	DeleteAndMoveToShoppingList(ctx context.Context, drawerID string, idx int) (inventory.ShoppingItem, error)
	MoveItem(ctx context.Context, fromDrawerID string, fromIdx int, toDrawerID string, toIdx int) error
	ReplaceAll(ctx context.Context, drawers inventory.DrawerMap) error

	AddShoppingItem(ctx context.Context, name string) (inventory.ShoppingItem, error)
	ToggleShoppingItem(ctx context.Context, id string) (inventory.ShoppingItem, error)
	EditShoppingItem(ctx context.Context, id, name string) (inventory.ShoppingItem, error)
	RemoveShoppingItem(ctx context.Context, id string) error
	ClearCompletedShoppingItems(ctx context.Context) (int, error)

	AddContainer(ctx context.Context, in inventory.NewContainer) (inventory.Container, error)
	UpdateContainer(ctx context.Context, id string, update inventory.ContainerUpdate) (inventory.Container, error)
	DeleteContainer(ctx context.Context, id string) error
	AddDrawer(ctx context.Context, containerID, name string) (inventory.ContainerDrawer, error)
	UpdateDrawer(ctx context.Context, containerID, drawerID, name string) (inventory.ContainerDrawer, error)
	DeleteDrawer(ctx context.Context, containerID, drawerID string) error
	ReorderDrawers(ctx context.Context, containerID string, order []string) error

	DisplayMode() DisplayMode
	ToggleDateDisplay(ctx context.Context) (DisplayMode, error)
	Suggestions(query string) []string
	DurationText(t time.Time) string

	SyncStatus() SyncStatus
	CreateFamily(ctx context.Context, name string) (string, error)
	JoinFamily(ctx context.Context, familyID string) error
	LeaveFamily(ctx context.Context) error
	SyncNow(ctx context.Context) error
	RefetchFromRemote(ctx context.Context) (Outcome, error)

	CheckForUpdates(ctx context.Context) (updates.Result, error)
	UpdateStatus() updates.Result

	ExportAs(format string) ([]byte, error)
	Import(ctx context.Context, raw []byte) error
}

var _ Service = (*Engine)(nil)
