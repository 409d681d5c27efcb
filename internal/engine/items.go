package engine

import (
	"context"

	"github.com/thejonthinator/frysen/internal/inventory"
)

func (e *Engine) AddItem(ctx context.Context, drawerID, name string) (inventory.Item, error) {
	var added inventory.Item
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		added, err = s.AddItem(drawerID, name, e.now())
		return err
	}, name)
	return added, err
}

// AddItems adds one item per non-blank name to the drawer.
func (e *Engine) AddItems(ctx context.Context, drawerID string, names []string) ([]inventory.Item, error) {
	var added []inventory.Item
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		added, err = s.AddItems(drawerID, names, e.now())
		return err
	}, names...)
	return added, err
}

func (e *Engine) EditItem(ctx context.Context, drawerID string, idx int, update inventory.ItemUpdate) (inventory.Item, error) {
	var edited inventory.Item
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		edited, err = s.EditItem(drawerID, idx, update)
		return err
	})
	return edited, err
}

func (e *Engine) RemoveItem(ctx context.Context, drawerID string, idx int) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		_, err := s.RemoveItem(drawerID, idx)
		return err
	})
}

func (e *Engine) IncreaseQuantity(ctx context.Context, drawerID string, idx int) (inventory.Item, error) {
	return e.adjustQuantity(ctx, drawerID, idx, 1)
}

// DecreaseQuantity lowers the quantity by one; it never goes below 1.
func (e *Engine) DecreaseQuantity(ctx context.Context, drawerID string, idx int) (inventory.Item, error) {
	return e.adjustQuantity(ctx, drawerID, idx, -1)
}

func (e *Engine) adjustQuantity(ctx context.Context, drawerID string, idx, delta int) (inventory.Item, error) {
	var item inventory.Item
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		before, err := s.Items(drawerID)
		if err != nil {
			return err
		}
		unchanged := idx >= 0 && idx < len(before) && before[idx].Quantity+delta < 1
		item, err = s.AdjustQuantity(drawerID, idx, delta)
		if err == nil && unchanged {
			return errUnchanged
		}
		return err
	})
	return item, err
}

// DeleteAndMoveToShoppingList removes the item and adds its name to the
// shopping list and the name history.
func (e *Engine) DeleteAndMoveToShoppingList(ctx context.Context, drawerID string, idx int) (inventory.ShoppingItem, error) {
	var entry inventory.ShoppingItem
	err := e.mutateRemembering(ctx, func(s *inventory.Snapshot) ([]string, error) {
		var err error
		entry, err = s.MoveToShoppingList(drawerID, idx, e.now())
		if err != nil {
			return nil, err
		}
		return []string{entry.Name}, nil
	})
	return entry, err
}

// MoveItem moves an item between drawers; toIdx < 0 appends. Moving within
// the same drawer is a no-op.
func (e *Engine) MoveItem(ctx context.Context, fromDrawerID string, fromIdx int, toDrawerID string, toIdx int) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		moved, err := s.MoveItem(fromDrawerID, fromIdx, toDrawerID, toIdx)
		if err != nil {
			return err
		}
		if !moved {
			return errUnchanged
		}
		return nil
	})
}

// ReplaceAll overwrites the inventory from a numbered drawer map.
func (e *Engine) ReplaceAll(ctx context.Context, drawers inventory.DrawerMap) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		s.ReplaceDrawers(drawers)
		return nil
	})
}
