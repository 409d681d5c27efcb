package engine

import (
	"context"

	"github.com/thejonthinator/frysen/internal/inventory"
)

func (e *Engine) AddShoppingItem(ctx context.Context, name string) (inventory.ShoppingItem, error) {
	var entry inventory.ShoppingItem
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		entry, err = s.AddShoppingItem(name, e.now())
		return err
	}, name)
	return entry, err
}

func (e *Engine) ToggleShoppingItem(ctx context.Context, id string) (inventory.ShoppingItem, error) {
	var entry inventory.ShoppingItem
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		entry, err = s.ToggleShoppingItem(id)
		return err
	})
	return entry, err
}

func (e *Engine) EditShoppingItem(ctx context.Context, id, name string) (inventory.ShoppingItem, error) {
	var entry inventory.ShoppingItem
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		var err error
		entry, err = s.EditShoppingItem(id, name)
		return err
	})
	return entry, err
}

func (e *Engine) RemoveShoppingItem(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		return s.RemoveShoppingItem(id)
	})
}

// ClearCompletedShoppingItems removes every completed entry and returns how
// many went.
func (e *Engine) ClearCompletedShoppingItems(ctx context.Context) (int, error) {
	var removed int
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		removed = s.ClearCompletedShoppingItems()
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	return removed, err
}
