package engine

import (
	"context"

	"github.com/thejonthinator/frysen/internal/inventory"
)

func (e *Engine) AddContainer(ctx context.Context, in inventory.NewContainer) (inventory.Container, error) {
	var out inventory.Container
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		c, err := s.AddContainer(in)
		if err != nil {
			return err
		}
		out = *c.Clone()
		return nil
	})
	return out, err
}

func (e *Engine) UpdateContainer(ctx context.Context, id string, update inventory.ContainerUpdate) (inventory.Container, error) {
	var out inventory.Container
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		c, err := s.UpdateContainer(id, update)
		if err != nil {
			return err
		}
		out = *c.Clone()
		return nil
	})
	return out, err
}

// DeleteContainer fails with CONFLICT while the container still has drawers.
func (e *Engine) DeleteContainer(ctx context.Context, id string) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		return s.DeleteContainer(id)
	})
}

func (e *Engine) AddDrawer(ctx context.Context, containerID, name string) (inventory.ContainerDrawer, error) {
	var out inventory.ContainerDrawer
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		d, err := s.AddDrawer(containerID, name)
		if err != nil {
			return err
		}
		out = *d.Clone()
		return nil
	})
	return out, err
}

func (e *Engine) UpdateDrawer(ctx context.Context, containerID, drawerID, name string) (inventory.ContainerDrawer, error) {
	var out inventory.ContainerDrawer
	err := e.mutate(ctx, func(s *inventory.Snapshot) error {
		d, err := s.UpdateDrawer(containerID, drawerID, name)
		if err != nil {
			return err
		}
		out = *d.Clone()
		return nil
	})
	return out, err
}

// DeleteDrawer fails with CONFLICT while the drawer still holds items.
func (e *Engine) DeleteDrawer(ctx context.Context, containerID, drawerID string) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		return s.DeleteDrawer(containerID, drawerID)
	})
}

func (e *Engine) ReorderDrawers(ctx context.Context, containerID string, order []string) error {
	return e.mutate(ctx, func(s *inventory.Snapshot) error {
		return s.ReorderDrawers(containerID, order)
	})
}
