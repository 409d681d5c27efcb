package inventory

import "fmt"

// Densify returns a map with exactly DrawerCount drawers; missing drawers are
// empty and drawers outside 1..DrawerCount are dropped.
func Densify(drawers DrawerMap) DrawerMap {
	out := make(DrawerMap, DrawerCount)
	for n := 1; n <= DrawerCount; n++ {
		items := drawers[n]
		if items == nil {
			items = []Item{}
		}
		out[n] = cloneItems(items)
	}
	return out
}

// MigratedDrawerID is the id a legacy drawer gets inside the migrated container.
func MigratedDrawerID(n int) string {
	return fmt.Sprintf("drawer-%03d", n)
}

// MigratedDrawerName labels legacy drawer n once it lives in the container.
func MigratedDrawerName(n int) string {
	switch n {
	case 2:
		return "Fack 1"
	case 3:
		return "Fack 2"
	default:
		return fmt.Sprintf("Låda %d", n-1)
	}
}

// Migrate converts a legacy snapshot into the modular shape. Drawer 1 becomes
// the default drawer; every other non-empty drawer moves into a single "Frys"
// container in ascending drawer order. The result only depends on the input,
// so migrating the same legacy data twice yields the same snapshot.
func Migrate(legacy LegacySnapshot) Snapshot {
	snap := NewSnapshot()
	snap.DefaultDrawer.Items, snap.Containers = migrateDrawers(legacy.Drawers)
	if legacy.ShoppingList != nil {
		snap.ShoppingList = append([]ShoppingItem{}, legacy.ShoppingList...)
	}
	snap.LastUpdated = legacy.LastUpdated
	return snap
}

func migrateDrawers(drawers DrawerMap) ([]Item, map[string]*Container) {
	dense := Densify(drawers)
	containers := map[string]*Container{}

	var frys *Container
	for n := 1; n <= DrawerCount; n++ {
		if n == DefaultLegacyDrawer || len(dense[n]) == 0 {
			continue
		}
		if frys == nil {
			frys = &Container{
				ID:      MigratedContainerID,
				Title:   MigratedContainerTitle,
				Order:   0,
				Drawers: map[string]*ContainerDrawer{},
			}
			containers[frys.ID] = frys
		}
		id := MigratedDrawerID(n)
		frys.Drawers[id] = &ContainerDrawer{ID: id, Name: MigratedDrawerName(n), Items: dense[n]}
		frys.DrawerOrder = append(frys.DrawerOrder, id)
	}
	return dense[DefaultLegacyDrawer], containers
}

// ReplaceDrawers overwrites the inventory from a legacy drawer map, keeping
// the shopping list.
func (s *Snapshot) ReplaceDrawers(drawers DrawerMap) {
	s.DefaultDrawer.Items, s.Containers = migrateDrawers(drawers)
}

// Normalize takes any decoded snapshot to the modular shape. Unrecognized
// input yields an empty snapshot.
func Normalize(d Decoded) Snapshot {
	switch d.Kind {
	case KindModular:
		return d.Modular.Clone()
	case KindLegacy:
		return Migrate(*d.Legacy)
	default:
		return NewSnapshot()
	}
}
