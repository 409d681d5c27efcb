package inventory

import (
	"strings"
	"time"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// ItemUpdate carries the fields EditItem merges into an item; nil fields are
// left alone.
type ItemUpdate struct {
	Name      *string
	AddedDate *time.Time
	Quantity  *int
}

// DrawerRef locates a drawer inside a snapshot.
type DrawerRef struct {
	ContainerID string
	DrawerID    string
}

// IsDefault reports whether the reference points at the default drawer.
func (r DrawerRef) IsDefault() bool {
	return r.ContainerID == ""
}

// ResolveDrawer finds the drawer with the given id, either the default drawer
// or a drawer owned by some container.
func (s *Snapshot) ResolveDrawer(drawerID string) (DrawerRef, error) {
	if drawerID == DefaultDrawerID || drawerID == s.DefaultDrawer.ID {
		return DrawerRef{DrawerID: s.DefaultDrawer.ID}, nil
	}
	for _, c := range s.Containers {
		if _, ok := c.Drawers[drawerID]; ok {
			return DrawerRef{ContainerID: c.ID, DrawerID: drawerID}, nil
		}
	}
	return DrawerRef{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "drawer %s not found", drawerID)
}

// Items returns the items held by the drawer with the given id.
func (s *Snapshot) Items(drawerID string) ([]Item, error) {
	items, err := s.itemsPtr(drawerID)
	if err != nil {
		return nil, err
	}
	return *items, nil
}

func (s *Snapshot) itemsPtr(drawerID string) (*[]Item, error) {
	ref, err := s.ResolveDrawer(drawerID)
	if err != nil {
		return nil, err
	}
	if ref.IsDefault() {
		return &s.DefaultDrawer.Items, nil
	}
	return &s.Containers[ref.ContainerID].Drawers[ref.DrawerID].Items, nil
}

func checkIndex(items []Item, idx int) error {
	if idx < 0 || idx >= len(items) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "item index %d out of range (0..%d)", idx, len(items)-1)
	}
	return nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	return name, nil
}

// AddItems appends one new item per name to the drawer. Blank names are
// skipped; at least one usable name is required.
func (s *Snapshot) AddItems(drawerID string, names []string, now time.Time) ([]Item, error) {
	items, err := s.itemsPtr(drawerID)
	if err != nil {
		return nil, err
	}
	added := make([]Item, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		added = append(added, Item{ID: NewItemID(), Name: name, AddedDate: now, Quantity: 1})
	}
	if len(added) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	*items = append(*items, added...)
	return added, nil
}

// AddItem appends a single item with quantity 1.
func (s *Snapshot) AddItem(drawerID, name string, now time.Time) (Item, error) {
	added, err := s.AddItems(drawerID, []string{name}, now)
	if err != nil {
		return Item{}, err
	}
	return added[0], nil
}

// EditItem merges update into the item at idx.
func (s *Snapshot) EditItem(drawerID string, idx int, update ItemUpdate) (Item, error) {
	items, err := s.itemsPtr(drawerID)
	if err != nil {
		return Item{}, err
	}
	if err := checkIndex(*items, idx); err != nil {
		return Item{}, err
	}
	item := (*items)[idx]
	if update.Name != nil {
		name, err := cleanName(*update.Name)
		if err != nil {
			return Item{}, err
		}
		item.Name = name
	}
	if update.AddedDate != nil {
		item.AddedDate = *update.AddedDate
	}
	if update.Quantity != nil {
		if *update.Quantity < 1 {
			return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		item.Quantity = *update.Quantity
	}
	(*items)[idx] = item
	return item, nil
}

// RemoveItem deletes the item at idx and returns it.
func (s *Snapshot) RemoveItem(drawerID string, idx int) (Item, error) {
	items, err := s.itemsPtr(drawerID)
	if err != nil {
		return Item{}, err
	}
	if err := checkIndex(*items, idx); err != nil {
		return Item{}, err
	}
	removed := (*items)[idx]
	*items = append((*items)[:idx:idx], (*items)[idx+1:]...)
	return removed, nil
}

// AdjustQuantity adds delta to the item's quantity, never going below 1.
func (s *Snapshot) AdjustQuantity(drawerID string, idx, delta int) (Item, error) {
	items, err := s.itemsPtr(drawerID)
	if err != nil {
		return Item{}, err
	}
	if err := checkIndex(*items, idx); err != nil {
		return Item{}, err
	}
	q := (*items)[idx].Quantity + delta
	if q < 1 {
		q = 1
	}
	(*items)[idx].Quantity = q
	return (*items)[idx], nil
}

// MoveToShoppingList removes the item and puts an uncompleted entry with its
// name on the shopping list.
func (s *Snapshot) MoveToShoppingList(drawerID string, idx int, now time.Time) (ShoppingItem, error) {
	removed, err := s.RemoveItem(drawerID, idx)
	if err != nil {
		return ShoppingItem{}, err
	}
	entry := ShoppingItem{ID: NewItemID(), Name: removed.Name, AddedDate: now}
	s.ShoppingList = append(s.ShoppingList, entry)
	return entry, nil
}

// MoveItem moves the item at fromIdx into the destination drawer, inserting
// at toIdx or appending when toIdx is negative or past the end. It reports
// false without touching anything when both ids resolve to the same drawer.
func (s *Snapshot) MoveItem(fromDrawerID string, fromIdx int, toDrawerID string, toIdx int) (bool, error) {
	from, err := s.ResolveDrawer(fromDrawerID)
	if err != nil {
		return false, err
	}
	to, err := s.ResolveDrawer(toDrawerID)
	if err != nil {
		return false, err
	}
	source, err := s.Items(from.DrawerID)
	if err != nil {
		return false, err
	}
	if err := checkIndex(source, fromIdx); err != nil {
		return false, err
	}
	if from == to {
		return false, nil
	}

	item, err := s.RemoveItem(from.DrawerID, fromIdx)
	if err != nil {
		return false, err
	}
	dest, err := s.itemsPtr(to.DrawerID)
	if err != nil {
		return false, err
	}
	if toIdx < 0 || toIdx >= len(*dest) {
		*dest = append(*dest, item)
		return true, nil
	}
	out := make([]Item, 0, len(*dest)+1)
	out = append(out, (*dest)[:toIdx]...)
	out = append(out, item)
	out = append(out, (*dest)[toIdx:]...)
	*dest = out
	return true, nil
}
