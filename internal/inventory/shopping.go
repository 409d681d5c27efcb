package inventory

import (
	"time"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

func (s *Snapshot) shoppingIndex(id string) (int, error) {
	for i := range s.ShoppingList {
		if s.ShoppingList[i].ID == id {
			return i, nil
		}
	}
	return -1, pkgerrors.Newf(pkgerrors.CodeNotFound, "shopping item %s not found", id)
}

// AddShoppingItem appends an uncompleted entry.
func (s *Snapshot) AddShoppingItem(name string, now time.Time) (ShoppingItem, error) {
	name, err := cleanName(name)
	if err != nil {
		return ShoppingItem{}, err
	}
	entry := ShoppingItem{ID: NewItemID(), Name: name, AddedDate: now}
	s.ShoppingList = append(s.ShoppingList, entry)
	return entry, nil
}

// ToggleShoppingItem flips the completed flag.
func (s *Snapshot) ToggleShoppingItem(id string) (ShoppingItem, error) {
	i, err := s.shoppingIndex(id)
	if err != nil {
		return ShoppingItem{}, err
	}
	s.ShoppingList[i].Completed = !s.ShoppingList[i].Completed
	return s.ShoppingList[i], nil
}

// EditShoppingItem renames an entry.
func (s *Snapshot) EditShoppingItem(id, name string) (ShoppingItem, error) {
	name, err := cleanName(name)
	if err != nil {
		return ShoppingItem{}, err
	}
	i, err := s.shoppingIndex(id)
	if err != nil {
		return ShoppingItem{}, err
	}
	s.ShoppingList[i].Name = name
	return s.ShoppingList[i], nil
}

// RemoveShoppingItem deletes an entry.
func (s *Snapshot) RemoveShoppingItem(id string) error {
	i, err := s.shoppingIndex(id)
	if err != nil {
		return err
	}
	s.ShoppingList = append(s.ShoppingList[:i:i], s.ShoppingList[i+1:]...)
	return nil
}

// ClearCompletedShoppingItems drops every completed entry and returns how many
// were removed.
func (s *Snapshot) ClearCompletedShoppingItems() int {
	kept := make([]ShoppingItem, 0, len(s.ShoppingList))
	for _, entry := range s.ShoppingList {
		if !entry.Completed {
			kept = append(kept, entry)
		}
	}
	removed := len(s.ShoppingList) - len(kept)
	s.ShoppingList = kept
	return removed
}

// ShoppingListsDiffer compares lists by length and by positional id, name and
// completed flag. Dates are ignored since remote copies re-serialize them.
func ShoppingListsDiffer(a, b []ShoppingItem) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name || a[i].Completed != b[i].Completed {
			return true
		}
	}
	return false
}
