package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys of the on-device store.
const (
	KeySnapshot     = "frysen_v6"
	KeyDateDisplay  = "frysen_date_display"
	KeyItemHistory  = "frysen_item_history"
	KeyShoppingList = "frysen_shopping_list"
	KeyDeviceID     = "frysen_device_id"
	KeyFamilyID     = "frysen_family_id"
)

// LegacySnapshotKeys lists where older releases kept the snapshot, newest
// first.
var LegacySnapshotKeys = []string{
	"frysen_v5",
	"frysen_v4",
	"frysen_v3",
	"frysen_v2",
	"frysen_v1",
	"frysen",
}

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("localstore: key not found")

// Store is the on-device key-value store. Values are opaque bytes; callers in
// this module always write JSON.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value at key into out. found is false when the key is
// absent.
func GetJSON(ctx context.Context, s Store, key string, out any) (found bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
