package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/thejonthinator/frysen/internal/inventory"
)

const familyIDPrefix = "family_"

// Snapshot is one family row as it travels between devices. Drawers holds
// either a modular snapshot or a flat legacy drawer map.
type Snapshot struct {
	FamilyID     string                   `json:"family_id"`
	Drawers      json.RawMessage          `json:"drawers"`
	ShoppingList []inventory.ShoppingItem `json:"shopping_list"`
	LastUpdated  time.Time                `json:"last_updated"`
	Version      string                   `json:"version"`
	DeviceID     string                   `json:"device_id"`
}

// Subscription is a live feed of family snapshots.
type Subscription interface {
	Close() error
}

// Gateway is the shared store devices of a family sync through.
type Gateway interface {
	// ReadSnapshot returns nil without error when the family has no row yet.
	ReadSnapshot(ctx context.Context, familyID string) (*Snapshot, error)
	WriteSnapshot(ctx context.Context, familyID string, snap Snapshot) error
	// Subscribe calls fn for every snapshot written by any device, the
	// subscriber's own writes included.
	Subscribe(ctx context.Context, familyID string, fn func(Snapshot)) (Subscription, error)
	CreateFamily(ctx context.Context, name, deviceID string) (string, error)
	// JoinFamily fails with NOT_FOUND when the family does not exist.
	JoinFamily(ctx context.Context, familyID string) error
}

// NewFamilyID returns a fresh family identifier.
func NewFamilyID() string {
	return familyIDPrefix + uuid.NewString()
}
