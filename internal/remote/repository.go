package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/db/models"
	dbtypes "github.com/thejonthinator/frysen/pkg/db/types"
)

// Repository encapsulates the family tables.
type Repository struct {
	db *db.Client
}

// NewRepository constructs a repository bound to the provided client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{db: client}
}

// FindData returns the family's snapshot row, or nil when none exists.
func (r *Repository) FindData(ctx context.Context, familyID string) (*models.FamilyData, error) {
	var row models.FamilyData
	err := r.db.DB().WithContext(ctx).
		Where("family_id = ?", familyID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertData writes the row, replacing every synced column on conflict.
func (r *Repository) UpsertData(ctx context.Context, row models.FamilyData) error {
	return r.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "family_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"drawers", "shopping_list", "last_updated", "version", "device_id"}),
		}).
		Create(&row).Error
}

// FamilyExists reports whether a family row exists.
func (r *Repository) FamilyExists(ctx context.Context, familyID string) (bool, error) {
	var count int64
	err := r.db.DB().WithContext(ctx).
		Model(&models.Family{}).
		Where("family_id = ?", familyID).
		Count(&count).Error
	return count > 0, err
}

// CreateFamily inserts the family and its empty snapshot row in one
// transaction.
func (r *Repository) CreateFamily(ctx context.Context, family models.Family, deviceID string, now time.Time) error {
	return r.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&family).Error; err != nil {
			return err
		}
		row := models.FamilyData{
			FamilyID:     family.FamilyID,
			Drawers:      dbtypes.JSONB(`{}`),
			ShoppingList: dbtypes.JSONB(`[]`),
			LastUpdated:  now,
			Version:      inventory.DataVersion,
			DeviceID:     deviceID,
		}
		return tx.Create(&row).Error
	})
}

func toRow(familyID string, snap Snapshot) (models.FamilyData, error) {
	list := snap.ShoppingList
	if list == nil {
		list = []inventory.ShoppingItem{}
	}
	shopping, err := json.Marshal(list)
	if err != nil {
		return models.FamilyData{}, fmt.Errorf("encode shopping list: %w", err)
	}
	drawers := dbtypes.JSONB(snap.Drawers)
	if drawers.IsEmpty() {
		drawers = dbtypes.JSONB(`{}`)
	}
	version := snap.Version
	if version == "" {
		version = inventory.DataVersion
	}
	return models.FamilyData{
		FamilyID:     familyID,
		Drawers:      drawers,
		ShoppingList: dbtypes.JSONB(shopping),
		LastUpdated:  snap.LastUpdated.UTC(),
		Version:      version,
		DeviceID:     snap.DeviceID,
	}, nil
}

func fromRow(row models.FamilyData) (Snapshot, error) {
	snap := Snapshot{
		FamilyID:    row.FamilyID,
		Drawers:     json.RawMessage(row.Drawers),
		LastUpdated: row.LastUpdated,
		Version:     row.Version,
		DeviceID:    row.DeviceID,
	}
	if !row.ShoppingList.IsEmpty() {
		if err := json.Unmarshal(row.ShoppingList, &snap.ShoppingList); err != nil {
			return Snapshot{}, fmt.Errorf("decode shopping list: %w", err)
		}
	}
	return snap, nil
}
