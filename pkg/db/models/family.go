package models

import (
	"time"

	dbtypes "github.com/thejonthinator/frysen/pkg/db/types"
)

// Family is a sharing group; every device that joins it syncs the same snapshot.
type Family struct {
	FamilyID  string    `gorm:"column:family_id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Family) TableName() string { return "frysen_families" }

// FamilyData holds the latest snapshot written by any device of a family.
type FamilyData struct {
	FamilyID     string        `gorm:"column:family_id;primaryKey"`
	Drawers      dbtypes.JSONB `gorm:"column:drawers;type:jsonb"`
	ShoppingList dbtypes.JSONB `gorm:"column:shopping_list;type:jsonb"`
	LastUpdated  time.Time     `gorm:"column:last_updated;not null"`
	Version      string        `gorm:"column:version;not null;default:'1.0.0'"`
	DeviceID     string        `gorm:"column:device_id"`
}

func (FamilyData) TableName() string { return "frysen_data" }
