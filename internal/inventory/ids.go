package inventory

import "github.com/google/uuid"

const (
	containerIDPrefix = "container-"
	drawerIDPrefix    = "drawer-"
)

// NewItemID returns an id for items and shopping entries.
func NewItemID() string {
	return uuid.NewString()
}

// NewContainerID returns a random container id. Migrated containers use the
// fixed MigratedContainerID instead.
func NewContainerID() string {
	return containerIDPrefix + uuid.NewString()
}

// NewDrawerID returns a random drawer id. It never collides with the
// positional ids produced by MigratedDrawerID.
func NewDrawerID() string {
	return drawerIDPrefix + uuid.NewString()
}
