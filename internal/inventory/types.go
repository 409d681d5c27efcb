package inventory

import (
	"encoding/json"
	"time"
)

const (
	// SchemaVersion marks a snapshot as modular; any other value is legacy.
	SchemaVersion = "2.0.0"
	// DataVersion is stamped into every snapshot and outbound write.
	DataVersion = "1.0.0"

	// DrawerCount is the number of numbered drawers in a legacy snapshot.
	DrawerCount = 8
	// DefaultLegacyDrawer is the legacy slot that becomes the default drawer.
	DefaultLegacyDrawer = 1

	DefaultDrawerID   = "default"
	DefaultDrawerName = "Köksbänken"

	MigratedContainerID    = "frys"
	MigratedContainerTitle = "Frys"
)

// Item is one stored thing.
type Item struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	AddedDate time.Time `json:"addedDate" yaml:"addedDate"`
	Quantity  int       `json:"quantity" yaml:"quantity"`
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		AddedDate json.RawMessage `json:"addedDate"`
		Quantity  *int            `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.ID = raw.ID
	i.Name = raw.Name
	i.AddedDate = ParseDate(raw.AddedDate)
	i.Quantity = 1
	if raw.Quantity != nil && *raw.Quantity > 1 {
		i.Quantity = *raw.Quantity
	}
	return nil
}

// ShoppingItem is one entry on the shopping list.
type ShoppingItem struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	AddedDate time.Time `json:"addedDate" yaml:"addedDate"`
	Completed bool      `json:"completed" yaml:"completed"`
}

func (s *ShoppingItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		AddedDate json.RawMessage `json:"addedDate"`
		Completed bool            `json:"completed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Name = raw.Name
	s.AddedDate = ParseDate(raw.AddedDate)
	s.Completed = raw.Completed
	return nil
}

// DefaultDrawer is the always-present drawer for unassigned items.
type DefaultDrawer struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}

// ContainerDrawer is a drawer owned by a container.
type ContainerDrawer struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}

// Container groups drawers; DrawerOrder fixes their display order.
type Container struct {
	ID          string                      `json:"id" yaml:"id"`
	Title       string                      `json:"title" yaml:"title"`
	Order       int                         `json:"order" yaml:"order"`
	Drawers     map[string]*ContainerDrawer `json:"drawers" yaml:"drawers"`
	DrawerOrder []string                    `json:"drawerOrder" yaml:"drawerOrder"`
}

// Snapshot is the modular application state, persisted and synced as a whole.
type Snapshot struct {
	SchemaVersion string                `json:"schemaVersion" yaml:"schemaVersion"`
	DefaultDrawer DefaultDrawer         `json:"defaultDrawer" yaml:"defaultDrawer"`
	Containers    map[string]*Container `json:"containers" yaml:"containers"`
	ShoppingList  []ShoppingItem        `json:"shoppingList" yaml:"shoppingList"`
	LastUpdated   string                `json:"lastUpdated" yaml:"lastUpdated"`
	Version       string                `json:"version" yaml:"version"`
}

// DrawerMap is the legacy numbered-drawer layout.
type DrawerMap map[int][]Item

// LegacySnapshot is the pre-container persisted shape.
type LegacySnapshot struct {
	Drawers      DrawerMap
	ShoppingList []ShoppingItem
	LastUpdated  string
	Version      string
	// Complete is set when every drawer 1..DrawerCount was present as an array.
	Complete bool
}

// NewSnapshot returns an empty modular snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{
		SchemaVersion: SchemaVersion,
		DefaultDrawer: DefaultDrawer{
			ID:    DefaultDrawerID,
			Name:  DefaultDrawerName,
			Items: []Item{},
		},
		Containers: map[string]*Container{},
		Version:    DataVersion,
	}
}

// Clone deep-copies the snapshot so mutations never touch the original.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.DefaultDrawer.Items = cloneItems(s.DefaultDrawer.Items)
	out.Containers = make(map[string]*Container, len(s.Containers))
	for id, c := range s.Containers {
		out.Containers[id] = c.Clone()
	}
	if s.ShoppingList != nil {
		out.ShoppingList = append([]ShoppingItem{}, s.ShoppingList...)
	}
	return out
}

// Clone deep-copies the container.
func (c *Container) Clone() *Container {
	if c == nil {
		return nil
	}
	out := *c
	out.Drawers = make(map[string]*ContainerDrawer, len(c.Drawers))
	for id, d := range c.Drawers {
		out.Drawers[id] = d.Clone()
	}
	out.DrawerOrder = append([]string{}, c.DrawerOrder...)
	return &out
}

// Clone deep-copies the drawer.
func (d *ContainerDrawer) Clone() *ContainerDrawer {
	out := *d
	out.Items = cloneItems(d.Items)
	return &out
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// OrderedDrawers returns the container's drawers in display order.
func (c *Container) OrderedDrawers() []*ContainerDrawer {
	out := make([]*ContainerDrawer, 0, len(c.DrawerOrder))
	for _, id := range c.DrawerOrder {
		if d, ok := c.Drawers[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// OrderConsistent reports whether DrawerOrder is exactly a permutation of the
// drawer keys.
func (c *Container) OrderConsistent() bool {
	if len(c.DrawerOrder) != len(c.Drawers) {
		return false
	}
	seen := make(map[string]struct{}, len(c.DrawerOrder))
	for _, id := range c.DrawerOrder {
		if _, ok := c.Drawers[id]; !ok {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}
