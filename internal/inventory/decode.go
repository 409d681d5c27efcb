package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the result of Decode.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindModular
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindModular:
		return "modular"
	case KindLegacy:
		return "legacy"
	default:
		return "unrecognized"
	}
}

// Decoded is exactly one of a modular snapshot, a legacy snapshot or nothing.
type Decoded struct {
	Kind    Kind
	Modular *Snapshot
	Legacy  *LegacySnapshot
}

// Decode classifies a persisted or transported snapshot. A schemaVersion equal
// to SchemaVersion is the only thing that makes a document modular; wrapped
// ({"drawers": {...}}) and bare ({"1": [...]}) numbered maps are legacy. Empty
// input, JSON null, non-objects and objects with neither shape are
// unrecognized. The error is reserved for input that is not JSON at all.
func Decode(raw []byte) (Decoded, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Decoded{Kind: KindUnrecognized}, nil
	}
	if !json.Valid(trimmed) {
		return Decoded{Kind: KindUnrecognized}, fmt.Errorf("snapshot is not valid json")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		// valid json but not an object
		return Decoded{Kind: KindUnrecognized}, nil
	}

	if isModular(fields) {
		snap, err := decodeModular(trimmed)
		if err != nil {
			return Decoded{Kind: KindUnrecognized}, nil
		}
		return Decoded{Kind: KindModular, Modular: snap}, nil
	}

	if legacy, ok := decodeLegacy(fields); ok {
		return Decoded{Kind: KindLegacy, Legacy: legacy}, nil
	}
	return Decoded{Kind: KindUnrecognized}, nil
}

func isModular(fields map[string]json.RawMessage) bool {
	raw, ok := fields["schemaVersion"]
	if !ok {
		return false
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return false
	}
	return version == SchemaVersion
}

func decodeModular(raw []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	normalizeModular(&snap)
	return &snap, nil
}

// normalizeModular repairs fields older writers left out and restores the
// drawerOrder invariant.
func normalizeModular(snap *Snapshot) {
	snap.SchemaVersion = SchemaVersion
	if snap.Version == "" {
		snap.Version = DataVersion
	}
	if snap.DefaultDrawer.ID == "" {
		snap.DefaultDrawer.ID = DefaultDrawerID
	}
	if snap.DefaultDrawer.Name == "" {
		snap.DefaultDrawer.Name = DefaultDrawerName
	}
	if snap.DefaultDrawer.Items == nil {
		snap.DefaultDrawer.Items = []Item{}
	}
	if snap.Containers == nil {
		snap.Containers = map[string]*Container{}
	}
	for id, c := range snap.Containers {
		if c == nil {
			delete(snap.Containers, id)
			continue
		}
		if c.ID == "" {
			c.ID = id
		}
		if c.Drawers == nil {
			c.Drawers = map[string]*ContainerDrawer{}
		}
		for drawerID, d := range c.Drawers {
			if d == nil {
				delete(c.Drawers, drawerID)
				continue
			}
			if d.ID == "" {
				d.ID = drawerID
			}
			if d.Items == nil {
				d.Items = []Item{}
			}
		}
		c.DrawerOrder = repairDrawerOrder(c)
	}
}

// repairDrawerOrder keeps known ids in their recorded order, drops unknown
// and duplicate ids, and appends drawers missing from the order sorted by id.
func repairDrawerOrder(c *Container) []string {
	order := make([]string, 0, len(c.Drawers))
	seen := make(map[string]struct{}, len(c.Drawers))
	for _, id := range c.DrawerOrder {
		if _, ok := c.Drawers[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	var missing []string
	for id := range c.Drawers {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return append(order, missing...)
}

func decodeLegacy(fields map[string]json.RawMessage) (*LegacySnapshot, bool) {
	legacy := &LegacySnapshot{}

	drawerFields := fields
	if wrapped, ok := fields["drawers"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(wrapped, &inner); err != nil {
			return nil, false
		}
		drawerFields = inner
		if list, ok := fields["shoppingList"]; ok {
			var items []ShoppingItem
			if err := json.Unmarshal(list, &items); err == nil {
				legacy.ShoppingList = items
			}
		}
		_ = json.Unmarshal(fields["lastUpdated"], &legacy.LastUpdated)
		_ = json.Unmarshal(fields["version"], &legacy.Version)
	} else if !hasNumericKey(fields) {
		return nil, false
	}

	drawers, complete := parseDrawerFields(drawerFields)
	legacy.Drawers = drawers
	legacy.Complete = complete
	return legacy, true
}

func hasNumericKey(fields map[string]json.RawMessage) bool {
	for key := range fields {
		if _, err := strconv.Atoi(key); err == nil {
			return true
		}
	}
	return false
}

// parseDrawerFields reads numbered drawers; values that are not item arrays
// become empty drawers. complete reports whether 1..DrawerCount were all
// proper arrays.
func parseDrawerFields(fields map[string]json.RawMessage) (DrawerMap, bool) {
	drawers := DrawerMap{}
	valid := 0
	for key, raw := range fields {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil || items == nil {
			drawers[n] = []Item{}
			continue
		}
		drawers[n] = items
		if n >= 1 && n <= DrawerCount {
			valid++
		}
	}
	return drawers, valid == DrawerCount
}

// Encode serializes a modular snapshot for storage or transport.
func Encode(snap Snapshot) ([]byte, error) {
	snap.SchemaVersion = SchemaVersion
	if snap.Version == "" {
		snap.Version = DataVersion
	}
	return json.Marshal(snap)
}
