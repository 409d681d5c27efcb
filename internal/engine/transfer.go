package engine

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/thejonthinator/frysen/internal/inventory"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export returns a copy of the modular snapshot.
func (e *Engine) Export() (inventory.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitialized(); err != nil {
		return inventory.Snapshot{}, err
	}
	return e.snap.Clone(), nil
}

// ExportAs serializes the snapshot as json or yaml.
func (e *Engine) ExportAs(format string) ([]byte, error) {
	snap, err := e.Export()
	if err != nil {
		return nil, err
	}
	switch format {
	case "", FormatJSON:
		return inventory.Encode(snap)
	case FormatYAML:
		snap.SchemaVersion = inventory.SchemaVersion
		out, err := yaml.Marshal(snap)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode yaml export")
		}
		return out, nil
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported export format %q", format)
	}
}

// Import replaces the inventory with a modular snapshot or a legacy drawer
// map. A legacy map must carry an array for every drawer. The shopping list
// is replaced only when the import has one.
func (e *Engine) Import(ctx context.Context, raw []byte) error {
	decoded, err := inventory.Decode(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "import is not valid json")
	}

	switch decoded.Kind {
	case inventory.KindModular:
		in := decoded.Modular
		return e.mutate(ctx, func(s *inventory.Snapshot) error {
			s.DefaultDrawer = in.DefaultDrawer
			s.Containers = in.Containers
			if in.ShoppingList != nil {
				s.ShoppingList = in.ShoppingList
			}
			return nil
		})
	case inventory.KindLegacy:
		in := decoded.Legacy
		if !in.Complete {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("legacy import must contain drawers 1 to %d", inventory.DrawerCount))
		}
		return e.mutate(ctx, func(s *inventory.Snapshot) error {
			s.ReplaceDrawers(in.Drawers)
			if in.ShoppingList != nil {
				s.ShoppingList = in.ShoppingList
			}
			return nil
		})
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "import format not recognized")
	}
}
