package engine

import (
	"context"
	"strings"
	"time"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/localstore"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// DisplayMode selects how item dates are shown.
type DisplayMode string

const (
	DisplayDate     DisplayMode = "date"
	DisplayDuration DisplayMode = "duration"
)

// ParseDisplayMode maps stored values to a mode; anything unknown is date.
func ParseDisplayMode(value string) DisplayMode {
	if DisplayMode(strings.ToLower(strings.TrimSpace(value))) == DisplayDuration {
		return DisplayDuration
	}
	return DisplayDate
}

func (e *Engine) DisplayMode() DisplayMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

// ToggleDateDisplay flips between date and duration and persists the choice.
func (e *Engine) ToggleDateDisplay(ctx context.Context) (DisplayMode, error) {
	e.mu.Lock()
	if err := e.requireInitialized(); err != nil {
		e.mu.Unlock()
		return "", err
	}
	next := DisplayDuration
	if e.display == DisplayDuration {
		next = DisplayDate
	}
	if err := localstore.SetJSON(ctx, e.store, localstore.KeyDateDisplay, string(next)); err != nil {
		e.mu.Unlock()
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist display mode")
	}
	e.display = next
	change := Change{Source: SourceDisplay, Revision: e.revision}
	e.mu.Unlock()

	e.notify(change)
	return next, nil
}

// Suggestions returns up to five remembered names containing query.
func (e *Engine) Suggestions(query string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return inventory.Suggest(e.history, query)
}

// History returns the remembered item names, most recent first.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.history...)
}

// DurationText renders how long ago t was, in Swedish.
func (e *Engine) DurationText(t time.Time) string {
	return inventory.DurationText(t, e.now())
}
