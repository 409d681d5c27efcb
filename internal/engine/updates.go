package engine

import (
	"context"

	"github.com/thejonthinator/frysen/internal/updates"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// CheckForUpdates asks the release feed for a newer version. Listeners see
// the checking state first and the result after.
func (e *Engine) CheckForUpdates(ctx context.Context) (updates.Result, error) {
	if e.checker == nil {
		return updates.Result{}, pkgerrors.New(pkgerrors.CodeUnavailable, "update checks are disabled")
	}
	e.setUpdate(updates.Result{Status: updates.StatusChecking, CheckedAt: e.now()})

	result, err := e.checker.Check(ctx)
	if err != nil && result.Status == "" {
		result = updates.Result{Status: updates.StatusError, CheckedAt: e.now(), Error: err.Error()}
	}
	e.setUpdate(result)
	return result, err
}

// UpdateStatus returns the result of the last check.
func (e *Engine) UpdateStatus() updates.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.update
}

func (e *Engine) setUpdate(result updates.Result) {
	e.mu.Lock()
	e.update = result
	change := Change{Source: SourceUpdate, Revision: e.revision}
	e.mu.Unlock()
	e.notify(change)
}
