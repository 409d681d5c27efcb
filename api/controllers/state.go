package controllers

import (
	"net/http"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/api/validators"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/pkg/logger"
)

type stateResponse struct {
	Revision    uint64             `json:"revision"`
	DisplayMode engine.DisplayMode `json:"displayMode"`
	State       inventory.Snapshot `json:"state"`
}

// State returns the whole snapshot with its revision so clients can tell
// whether a websocket notification is newer than what they hold.
func State(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, stateResponse{
			Revision:    svc.Revision(),
			DisplayMode: svc.DisplayMode(),
			State:       svc.State(),
		})
	}
}

// Export streams the snapshot as a download in the requested format.
func Export(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = engine.FormatJSON
		}
		raw, err := svc.ExportAs(format)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contentType := "application/json"
		if format == engine.FormatYAML {
			contentType = "application/yaml"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="frysen-export.`+format+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

// Import replaces local data with a modular snapshot or a complete legacy
// drawer map.
func Import(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := validators.ReadBody(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Import(r.Context(), raw); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"revision": svc.Revision()})
	}
}
