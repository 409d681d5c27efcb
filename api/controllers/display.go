package controllers

import (
	"net/http"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/pkg/logger"
)

func DisplayMode(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]engine.DisplayMode{"mode": svc.DisplayMode()})
	}
}

// ToggleDisplay flips between showing added dates and elapsed durations.
func ToggleDisplay(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := svc.ToggleDateDisplay(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]engine.DisplayMode{"mode": mode})
	}
}

// Suggestions returns remembered item names matching the q prefix.
func Suggestions(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := svc.Suggestions(r.URL.Query().Get("q"))
		if names == nil {
			names = []string{}
		}
		responses.WriteSuccess(w, names)
	}
}
