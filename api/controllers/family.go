package controllers

import (
	"net/http"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/api/validators"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/pkg/logger"
)

type createFamilyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type joinFamilyRequest struct {
	FamilyID string `json:"familyId" validate:"required"`
}

func FamilyStatus(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.SyncStatus())
	}
}

// CreateFamily registers a new family seeded with this device's data.
func CreateFamily(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createFamilyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		familyID, err := svc.CreateFamily(r.Context(), payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"familyId": familyID})
	}
}

// JoinFamily switches to an existing family and adopts its data.
func JoinFamily(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload joinFamilyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.JoinFamily(r.Context(), payload.FamilyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.SyncStatus())
	}
}

func LeaveFamily(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.LeaveFamily(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// SyncNow uploads pending changes without waiting for the debounce.
func SyncNow(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.SyncNow(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.SyncStatus())
	}
}

func Refetch(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := svc.RefetchFromRemote(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"outcome":  outcome,
			"revision": svc.Revision(),
		})
	}
}
