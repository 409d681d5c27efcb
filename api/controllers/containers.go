package controllers

import (
	"net/http"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/api/validators"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/pkg/logger"
)

type containerCreateRequest struct {
	Title string `json:"title" validate:"required"`
	Order *int   `json:"order,omitempty"`
}

type containerUpdateRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Order *int    `json:"order,omitempty"`
}

type drawerRequest struct {
	Name string `json:"name" validate:"required"`
}

type drawerOrderRequest struct {
	Order []string `json:"order" validate:"required"`
}

// Containers lists containers in display order with their drawers resolved.
func Containers(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := svc.State()
		responses.WriteSuccess(w, state.SortedContainers())
	}
}

func AddContainer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload containerCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		container, err := svc.AddContainer(r.Context(), inventory.NewContainer{Title: payload.Title, Order: payload.Order})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, container)
	}
}

func UpdateContainer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "containerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload containerUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		container, err := svc.UpdateContainer(r.Context(), id, inventory.ContainerUpdate{Title: payload.Title, Order: payload.Order})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, container)
	}
}

func DeleteContainer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "containerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteContainer(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AddDrawer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		containerID, err := pathParam(r, "containerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload drawerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		drawer, err := svc.AddDrawer(r.Context(), containerID, payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drawer)
	}
}

func UpdateDrawer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		containerID, drawerID, err := drawerLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload drawerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		drawer, err := svc.UpdateDrawer(r.Context(), containerID, drawerID, payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drawer)
	}
}

func DeleteDrawer(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		containerID, drawerID, err := drawerLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteDrawer(r.Context(), containerID, drawerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ReorderDrawers requires order to be a permutation of the container's drawer
// ids.
func ReorderDrawers(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		containerID, err := pathParam(r, "containerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload drawerOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ReorderDrawers(r.Context(), containerID, payload.Order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func drawerLocation(r *http.Request) (string, string, error) {
	containerID, err := pathParam(r, "containerId")
	if err != nil {
		return "", "", err
	}
	drawerID, err := pathParam(r, "drawerId")
	if err != nil {
		return "", "", err
	}
	return containerID, drawerID, nil
}
