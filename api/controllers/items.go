package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/api/validators"
	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/inventory"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
)

type addItemsRequest struct {
	Name  string   `json:"name,omitempty" validate:"required_without=Names"`
	Names []string `json:"names,omitempty" validate:"required_without=Name"`
}

// AddItems adds one item by name, or several when names is given.
func AddItems(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawerID, err := pathParam(r, "drawerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if len(payload.Names) == 0 {
			item, err := svc.AddItem(r.Context(), drawerID, payload.Name)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, item)
			return
		}

		items, err := svc.AddItems(r.Context(), drawerID, payload.Names)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, items)
	}
}

type editItemRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1"`
	AddedDate *string `json:"addedDate,omitempty"`
	Quantity  *int    `json:"quantity,omitempty" validate:"omitempty,gte=1"`
}

func (p editItemRequest) toUpdate() (inventory.ItemUpdate, error) {
	update := inventory.ItemUpdate{Name: p.Name, Quantity: p.Quantity}
	if p.AddedDate != nil {
		t := inventory.ParseDateString(*p.AddedDate)
		if t.IsZero() {
			return update, pkgerrors.Newf(pkgerrors.CodeValidation, "unrecognized date %q", *p.AddedDate)
		}
		update.AddedDate = &t
	}
	return update, nil
}

func EditItem(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawerID, idx, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload editItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		update, err := payload.toUpdate()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.EditItem(r.Context(), drawerID, idx, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func RemoveItem(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawerID, idx, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), drawerID, idx); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func IncreaseQuantity(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustQuantity(svc.IncreaseQuantity, logg)
}

// DecreaseQuantity never goes below one; at the floor the item is returned
// unchanged.
func DecreaseQuantity(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustQuantity(svc.DecreaseQuantity, logg)
}

type quantityFunc func(ctx context.Context, drawerID string, idx int) (inventory.Item, error)

func adjustQuantity(fn quantityFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawerID, idx, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := fn(r.Context(), drawerID, idx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// MoveToShoppingList deletes the item and puts its name on the shopping list.
func MoveToShoppingList(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawerID, idx, err := itemLocation(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.DeleteAndMoveToShoppingList(r.Context(), drawerID, idx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type moveItemRequest struct {
	FromDrawerID string `json:"fromDrawerId" validate:"required"`
	FromIndex    *int   `json:"fromIndex" validate:"required,gte=0"`
	ToDrawerID   string `json:"toDrawerId" validate:"required"`
	ToIndex      *int   `json:"toIndex" validate:"required,gte=0"`
}

func MoveItem(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload moveItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MoveItem(r.Context(), payload.FromDrawerID, *payload.FromIndex, payload.ToDrawerID, *payload.ToIndex); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type replaceDrawersRequest struct {
	Drawers inventory.DrawerMap `json:"drawers" validate:"required"`
}

// ReplaceDrawers takes a numbered drawer map and rebuilds the layout from it.
func ReplaceDrawers(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload replaceDrawersRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ReplaceAll(r.Context(), payload.Drawers); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"revision": svc.Revision()})
	}
}

// DurationText renders how long ago date was, or today when date is absent.
func DurationText(svc engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("date")
		var t time.Time
		if raw != "" {
			t = inventory.ParseDateString(raw)
			if t.IsZero() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "unrecognized date %q", raw))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"text": svc.DurationText(t)})
	}
}

func itemLocation(r *http.Request) (string, int, error) {
	drawerID, err := pathParam(r, "drawerId")
	if err != nil {
		return "", 0, err
	}
	idx, err := indexParam(r, "index")
	if err != nil {
		return "", 0, err
	}
	return drawerID, idx, nil
}
