package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

func indexParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s %q", name, raw)
	}
	return idx, nil
}

func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
	}
	return value, nil
}
