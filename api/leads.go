package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/internal/leads"
	"github.com/garnizeh/leads/pkg/repository"
)

// maxBodyBytes caps request payloads.
const maxBodyBytes = 1 << 20

type LeadsHandler struct {
	errorResponder
	svc *leads.Service
}

func NewLeadsHandler(svc *leads.Service, detail bool) *LeadsHandler {
	return &LeadsHandler{errorResponder: errorResponder{detail: detail}, svc: svc}
}

func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	res, err := h.svc.List(r.Context(), user.ID, r.URL.Query())
	if err != nil {
		h.fail(w, r, "list leads", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	lead, err := h.svc.Get(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, "get lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	in, err := leads.DecodeInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, r, "decode lead", err)
		return
	}
	lead, err := h.svc.Create(r.Context(), user.ID, in)
	if err != nil {
		h.fail(w, r, "create lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	in, err := leads.DecodeInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, r, "decode lead", err)
		return
	}
	lead, err := h.svc.Update(r.Context(), user.ID, mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, "update lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, "delete lead", err)
		return
	}
	writeMessage(w, http.StatusOK, "Lead deleted successfully")
}

// fail maps service errors to responses. Anything unrecognised is a 500.
func (h *LeadsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *leads.ValidationError
	var ferr *filter.InvalidFilterError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: verr.Messages(), Fields: verr.Fields})
	case errors.As(err, &ferr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid filter", Errors: ferr.Messages(), Fields: ferr.Params})
	case errors.Is(err, leads.ErrInvalidBody):
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, repository.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Lead not found")
	case errors.Is(err, repository.ErrConflict):
		writeMessage(w, http.StatusConflict, "A lead with this email already exists")
	default:
		h.serverError(w, r, op, err)
	}
}
