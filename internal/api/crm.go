package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/crm"
	"crm-assistant/internal/models"
)

// CRMHandler exposes the CRM service over JSON.
type CRMHandler struct {
	svc    *crm.Service
	errors *apperrors.ErrorHandler
}

func NewCRMHandler(svc *crm.Service, log logger.Logger) *CRMHandler {
	return &CRMHandler{
		svc:    svc,
		errors: apperrors.NewErrorHandler(log.WithFields(map[string]interface{}{"component": "crm-handler"})),
	}
}

// Register adds the CRM routes to mux.
func (h *CRMHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/companies", h.listCompanies)
	mux.HandleFunc("POST /api/companies", h.createCompany)
	mux.HandleFunc("GET /api/companies/search", h.searchCompanies)
	mux.HandleFunc("GET /api/companies/{id}", h.getCompany)

	mux.HandleFunc("GET /api/people", h.listPeople)
	mux.HandleFunc("POST /api/people", h.createPerson)
	mux.HandleFunc("PUT /api/people/{id}", h.updatePerson)

	mux.HandleFunc("GET /api/deals", h.listDeals)
	mux.HandleFunc("POST /api/deals", h.createDeal)
	mux.HandleFunc("PUT /api/deals/{id}", h.updateDeal)
	mux.HandleFunc("PATCH /api/deals/{id}/stage", h.updateDealStage)

	mux.HandleFunc("POST /api/events", h.createEvent)

	mux.HandleFunc("GET /api/sequences", h.listSequences)
	mux.HandleFunc("POST /api/sequences", h.createSequence)
	mux.HandleFunc("GET /api/sequences/{id}", h.getSequence)
	mux.HandleFunc("PUT /api/sequences/{id}/emails", h.saveSequenceEmail)
	mux.HandleFunc("DELETE /api/sequences/{id}/emails/{emailId}", h.deleteSequenceEmail)

	mux.HandleFunc("GET /api/dashboard", h.dashboard)
}

// caller writes 401 and returns false when the request carries no identity.
func (h *CRMHandler) caller(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.errors.HandleHTTPError(w, r, apperrors.NewUnauthenticatedError())
	}
	return id, ok
}

func (h *CRMHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError(err.Error()))
		return false
	}
	return true
}

func (h *CRMHandler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	apperrors.WriteJSON(w, status, v)
}

func (h *CRMHandler) listCompanies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	companies, err := h.svc.ListCompanies(r.Context(), id)
	h.respond(w, r, http.StatusOK, companies, err)
}

func (h *CRMHandler) createCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.CompanyInput
	if !h.decode(w, r, &in) {
		return
	}
	company, err := h.svc.CreateCompany(r.Context(), id, in)
	h.respond(w, r, http.StatusCreated, company, err)
}

func (h *CRMHandler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	details, err := h.svc.GetCompany(r.Context(), id, r.PathValue("id"))
	h.respond(w, r, http.StatusOK, details, err)
}

func (h *CRMHandler) searchCompanies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	companies, err := h.svc.SearchCompanies(r.Context(), id, r.URL.Query().Get("q"), size)
	h.respond(w, r, http.StatusOK, companies, err)
}

func (h *CRMHandler) listPeople(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	people, err := h.svc.ListPeople(r.Context(), id)
	h.respond(w, r, http.StatusOK, people, err)
}

func (h *CRMHandler) createPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.PersonInput
	if !h.decode(w, r, &in) {
		return
	}
	person, err := h.svc.CreatePerson(r.Context(), id, in)
	h.respond(w, r, http.StatusCreated, person, err)
}

func (h *CRMHandler) updatePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.PersonInput
	if !h.decode(w, r, &in) {
		return
	}
	person, err := h.svc.UpdatePerson(r.Context(), id, r.PathValue("id"), in)
	h.respond(w, r, http.StatusOK, person, err)
}

func (h *CRMHandler) listDeals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	deals, err := h.svc.ListDeals(r.Context(), id)
	h.respond(w, r, http.StatusOK, deals, err)
}

func (h *CRMHandler) createDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.DealInput
	if !h.decode(w, r, &in) {
		return
	}
	deal, err := h.svc.CreateDeal(r.Context(), id, in)
	h.respond(w, r, http.StatusCreated, deal, err)
}

func (h *CRMHandler) updateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.DealInput
	if !h.decode(w, r, &in) {
		return
	}
	deal, err := h.svc.UpdateDeal(r.Context(), id, r.PathValue("id"), in)
	h.respond(w, r, http.StatusOK, deal, err)
}

func (h *CRMHandler) updateDealStage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.StageInput
	if !h.decode(w, r, &in) {
		return
	}
	deal, err := h.svc.UpdateDealStage(r.Context(), id, r.PathValue("id"), in.Stage)
	h.respond(w, r, http.StatusOK, deal, err)
}

func (h *CRMHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.EventInput
	if !h.decode(w, r, &in) {
		return
	}
	event, err := h.svc.CreateEvent(r.Context(), id, in)
	h.respond(w, r, http.StatusCreated, event, err)
}

func (h *CRMHandler) listSequences(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	sequences, err := h.svc.ListSequences(r.Context(), id)
	h.respond(w, r, http.StatusOK, sequences, err)
}

func (h *CRMHandler) createSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.SequenceInput
	if !h.decode(w, r, &in) {
		return
	}
	seq, err := h.svc.CreateSequence(r.Context(), id, in)
	h.respond(w, r, http.StatusCreated, seq, err)
}

func (h *CRMHandler) getSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	details, err := h.svc.GetSequence(r.Context(), id, r.PathValue("id"))
	h.respond(w, r, http.StatusOK, details, err)
}

func (h *CRMHandler) saveSequenceEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in crm.SequenceEmailInput
	if !h.decode(w, r, &in) {
		return
	}
	email, err := h.svc.SaveSequenceEmail(r.Context(), id, r.PathValue("id"), in)
	h.respond(w, r, http.StatusOK, email, err)
}

func (h *CRMHandler) deleteSequenceEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSequenceEmail(r.Context(), id, r.PathValue("id"), r.PathValue("emailId")); err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CRMHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Dashboard(r.Context(), id)
	h.respond(w, r, http.StatusOK, d, err)
}
