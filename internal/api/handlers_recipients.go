package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/my3-ai/concierge/internal/api/respond"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/services"
)

// RecipientHandler provides HTTP transport for direct recipient management.
type RecipientHandler struct {
	svc *services.ContactService
}

func NewRecipientHandler(svc *services.ContactService) *RecipientHandler {
	return &RecipientHandler{svc: svc}
}

type recipientRequest struct {
	Name         string        `json:"name"`
	Relationship string        `json:"relationship,omitempty"`
	AgeBand      string        `json:"ageBand,omitempty"`
	Interests    []string      `json:"interests,omitempty"`
	Constraints  []string      `json:"constraints,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Address      model.Address `json:"address,omitempty"`
}

// Create POST /api/recipients
func (h *RecipientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	c, err := h.svc.Create(r.Context(), &model.Contact{
		UserID:       auth.UserID(r.Context()),
		Name:         req.Name,
		Relationship: req.Relationship,
		AgeBand:      req.AgeBand,
		Interests:    req.Interests,
		Constraints:  req.Constraints,
		Notes:        req.Notes,
		Address:      req.Address,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, c)
}

// List GET /api/recipients
func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"recipients": cs, "count": len(cs)})
}

// Get GET /api/recipients/{contactId}
func (h *RecipientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["contactId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

// Update PUT /api/recipients/{contactId}
func (h *RecipientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	c, err := h.svc.Update(r.Context(), &model.Contact{
		UserID:       auth.UserID(r.Context()),
		ContactID:    mux.Vars(r)["contactId"],
		Name:         req.Name,
		Relationship: req.Relationship,
		AgeBand:      req.AgeBand,
		Interests:    req.Interests,
		Constraints:  req.Constraints,
		Notes:        req.Notes,
		Address:      req.Address,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

// Delete DELETE /api/recipients/{contactId}
func (h *RecipientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["contactId"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOccasions GET /api/recipients/{contactId}/occasions
func (h *RecipientHandler) ListOccasions(w http.ResponseWriter, r *http.Request) {
	occs, err := h.svc.ListOccasions(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["contactId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"occasions": occs, "count": len(occs)})
}
