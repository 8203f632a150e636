package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/state"
)

// LookupResponse is the customer lookup view: the identity record plus
// the rolling conversation summary when one is cached.
type LookupResponse struct {
	Customer *models.Customer `json:"customer"`
	Summary  *state.Report    `json:"summary,omitempty"`
}

// LookupCustomer handles GET /customers/lookup?email=...&phone=...
func (h *Handler) LookupCustomer(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	phone := r.URL.Query().Get("phone")

	var (
		customer *models.Customer
		err      error
	)
	switch {
	case email != "":
		if !isValidEmail(email) {
			h.Error(w, http.StatusBadRequest, "invalid email")
			return
		}
		customer, err = h.pg.FindCustomerByEmail(r.Context(), email)
	case phone != "":
		if !isValidPhone(phone) {
			h.Error(w, http.StatusBadRequest, "invalid phone")
			return
		}
		customer, err = h.pg.FindCustomerByPhone(r.Context(), phone)
	default:
		h.Error(w, http.StatusBadRequest, "email or phone query parameter required")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if customer == nil {
		h.Error(w, http.StatusNotFound, "customer not found")
		return
	}

	resp := LookupResponse{Customer: customer}
	if h.redis != nil {
		if st, err := h.redis.LoadState(r.Context(), customer.ID.String()); err == nil && st != nil {
			report := st.Summarize(3)
			resp.Summary = &report
		}
	}

	h.JSON(w, http.StatusOK, resp)
}

// ConversationResponse is the conversation detail view.
type ConversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []models.Message     `json:"messages"`
}

// GetConversation handles GET /conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := h.pg.GetConversation(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if conv == nil {
		h.Error(w, http.StatusNotFound, "conversation not found")
		return
	}

	msgs, err := h.pg.LoadRecentMessages(r.Context(), id, 50)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "message load failed")
		return
	}

	h.JSON(w, http.StatusOK, ConversationResponse{Conversation: conv, Messages: msgs})
}
