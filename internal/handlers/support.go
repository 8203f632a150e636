package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/deskroute/deskroute/internal/models"
)

// validCategories is the whitelist for the optional self-reported
// category on the submit form. The classifier decides the real category;
// this field is kept as customer-provided context only.
var validCategories = map[string]bool{
	"general":    true,
	"technical":  true,
	"billing":    true,
	"feedback":   true,
	"bug_report": true,
}

// SubmitRequest is the web-form submission payload.
type SubmitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject,omitempty"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// SubmitResponse is returned after synchronous processing of a web-form
// submission.
type SubmitResponse struct {
	TicketID  string `json:"ticket_id"`
	Status    string `json:"status"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Escalated bool   `json:"escalated"`
	Reply     string `json:"reply"`
}

// Submit handles POST /support/submit. Web-form submissions are processed
// synchronously so the customer sees the acknowledgment immediately.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = sanitizeName(req.Name)
	if len(req.Name) < 2 {
		h.Error(w, http.StatusBadRequest, "name must be at least 2 characters")
		return
	}
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Message) < 10 {
		h.Error(w, http.StatusBadRequest, "message must be at least 10 characters")
		return
	}
	if req.Category != "" && !validCategories[req.Category] {
		h.Error(w, http.StatusBadRequest, "unknown category")
		return
	}

	ev := &models.InboundEvent{
		EventID:       ulid.Make().String(),
		Channel:       models.ChannelWebForm,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		Subject:       req.Subject,
		Content:       req.Message,
		ReceivedAt:    time.Now().UTC(),
	}
	if req.Category != "" {
		ev.Metadata = map[string]string{"reported_category": req.Category}
	}

	out, err := h.processor.ProcessEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, models.ErrMalformedEvent) || errors.Is(err, models.ErrUnresolvable) {
			h.Error(w, http.StatusBadRequest, "submission could not be processed")
			return
		}
		h.Error(w, http.StatusInternalServerError, "processing failed")
		return
	}

	h.JSON(w, http.StatusCreated, SubmitResponse{
		TicketID:  out.Ticket.ID.String(),
		Status:    string(out.Ticket.Status),
		Category:  string(out.Decision.Category),
		Priority:  string(out.Decision.Priority),
		Escalated: out.Decision.Escalate,
		Reply:     out.Reply,
	})
}

// TicketStatus handles GET /support/ticket/{id}.
func (h *Handler) TicketStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, err := h.pg.GetTicket(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if ticket == nil {
		h.Error(w, http.StatusNotFound, "ticket not found")
		return
	}

	h.JSON(w, http.StatusOK, ticket)
}
