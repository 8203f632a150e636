package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/engine"
	"github.com/deskroute/deskroute/internal/kafka"
	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/pipeline"
	"github.com/deskroute/deskroute/internal/store"
)

type stubPublisher struct {
	mu      sync.Mutex
	inbound []any
}

func (s *stubPublisher) PublishInbound(_ context.Context, _ string, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, event)
	return nil
}

func (s *stubPublisher) PublishOutbound(context.Context, string, kafka.OutboundMessage) error {
	return nil
}
func (s *stubPublisher) PublishEscalation(context.Context, kafka.EscalationEvent) error { return nil }
func (s *stubPublisher) PublishMetric(context.Context, kafka.MetricEvent) error         { return nil }
func (s *stubPublisher) PublishDeadLetter(context.Context, kafka.DeadLetter) error      { return nil }

func newTestHandler() (*Handler, *store.MemoryStore, *stubPublisher) {
	ds := store.NewMemoryStore()
	pub := &stubPublisher{}
	proc := pipeline.NewProcessor(ds, store.NewMemoryStateStore(), engine.New(engine.DefaultRules()), pub, zerolog.Nop())
	return NewHandler(ds, nil, proc, pub), ds, pub
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestSubmitCreatesTicket(t *testing.T) {
	h, _, _ := newTestHandler()

	w := postJSON(t, h.Submit, "/support/submit", SubmitRequest{
		Name:    "Ana Ruiz",
		Email:   "ana@example.com",
		Message: "I was charged twice for my subscription, please refund the duplicate.",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TicketID == "" {
		t.Fatal("expected ticket id")
	}
	if resp.Category != string(engine.CategoryBilling) {
		t.Fatalf("expected billing category, got %q", resp.Category)
	}
	if !strings.Contains(resp.Reply, "support portal") {
		t.Fatalf("web-form reply should mention the support portal: %q", resp.Reply)
	}
}

func TestSubmitValidation(t *testing.T) {
	h, _, _ := newTestHandler()

	cases := []struct {
		name string
		req  SubmitRequest
	}{
		{"short name", SubmitRequest{Name: "A", Email: "a@example.com", Message: "long enough message"}},
		{"bad email", SubmitRequest{Name: "Ana", Email: "not-an-email", Message: "long enough message"}},
		{"short message", SubmitRequest{Name: "Ana", Email: "a@example.com", Message: "short"}},
		{"bad category", SubmitRequest{Name: "Ana", Email: "a@example.com", Message: "long enough message", Category: "weird"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, h.Submit, "/support/submit", tc.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestTicketStatus(t *testing.T) {
	h, _, _ := newTestHandler()

	w := postJSON(t, h.Submit, "/support/submit", SubmitRequest{
		Name:    "Ben Cole",
		Email:   "ben@example.com",
		Message: "The dashboard returns a 500 error every time I open reports.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d", w.Code)
	}
	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	r.Get("/support/ticket/{id}", h.TicketStatus)

	req := httptest.NewRequest(http.MethodGet, "/support/ticket/"+created.TicketID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ticket models.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &ticket); err != nil {
		t.Fatal(err)
	}
	if ticket.ID.String() != created.TicketID {
		t.Fatal("ticket id mismatch")
	}
}

func TestTicketStatusNotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	r := chi.NewRouter()
	r.Get("/support/ticket/{id}", h.TicketStatus)

	req := httptest.NewRequest(http.MethodGet, "/support/ticket/9b2f6a4e-9f5b-4a57-b1b0-0d1a2b3c4d5e", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWhatsAppWebhookQueuesEvent(t *testing.T) {
	h, _, pub := newTestHandler()

	form := url.Values{}
	form.Set("From", "whatsapp:+14155550123")
	form.Set("Body", "my account is locked")
	form.Set("MessageSid", "SM123")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.WhatsAppWebhook(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(pub.inbound) != 1 {
		t.Fatalf("expected one queued event, got %d", len(pub.inbound))
	}
	ev := pub.inbound[0].(*models.InboundEvent)
	if ev.EventID != "wa-SM123" {
		t.Fatalf("event id should derive from the provider message id, got %q", ev.EventID)
	}
	if ev.CustomerPhone != "+14155550123" {
		t.Fatalf("unexpected phone %q", ev.CustomerPhone)
	}
}

func TestWhatsAppWebhookRejectsBadSender(t *testing.T) {
	h, _, _ := newTestHandler()

	form := url.Values{}
	form.Set("From", "whatsapp:nonsense")
	form.Set("Body", "hi")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.WhatsAppWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLookupCustomer(t *testing.T) {
	h, ds, _ := newTestHandler()

	if _, err := ds.CreateCustomer(context.Background(), "cara@example.com", "", "Cara"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/customers/lookup?email=cara@example.com", nil)
	w := httptest.NewRecorder()
	h.LookupCustomer(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp LookupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Customer.Email != "cara@example.com" {
		t.Fatalf("unexpected customer %+v", resp.Customer)
	}
}

func TestLookupCustomerNotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/customers/lookup?email=ghost@example.com", nil)
	w := httptest.NewRecorder()
	h.LookupCustomer(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
