package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deskroute/deskroute/internal/engine"
)

func newFallback() *engine.Engine {
	return engine.New(engine.DefaultRules())
}

func TestDecideUsesAgentAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decide" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"Billing","escalate":true,"reasons":["Payment dispute/refund"],"priority":"P1","confidence":0.88}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newFallback(), zerolog.Nop())
	res, err := c.Decide(context.Background(), engine.DecisionInput{Text: "refund please"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Category != engine.CategoryBilling || !res.Escalate || res.Priority != engine.PriorityP1 {
		t.Fatalf("agent answer not used: %+v", res)
	}
	if res.Confidence != 0.88 {
		t.Fatalf("expected confidence 0.88, got %v", res.Confidence)
	}
}

func TestDecideFallsBackWhenAgentDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newFallback(), zerolog.Nop())
	res, err := c.Decide(context.Background(), engine.DecisionInput{Text: "I was charged twice"})
	if err != nil {
		t.Fatal(err)
	}
	// Deterministic engine takes over.
	if res.Category != engine.CategoryBilling {
		t.Fatalf("expected fallback billing classification, got %+v", res)
	}
}

func TestDecideRejectsOutOfSchemaAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"category":"Nonsense","priority":"P9","confidence":4.2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newFallback(), zerolog.Nop())
	res, err := c.Decide(context.Background(), engine.DecisionInput{Text: "system is down, outage everywhere"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Category != engine.CategoryTechnical {
		t.Fatalf("invalid agent answer should fall back, got %+v", res)
	}
}

func TestDecideAppliesOverrideAfterFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newFallback(), zerolog.Nop())
	res, err := c.Decide(context.Background(), engine.DecisionInput{Text: "hello", MustEscalate: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Escalate {
		t.Fatal("override must force escalation regardless of provider path")
	}
}
