package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/store"
)

func emailEvent(email string) *models.InboundEvent {
	return &models.InboundEvent{
		EventID:       "01TESTEVENT",
		Channel:       models.ChannelEmail,
		CustomerEmail: email,
		Content:       "hello",
		ReceivedAt:    time.Now().UTC(),
	}
}

func TestResolveCreatesCustomerAndConversation(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	res, err := r.Resolve(context.Background(), emailEvent("ana@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.NewCustomer || !res.NewConversation {
		t.Fatalf("expected new customer and conversation, got %+v", res)
	}
	if res.Customer.Email != "ana@example.com" {
		t.Fatalf("unexpected customer email %q", res.Customer.Email)
	}
	if res.Conversation.InitialChannel != models.ChannelEmail {
		t.Fatalf("conversation should be tagged with arriving channel, got %q", res.Conversation.InitialChannel)
	}
	if res.Conversation.Status != models.ConversationActive {
		t.Fatalf("new conversation should be active, got %q", res.Conversation.Status)
	}
}

func TestResolveReusesActiveConversation(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())
	ctx := context.Background()

	first, err := r.Resolve(ctx, emailEvent("ben@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	// Same customer from a different channel attaches to the same thread.
	ev := &models.InboundEvent{
		EventID:       "01TESTEVENT2",
		Channel:       models.ChannelWhatsApp,
		CustomerEmail: "ben@example.com",
		Content:       "following up",
		ReceivedAt:    time.Now().UTC(),
	}
	second, err := r.Resolve(ctx, ev)
	if err != nil {
		t.Fatal(err)
	}

	if second.NewCustomer || second.NewConversation {
		t.Fatalf("expected reuse, got %+v", second)
	}
	if second.Customer.ID != first.Customer.ID {
		t.Fatal("same identifier must resolve to the same customer")
	}
	if second.Conversation.ID != first.Conversation.ID {
		t.Fatal("event inside continuity window must attach to the active conversation")
	}
}

func TestResolvePhoneIdentifier(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	ev := &models.InboundEvent{
		EventID:       "01TESTEVENT3",
		Channel:       models.ChannelWhatsApp,
		CustomerPhone: "+14155550100",
		Content:       "hi there",
		ReceivedAt:    time.Now().UTC(),
	}
	res, err := r.Resolve(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	if res.Customer.Phone != "+14155550100" {
		t.Fatalf("unexpected phone %q", res.Customer.Phone)
	}
}

func TestResolveRejectsEventWithoutIdentifier(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	ev := &models.InboundEvent{
		EventID:    "01TESTEVENT4",
		Channel:    models.ChannelWebForm,
		Content:    "anonymous shout",
		ReceivedAt: time.Now().UTC(),
	}
	_, err := r.Resolve(context.Background(), ev)
	if !errors.Is(err, models.ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
}

func TestResolveConcurrentSameIdentifierConverges(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			res, err := r.Resolve(ctx, emailEvent("race@example.com"))
			if err != nil {
				t.Error(err)
				return
			}
			ids[slot] = res.Customer.ID.String()
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent resolution produced distinct customers: %v", ids)
		}
	}
}
