// Package identity maps a raw inbound event's channel identifiers to a
// stable customer identity and an active-or-new conversation.
package identity

import (
	"context"

	"github.com/deskroute/deskroute/internal/models"
	"github.com/deskroute/deskroute/internal/store"
)

// Resolution is the outcome of resolving one inbound event.
type Resolution struct {
	Customer        *models.Customer
	Conversation    *models.Conversation
	NewCustomer     bool
	NewConversation bool
}

// Resolver looks up or creates the customer and conversation an event
// belongs to.
type Resolver struct {
	store store.DataStore
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(ds store.DataStore) *Resolver {
	return &Resolver{store: ds}
}

// Resolve returns the customer and conversation for an event. An event
// with neither email nor phone fails with models.ErrUnresolvable, which
// is not retryable.
func (r *Resolver) Resolve(ctx context.Context, ev *models.InboundEvent) (*Resolution, error) {
	customer, created, err := r.resolveCustomer(ctx, ev)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Customer: customer, NewCustomer: created}

	conv, err := r.store.FindActiveConversation(ctx, customer.ID, models.ContinuityWindow)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv, err = r.store.CreateConversation(ctx, customer.ID, ev.Channel)
		if err != nil {
			return nil, err
		}
		res.NewConversation = true
	}
	res.Conversation = conv

	return res, nil
}

func (r *Resolver) resolveCustomer(ctx context.Context, ev *models.InboundEvent) (*models.Customer, bool, error) {
	switch {
	case ev.CustomerEmail != "":
		customer, err := r.store.FindCustomerByEmail(ctx, ev.CustomerEmail)
		if err != nil {
			return nil, false, err
		}
		if customer != nil {
			return customer, false, nil
		}
	case ev.CustomerPhone != "":
		customer, err := r.store.FindCustomerByPhone(ctx, ev.CustomerPhone)
		if err != nil {
			return nil, false, err
		}
		if customer != nil {
			return customer, false, nil
		}
	default:
		return nil, false, models.ErrUnresolvable
	}

	// CreateCustomer is conflict-safe on the identifier, so a concurrent
	// create for the same identifier returns the winner's record.
	customer, err := r.store.CreateCustomer(ctx, ev.CustomerEmail, ev.CustomerPhone, ev.CustomerName)
	if err != nil {
		return nil, false, err
	}
	return customer, true, nil
}
