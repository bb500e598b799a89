package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iflyair/ifly-backend/internal/core/access"
	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

const messagesKind = "support/messages"

// registerTickets adds the support-ticket kind and its read-only message
// feed. Tickets carry the one non-trivial state machine in the system:
// open → in_progress → closed, with reopen reserved to admins.
func registerTickets(b *access.Builder, notifier ports.Notifier) {
	b.Register(access.Kind{
		Name:      "tickets",
		Ownership: access.Direct(),
		Policy: access.Policy{
			"reopen": {access.AdminOnly},
		},
		Schema: access.Schema{Fields: []access.Field{
			{Name: "user_id", Type: access.FieldInt},
			{Name: "subject", Type: access.FieldString, Required: true},
			{Name: "status", Type: access.FieldString, Validate: "omitempty,oneof=open in_progress closed"},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: func(p domain.Principal, rec domain.Record) error {
			// Tickets always start open, whatever the body claimed.
			rec["status"] = string(domain.TicketOpen)
			return stampCreatedAt(p, rec)
		},
		BeforeUpdate: vetTicketTransition,
		Actions: map[string]access.ActionFunc{
			"add_message": addMessage(notifier),
			"close":       transitionTo(domain.TicketClosed),
			"reopen":      transitionTo(domain.TicketInProgress),
		},
	})

	b.Register(access.Kind{
		Name:      messagesKind,
		Ownership: access.ViaTicket(),
		ReadOnly:  true,
		Schema: access.Schema{Fields: []access.Field{
			{Name: "ticket_id", Type: access.FieldInt, Required: true},
			{Name: "author_id", Type: access.FieldInt, ReadOnly: true},
			{Name: "message", Type: access.FieldString, Required: true},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
	})
}

// vetTicketTransition enforces the status state machine on plain updates.
func vetTicketTransition(p domain.Principal, current domain.Record, patch domain.Record) error {
	next, ok := patch.String("status")
	if !ok {
		return nil
	}
	from := ticketStatus(current)
	to := domain.TicketStatus(next)
	if from == to {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, from, to)
	}
	if domain.AdminOnlyTransition(from, to) && !p.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// addMessage appends a message to a ticket. The first message moves an open
// ticket to in_progress; the status flip is a compare-and-set on the current
// status so concurrent first messages cannot double-apply it. The ticket
// owner is notified afterwards; delivery is idempotent and out of band.
func addMessage(notifier ports.Notifier) access.ActionFunc {
	return func(ctx context.Context, ac access.ActionContext) (any, error) {
		raw, _ := ac.Body["message"].(string)
		message := strings.TrimSpace(raw)
		if message == "" {
			return nil, domain.NewValidationError("message", "this field is required")
		}

		ticketID := ac.Record.ID()
		now := time.Now().UTC()

		if ticketStatus(ac.Record) == domain.TicketOpen {
			// A lost race means another message already advanced the status;
			// the zero-modified result is ignored deliberately.
			_, err := ac.Store.UpdateWhere(ctx, "tickets",
				ports.Eq("id", ticketID).And(ports.Eq("status", string(domain.TicketOpen))),
				domain.Record{"status": string(domain.TicketInProgress)},
			)
			if err != nil {
				return nil, err
			}
		}

		msg, err := ac.Store.Insert(ctx, messagesKind, domain.Record{
			"ticket_id":  ticketID,
			"author_id":  ac.Principal.ID,
			"message":    message,
			"created_at": now,
		})
		if err != nil {
			return nil, err
		}

		if ownerID, ok := ac.Record.Int64("user_id"); ok && ownerID != ac.Principal.ID {
			notifier.Enqueue(ports.NotificationInput{
				UserID:    ownerID,
				Event:     "ticket_message",
				Subject:   "New message on your support ticket",
				Body:      message,
				Timestamp: now,
			})
		}

		return msg, nil
	}
}

// transitionTo returns an action applying a single status transition with
// compare-and-set semantics. A concurrent transition surfaces as a conflict.
func transitionTo(to domain.TicketStatus) access.ActionFunc {
	return func(ctx context.Context, ac access.ActionContext) (any, error) {
		from := ticketStatus(ac.Record)
		if !from.CanTransitionTo(to) {
			return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, from, to)
		}
		if domain.AdminOnlyTransition(from, to) && !ac.Principal.IsAdmin() {
			return nil, domain.ErrForbidden
		}

		modified, err := ac.Store.UpdateWhere(ctx, "tickets",
			ports.Eq("id", ac.Record.ID()).And(ports.Eq("status", string(from))),
			domain.Record{"status": string(to)},
		)
		if err != nil {
			return nil, err
		}
		if modified == 0 {
			return nil, domain.ErrConflict
		}

		updated := ac.Record.Clone()
		updated["status"] = string(to)
		return updated, nil
	}
}

func ticketStatus(rec domain.Record) domain.TicketStatus {
	s, _ := rec.String("status")
	return domain.TicketStatus(s)
}
