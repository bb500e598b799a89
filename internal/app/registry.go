// Package app assembles the resource-kind registry: which kinds exist, how
// their records link back to users, and what each action requires. The
// registry is built once at startup and frozen; nothing mutates it afterwards.
package app

import (
	"time"

	"github.com/iflyair/ifly-backend/internal/core/access"
	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// adminWrites is the policy block shared by catalog-style kinds: anyone may
// read, only admins may write.
func adminWrites() access.Policy {
	return access.Policy{
		"list":        {access.AllowAny},
		"retrieve":    {access.AllowAny},
		"create":      {access.AdminOnly},
		"update":      {access.AdminOnly},
		"delete":      {access.AdminOnly},
		"bulk_delete": {access.AdminOnly},
	}
}

// BuildRegistry registers every resource kind and freezes the registry.
func BuildRegistry(notifier ports.Notifier) *access.Registry {
	b := access.NewBuilder()

	b.Register(access.Kind{
		Name:      "flights",
		Ownership: access.Public(),
		Policy:    adminWrites(),
		Schema: access.Schema{Fields: []access.Field{
			{Name: "airline", Type: access.FieldString, Required: true},
			{Name: "flight_number", Type: access.FieldString, Required: true},
			{Name: "origin", Type: access.FieldString, Required: true, Validate: "len=3,uppercase"},
			{Name: "destination", Type: access.FieldString, Required: true, Validate: "len=3,uppercase"},
			{Name: "departs_at", Type: access.FieldTime, Required: true},
			{Name: "arrives_at", Type: access.FieldTime, Required: true},
			{Name: "price", Type: access.FieldFloat, Required: true, Validate: "gt=0"},
			{Name: "seats", Type: access.FieldInt, Required: true, Validate: "gte=0"},
		}},
	})

	b.Register(access.Kind{
		Name: "promotions",
		// Inactive promotions are staff-only; the active flag decides
		// visibility rather than any ownership link.
		Ownership: access.Custom(func(p domain.Principal, rec domain.Record) bool {
			return rec.Bool("active")
		}),
		Policy: adminWrites(),
		Schema: access.Schema{Fields: []access.Field{
			{Name: "code", Type: access.FieldString, Required: true, Validate: "min=3"},
			{Name: "description", Type: access.FieldString},
			{Name: "discount_pct", Type: access.FieldFloat, Required: true, Validate: "gt=0,lte=100"},
			{Name: "active", Type: access.FieldBool, Required: true},
		}},
	})

	b.Register(access.Kind{
		Name:      "accounts",
		Ownership: access.Direct(),
		Policy: access.Policy{
			"create":      {access.AdminOnly},
			"update":      {access.AdminOnly},
			"delete":      {access.AdminOnly},
			"bulk_delete": {access.AdminOnly},
		},
		Schema: access.Schema{Fields: []access.Field{
			{Name: "user_id", Type: access.FieldInt},
			{Name: "balance", Type: access.FieldInt},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: stampCreatedAt,
	})

	b.Register(access.Kind{
		Name:      "points",
		Ownership: access.ViaAccount(),
		Policy: access.Policy{
			"create":      {access.AdminOnly},
			"update":      {access.AdminOnly},
			"delete":      {access.AdminOnly},
			"bulk_delete": {access.AdminOnly},
		},
		Schema: access.Schema{Fields: []access.Field{
			{Name: "account_id", Type: access.FieldInt, Required: true},
			{Name: "delta", Type: access.FieldInt, Required: true},
			{Name: "reason", Type: access.FieldString, Required: true},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: stampCreatedAt,
	})

	b.Register(access.Kind{
		Name:      "orders",
		Ownership: access.Direct(),
		Schema: access.Schema{Fields: []access.Field{
			{Name: "user_id", Type: access.FieldInt},
			{Name: "total", Type: access.FieldFloat, Required: true, Validate: "gt=0"},
			{Name: "currency", Type: access.FieldString, Required: true, Validate: "len=3,uppercase"},
			{Name: "status", Type: access.FieldString, Validate: "omitempty,oneof=pending paid cancelled"},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: func(p domain.Principal, rec domain.Record) error {
			if _, ok := rec.String("status"); !ok {
				rec["status"] = "pending"
			}
			return stampCreatedAt(p, rec)
		},
	})

	b.Register(access.Kind{
		Name:      "bookings",
		Ownership: access.ViaOrder(),
		Schema: access.Schema{Fields: []access.Field{
			{Name: "order_id", Type: access.FieldInt, Required: true},
			{Name: "flight_id", Type: access.FieldInt, Required: true},
			{Name: "passenger_name", Type: access.FieldString, Required: true},
			{Name: "seat", Type: access.FieldString},
			{Name: "cabin", Type: access.FieldString, Validate: "omitempty,oneof=economy business first"},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: stampCreatedAt,
	})

	b.Register(access.Kind{
		Name:      "payments",
		Ownership: access.ViaOrder(),
		Policy: access.Policy{
			"delete":      {access.AdminOnly},
			"bulk_delete": {access.AdminOnly},
		},
		Schema: access.Schema{Fields: []access.Field{
			{Name: "order_id", Type: access.FieldInt, Required: true},
			{Name: "amount", Type: access.FieldFloat, Required: true, Validate: "gt=0"},
			{Name: "method", Type: access.FieldString, Required: true, Validate: "oneof=card paypal points"},
			{Name: "status", Type: access.FieldString, Validate: "omitempty,oneof=pending captured refunded"},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: func(p domain.Principal, rec domain.Record) error {
			if _, ok := rec.String("status"); !ok {
				rec["status"] = "pending"
			}
			return stampCreatedAt(p, rec)
		},
	})

	b.Register(access.Kind{
		Name:      "notifications",
		Ownership: access.Direct(),
		Policy: access.Policy{
			// Written by the delivery pipeline; users only read and mark read.
			"create":      {access.AdminOnly},
			"bulk_delete": {access.AdminOnly},
		},
		Schema: access.Schema{Fields: []access.Field{
			{Name: "user_id", Type: access.FieldInt},
			{Name: "event", Type: access.FieldString, Required: true},
			{Name: "subject", Type: access.FieldString},
			{Name: "body", Type: access.FieldString},
			{Name: "read", Type: access.FieldBool},
			{Name: "created_at", Type: access.FieldTime, ReadOnly: true},
		}},
		BeforeCreate: stampCreatedAt,
	})

	registerTickets(b, notifier)

	return b.Freeze()
}

func stampCreatedAt(_ domain.Principal, rec domain.Record) error {
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = time.Now().UTC()
	}
	return nil
}
