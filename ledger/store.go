/*
store.go - Persistence interfaces for members, orders, coupons, and the audit log

PURPOSE:
  Defines the contract between the domain logic and the storage backend.
  The engine depends only on these interfaces; which concrete backend is
  bound (in-memory cache for demo use, SQLite for durable use) is decided
  at startup by the host application.

THE MUTATE PRIMITIVE:
  Every balance change goes through Mutate*(id, updater): an atomic
  read-modify-write on a single document. This is what prevents lost
  updates when two operations touch the same member near-simultaneously
  (a sale and a payout landing together). Backends must linearize Mutate
  calls per document; last-writer-wins is NOT acceptable. No cross-document
  transaction is assumed anywhere.

  The updater returns an error to abort: the document is left untouched and
  the error propagates unchanged (preconditions like overdraft checks live
  inside updaters so they see current state, not a stale read).

AUDIT LOG CONTRACT:
  Append-only. No Update, No Delete. Ever. Entries carrying an idempotency
  key are unique on that key; appending a duplicate fails with
  ErrDuplicateIdempotencyKey before any effect. This is the retry guard for
  every financial operation.

FAILURE MODE:
  Backend I/O failures wrap ErrStorageUnavailable. Callers moving money
  must surface this, never swallow it.

IMPLEMENTATIONS:
  - store/memory.go:        In-memory (demo, tests)
  - store/sqlite/sqlite.go: SQLite (durable)
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// MEMBER STORE
// =============================================================================

// MemberFilter narrows ListMembers. Zero value matches everything.
type MemberFilter struct {
	Role     *Role
	Status   *MemberStatus
	LeaderID *MemberID
}

type MemberStore interface {
	// GetMember returns the member or ErrUnknownMember.
	GetMember(ctx context.Context, id MemberID) (*Member, error)

	ListMembers(ctx context.Context, f MemberFilter) ([]Member, error)

	// PutMember creates or replaces the member document.
	PutMember(ctx context.Context, m Member) error

	// MutateMember applies fn atomically to the member document and returns
	// the updated copy. Returns ErrUnknownMember if the id does not resolve.
	// If fn returns an error the document is left unchanged.
	MutateMember(ctx context.Context, id MemberID, fn func(*Member) error) (*Member, error)
}

// =============================================================================
// ORDER STORE
// =============================================================================

type OrderFilter struct {
	Status     *OrderStatus
	ResellerID *MemberID
}

type OrderStore interface {
	GetOrder(ctx context.Context, id OrderID) (*Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	PutOrder(ctx context.Context, o Order) error
	MutateOrder(ctx context.Context, id OrderID, fn func(*Order) error) (*Order, error)
}

// =============================================================================
// COUPON STORE
// =============================================================================

type CouponFilter struct {
	MemberID      *MemberID
	Status        *CouponStatus
	ExpiresBefore *time.Time
}

type CouponStore interface {
	PutCoupon(ctx context.Context, c Coupon) error
	ListCoupons(ctx context.Context, f CouponFilter) ([]Coupon, error)
	MutateCoupon(ctx context.Context, id CouponID, fn func(*Coupon) error) (*Coupon, error)
}

// =============================================================================
// PRODUCT STORE
// =============================================================================

type ProductStore interface {
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	PutProduct(ctx context.Context, p Product) error
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SettingsStore persists the single global settings document.
type SettingsStore interface {
	// GetSettings returns the stored document, or DefaultSettings() when
	// none has been saved yet.
	GetSettings(ctx context.Context) (Settings, error)
	PutSettings(ctx context.Context, s Settings) error
}

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

type AuditFilter struct {
	ActorID *MemberID
	Actions []AuditAction
	Since   *time.Time
}

type AuditLog interface {
	// AppendAudit adds an entry. Fails with ErrDuplicateIdempotencyKey if
	// the entry's key already exists. This is the ONLY write operation.
	AppendAudit(ctx context.Context, e AuditEntry) error

	// ListAudit returns entries newest first.
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	// AuditExists checks whether an idempotency key has been recorded.
	AuditExists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is the full storage surface. Backends implement all of it; domain
// services declare only the narrow slices they need.
type Store interface {
	MemberStore
	OrderStore
	CouponStore
	ProductStore
	SettingsStore
	AuditLog
}
