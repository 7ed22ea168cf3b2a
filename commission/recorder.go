/*
Recorder: applies a commission calculation to durable state.

PURPOSE:
  Given a validated sale, credit the reseller's wallet and points, bump
  their monthly sales volume, and append exactly one SALE_REFERRAL audit
  entry. The member mutation is atomic; the audit append is guarded by
  the idempotency key so a retried call cannot double-credit.

ORDERING:
  1. Reject unknown members and duplicate idempotency keys up front.
  2. Mutate the member document (wallet, points, monthly volume).
  3. Append the audit entry.
  If step 3 fails after step 2 succeeded, the caller may retry; the
  duplicate-key check then reports the sale as already recorded, which
  is the conservative outcome (never credit twice).

SEE ALSO:
  - commission/engine.go: The pure calculation
  - orders/manager.go: Drives one RecordSale per order item
*/
package commission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Notifier receives a heads-up after a sale is credited. Delivery is
// fire-and-forget: a failure is logged and never undoes the credit.
type Notifier interface {
	Notify(ctx context.Context, member *ledger.Member, message string) error
}

// SaleInput describes one sale to attribute to a reseller.
type SaleInput struct {
	ResellerID ledger.MemberID
	Product    ledger.ProductRef
	SalePrice  decimal.Decimal

	// Rate overrides the member's effective rate when non-nil.
	Rate *decimal.Decimal

	// IdempotencyKey makes retries safe. Optional for ad-hoc sales,
	// required for order-driven fan-out.
	IdempotencyKey string
}

// SaleReceipt reports what was credited.
type SaleReceipt struct {
	ResellerID ledger.MemberID
	Commission decimal.Decimal
	Points     int64
	AuditID    string
}

// Recorder records sales against member wallets.
type Recorder struct {
	engine      *Engine
	members     ledger.MemberStore
	settings    ledger.SettingsStore
	audit       ledger.AuditLog
	notifier    Notifier
	environment string
	now         func() time.Time
}

func NewRecorder(engine *Engine, members ledger.MemberStore, settings ledger.SettingsStore, audit ledger.AuditLog, environment string) *Recorder {
	return &Recorder{
		engine:      engine,
		members:     members,
		settings:    settings,
		audit:       audit,
		environment: environment,
		now:         time.Now,
	}
}

// SetClock overrides the time source. For tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// SetNotifier enables sale notifications. Optional.
func (r *Recorder) SetNotifier(n Notifier) {
	r.notifier = n
}

// RecordSale credits a reseller for one sale.
//
// The reseller must exist: an unknown ID fails the whole call with
// ErrUnknownMember rather than skipping silently, so an order fan-out
// stops instead of dropping a credit. When IdempotencyKey is set and a
// matching audit entry already exists, returns ErrDuplicateIdempotencyKey
// with no state change.
func (r *Recorder) RecordSale(ctx context.Context, in SaleInput) (*SaleReceipt, error) {
	member, err := r.members.GetMember(ctx, in.ResellerID)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		exists, err := r.audit.AuditExists(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ledger.ErrDuplicateIdempotencyKey
		}
	}

	rate := in.Rate
	if rate == nil {
		cfg, err := r.settings.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		eff := member.EffectiveRate(cfg.DefaultCommissionRate)
		rate = &eff
	}

	result, err := r.engine.Compute(in.SalePrice, *rate)
	if err != nil {
		return nil, err
	}

	updated, err := r.members.MutateMember(ctx, in.ResellerID, func(m *ledger.Member) error {
		m.Wallet = m.Wallet.Add(result.Commission)
		m.Points += result.Points
		m.SalesThisMonth = m.SalesThisMonth.Add(in.SalePrice)
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:      uuid.NewString(),
		ActorID: in.ResellerID,
		Action:  ledger.ActionSaleReferral,
		Details: fmt.Sprintf("Sale of %s for %s: commission %s, %d points",
			in.Product.Name, in.SalePrice.String(), result.Commission.String(), result.Points),
		Environment:    r.environment,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      r.now(),
	}
	if err := r.audit.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	if r.notifier != nil {
		msg := fmt.Sprintf("Sale recorded, %s! You earned %s commission and %d points.",
			updated.Name, result.Commission.String(), result.Points)
		go func(m ledger.Member) {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := r.notifier.Notify(nctx, &m, msg); err != nil {
				log.Printf("[Commission] notify %s failed: %v", m.ID, err)
			}
		}(*updated)
	}

	return &SaleReceipt{
		ResellerID: in.ResellerID,
		Commission: result.Commission,
		Points:     result.Points,
		AuditID:    entry.ID,
	}, nil
}
