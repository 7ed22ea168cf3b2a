/*
Package ledger provides the core entity model and storage contracts for the
reseller commerce engine.

PURPOSE:
  This package contains the domain entities shared by every subsystem
  (commission recording, orders, payouts, reward redemption, activation)
  and the storage interfaces they are persisted through. Everything that
  moves money or points lives behind these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: A team participant (admin, leader, reseller) with a wallet
    (unpaid commission), a points balance, and attributed sale volume
  - AuditEntry: An immutable record of every state-changing operation
  - Order: A checkout result with line items and optional reseller attribution
  - Coupon: A minted reward redemption with code, value, and expiry
  - Product: Catalog item referenced by sales and order line items
  - Settings: The global settings document (rates, withdrawal switch)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing member/order IDs
  3. Auditability: Every money/points mutation produces exactly one AuditEntry
  4. Tombstoning: Members are never hard-deleted; rejection is a status

SEE ALSO:
  - store.go: Persistence interfaces (Get/List/Put/Mutate per collection)
  - errors.go: Sentinel and structured error types
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type OrderID string
type CouponID string
type ProductID string

// =============================================================================
// MEMBER - Team participant with wallet and points
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleLeader   Role = "LEADER"
	RoleReseller Role = "RESELLER"
)

// MemberStatus is the activation lifecycle state.
//
// Transition graph (enforced by the activation service):
//
//	PENDING -> ACTIVE
//	PENDING -> REJECTED
//
// ACTIVE and REJECTED never transition back to PENDING. INACTIVE is an
// administrative flag for dormant accounts, not part of the approval flow.
type MemberStatus string

const (
	MemberPending  MemberStatus = "PENDING"
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
	MemberRejected MemberStatus = "REJECTED"
)

// Member is a participant in the reseller hierarchy.
//
// INVARIANTS:
//   - Wallet >= 0 (payouts refuse overdraft)
//   - Points >= 0 (redemptions refuse overdraw)
//   - LeaderID is a back-reference only, never an ownership edge
type Member struct {
	ID     MemberID
	Name   string
	Email  string
	Phone  string
	Role   Role
	Status MemberStatus

	// Wallet is accumulated unpaid commission.
	Wallet decimal.Decimal
	// Points is the gamification currency.
	Points int64
	// SalesThisMonth is cumulative attributed sale volume, reset monthly.
	SalesThisMonth decimal.Decimal

	// LeaderID references the supervising leader, if any.
	LeaderID MemberID
	// CustomCommissionRate overrides the global default when non-nil.
	CustomCommissionRate *decimal.Decimal

	ActivationProofURL string
	JoinedAt           time.Time
}

// EffectiveRate returns the member's commission rate, falling back to the
// given default when no override is set.
func (m *Member) EffectiveRate(defaultRate decimal.Decimal) decimal.Decimal {
	if m.CustomCommissionRate != nil {
		return *m.CustomCommissionRate
	}
	return defaultRate
}

// =============================================================================
// AUDIT ENTRY - Immutable trail of state-changing operations
// =============================================================================

type AuditAction string

const (
	ActionSaleReferral       AuditAction = "SALE_REFERRAL"
	ActionPayoutProcessed    AuditAction = "PAYOUT_PROCESSED"
	ActionMemberAdded        AuditAction = "MEMBER_ADDED"
	ActionMemberApproved     AuditAction = "MEMBER_APPROVED"
	ActionMemberRejected     AuditAction = "MEMBER_REJECTED"
	ActionRewardRedeemed     AuditAction = "REWARD_REDEEMED"
	ActionSettingsUpdate     AuditAction = "SETTINGS_UPDATE"
	ActionOrderStatusChanged AuditAction = "ORDER_STATUS_CHANGED"
)

// AuditEntry records who did what when.
//
// INVARIANTS:
//   - Append-only: entries are never updated or deleted
//   - IdempotencyKey, when set, is unique across the log; a retried write
//     with the same key is rejected before any effect
type AuditEntry struct {
	ID          string
	ActorID     MemberID
	Action      AuditAction
	Details     string
	Environment string // "SIMULATION" or "PRODUCTION"
	ProofURL    string

	// IdempotencyKey guards retried financial operations.
	IdempotencyKey string

	CreatedAt time.Time
}

// =============================================================================
// ORDER - Checkout result with optional reseller attribution
// =============================================================================

// OrderStatus is the order state machine.
//
//	PENDING -> PROCESSING -> SHIPPED -> DELIVERED
//	CANCELLED reachable from any non-terminal state
//
// DELIVERED and CANCELLED are terminal.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type LineItem struct {
	ProductID ProductID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Image     string
}

// Subtotal returns unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Customer struct {
	Name    string
	Address string
	City    string
	Phone   string
	Email   string
	ZipCode string
}

type Order struct {
	ID         OrderID
	TrackingID string
	Status     OrderStatus
	Total      decimal.Decimal
	Customer   Customer
	Items      []LineItem

	// ResellerID is the referral attribution; at most one per order.
	ResellerID MemberID

	ShippingProvider string
	PaymentID        string

	// CreditedItems holds indices of line items whose commission has been
	// recorded. Persisted markers make the fan-out resumable: a retried
	// CreateOrder skips indices already present here.
	CreditedItems []int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCredited reports whether line item i has had its commission recorded.
func (o *Order) ItemCredited(i int) bool {
	for _, c := range o.CreditedItems {
		if c == i {
			return true
		}
	}
	return false
}

// =============================================================================
// COUPON - Minted by reward redemption
// =============================================================================

type CouponStatus string

const (
	CouponActive  CouponStatus = "ACTIVE"
	CouponUsed    CouponStatus = "USED"
	CouponExpired CouponStatus = "EXPIRED"
)

type Coupon struct {
	ID          CouponID
	Code        string // unique, PREFIX-CATEGORY-NNNN
	MemberID    MemberID
	RewardTitle string
	Value       string // e.g. "$1000" or the reward's own title
	Status      CouponStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// =============================================================================
// PRODUCT - Catalog item
// =============================================================================

type Product struct {
	ID            ProductID
	SKU           string
	Name          string
	Description   string
	PriceList     decimal.Decimal
	PriceReseller decimal.Decimal
	Stock         int
	Category      string
	Image         string
	IsPromo       bool
}

// ProductRef is the slice of product identity carried on sale records.
type ProductRef struct {
	ID   ProductID
	SKU  string
	Name string
}

func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, SKU: p.SKU, Name: p.Name}
}

// =============================================================================
// SETTINGS - Global settings document (single row)
// =============================================================================

type Settings struct {
	PlatformName          string
	DefaultCommissionRate decimal.Decimal // percent
	LeaderCommissionRate  decimal.Decimal // percent
	MarkupPercentage      decimal.Decimal
	WithdrawalsPaused     bool
	MaintenanceMode       bool
	UpdatedAt             time.Time
}

// DefaultSettings returns the settings document used before an admin has
// saved one.
func DefaultSettings() Settings {
	return Settings{
		PlatformName:          "Omega",
		DefaultCommissionRate: decimal.NewFromInt(5),
		LeaderCommissionRate:  decimal.NewFromInt(2),
		MarkupPercentage:      decimal.NewFromInt(35),
	}
}
