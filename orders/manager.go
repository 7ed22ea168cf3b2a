/*
Package orders owns the order lifecycle and the commission fan-out.

PURPOSE:
  Checkout turns a cart into a PENDING order after quoting shipping and
  charging the customer. CreateOrder persists the order and, when a
  reseller is attached, records commission per line item. UpdateStatus
  walks the state machine and audits each hop.

STATE MACHINE:
  PENDING -> PROCESSING -> SHIPPED -> DELIVERED
  CANCELLED from any non-terminal state. Terminal states admit nothing.

IDEMPOTENT FAN-OUT:
  Commission is credited once per line item, never per call. Two guards:
  - Order.CreditedItems persists which item indices are already credited;
    a retried CreateOrder skips them.
  - Each credit carries the audit idempotency key "order-<id>-item-<n>";
    the audit log rejects duplicates even if the marker write was lost.
  A credit is applied, then its marker written. Losing the marker write
  costs a retry a duplicate-key error for that item, not a double credit.

SEE ALSO:
  - commission/recorder.go: The per-item credit
  - ledger/types.go: Order, OrderStatus
*/
package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/commission"
	"github.com/omega/commerce-engine/ledger"
)

// validTransitions maps each state to its allowed successors.
var validTransitions = map[ledger.OrderStatus][]ledger.OrderStatus{
	ledger.OrderPending:    {ledger.OrderProcessing, ledger.OrderCancelled},
	ledger.OrderProcessing: {ledger.OrderShipped, ledger.OrderCancelled},
	ledger.OrderShipped:    {ledger.OrderDelivered, ledger.OrderCancelled},
}

func transitionAllowed(from, to ledger.OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Manager coordinates checkout, persistence and the commission fan-out.
type Manager struct {
	orders   ledger.OrderStore
	members  ledger.MemberStore
	audit    ledger.AuditLog
	recorder *commission.Recorder
	gateway  PaymentGateway
	quoter   RateQuoter

	environment string
	now         func() time.Time
}

func NewManager(
	orders ledger.OrderStore,
	members ledger.MemberStore,
	audit ledger.AuditLog,
	recorder *commission.Recorder,
	gateway PaymentGateway,
	quoter RateQuoter,
	environment string,
) *Manager {
	return &Manager{
		orders:      orders,
		members:     members,
		audit:       audit,
		recorder:    recorder,
		gateway:     gateway,
		quoter:      quoter,
		environment: environment,
		now:         time.Now,
	}
}

// SetClock overrides the time source. For tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// CheckoutInput is a customer cart ready to pay.
type CheckoutInput struct {
	Customer   ledger.Customer
	Items      []ledger.LineItem
	ResellerID ledger.MemberID // optional referral attribution
}

// Checkout quotes shipping, charges the customer and creates the order.
//
// A non-approved charge aborts before anything is persisted: no order
// document, no wallet change, no audit entry.
func (m *Manager) Checkout(ctx context.Context, in CheckoutInput) (*ledger.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("checkout requires at least one item: %w", ledger.ErrInvalidSaleInput)
	}

	subtotal := decimal.Zero
	for _, item := range in.Items {
		subtotal = subtotal.Add(item.Subtotal())
	}

	quote, err := m.quoter.Quote(ctx, in.Customer.ZipCode, len(in.Items))
	if err != nil {
		return nil, err
	}
	total := subtotal.Add(quote.Cost)

	charge, err := m.gateway.Charge(ctx, total, in.Customer.Email)
	if err != nil {
		return nil, err
	}
	if charge.Status != ChargeApproved {
		return nil, fmt.Errorf("charge %s: %s: %w", charge.Status, charge.Message, ledger.ErrPaymentDeclined)
	}

	order := ledger.Order{
		ID:               ledger.OrderID(uuid.NewString()),
		TrackingID:       GenerateTrackingID(quote.Provider),
		Status:           ledger.OrderPending,
		Total:            total,
		Customer:         in.Customer,
		Items:            in.Items,
		ResellerID:       in.ResellerID,
		ShippingProvider: quote.Provider,
		PaymentID:        charge.PaymentID,
		CreatedAt:        m.now(),
		UpdatedAt:        m.now(),
	}
	return m.CreateOrder(ctx, order)
}

// CreateOrder persists an order and runs the commission fan-out.
//
// Idempotent on order ID: calling it again with an already-stored order
// does not re-persist, and the fan-out skips every already-credited
// item. A previous partial run resumes where it stopped.
//
// When a reseller is attached but unknown, the whole call fails with
// ErrUnknownMember and nothing is persisted.
func (m *Manager) CreateOrder(ctx context.Context, order ledger.Order) (*ledger.Order, error) {
	if order.ResellerID != "" {
		if _, err := m.members.GetMember(ctx, order.ResellerID); err != nil {
			return nil, err
		}
	}

	existing, err := m.orders.GetOrder(ctx, order.ID)
	switch {
	case err == nil:
		order = *existing
	case errors.Is(err, ledger.ErrUnknownOrder):
		if order.Status == "" {
			order.Status = ledger.OrderPending
		}
		if err := m.orders.PutOrder(ctx, order); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if order.ResellerID == "" {
		return &order, nil
	}
	return m.creditItems(ctx, order)
}

// creditItems records one commission per not-yet-credited line item.
func (m *Manager) creditItems(ctx context.Context, order ledger.Order) (*ledger.Order, error) {
	current := &order
	for i, item := range order.Items {
		if current.ItemCredited(i) {
			continue
		}

		_, err := m.recorder.RecordSale(ctx, commission.SaleInput{
			ResellerID: order.ResellerID,
			Product: ledger.ProductRef{
				ID:   item.ProductID,
				Name: item.Name,
			},
			SalePrice:      item.Subtotal(),
			IdempotencyKey: itemIdempotencyKey(order.ID, i),
		})
		if errors.Is(err, ledger.ErrDuplicateIdempotencyKey) {
			// Credited on a previous run whose marker write was lost.
			// Fall through and write the marker now.
			log.Printf("[Orders] order %s item %d: already credited, repairing marker", order.ID, i)
		} else if err != nil {
			return current, err
		}

		idx := i
		current, err = m.orders.MutateOrder(ctx, order.ID, func(o *ledger.Order) error {
			if !o.ItemCredited(idx) {
				o.CreditedItems = append(o.CreditedItems, idx)
			}
			o.UpdatedAt = m.now()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func itemIdempotencyKey(orderID ledger.OrderID, item int) string {
	return fmt.Sprintf("order-%s-item-%d", orderID, item)
}

// UpdateStatus moves an order along the state machine and audits the hop.
//
// Invalid hops, including any transition out of DELIVERED or CANCELLED,
// fail with InvalidTransitionError and leave the order untouched.
func (m *Manager) UpdateStatus(ctx context.Context, id ledger.OrderID, to ledger.OrderStatus, actorID ledger.MemberID) (*ledger.Order, error) {
	var from ledger.OrderStatus
	updated, err := m.orders.MutateOrder(ctx, id, func(o *ledger.Order) error {
		from = o.Status
		if !transitionAllowed(o.Status, to) {
			return &ledger.InvalidTransitionError{
				Entity: "order",
				ID:     string(o.ID),
				From:   string(o.Status),
				To:     string(to),
			}
		}
		o.Status = to
		o.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Action:      ledger.ActionOrderStatusChanged,
		Details:     fmt.Sprintf("Order %s: %s -> %s", updated.TrackingID, from, to),
		Environment: m.environment,
		CreatedAt:   m.now(),
	}
	if err := m.audit.AppendAudit(ctx, entry); err != nil {
		log.Printf("[Orders] audit append failed for order %s: %v", id, err)
	}
	return updated, nil
}

// VisibleOrders returns the orders a member may see: admins see all,
// everyone else only orders attributed to them.
func (m *Manager) VisibleOrders(ctx context.Context, viewer *ledger.Member) ([]ledger.Order, error) {
	if viewer.Role == ledger.RoleAdmin {
		return m.orders.ListOrders(ctx, ledger.OrderFilter{})
	}
	return m.orders.ListOrders(ctx, ledger.OrderFilter{ResellerID: &viewer.ID})
}

// GenerateTrackingID returns "<PROVIDER>-XXXXXXXX" with a random hex
// suffix, uppercased, spaces in the provider name collapsed.
func GenerateTrackingID(provider string) string {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// Zero suffix keeps the format intact if the OS RNG fails.
		copy(buf, []byte{0, 0, 0, 0})
	}
	name := strings.ToUpper(strings.ReplaceAll(provider, " ", ""))
	if name == "" {
		name = "SHIP"
	}
	return fmt.Sprintf("%s-%s", name, strings.ToUpper(hex.EncodeToString(buf)))
}
