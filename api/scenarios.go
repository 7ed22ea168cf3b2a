/*
scenarios.go - Demo seed data and simulated collaborators

PURPOSE:

	Provides the simulated payment gateway, shipping quoter, notifier and
	markup advisor used in SIMULATION mode, plus a demo seed that
	populates the store with a realistic team, catalog and order history.

SIMULATED COLLABORATORS:

	SimGateway:    Approves every charge except amounts ending in .99,
	               which it rejects so declined-payment paths are testable.
	SimQuoter:     Flat-rate quote with a deterministic carrier.
	SimUploader:   Fakes proof image uploads with a stable URL.
	LogNotifier:   Prints notifications to the server log.
	CannedAdvisor: Returns the configured default markup with a fixed
	               rationale.

NOTE:

	SeedDemo overwrites documents with fixed IDs. Only use in
	development/demo environments.

SEE ALSO:
  - cmd/server/main.go: Wires simulations in demo mode
  - orders/collab.go: The interfaces implemented here
*/
package api

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/activation"
	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/orders"
)

// =============================================================================
// SIMULATED COLLABORATORS
// =============================================================================

// SimGateway is a payment gateway that approves everything except
// amounts whose cents are .99.
type SimGateway struct{}

func (SimGateway) Charge(ctx context.Context, amount decimal.Decimal, payerEmail string) (orders.ChargeResult, error) {
	if strings.HasSuffix(amount.StringFixed(2), ".99") {
		return orders.ChargeResult{
			Status:  orders.ChargeRejected,
			Message: "card declined by issuer",
		}, nil
	}
	return orders.ChargeResult{
		Status:    orders.ChargeApproved,
		PaymentID: "sim-" + uuid.NewString()[:8],
		Message:   "approved",
	}, nil
}

// SimQuoter returns a flat-rate quote from a fixed carrier.
type SimQuoter struct {
	BaseCost decimal.Decimal
	PerItem  decimal.Decimal
	Carrier  string
}

func NewSimQuoter() SimQuoter {
	return SimQuoter{
		BaseCost: decimal.NewFromInt(5000),
		PerItem:  decimal.NewFromInt(1200),
		Carrier:  "Andreani",
	}
}

func (q SimQuoter) Quote(ctx context.Context, zipCode string, itemCount int) (orders.ShippingQuote, error) {
	cost := q.BaseCost.Add(q.PerItem.Mul(decimal.NewFromInt(int64(itemCount))))
	return orders.ShippingQuote{
		Cost:     cost,
		ETA:      "3-5 business days",
		Provider: q.Carrier,
	}, nil
}

// LogNotifier prints notifications to the server log instead of sending
// them anywhere.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, member *ledger.Member, message string) error {
	log.Printf("[Notify] -> %s (%s): %s", member.Name, member.Phone, message)
	return nil
}

var _ activation.Notifier = LogNotifier{}

// SimUploader pretends to store proof images and hands back a stable
// fake URL derived from the upload name.
type SimUploader struct{}

func (SimUploader) UploadImage(ctx context.Context, data []byte, name string) (string, error) {
	return fmt.Sprintf("https://cdn.omega.example/proofs/%s.jpg", name), nil
}

// CannedAdvisor suggests the platform default markup unchanged.
type CannedAdvisor struct{}

func (CannedAdvisor) SuggestMarkup(ctx context.Context, product ledger.Product, defaultMarkup decimal.Decimal) (decimal.Decimal, string, error) {
	return defaultMarkup, fmt.Sprintf("Default platform markup for %s", product.Category), nil
}

// =============================================================================
// DEMO SEED
// =============================================================================

// SeedDemo populates the store with a small team, a product catalog and
// platform settings. Existing documents with the same IDs are replaced.
func SeedDemo(ctx context.Context, store ledger.Store) error {
	now := time.Now()
	rate7 := decimal.NewFromInt(7)

	members := []ledger.Member{
		{
			ID: "admin-1", Name: "Valeria Soto", Email: "valeria@omega.test",
			Phone: "+54911000001", Role: ledger.RoleAdmin, Status: ledger.MemberActive,
			Wallet: decimal.Zero, SalesThisMonth: decimal.Zero,
			JoinedAt: now.AddDate(-1, 0, 0),
		},
		{
			ID: "leader-1", Name: "Marcos Funes", Email: "marcos@omega.test",
			Phone: "+54911000002", Role: ledger.RoleLeader, Status: ledger.MemberActive,
			Wallet: decimal.NewFromInt(82000), Points: 3100,
			SalesThisMonth: decimal.NewFromInt(410000),
			JoinedAt:       now.AddDate(0, -8, 0),
		},
		{
			ID: "reseller-1", Name: "Lucia Paredes", Email: "lucia@omega.test",
			Phone: "+54911000003", Role: ledger.RoleReseller, Status: ledger.MemberActive,
			Wallet: decimal.NewFromInt(45000), Points: 1200,
			SalesThisMonth:       decimal.NewFromInt(230000),
			LeaderID:             "leader-1",
			CustomCommissionRate: &rate7,
			JoinedAt:             now.AddDate(0, -5, 0),
		},
		{
			ID: "reseller-2", Name: "Tomas Iglesias", Email: "tomas@omega.test",
			Phone: "+54911000004", Role: ledger.RoleReseller, Status: ledger.MemberPending,
			Wallet: decimal.Zero, SalesThisMonth: decimal.Zero,
			LeaderID: "leader-1",
			JoinedAt: now.AddDate(0, 0, -3),
		},
	}
	for _, m := range members {
		if err := store.PutMember(ctx, m); err != nil {
			return err
		}
	}

	products := []ledger.Product{
		{
			ID: "prod-serum", SKU: "OMG-001", Name: "Vitamin C Serum",
			Description:   "Brightening facial serum, 30ml",
			PriceList:     decimal.NewFromInt(42500),
			PriceReseller: decimal.NewFromInt(29800),
			Stock:         120, Category: "Skincare",
		},
		{
			ID: "prod-cream", SKU: "OMG-002", Name: "Night Repair Cream",
			Description:   "Regenerating night cream, 50ml",
			PriceList:     decimal.NewFromInt(56000),
			PriceReseller: decimal.NewFromInt(39200),
			Stock:         80, Category: "Skincare",
		},
		{
			ID: "prod-kit", SKU: "OMG-003", Name: "Starter Reseller Kit",
			Description:   "Assorted best-sellers for new resellers",
			PriceList:     decimal.NewFromInt(185000),
			PriceReseller: decimal.NewFromInt(120000),
			Stock:         25, Category: "Kits", IsPromo: true,
		},
	}
	for _, p := range products {
		if err := store.PutProduct(ctx, p); err != nil {
			return err
		}
	}

	settings := ledger.DefaultSettings()
	settings.UpdatedAt = now
	if err := store.PutSettings(ctx, settings); err != nil {
		return err
	}

	log.Printf("[Seed] demo data loaded: %d members, %d products", len(members), len(products))
	return nil
}
