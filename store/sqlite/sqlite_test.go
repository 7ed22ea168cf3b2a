package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// MEMBER ROUND-TRIPS
// =============================================================================

func TestMember_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	custom := dec("7.5")
	joined := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	in := ledger.Member{
		ID: "r1", Name: "Lucia", Email: "l@test", Phone: "+54911",
		Role: ledger.RoleReseller, Status: ledger.MemberActive,
		Wallet: dec("45000.50"), Points: 1200,
		SalesThisMonth: dec("230000"), LeaderID: "l1",
		CustomCommissionRate: &custom,
		ActivationProofURL:   "https://proofs.test/r1.png",
		JoinedAt:             joined,
	}
	require.NoError(t, st.PutMember(ctx, in))

	out, err := st.GetMember(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.True(t, out.Wallet.Equal(dec("45000.50")))
	assert.Equal(t, int64(1200), out.Points)
	assert.Equal(t, ledger.MemberID("l1"), out.LeaderID)
	require.NotNil(t, out.CustomCommissionRate)
	assert.True(t, out.CustomCommissionRate.Equal(custom))
	assert.True(t, out.JoinedAt.Equal(joined))

	// Upsert on same ID.
	in.Wallet = dec("50000")
	require.NoError(t, st.PutMember(ctx, in))
	out, err = st.GetMember(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, out.Wallet.Equal(dec("50000")))
}

func TestMember_NilCustomRateStaysNil(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutMember(ctx, ledger.Member{
		ID: "r1", Name: "Plain", Role: ledger.RoleReseller,
		Status: ledger.MemberActive,
		Wallet: decimal.Zero, SalesThisMonth: decimal.Zero,
		JoinedAt: time.Now(),
	}))
	out, err := st.GetMember(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, out.CustomCommissionRate)
}

func TestMutateMember_TransactionalAbort(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutMember(ctx, ledger.Member{
		ID: "r1", Name: "A", Role: ledger.RoleReseller, Status: ledger.MemberActive,
		Wallet: dec("100"), SalesThisMonth: decimal.Zero, JoinedAt: time.Now(),
	}))

	boom := errors.New("boom")
	_, err := st.MutateMember(ctx, "r1", func(m *ledger.Member) error {
		m.Wallet = decimal.Zero
		return boom
	})
	require.ErrorIs(t, err, boom)

	out, err := st.GetMember(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, out.Wallet.Equal(dec("100")), "aborted mutation leaked: %s", out.Wallet)
}

// =============================================================================
// ORDER ROUND-TRIPS
// =============================================================================

func TestOrder_RoundTripWithJSONColumns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 1, 9, 30, 0, 0, time.UTC)
	in := ledger.Order{
		ID: "o1", TrackingID: "ANDREANI-AB12CD34", Status: ledger.OrderPending,
		Total: dec("300000"),
		Customer: ledger.Customer{
			Name: "Cliente", Address: "Av. Test 123", City: "CABA",
			Phone: "+54911", Email: "c@test", ZipCode: "1425",
		},
		Items: []ledger.LineItem{
			{ProductID: "p1", Name: "Serum", Quantity: 2, UnitPrice: dec("100000")},
			{ProductID: "p2", Name: "Cream", Quantity: 1, UnitPrice: dec("100000")},
		},
		ResellerID: "r1", ShippingProvider: "Andreani", PaymentID: "pay-1",
		CreditedItems: []int{0},
		CreatedAt:     now, UpdatedAt: now,
	}
	require.NoError(t, st.PutOrder(ctx, in))

	out, err := st.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, in.TrackingID, out.TrackingID)
	assert.Equal(t, "Cliente", out.Customer.Name)
	require.Len(t, out.Items, 2)
	assert.True(t, out.Items[0].UnitPrice.Equal(dec("100000")))
	assert.Equal(t, []int{0}, out.CreditedItems)
	assert.True(t, out.ItemCredited(0))
	assert.False(t, out.ItemCredited(1))
}

func TestListOrders_FilterByResellerAndStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	put := func(id, reseller string, status ledger.OrderStatus, created time.Time) {
		require.NoError(t, st.PutOrder(ctx, ledger.Order{
			ID: ledger.OrderID(id), TrackingID: "T-" + id, Status: status,
			Total:    dec("1000"),
			Customer: ledger.Customer{Name: "C"},
			Items:    []ledger.LineItem{{ProductID: "p", Name: "P", Quantity: 1, UnitPrice: dec("1000")}},
			ResellerID: ledger.MemberID(reseller),
			CreatedAt:  created, UpdatedAt: created,
		}))
	}
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	put("o1", "r1", ledger.OrderPending, base)
	put("o2", "r1", ledger.OrderShipped, base.Add(time.Hour))
	put("o3", "r2", ledger.OrderPending, base.Add(2*time.Hour))

	r1 := ledger.MemberID("r1")
	mine, err := st.ListOrders(ctx, ledger.OrderFilter{ResellerID: &r1})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ledger.OrderID("o2"), mine[0].ID, "newest first")

	pending := ledger.OrderPending
	open, err := st.ListOrders(ctx, ledger.OrderFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func TestAppendAudit_UniqueConstraintMapsToDuplicateKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := ledger.AuditEntry{
		ID: "a1", ActorID: "r1", Action: ledger.ActionSaleReferral,
		Details: "sale", Environment: "SIMULATION",
		IdempotencyKey: "order-o1-item-0", CreatedAt: time.Now(),
	}
	require.NoError(t, st.AppendAudit(ctx, entry))

	entry.ID = "a2"
	err := st.AppendAudit(ctx, entry)
	require.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	exists, err := st.AuditExists(ctx, "order-o1-item-0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAppendAudit_EmptyKeysDoNotCollide(t *testing.T) {
	// Entries without idempotency keys must not trip the UNIQUE index.
	st := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, st.AppendAudit(ctx, ledger.AuditEntry{
			ID: id, ActorID: "r1", Action: ledger.ActionOrderStatusChanged,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}), "entry %s", id)
	}

	entries, err := st.ListAudit(ctx, ledger.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// =============================================================================
// COUPONS AND SETTINGS
// =============================================================================

func TestCoupon_RoundTripAndMutate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	expires := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.PutCoupon(ctx, ledger.Coupon{
		ID: "c1", Code: "OMEGA-CASH-4821", MemberID: "r1",
		RewardTitle: "Cash Voucher M", Value: "500",
		Status: ledger.CouponActive, ExpiresAt: expires,
		CreatedAt: expires.AddDate(0, -1, 0),
	}))

	flipped, err := st.MutateCoupon(ctx, "c1", func(c *ledger.Coupon) error {
		c.Status = ledger.CouponExpired
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.CouponExpired, flipped.Status)

	cutoff := expires.Add(time.Hour)
	expired := ledger.CouponExpired
	stale, err := st.ListCoupons(ctx, ledger.CouponFilter{Status: &expired, ExpiresBefore: &cutoff})
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	_, err = st.MutateCoupon(ctx, "ghost", func(c *ledger.Coupon) error { return nil })
	require.ErrorIs(t, err, ledger.ErrUnknownCoupon)
}

func TestSettings_DefaultThenPersisted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cfg, err := st.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.DefaultCommissionRate.Equal(dec("5")))

	cfg.WithdrawalsPaused = true
	cfg.UpdatedAt = time.Now()
	require.NoError(t, st.PutSettings(ctx, cfg))

	again, err := st.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, again.WithdrawalsPaused)
}
