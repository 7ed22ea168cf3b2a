package commission_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/commission"
	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRecorder(t *testing.T) (*commission.Recorder, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	engine := commission.NewEngine(commission.DefaultConfig())
	rec := commission.NewRecorder(engine, st, st, st, "SIMULATION")
	return rec, st
}

func seedReseller(t *testing.T, st *store.Memory, id string, wallet string, points int64) {
	t.Helper()
	err := st.PutMember(context.Background(), ledger.Member{
		ID:             ledger.MemberID(id),
		Name:           "Test Reseller",
		Role:           ledger.RoleReseller,
		Status:         ledger.MemberActive,
		Wallet:         dec(wallet),
		Points:         points,
		SalesThisMonth: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

// =============================================================================
// SALE RECORDING
// =============================================================================

func TestRecordSale_CreditsWalletPointsAndAudit(t *testing.T) {
	// GIVEN: A reseller with wallet 45000 and 1200 points
	// WHEN: Recording a 250000 sale at 5%
	// THEN: Wallet 57500, points 1450, one SALE_REFERRAL audit entry

	rec, st := newTestRecorder(t)
	ctx := context.Background()
	seedReseller(t, st, "r1", "45000", 1200)

	rate := dec("5")
	receipt, err := rec.RecordSale(ctx, commission.SaleInput{
		ResellerID: "r1",
		Product:    ledger.ProductRef{Name: "Serum"},
		SalePrice:  dec("250000"),
		Rate:       &rate,
	})
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if !receipt.Commission.Equal(dec("12500")) {
		t.Errorf("expected commission 12500, got %s", receipt.Commission)
	}
	if receipt.Points != 250 {
		t.Errorf("expected 250 points, got %d", receipt.Points)
	}

	member, err := st.GetMember(ctx, "r1")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if !member.Wallet.Equal(dec("57500")) {
		t.Errorf("expected wallet 57500, got %s", member.Wallet)
	}
	if member.Points != 1450 {
		t.Errorf("expected 1450 points, got %d", member.Points)
	}
	if !member.SalesThisMonth.Equal(dec("250000")) {
		t.Errorf("expected monthly sales 250000, got %s", member.SalesThisMonth)
	}

	actor := ledger.MemberID("r1")
	entries, err := st.ListAudit(ctx, ledger.AuditFilter{ActorID: &actor})
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != ledger.ActionSaleReferral {
		t.Errorf("expected SALE_REFERRAL, got %s", entries[0].Action)
	}
	if entries[0].Environment != "SIMULATION" {
		t.Errorf("expected SIMULATION tag, got %q", entries[0].Environment)
	}
}

func TestRecordSale_UnknownMemberFailsHard(t *testing.T) {
	// GIVEN: No member "ghost"
	// WHEN: Recording a sale for it
	// THEN: ErrUnknownMember, nothing written anywhere

	rec, st := newTestRecorder(t)
	ctx := context.Background()

	rate := dec("5")
	_, err := rec.RecordSale(ctx, commission.SaleInput{
		ResellerID: "ghost",
		SalePrice:  dec("1000"),
		Rate:       &rate,
	})
	if !errors.Is(err, ledger.ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}

	entries, err := st.ListAudit(ctx, ledger.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty audit log, got %d entries", len(entries))
	}
}

func TestRecordSale_InvalidInputLeavesStateUntouched(t *testing.T) {
	rec, st := newTestRecorder(t)
	ctx := context.Background()
	seedReseller(t, st, "r1", "45000", 1200)

	rate := dec("150")
	_, err := rec.RecordSale(ctx, commission.SaleInput{
		ResellerID: "r1",
		SalePrice:  dec("1000"),
		Rate:       &rate,
	})
	if !errors.Is(err, ledger.ErrInvalidSaleInput) {
		t.Fatalf("expected ErrInvalidSaleInput, got %v", err)
	}

	member, _ := st.GetMember(ctx, "r1")
	if !member.Wallet.Equal(dec("45000")) || member.Points != 1200 {
		t.Errorf("state changed on invalid input: wallet %s, points %d", member.Wallet, member.Points)
	}
}

func TestRecordSale_IdempotencyKeyBlocksRetry(t *testing.T) {
	// GIVEN: A sale recorded with an idempotency key
	// WHEN: Recording the same key again
	// THEN: ErrDuplicateIdempotencyKey and no second credit

	rec, st := newTestRecorder(t)
	ctx := context.Background()
	seedReseller(t, st, "r1", "0", 0)

	rate := dec("5")
	input := commission.SaleInput{
		ResellerID:     "r1",
		SalePrice:      dec("100000"),
		Rate:           &rate,
		IdempotencyKey: "sale-abc",
	}
	if _, err := rec.RecordSale(ctx, input); err != nil {
		t.Fatalf("first RecordSale: %v", err)
	}
	_, err := rec.RecordSale(ctx, input)
	if !errors.Is(err, ledger.ErrDuplicateIdempotencyKey) {
		t.Fatalf("expected ErrDuplicateIdempotencyKey, got %v", err)
	}

	member, _ := st.GetMember(ctx, "r1")
	if !member.Wallet.Equal(dec("5000")) {
		t.Errorf("expected single credit of 5000, got %s", member.Wallet)
	}
}

type recordingNotifier struct {
	notified chan string
}

func (n *recordingNotifier) Notify(ctx context.Context, member *ledger.Member, message string) error {
	n.notified <- message
	return nil
}

func TestRecordSale_NotifiesReseller(t *testing.T) {
	// GIVEN: A recorder with a notifier attached
	// WHEN: A sale is credited
	// THEN: The reseller gets a message carrying the commission

	rec, st := newTestRecorder(t)
	ctx := context.Background()
	seedReseller(t, st, "r1", "0", 0)

	notifier := &recordingNotifier{notified: make(chan string, 1)}
	rec.SetNotifier(notifier)

	rate := dec("5")
	if _, err := rec.RecordSale(ctx, commission.SaleInput{
		ResellerID: "r1",
		SalePrice:  dec("100000"),
		Rate:       &rate,
	}); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	select {
	case msg := <-notifier.notified:
		if !strings.Contains(msg, "5000") {
			t.Errorf("expected commission in message, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification dispatched")
	}
}

func TestRecordSale_UsesMemberCustomRate(t *testing.T) {
	// GIVEN: A member with a 7% custom rate, platform default 5%
	// WHEN: Recording without an explicit rate
	// THEN: The custom rate wins

	rec, st := newTestRecorder(t)
	ctx := context.Background()

	custom := dec("7")
	err := st.PutMember(ctx, ledger.Member{
		ID:                   "r1",
		Name:                 "Custom Rate",
		Role:                 ledger.RoleReseller,
		Status:               ledger.MemberActive,
		Wallet:               decimal.Zero,
		SalesThisMonth:       decimal.Zero,
		CustomCommissionRate: &custom,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	receipt, err := rec.RecordSale(ctx, commission.SaleInput{
		ResellerID: "r1",
		SalePrice:  dec("100000"),
	})
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if !receipt.Commission.Equal(dec("7000")) {
		t.Errorf("expected 7000 at custom rate, got %s", receipt.Commission)
	}
}
