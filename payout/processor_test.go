package payout_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/payout"
	"github.com/omega/commerce-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestProcessor(t *testing.T) (*payout.Processor, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return payout.NewProcessor(st, st, st, "SIMULATION"), st
}

func seedWallet(t *testing.T, st *store.Memory, id string, wallet string) {
	t.Helper()
	err := st.PutMember(context.Background(), ledger.Member{
		ID:             ledger.MemberID(id),
		Name:           "Member " + id,
		Role:           ledger.RoleReseller,
		Status:         ledger.MemberActive,
		Wallet:         dec(wallet),
		SalesThisMonth: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

// =============================================================================
// PAYOUTS
// =============================================================================

func TestProcess_DebitsWalletAndAudits(t *testing.T) {
	// GIVEN: A member with wallet 150000
	// WHEN: An admin pays out 150000
	// THEN: Wallet is exactly zero and a PAYOUT_PROCESSED entry names
	//       the admin as actor and the member in the details

	proc, st := newTestProcessor(t)
	ctx := context.Background()
	seedWallet(t, st, "m1", "150000")

	receipt, err := proc.Process(ctx, "admin-1", "m1", dec("150000"), "https://proofs.test/p1.png")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !receipt.Remaining.IsZero() {
		t.Errorf("expected zero remaining, got %s", receipt.Remaining)
	}

	member, _ := st.GetMember(ctx, "m1")
	if !member.Wallet.IsZero() {
		t.Errorf("expected zero wallet, got %s", member.Wallet)
	}

	entries, _ := st.ListAudit(ctx, ledger.AuditFilter{
		Actions: []ledger.AuditAction{ledger.ActionPayoutProcessed},
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 payout audit entry, got %d", len(entries))
	}
	if entries[0].ProofURL != "https://proofs.test/p1.png" {
		t.Errorf("expected proof url on audit entry, got %q", entries[0].ProofURL)
	}

	// The trail must say who processed the payout and for whom.
	if entries[0].ActorID != "admin-1" {
		t.Errorf("expected processing actor admin-1, got %q", entries[0].ActorID)
	}
	if !strings.Contains(entries[0].Details, "Member m1") {
		t.Errorf("expected target name in details, got %q", entries[0].Details)
	}
}

func TestProcess_RefusesOverdraft(t *testing.T) {
	// GIVEN: A member drained to zero
	// WHEN: Requesting even the smallest payout
	// THEN: InsufficientBalanceError with amounts, wallet untouched

	proc, st := newTestProcessor(t)
	ctx := context.Background()
	seedWallet(t, st, "m1", "150000")

	if _, err := proc.Process(ctx, "admin-1", "m1", dec("150000"), ""); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_, err := proc.Process(ctx, "admin-1", "m1", dec("1"), "")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var detail *ledger.InsufficientBalanceError
	if !errors.As(err, &detail) {
		t.Fatalf("expected InsufficientBalanceError detail, got %T", err)
	}
	if !detail.Available.IsZero() || !detail.Requested.Equal(dec("1")) {
		t.Errorf("unexpected detail: available %s, requested %s", detail.Available, detail.Requested)
	}

	member, _ := st.GetMember(ctx, "m1")
	if !member.Wallet.IsZero() {
		t.Errorf("wallet changed on refused payout: %s", member.Wallet)
	}

	// Refused payouts must not be audited.
	entries, _ := st.ListAudit(ctx, ledger.AuditFilter{
		Actions: []ledger.AuditAction{ledger.ActionPayoutProcessed},
	})
	if len(entries) != 1 {
		t.Errorf("expected 1 audit entry (the drain), got %d", len(entries))
	}
}

func TestProcess_RejectsNonPositiveAmounts(t *testing.T) {
	proc, st := newTestProcessor(t)
	ctx := context.Background()
	seedWallet(t, st, "m1", "1000")

	for _, amount := range []string{"0", "-50"} {
		_, err := proc.Process(ctx, "admin-1", "m1", dec(amount), "")
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestProcess_UnknownMember(t *testing.T) {
	proc, _ := newTestProcessor(t)
	_, err := proc.Process(context.Background(), "admin-1", "ghost", dec("100"), "")
	if !errors.Is(err, ledger.ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}

type recordingNotifier struct {
	notified chan string
}

func (n *recordingNotifier) Notify(ctx context.Context, member *ledger.Member, message string) error {
	n.notified <- message
	return nil
}

func TestProcess_NotifiesMember(t *testing.T) {
	// GIVEN: A processor with a notifier attached
	// WHEN: A payout completes
	// THEN: The member gets a message carrying the amount

	proc, st := newTestProcessor(t)
	ctx := context.Background()
	seedWallet(t, st, "m1", "5000")

	notifier := &recordingNotifier{notified: make(chan string, 1)}
	proc.SetNotifier(notifier)

	if _, err := proc.Process(ctx, "admin-1", "m1", dec("2000"), ""); err != nil {
		t.Fatalf("Process: %v", err)
	}

	select {
	case msg := <-notifier.notified:
		if !strings.Contains(msg, "2000") {
			t.Errorf("expected amount in message, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification dispatched")
	}
}

func TestProcess_PausedWithdrawals(t *testing.T) {
	// GIVEN: Settings with withdrawals paused
	// WHEN: Requesting an otherwise valid payout
	// THEN: ErrWithdrawalsPaused, wallet untouched

	proc, st := newTestProcessor(t)
	ctx := context.Background()
	seedWallet(t, st, "m1", "1000")

	cfg := ledger.DefaultSettings()
	cfg.WithdrawalsPaused = true
	if err := st.PutSettings(ctx, cfg); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}

	_, err := proc.Process(ctx, "admin-1", "m1", dec("500"), "")
	if !errors.Is(err, ledger.ErrWithdrawalsPaused) {
		t.Fatalf("expected ErrWithdrawalsPaused, got %v", err)
	}

	member, _ := st.GetMember(ctx, "m1")
	if !member.Wallet.Equal(dec("1000")) {
		t.Errorf("wallet changed while paused: %s", member.Wallet)
	}
}
