package activation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/omega/commerce-engine/activation"
	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// recordingNotifier captures notifications and can be told to fail.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	fail     bool
	notified chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notified: make(chan struct{}, 16)}
}

func (n *recordingNotifier) Notify(ctx context.Context, member *ledger.Member, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	defer func() { n.notified <- struct{}{} }()
	if n.fail {
		return errors.New("messaging service unavailable")
	}
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func newTestService(t *testing.T) (*activation.Service, *store.Memory, *recordingNotifier) {
	t.Helper()
	st := store.NewMemory()
	notifier := newRecordingNotifier()
	svc := activation.NewService(st, st, notifier, "SIMULATION")
	return svc, st, notifier
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestRegister_CreatesPendingMemberWithAuditAndWelcome(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Registering a new reseller
	// THEN: Member is PENDING, MEMBER_ADDED audited, welcome sent

	svc, st, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, activation.RegisterInput{
		Name:     "Sofia Castro",
		Phone:    "+54911000009",
		LeaderID: "leader-1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if member.Status != ledger.MemberPending {
		t.Errorf("expected PENDING, got %s", member.Status)
	}
	if member.Role != ledger.RoleReseller {
		t.Errorf("expected default RESELLER role, got %s", member.Role)
	}
	if !member.Wallet.IsZero() || member.Points != 0 {
		t.Errorf("expected zero balances, got %s / %d", member.Wallet, member.Points)
	}

	entries, _ := st.ListAudit(ctx, ledger.AuditFilter{
		Actions: []ledger.AuditAction{ledger.ActionMemberAdded},
	})
	if len(entries) != 1 {
		t.Errorf("expected MEMBER_ADDED audit entry, got %d", len(entries))
	}

	notifier.wait(t)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 1 {
		t.Fatalf("expected welcome message, got %d", len(notifier.messages))
	}
}

// =============================================================================
// DECISION
// =============================================================================

func TestDecide_ApproveAndReject(t *testing.T) {
	svc, st, notifier := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, activation.RegisterInput{Name: "A", Phone: "+1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	b, err := svc.Register(ctx, activation.RegisterInput{Name: "B", Phone: "+2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	notifier.wait(t)
	notifier.wait(t)

	approved, err := svc.Decide(ctx, a.ID, true, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != ledger.MemberActive {
		t.Errorf("expected ACTIVE, got %s", approved.Status)
	}

	rejected, err := svc.Decide(ctx, b.ID, false, "admin-1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != ledger.MemberRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}

	approvedEntries, _ := st.ListAudit(ctx, ledger.AuditFilter{
		Actions: []ledger.AuditAction{ledger.ActionMemberApproved},
	})
	if len(approvedEntries) != 1 {
		t.Errorf("expected 1 MEMBER_APPROVED entry, got %d", len(approvedEntries))
	}
	rejectedEntries, _ := st.ListAudit(ctx, ledger.AuditFilter{
		Actions: []ledger.AuditAction{ledger.ActionMemberRejected},
	})
	if len(rejectedEntries) != 1 {
		t.Errorf("expected 1 MEMBER_REJECTED entry, got %d", len(rejectedEntries))
	}
}

func TestDecide_TerminalStatesRejectFurtherDecisions(t *testing.T) {
	// GIVEN: An approved member
	// WHEN: Deciding again in either direction
	// THEN: InvalidTransitionError, status unchanged

	svc, st, notifier := newTestService(t)
	ctx := context.Background()

	m, err := svc.Register(ctx, activation.RegisterInput{Name: "A", Phone: "+1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	notifier.wait(t)
	if _, err := svc.Decide(ctx, m.ID, true, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	notifier.wait(t)

	for _, approve := range []bool{true, false} {
		_, err := svc.Decide(ctx, m.ID, approve, "admin-1")
		if !errors.Is(err, ledger.ErrInvalidTransition) {
			t.Errorf("approve=%v: expected ErrInvalidTransition, got %v", approve, err)
		}
	}

	stored, _ := st.GetMember(ctx, m.ID)
	if stored.Status != ledger.MemberActive {
		t.Errorf("status mutated to %s", stored.Status)
	}
}

func TestDecide_NotifierFailureDoesNotAffectDecision(t *testing.T) {
	// GIVEN: A notifier that always fails
	// WHEN: Approving a member
	// THEN: The decision persists; the failure is only logged

	svc, st, notifier := newTestService(t)
	notifier.fail = true
	ctx := context.Background()

	m, err := svc.Register(ctx, activation.RegisterInput{Name: "A", Phone: "+1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	notifier.wait(t)

	if _, err := svc.Decide(ctx, m.ID, true, "admin-1"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	notifier.wait(t)

	stored, _ := st.GetMember(ctx, m.ID)
	if stored.Status != ledger.MemberActive {
		t.Errorf("expected ACTIVE despite notify failure, got %s", stored.Status)
	}
}

// =============================================================================
// PROOF SUBMISSION
// =============================================================================

func TestSubmitProof(t *testing.T) {
	svc, st, notifier := newTestService(t)
	ctx := context.Background()

	m, err := svc.Register(ctx, activation.RegisterInput{Name: "A", Phone: "+1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	notifier.wait(t)

	updated, err := svc.SubmitProof(ctx, m.ID, "https://proofs.test/receipt.png")
	if err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if updated.ActivationProofURL != "https://proofs.test/receipt.png" {
		t.Errorf("proof not stored: %q", updated.ActivationProofURL)
	}

	// Proof after the decision is rejected.
	if _, err := svc.Decide(ctx, m.ID, true, "admin-1"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	notifier.wait(t)
	_, err = svc.SubmitProof(ctx, m.ID, "https://proofs.test/other.png")
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	stored, _ := st.GetMember(ctx, m.ID)
	if stored.ActivationProofURL != "https://proofs.test/receipt.png" {
		t.Errorf("proof mutated after decision: %q", stored.ActivationProofURL)
	}
}
