/*
Package activation manages the member onboarding lifecycle.

PURPOSE:
  New members register as PENDING, submit activation proof, and an admin
  approves or rejects them. PENDING -> ACTIVE and PENDING -> REJECTED are
  the only decision hops; both are terminal for the decision (a separate
  INACTIVE flag exists for dormancy, not handled here).

NOTIFICATIONS:
  Decisions fire a notification through the injected Notifier on a
  separate goroutine. Notification failure is logged and never affects
  the state change: the decision is durable before the notifier runs.
*/
package activation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Notifier delivers a message to a member out-of-band (messaging app,
// email). Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, member *ledger.Member, message string) error
}

// Message templates. The member's first name is substituted in.
const (
	msgWelcome  = "Hi %s! Your registration is in. We'll review your activation proof and get back to you shortly."
	msgApproved = "Congratulations %s! Your account is now active. Start selling and earning commission today."
	msgRejected = "Hi %s, unfortunately we could not approve your registration at this time."
)

// Service runs member registration and the approval decision.
type Service struct {
	members     ledger.MemberStore
	audit       ledger.AuditLog
	notifier    Notifier
	environment string
	now         func() time.Time
}

func NewService(members ledger.MemberStore, audit ledger.AuditLog, notifier Notifier, environment string) *Service {
	return &Service{
		members:     members,
		audit:       audit,
		notifier:    notifier,
		environment: environment,
		now:         time.Now,
	}
}

// SetClock overrides the time source. For tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RegisterInput is a new member application.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Role     ledger.Role
	LeaderID ledger.MemberID
}

// Register creates a PENDING member, audits the signup and sends the
// welcome message.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*ledger.Member, error) {
	role := in.Role
	if role == "" {
		role = ledger.RoleReseller
	}

	member := ledger.Member{
		ID:             ledger.MemberID(uuid.NewString()),
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Role:           role,
		Status:         ledger.MemberPending,
		Wallet:         decimal.Zero,
		SalesThisMonth: decimal.Zero,
		LeaderID:       in.LeaderID,
		JoinedAt:       s.now(),
	}
	if err := s.members.PutMember(ctx, member); err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     member.ID,
		Action:      ledger.ActionMemberAdded,
		Details:     fmt.Sprintf("Member %s registered as %s", member.Name, member.Role),
		Environment: s.environment,
		CreatedAt:   s.now(),
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	s.dispatch(&member, fmt.Sprintf(msgWelcome, member.Name))
	return &member, nil
}

// SubmitProof attaches an activation proof URL to a pending member.
func (s *Service) SubmitProof(ctx context.Context, id ledger.MemberID, proofURL string) (*ledger.Member, error) {
	return s.members.MutateMember(ctx, id, func(m *ledger.Member) error {
		if m.Status != ledger.MemberPending {
			return &ledger.InvalidTransitionError{
				Entity: "member",
				ID:     string(m.ID),
				From:   string(m.Status),
				To:     string(m.Status),
			}
		}
		m.ActivationProofURL = proofURL
		return nil
	})
}

// Decide resolves a pending member to ACTIVE or REJECTED.
//
// Only PENDING members can be decided; deciding an already-decided
// member fails with InvalidTransitionError and changes nothing, so a
// double-submitted approval is harmless.
func (s *Service) Decide(ctx context.Context, id ledger.MemberID, approve bool, actorID ledger.MemberID) (*ledger.Member, error) {
	target := ledger.MemberRejected
	action := ledger.ActionMemberRejected
	message := msgRejected
	if approve {
		target = ledger.MemberActive
		action = ledger.ActionMemberApproved
		message = msgApproved
	}

	member, err := s.members.MutateMember(ctx, id, func(m *ledger.Member) error {
		if m.Status != ledger.MemberPending {
			return &ledger.InvalidTransitionError{
				Entity: "member",
				ID:     string(m.ID),
				From:   string(m.Status),
				To:     string(target),
			}
		}
		m.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Action:      action,
		Details:     fmt.Sprintf("Member %s %s", member.Name, target),
		Environment: s.environment,
		ProofURL:    member.ActivationProofURL,
		CreatedAt:   s.now(),
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		log.Printf("[Activation] audit append failed for member %s: %v", id, err)
	}

	s.dispatch(member, fmt.Sprintf(message, member.Name))
	return member, nil
}

// dispatch fires a notification without blocking the caller.
func (s *Service) dispatch(member *ledger.Member, message string) {
	if s.notifier == nil {
		return
	}
	m := *member
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, &m, message); err != nil {
			log.Printf("[Activation] notify %s failed: %v", m.ID, err)
		}
	}()
}
