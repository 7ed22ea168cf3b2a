/*
Package payout debits member wallets for withdrawals.

PURPOSE:
  A payout moves earned commission out of a member's wallet. The balance
  check and the debit happen inside one atomic member mutation, so two
  concurrent payouts cannot both pass the check and overdraw the wallet.

REFUSAL CASES:
  - amount <= 0:                 ErrInvalidAmount
  - wallet < amount:             InsufficientBalanceError, wallet untouched
  - settings.WithdrawalsPaused:  ErrWithdrawalsPaused
  - unknown member:              ErrUnknownMember

SEE ALSO:
  - ledger/store.go: MutateMember contract
  - commission/recorder.go: The crediting side
*/
package payout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Notifier receives a heads-up after a payout completes. Delivery is
// fire-and-forget: a failure is logged and never undoes the debit.
type Notifier interface {
	Notify(ctx context.Context, member *ledger.Member, message string) error
}

// Processor executes wallet withdrawals.
type Processor struct {
	members     ledger.MemberStore
	settings    ledger.SettingsStore
	audit       ledger.AuditLog
	notifier    Notifier
	environment string
	now         func() time.Time
}

func NewProcessor(members ledger.MemberStore, settings ledger.SettingsStore, audit ledger.AuditLog, environment string) *Processor {
	return &Processor{
		members:     members,
		settings:    settings,
		audit:       audit,
		environment: environment,
		now:         time.Now,
	}
}

// SetClock overrides the time source. For tests.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// SetNotifier enables payout notifications. Optional.
func (p *Processor) SetNotifier(n Notifier) {
	p.notifier = n
}

// Receipt reports a completed payout.
type Receipt struct {
	MemberID  ledger.MemberID
	Amount    decimal.Decimal
	Remaining decimal.Decimal
	AuditID   string
}

// Process withdraws amount from the target member's wallet. The audit
// entry is attributed to actorID, the admin driving the payout, so the
// trail always says who moved the money and to whom.
//
// The overdraft check runs inside the wallet mutation: a wallet below
// the requested amount refuses the payout and leaves the balance exactly
// as it was. An exact-balance payout succeeds and leaves zero.
func (p *Processor) Process(ctx context.Context, actorID, memberID ledger.MemberID, amount decimal.Decimal, proofURL string) (*Receipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payout amount %s: %w", amount.String(), ledger.ErrInvalidAmount)
	}

	cfg, err := p.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.WithdrawalsPaused {
		return nil, ledger.ErrWithdrawalsPaused
	}

	member, err := p.members.MutateMember(ctx, memberID, func(m *ledger.Member) error {
		if m.Wallet.LessThan(amount) {
			return &ledger.InsufficientBalanceError{
				MemberID:  m.ID,
				Available: m.Wallet,
				Requested: amount,
			}
		}
		m.Wallet = m.Wallet.Sub(amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:      uuid.NewString(),
		ActorID: actorID,
		Action:  ledger.ActionPayoutProcessed,
		Details: fmt.Sprintf("Payout of %s to %s, remaining balance %s",
			amount.String(), member.Name, member.Wallet.String()),
		Environment: p.environment,
		ProofURL:    proofURL,
		CreatedAt:   p.now(),
	}
	if err := p.audit.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	if p.notifier != nil {
		msg := fmt.Sprintf("Hi %s, your payout of %s was processed. Remaining balance: %s.",
			member.Name, amount.String(), member.Wallet.String())
		go func(m ledger.Member) {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := p.notifier.Notify(nctx, &m, msg); err != nil {
				log.Printf("[Payout] notify %s failed: %v", m.ID, err)
			}
		}(*member)
	}

	return &Receipt{
		MemberID:  memberID,
		Amount:    amount,
		Remaining: member.Wallet,
		AuditID:   entry.ID,
	}, nil
}
