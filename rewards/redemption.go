package rewards

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Config holds the redemption knobs.
type Config struct {
	// CodePrefix leads every minted coupon code.
	CodePrefix string

	// CouponTTL is the validity window of a minted coupon.
	CouponTTL time.Duration

	// CashDivisor converts point cost to coupon cash value.
	CashDivisor decimal.Decimal

	// ValueFor overrides the coupon face value rendering. Nil selects
	// the default rule: point cost divided by CashDivisor for cash
	// rewards, the reward title for everything else.
	ValueFor func(Reward) string
}

// DefaultConfig returns the production redemption constants: 30-day
// coupons with cash value at half the point cost.
func DefaultConfig() Config {
	return Config{
		CodePrefix:  "OMEGA",
		CouponTTL:   30 * 24 * time.Hour,
		CashDivisor: decimal.NewFromInt(2),
	}
}

// Service redeems rewards against member point balances.
type Service struct {
	cfg         Config
	members     ledger.MemberStore
	coupons     ledger.CouponStore
	audit       ledger.AuditLog
	environment string
	now         func() time.Time
	randInt     func(n int) int
}

func NewService(cfg Config, members ledger.MemberStore, coupons ledger.CouponStore, audit ledger.AuditLog, environment string) *Service {
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = DefaultConfig().CodePrefix
	}
	if cfg.CouponTTL == 0 {
		cfg.CouponTTL = DefaultConfig().CouponTTL
	}
	if cfg.CashDivisor.IsZero() {
		cfg.CashDivisor = DefaultConfig().CashDivisor
	}
	return &Service{
		cfg:         cfg,
		members:     members,
		coupons:     coupons,
		audit:       audit,
		environment: environment,
		now:         time.Now,
		randInt:     rand.Intn,
	}
}

// SetClock overrides the time source. For tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Redeem exchanges points for a coupon.
//
// The point debit is atomic: a balance below the reward cost refuses the
// redemption with InsufficientPointsError and mints nothing. On success
// the coupon is ACTIVE with code "<PREFIX>-CASH-NNNN" for cash rewards
// and "<PREFIX>-PROMO-NNNN" otherwise.
func (s *Service) Redeem(ctx context.Context, memberID ledger.MemberID, reward Reward) (*ledger.Coupon, error) {
	_, err := s.members.MutateMember(ctx, memberID, func(m *ledger.Member) error {
		if m.Points < reward.Cost {
			return &ledger.InsufficientPointsError{
				MemberID:  m.ID,
				Available: m.Points,
				Requested: reward.Cost,
			}
		}
		m.Points -= reward.Cost
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	coupon := ledger.Coupon{
		ID:          ledger.CouponID(uuid.NewString()),
		Code:        s.mintCode(reward),
		MemberID:    memberID,
		RewardTitle: reward.Title,
		Value:       s.valueFor(reward),
		Status:      ledger.CouponActive,
		ExpiresAt:   now.Add(s.cfg.CouponTTL),
		CreatedAt:   now,
	}
	if err := s.coupons.PutCoupon(ctx, coupon); err != nil {
		return nil, err
	}

	entry := ledger.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     memberID,
		Action:      ledger.ActionRewardRedeemed,
		Details:     fmt.Sprintf("Redeemed %s for %d points, coupon %s", reward.Title, reward.Cost, coupon.Code),
		Environment: s.environment,
		CreatedAt:   now,
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (s *Service) mintCode(reward Reward) string {
	category := "PROMO"
	if reward.Type == RewardCash {
		category = "CASH"
	}
	// 4-digit suffix, 1000-9999.
	return fmt.Sprintf("%s-%s-%d", s.cfg.CodePrefix, category, 1000+s.randInt(9000))
}

// valueFor renders the coupon face value: the configured override when
// set, otherwise the point cost divided by the cash divisor for cash
// rewards and the reward title for everything else.
func (s *Service) valueFor(reward Reward) string {
	if s.cfg.ValueFor != nil {
		return s.cfg.ValueFor(reward)
	}
	if reward.Type == RewardCash {
		return decimal.NewFromInt(reward.Cost).Div(s.cfg.CashDivisor).String()
	}
	return reward.Title
}

// ExpireSweep marks every ACTIVE coupon past its expiry as EXPIRED.
// Safe to run repeatedly; returns the number of coupons flipped.
func (s *Service) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	active := ledger.CouponActive
	stale, err := s.coupons.ListCoupons(ctx, ledger.CouponFilter{
		Status:        &active,
		ExpiresBefore: &now,
	})
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, c := range stale {
		_, err := s.coupons.MutateCoupon(ctx, c.ID, func(cp *ledger.Coupon) error {
			if cp.Status == ledger.CouponActive {
				cp.Status = ledger.CouponExpired
			}
			return nil
		})
		if err != nil {
			return flipped, err
		}
		flipped++
	}
	return flipped, nil
}
