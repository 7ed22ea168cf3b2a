/*
scheduler.go - Background jobs

PURPOSE:
  Periodic maintenance that keeps derived state honest:
  - Coupon expiry sweep: flips ACTIVE coupons past their expiry to
    EXPIRED. Daily.
  - Monthly sales reset: zeroes every member's month-to-date sales
    volume. First day of each month.

  Both jobs are idempotent, so an extra run after a restart is harmless.

USAGE:
  scheduler := NewScheduler(store, rewardsSvc)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - rewards/redemption.go: ExpireSweep
  - cmd/server/main.go: Scheduler startup
*/
package api

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/rewards"
)

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	store   ledger.Store
	rewards *rewards.Service
	cron    *cron.Cron
}

func NewScheduler(store ledger.Store, rewardsSvc *rewards.Service) *Scheduler {
	return &Scheduler{
		store:   store,
		rewards: rewardsSvc,
		cron:    cron.New(),
	}
}

// Start registers the jobs and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	// Daily at 03:00: expire stale coupons.
	if _, err := s.cron.AddFunc("0 3 * * *", s.runExpirySweep); err != nil {
		return err
	}
	// First of each month at 00:05: reset month-to-date sales.
	if _, err := s.cron.AddFunc("5 0 1 * *", s.runMonthlySalesReset); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("[Scheduler] started: daily coupon sweep, monthly sales reset")
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	flipped, err := s.rewards.ExpireSweep(ctx, time.Now())
	if err != nil {
		log.Printf("[Scheduler] coupon expiry sweep failed: %v", err)
		return
	}
	if flipped > 0 {
		log.Printf("[Scheduler] coupon expiry sweep: %d coupons expired", flipped)
	}
}

func (s *Scheduler) runMonthlySalesReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	members, err := s.store.ListMembers(ctx, ledger.MemberFilter{})
	if err != nil {
		log.Printf("[Scheduler] monthly sales reset: list members failed: %v", err)
		return
	}

	reset := 0
	for _, m := range members {
		if m.SalesThisMonth.IsZero() {
			continue
		}
		_, err := s.store.MutateMember(ctx, m.ID, func(mem *ledger.Member) error {
			mem.SalesThisMonth = decimal.Zero
			return nil
		})
		if err != nil {
			log.Printf("[Scheduler] monthly sales reset: member %s failed: %v", m.ID, err)
			continue
		}
		reset++
	}
	log.Printf("[Scheduler] monthly sales reset: %d members reset", reset)
}
