// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/omega/commerce-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for demo/testing)
// =============================================================================

// Memory keeps all collections in maps guarded by a single RWMutex. Holding
// the write lock across each Mutate makes the read-modify-write atomic per
// document, which is the only transactional guarantee the engine assumes.
type Memory struct {
	mu          sync.RWMutex
	members     map[ledger.MemberID]ledger.Member
	orders      map[ledger.OrderID]ledger.Order
	coupons     map[ledger.CouponID]ledger.Coupon
	products    map[ledger.ProductID]ledger.Product
	settings    *ledger.Settings
	audit       []ledger.AuditEntry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		members:     make(map[ledger.MemberID]ledger.Member),
		orders:      make(map[ledger.OrderID]ledger.Order),
		coupons:     make(map[ledger.CouponID]ledger.Coupon),
		products:    make(map[ledger.ProductID]ledger.Product),
		idempotency: make(map[string]bool),
	}
}

var _ ledger.Store = (*Memory)(nil)

// =============================================================================
// MEMBERS
// =============================================================================

func (m *Memory) GetMember(_ context.Context, id ledger.MemberID) (*ledger.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mem, ok := m.members[id]
	if !ok {
		return nil, ledger.ErrUnknownMember
	}
	cp := mem
	return &cp, nil
}

func (m *Memory) ListMembers(_ context.Context, f ledger.MemberFilter) ([]ledger.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Member
	for _, mem := range m.members {
		if f.Role != nil && mem.Role != *f.Role {
			continue
		}
		if f.Status != nil && mem.Status != *f.Status {
			continue
		}
		if f.LeaderID != nil && mem.LeaderID != *f.LeaderID {
			continue
		}
		result = append(result, mem)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PutMember(_ context.Context, mem ledger.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[mem.ID] = mem
	return nil
}

func (m *Memory) MutateMember(_ context.Context, id ledger.MemberID, fn func(*ledger.Member) error) (*ledger.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.members[id]
	if !ok {
		return nil, ledger.ErrUnknownMember
	}
	if err := fn(&mem); err != nil {
		return nil, err
	}
	m.members[id] = mem
	cp := mem
	return &cp, nil
}

// =============================================================================
// ORDERS
// =============================================================================

func (m *Memory) GetOrder(_ context.Context, id ledger.OrderID) (*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ledger.ErrUnknownOrder
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (m *Memory) ListOrders(_ context.Context, f ledger.OrderFilter) ([]ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Order
	for _, o := range m.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.ResellerID != nil && o.ResellerID != *f.ResellerID {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) PutOrder(_ context.Context, o ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *Memory) MutateOrder(_ context.Context, id ledger.OrderID, fn func(*ledger.Order) error) (*ledger.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ledger.ErrUnknownOrder
	}
	mutated := cloneOrder(o)
	if err := fn(&mutated); err != nil {
		return nil, err
	}
	m.orders[id] = cloneOrder(mutated)
	return &mutated, nil
}

// cloneOrder copies the slices so callers cannot alias stored state.
func cloneOrder(o ledger.Order) ledger.Order {
	cp := o
	cp.Items = append([]ledger.LineItem(nil), o.Items...)
	cp.CreditedItems = append([]int(nil), o.CreditedItems...)
	return cp
}

// =============================================================================
// COUPONS
// =============================================================================

func (m *Memory) PutCoupon(_ context.Context, c ledger.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.ID] = c
	return nil
}

func (m *Memory) ListCoupons(_ context.Context, f ledger.CouponFilter) ([]ledger.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Coupon
	for _, c := range m.coupons {
		if f.MemberID != nil && c.MemberID != *f.MemberID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.ExpiresBefore != nil && !c.ExpiresAt.Before(*f.ExpiresBefore) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) MutateCoupon(_ context.Context, id ledger.CouponID, fn func(*ledger.Coupon) error) (*ledger.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.coupons[id]
	if !ok {
		return nil, ledger.ErrUnknownCoupon
	}
	if err := fn(&c); err != nil {
		return nil, err
	}
	m.coupons[id] = c
	cp := c
	return &cp, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ledger.ErrUnknownProduct
	}
	cp := p
	return &cp, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PutProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetSettings(_ context.Context) (ledger.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return ledger.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *Memory) PutSettings(_ context.Context, s ledger.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return ledger.ErrDuplicateIdempotencyKey
	}
	m.audit = append(m.audit, e)
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) ListAudit(_ context.Context, f ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.AuditEntry
	for _, e := range m.audit {
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if len(f.Actions) > 0 && !containsAction(f.Actions, e.Action) {
			continue
		}
		if f.Since != nil && e.CreatedAt.Before(*f.Since) {
			continue
		}
		result = append(result, e)
	}
	// Newest first.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) AuditExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

func containsAction(actions []ledger.AuditAction, a ledger.AuditAction) bool {
	for _, action := range actions {
		if action == a {
			return true
		}
	}
	return false
}
