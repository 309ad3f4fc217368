// Package store provides in-memory implementations of the rent store
// interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rent-engine/rent"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	tenancies   map[rent.TenancyID]rent.TenancyContext
	payments    map[rent.TenancyID][]rent.Payment
	byID        map[rent.PaymentID]rent.TenancyID
	voided      map[rent.PaymentID]string
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		tenancies:   make(map[rent.TenancyID]rent.TenancyContext),
		payments:    make(map[rent.TenancyID][]rent.Payment),
		byID:        make(map[rent.PaymentID]rent.TenancyID),
		voided:      make(map[rent.PaymentID]string),
		idempotency: make(map[string]bool),
	}
}

// =============================================================================
// TENANCIES
// =============================================================================

func (m *Memory) SaveTenancy(_ context.Context, t rent.TenancyContext) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenancies[t.ID] = cloneTenancy(t)
	return nil
}

func (m *Memory) GetTenancy(_ context.Context, id rent.TenancyID) (rent.TenancyContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenancies[id]
	if !ok {
		return rent.TenancyContext{}, rent.ErrTenancyNotFound
	}
	return cloneTenancy(t), nil
}

// ListTenancies returns all tenancies ordered by ID.
func (m *Memory) ListTenancies(_ context.Context) ([]rent.TenancyContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rent.TenancyContext, 0, len(m.tenancies))
	for _, t := range m.tenancies {
		out = append(out, cloneTenancy(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AddAllocation(_ context.Context, id rent.TenancyID, a rent.BedAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenancies[id]
	if !ok {
		return rent.ErrTenancyNotFound
	}
	updated, err := t.WithAllocation(a)
	if err != nil {
		return err
	}
	m.tenancies[id] = updated
	return nil
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

// Append adds a payment. Payments are kept ordered by PaidOn; equal dates
// keep insertion order.
func (m *Memory) Append(_ context.Context, p rent.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byID[p.ID]; dup {
		return rent.ErrDuplicatePayment
	}
	if p.IdempotencyKey != "" && m.idempotency[p.IdempotencyKey] {
		return rent.ErrDuplicatePayment
	}

	ps := m.payments[p.TenancyID]
	i := sort.Search(len(ps), func(i int) bool {
		return ps[i].PaidOn.After(p.PaidOn)
	})
	ps = append(ps, rent.Payment{})
	copy(ps[i+1:], ps[i:])
	ps[i] = p
	m.payments[p.TenancyID] = ps

	m.byID[p.ID] = p.TenancyID
	if p.IdempotencyKey != "" {
		m.idempotency[p.IdempotencyKey] = true
	}
	return nil
}

// Load returns the tenancy's payments, excluding voided ones.
func (m *Memory) Load(_ context.Context, id rent.TenancyID) ([]rent.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]rent.Payment, 0, len(m.payments[id]))
	for _, p := range m.payments[id] {
		if _, void := m.voided[p.ID]; void {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *Memory) Void(_ context.Context, id rent.PaymentID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return rent.ErrPaymentNotFound
	}
	if _, ok := m.voided[id]; ok {
		return rent.ErrPaymentNotFound
	}
	m.voided[id] = reason
	return nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

func cloneTenancy(t rent.TenancyContext) rent.TenancyContext {
	t.Allocations = append([]rent.BedAllocation(nil), t.Allocations...)
	return t
}

var (
	_ rent.TenancyStore  = (*Memory)(nil)
	_ rent.PaymentLedger = (*Memory)(nil)
)
