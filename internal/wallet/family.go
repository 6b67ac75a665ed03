// Package wallet provides the shared family budget pool.
package wallet

import (
	"sync"

	"github.com/dailywell-ai/dailywell/internal/config"
)

// Role determines a member's share of the family pool.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdult Role = "adult"
	RoleChild Role = "child"
)

// Family apportions one shared monthly dollar pool across members by role.
// A member's cloud call must fit both their own allowance and the pool.
type Family struct {
	mu      sync.Mutex
	poolUSD float64
	shares  map[Role]float64
	roles   map[string]Role    // memberID -> role
	spent   map[string]float64 // memberID -> accrued USD this month
}

// NewFamily builds a family pool from configuration.
func NewFamily(cfg config.FamilyConfig) *Family {
	return &Family{
		poolUSD: cfg.PoolUSD,
		shares: map[Role]float64{
			RoleOwner: cfg.OwnerShare,
			RoleAdult: cfg.AdultShare,
			RoleChild: cfg.ChildShare,
		},
		roles: make(map[string]Role),
		spent: make(map[string]float64),
	}
}

// AddMember registers a member with a role. Unknown members default to child.
func (f *Family) AddMember(memberID string, role Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[memberID] = role
}

// Allowance returns the member's slice of the pool.
func (f *Family) Allowance(memberID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowanceLocked(memberID)
}

func (f *Family) allowanceLocked(memberID string) float64 {
	role, ok := f.roles[memberID]
	if !ok {
		role = RoleChild
	}
	return f.poolUSD * f.shares[role]
}

// CanSpend checks an estimated charge against the member allowance and the
// shared pool.
func (f *Family) CanSpend(memberID string, estimateUSD float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.spent[memberID]+estimateUSD > f.allowanceLocked(memberID) {
		return false
	}

	var total float64
	for _, s := range f.spent {
		total += s
	}
	return total+estimateUSD <= f.poolUSD
}

// Record accrues a completed charge against the member and the pool.
func (f *Family) Record(memberID string, costUSD float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spent[memberID] += costUSD
}

// Spent returns the member's accrued USD this month.
func (f *Family) Spent(memberID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spent[memberID]
}

// Reset zeroes all member spend, called alongside the monthly wallet reset.
func (f *Family) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spent = make(map[string]float64)
}
