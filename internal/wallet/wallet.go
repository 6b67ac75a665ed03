// Package wallet tracks AI usage and spend against plan budgets.
//
// The wallet gates every paid call: plan entitlement first, then the hard
// dollar cap, the soft cap, the legacy token ceiling and the daily message
// limit, in that order. Denials are plain values, never errors - running out
// of budget is steady-state behavior, not a fault.
//
// The in-memory copy is authoritative. It is mirrored to the key-value store
// asynchronously (best effort); a single active session per user is assumed,
// so concurrent multi-device mutations are not race-free.
package wallet

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/model"
)

// Plan names the subscription tier of a user.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanTrial   Plan = "trial"
	PlanPremium Plan = "premium"
	PlanFamily  Plan = "family"
)

// Category buckets message counters by feature.
type Category string

const (
	CategoryChat   Category = "chat"
	CategoryScan   Category = "scan"
	CategoryReport Category = "report"
)

// MessageCounts breaks message totals out by category.
type MessageCounts struct {
	Chat   int `json:"chat"`
	Scan   int `json:"scan"`
	Report int `json:"report"`
}

// Total returns the sum across categories.
func (m MessageCounts) Total() int {
	return m.Chat + m.Scan + m.Report
}

func (m *MessageCounts) add(cat Category) {
	switch cat {
	case CategoryScan:
		m.Scan++
	case CategoryReport:
		m.Report++
	default:
		m.Chat++
	}
}

// Usage is the persisted ledger state for one user.
type Usage struct {
	UserID      string    `json:"user_id"`
	Plan        Plan      `json:"plan"`
	TrialEndsAt time.Time `json:"trial_ends_at,omitempty"`

	TokensUsed          int64         `json:"tokens_used"`
	LocalMessages       MessageCounts `json:"local_messages"`
	CloudMessages       MessageCounts `json:"cloud_messages"`
	CurrentMonthCostUSD float64       `json:"current_month_cost_usd"`
	ResetDate           time.Time     `json:"reset_date"`

	DailyDate  string `json:"daily_date"` // YYYY-MM-DD stamp for DailyCount
	DailyCount int    `json:"daily_count"`
}

// Reason explains an availability outcome.
type Reason string

const (
	ReasonOK         Reason = "ok"
	ReasonFreePlan   Reason = "free_plan"
	ReasonHardCap    Reason = "hard_cap"
	ReasonTokenLimit Reason = "token_limit"
	ReasonDailyLimit Reason = "daily_limit"
)

// Availability is the wallet's verdict for the next message.
type Availability struct {
	// Allowed is false only when the daily message limit is exhausted.
	Allowed bool

	// CloudAllowed permits paid-tier routing for this message.
	CloudAllowed bool

	Reason       Reason
	Message      string // user-facing, forward-looking text
	LowBalance   bool
	RemainingUSD float64
	ResetsOn     time.Time
}

// Persister mirrors ledger snapshots to durable storage. Writes are fire
// and forget.
type Persister interface {
	Put(key, value string)
}

// Wallet is the ledger for one user.
type Wallet struct {
	mu     sync.Mutex
	usage  Usage
	plan   config.PlanConfig
	rates  *Rates
	family *Family // nil unless the user belongs to a family pool
	store  Persister
	log    zerolog.Logger
}

// Config assembles a wallet.
type Config struct {
	UserID      string
	Plan        Plan
	TrialEndsAt time.Time
	PlanConfig  config.PlanConfig
	Rates       *Rates
	Family      *Family
	Store       Persister
	Now         time.Time // first-use anchor for the reset date
}

// New creates a zeroed wallet for first use.
func New(cfg Config, log zerolog.Logger) *Wallet {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Wallet{
		usage: Usage{
			UserID:      cfg.UserID,
			Plan:        cfg.Plan,
			TrialEndsAt: cfg.TrialEndsAt,
			ResetDate:   nextMonth(now),
			DailyDate:   dateStamp(now),
		},
		plan:   cfg.PlanConfig,
		rates:  cfg.Rates,
		family: cfg.Family,
		store:  cfg.Store,
		log:    log.With().Str("component", "wallet").Str("user_id", cfg.UserID).Logger(),
	}
}

// Restore builds a wallet from a persisted ledger snapshot.
func Restore(cfg Config, raw string, log zerolog.Logger) (*Wallet, error) {
	w := New(cfg, log)
	if raw == "" {
		return w, nil
	}
	var u Usage
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	w.usage = u
	return w, nil
}

// CheckAvailability evaluates the gate sequence for one message at the
// given time. The monthly reset happens first and mutates the ledger.
func (w *Wallet) CheckAvailability(now time.Time) Availability {
	// Monthly reset comes before every other check. Mirror it right away
	// so a crash before the next recorded call cannot resurrect the
	// pre-reset counters from the KV store.
	if w.maybeReset(now) {
		w.persist()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Plan gate: free plans and expired trials never reach the cloud.
	// This is categorical and cannot be overridden by quota math.
	if w.effectivePlanLocked(now) == PlanFree {
		return Availability{
			Allowed:      true,
			CloudAllowed: false,
			Reason:       ReasonFreePlan,
			Message:      "Your coach is running on-device. Upgrade to unlock cloud coaching.",
		}
	}

	// Hard cap: no cloud until the scheduled reset.
	headroom := w.hardCapHeadroomLocked()
	if headroom <= 0 {
		return Availability{
			Allowed:      true,
			CloudAllowed: false,
			Reason:       ReasonHardCap,
			Message:      fmt.Sprintf("Monthly AI budget used up. Cloud coaching resets on %s.", w.usage.ResetDate.Format("Jan 2")),
			ResetsOn:     w.usage.ResetDate,
		}
	}

	// Legacy token ceiling, kept for older plan records.
	if w.plan.MonthlyTokens > 0 && w.usage.TokensUsed >= w.plan.MonthlyTokens {
		return Availability{
			Allowed:      true,
			CloudAllowed: false,
			Reason:       ReasonTokenLimit,
			Message:      fmt.Sprintf("Monthly AI allowance used up. Resets on %s.", w.usage.ResetDate.Format("Jan 2")),
			ResetsOn:     w.usage.ResetDate,
		}
	}

	// Daily message ceiling, independent of the dollar budget.
	if w.plan.DailyMessages > 0 {
		if w.usage.DailyDate == dateStamp(now) && w.usage.DailyCount >= w.plan.DailyMessages {
			return Availability{
				Allowed:      false,
				CloudAllowed: false,
				Reason:       ReasonDailyLimit,
				Message:      "You've used today's messages. Come back tomorrow!",
			}
		}
	}

	av := Availability{
		Allowed:      true,
		CloudAllowed: true,
		Reason:       ReasonOK,
		RemainingUSD: headroom,
	}

	// Soft cap: still allowed, but flag the low balance.
	if w.plan.SoftCapUSD > 0 && w.usage.CurrentMonthCostUSD >= w.plan.SoftCapUSD {
		av.LowBalance = true
		av.Message = fmt.Sprintf("About $%.2f of AI budget left this month.", headroom)
	}

	return av
}

// CanAfford reports whether an estimated charge at the given time fits the
// remaining hard-cap headroom (and the family pool, if any). Call this
// before launching expensive long-form report calls.
func (w *Wallet) CanAfford(estimateUSD float64, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.effectivePlanLocked(now) == PlanFree {
		return false
	}
	if estimateUSD > w.hardCapHeadroomLocked() {
		return false
	}
	if w.family != nil && !w.family.CanSpend(w.usage.UserID, estimateUSD) {
		return false
	}
	return true
}

// RecordCloudCall accrues tokens and marked-up cost for a completed paid
// call and returns the charged amount.
func (w *Wallet) RecordCloudCall(tier model.Tier, inputTokens, outputTokens int, cat Category, now time.Time) float64 {
	cost := w.rates.Cost(tier, inputTokens, outputTokens)

	w.mu.Lock()
	w.usage.TokensUsed += int64(inputTokens + outputTokens)
	w.usage.CurrentMonthCostUSD += cost
	w.usage.CloudMessages.add(cat)
	w.bumpDailyLocked(now)
	w.mu.Unlock()

	if w.family != nil {
		w.family.Record(w.usage.UserID, cost)
	}

	w.log.Debug().
		Str("tier", tier.String()).
		Float64("cost_usd", cost).
		Msg("cloud call recorded")

	w.persist()
	return cost
}

// RecordLocalCall counts a free on-device message. Never accrues cost.
func (w *Wallet) RecordLocalCall(cat Category, now time.Time) {
	w.mu.Lock()
	w.usage.LocalMessages.add(cat)
	w.bumpDailyLocked(now)
	w.mu.Unlock()

	w.persist()
}

// EstimateCost exposes the rate table for pre-flight checks.
func (w *Wallet) EstimateCost(tier model.Tier, maxInputTokens, maxOutputTokens int) float64 {
	return w.rates.Estimate(tier, maxInputTokens, maxOutputTokens)
}

// Snapshot returns a copy of the ledger state.
func (w *Wallet) Snapshot() Usage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usage
}

// maybeReset zeroes the counters once the reset date has passed and reports
// whether a reset happened. Idempotent within a billing period: a second
// call in the same period is a no-op.
func (w *Wallet) maybeReset(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Before(w.usage.ResetDate) {
		return false
	}

	w.usage.TokensUsed = 0
	w.usage.CurrentMonthCostUSD = 0
	w.usage.LocalMessages = MessageCounts{}
	w.usage.CloudMessages = MessageCounts{}
	w.usage.ResetDate = nextMonth(now)

	// The shared pool rolls over with the individual ledger.
	if w.family != nil {
		w.family.Reset()
	}

	w.log.Info().Time("next_reset", w.usage.ResetDate).Msg("monthly ledger reset")
	return true
}

// effectivePlanLocked collapses expired trials into the free plan.
func (w *Wallet) effectivePlanLocked(now time.Time) Plan {
	if !w.plan.CloudAccess {
		return PlanFree
	}
	if w.usage.Plan == PlanTrial && !w.usage.TrialEndsAt.IsZero() && now.After(w.usage.TrialEndsAt) {
		return PlanFree
	}
	if w.usage.Plan == PlanFree {
		return PlanFree
	}
	return w.usage.Plan
}

// hardCapHeadroomLocked returns remaining dollars before the hard cap.
func (w *Wallet) hardCapHeadroomLocked() float64 {
	if w.plan.HardCapUSD <= 0 {
		return 0
	}
	return w.plan.HardCapUSD - w.usage.CurrentMonthCostUSD
}

// bumpDailyLocked advances the per-day counter, rolling the date stamp.
func (w *Wallet) bumpDailyLocked(now time.Time) {
	stamp := dateStamp(now)
	if w.usage.DailyDate != stamp {
		w.usage.DailyDate = stamp
		w.usage.DailyCount = 0
	}
	w.usage.DailyCount++
}

// persist mirrors the ledger to storage, best effort.
func (w *Wallet) persist() {
	if w.store == nil {
		return
	}
	w.mu.Lock()
	raw, err := json.Marshal(w.usage)
	key := LedgerKey(w.usage.UserID)
	w.mu.Unlock()
	if err != nil {
		w.log.Warn().Err(err).Msg("ledger marshal failed")
		return
	}
	w.store.Put(key, string(raw))
}

// LedgerKey is the KV key holding a user's serialized ledger.
func LedgerKey(userID string) string {
	return "wallet:" + userID
}

// dateStamp formats a local calendar date.
func dateStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

// nextMonth advances one calendar month, clamping to the last valid day
// (Jan 31 -> Feb 28, not Mar 3).
func nextMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, 0, 0, 0, 0, t.Location())
}
