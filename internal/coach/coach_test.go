package coach

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailywell-ai/dailywell/internal/classifier"
	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/download"
	"github.com/dailywell-ai/dailywell/internal/model"
	"github.com/dailywell-ai/dailywell/internal/routing"
	"github.com/dailywell-ai/dailywell/internal/session"
	"github.com/dailywell-ai/dailywell/internal/store"
	"github.com/dailywell-ai/dailywell/internal/wallet"
)

// ============================================================
// Test fixtures
// ============================================================

type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemKV() *memKV { return &memKV{values: make(map[string]string)} }

func (m *memKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// sink adapts memKV to the fire-and-forget persister contract.
type sink struct{ kv *memKV }

func (s sink) Put(key, value string) { _ = s.kv.Put(key, value) }

// stubModel is a scripted backend.
type stubModel struct {
	tier      model.Tier
	text      string
	inTokens  int
	outTokens int
	err       error
	offline   bool

	mu    sync.Mutex
	calls int
}

func (m *stubModel) Generate(_ context.Context, _ *model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &model.Response{
		Text:         m.text,
		InputTokens:  m.inTokens,
		OutputTokens: m.outTokens,
		Tier:         m.tier,
	}, nil
}

func (m *stubModel) IsAvailable() bool { return !m.offline }
func (m *stubModel) Name() string      { return "stub-" + m.tier.String() }
func (m *stubModel) Tier() model.Tier  { return m.tier }
func (m *stubModel) Status() *model.Status {
	return &model.Status{Name: m.Name(), Available: !m.offline, Local: m.tier == model.TierLocal}
}

func (m *stubModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var testNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func testRates() *wallet.Rates {
	return wallet.RatesFromConfig(config.RatesConfig{
		Markup:   1.2,
		Lite:     config.TierRate{InputPerMTok: 0.10, OutputPerMTok: 0.30},
		Standard: config.TierRate{InputPerMTok: 1.00, OutputPerMTok: 3.00},
		Max:      config.TierRate{InputPerMTok: 3.00, OutputPerMTok: 15.00},
	})
}

func premiumPlan() config.PlanConfig {
	return config.PlanConfig{CloudAccess: true, SoftCapUSD: 5.00, HardCapUSD: 5.50}
}

type fixture struct {
	coach    *Coach
	wallet   *wallet.Wallet
	router   *routing.Engine
	sessions *session.Store
	local    *stubModel
	lite     *stubModel
	standard *stubModel
	max      *stubModel
}

type fixtureOpt func(*fixtureConfig)

type fixtureConfig struct {
	plan       wallet.Plan
	planConfig config.PlanConfig
	ledgerJSON string
}

func withPlan(plan wallet.Plan, pc config.PlanConfig) fixtureOpt {
	return func(c *fixtureConfig) {
		c.plan = plan
		c.planConfig = pc
	}
}

func withLedger(raw string) fixtureOpt {
	return func(c *fixtureConfig) { c.ledgerJSON = raw }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()

	fc := &fixtureConfig{plan: wallet.PlanPremium, planConfig: premiumPlan()}
	for _, opt := range opts {
		opt(fc)
	}

	w, err := wallet.Restore(wallet.Config{
		UserID:     "u1",
		Plan:       fc.plan,
		PlanConfig: fc.planConfig,
		Rates:      testRates(),
		Now:        testNow,
	}, fc.ledgerJSON, zerolog.Nop())
	require.NoError(t, err)

	kv := newMemKV()
	sessions := session.NewStore(kv, sink{kv}, zerolog.Nop())
	router := routing.New(nil, zerolog.Nop())

	dl := download.New(config.DownloadConfig{MinValidBytes: 10}, t.TempDir(), "coach.gguf",
		download.StatfsDisk{}, download.StaticNetwork{Unmetered: true}, kv, zerolog.Nop())
	t.Cleanup(dl.Close)

	f := &fixture{
		wallet:   w,
		router:   router,
		sessions: sessions,
		local:    &stubModel{tier: model.TierLocal, text: "Rest today. Next step: take a short walk."},
		lite:     &stubModel{tier: model.TierLite, text: "Good plan. Next step: prep one meal tonight.", inTokens: 300, outTokens: 100},
		standard: &stubModel{tier: model.TierStandard, text: "Here's the plan. Next step: start with day one tomorrow.", inTokens: 800, outTokens: 300},
		max:      &stubModel{tier: model.TierMax, text: "Weekly summary done. Next step: review your sleep trend tonight.", inTokens: 2000, outTokens: 800},
	}

	f.coach = New(&Config{
		UserID: "u1",
		Models: map[model.Tier]model.Model{
			model.TierLocal:    f.local,
			model.TierLite:     f.lite,
			model.TierStandard: f.standard,
			model.TierMax:      f.max,
		},
		Router:   router,
		Wallet:   w,
		Sessions: sessions,
		Download: dl,
		Now:      func() time.Time { return testNow },
	}, zerolog.Nop())

	return f
}

func ledgerWithCost(t *testing.T, cost float64) string {
	t.Helper()
	raw, err := json.Marshal(wallet.Usage{
		UserID:              "u1",
		Plan:                wallet.PlanPremium,
		CurrentMonthCostUSD: cost,
		ResetDate:           time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		DailyDate:           "2026-08-29",
	})
	require.NoError(t, err)
	return string(raw)
}

// ============================================================
// End-to-end scenarios
// ============================================================

func TestSimpleGreetingStaysLocalAndFree(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.SendMessage(context.Background(), "s1", "hey", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLocal, reply.Tier)
	assert.Equal(t, 1, f.local.callCount())
	assert.Zero(t, f.lite.callCount()+f.standard.callCount()+f.max.callCount())

	u := f.wallet.Snapshot()
	assert.Zero(t, u.CurrentMonthCostUSD)
	assert.Equal(t, 1, u.LocalMessages.Chat)
}

func TestComplexMessageRoutesToCloudAndCharges(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"build me a personalized workout plan", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierStandard, reply.Tier)
	assert.Equal(t, 1, f.standard.callCount())

	u := f.wallet.Snapshot()
	// 800 in at $1/MTok + 300 out at $3/MTok, times 1.2 markup.
	assert.InDelta(t, (0.0008+0.0009)*1.2, u.CurrentMonthCostUSD, 1e-9)
	assert.Equal(t, 1, u.CloudMessages.Chat)
	assert.Equal(t, int64(1100), u.TokensUsed)
}

func TestCloudFailureFallsBackDownTheChain(t *testing.T) {
	f := newFixture(t)
	f.standard.err = context.DeadlineExceeded

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"build me a personalized workout plan", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLite, reply.Tier, "failure falls through to the cheaper cloud tier")
	assert.Equal(t, 1, f.standard.callCount())
	assert.Equal(t, 1, f.lite.callCount())
	assert.Equal(t, 1, f.router.Failures(model.TierStandard))

	u := f.wallet.Snapshot()
	assert.Equal(t, 1, u.CloudMessages.Chat, "only the successful call is charged")
}

func TestRepeatedFailuresTripBreakerAndSkipTier(t *testing.T) {
	f := newFixture(t)
	f.standard.err = context.DeadlineExceeded

	for i := 0; i < 3; i++ {
		_, err := f.coach.SendMessage(context.Background(), "s1",
			"build me a personalized workout plan", classifier.SessionChat)
		require.NoError(t, err)
	}
	require.Equal(t, 3, f.standard.callCount())

	// Breaker is open now; the failing tier must not be consulted again.
	_, err := f.coach.SendMessage(context.Background(), "s1",
		"build me a personalized workout plan", classifier.SessionChat)
	require.NoError(t, err)
	assert.Equal(t, 3, f.standard.callCount())
	assert.Equal(t, 4, f.lite.callCount())
}

func TestHardCapStillYieldsLocalReply(t *testing.T) {
	f := newFixture(t, withLedger(ledgerWithCost(t, 5.60)))

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"build me a personalized workout plan", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLocal, reply.Tier)
	assert.NotEmpty(t, reply.Text, "hard cap must never leave the user without a reply")
	assert.Contains(t, reply.Notice, "budget")
	assert.Zero(t, f.lite.callCount()+f.standard.callCount()+f.max.callCount())
}

func TestSoftCapConstrainsRouting(t *testing.T) {
	f := newFixture(t, withLedger(ledgerWithCost(t, 5.10)))

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"build me a personalized workout plan", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLite, reply.Tier, "low balance caps at the cheapest cloud tier")
	assert.Zero(t, f.standard.callCount())
	assert.NotEmpty(t, reply.Notice)
}

func TestFreePlanNeverTouchesCloud(t *testing.T) {
	f := newFixture(t, withPlan(wallet.PlanFree, config.PlanConfig{CloudAccess: false}))

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"analyze my sleep trends for the whole month", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLocal, reply.Tier)
	assert.Zero(t, f.lite.callCount()+f.standard.callCount()+f.max.callCount())
	assert.Contains(t, reply.Notice, "Upgrade")
}

func TestDailyLimitShortCircuits(t *testing.T) {
	pc := premiumPlan()
	pc.DailyMessages = 1
	f := newFixture(t, withPlan(wallet.PlanPremium, pc))

	_, err := f.coach.SendMessage(context.Background(), "s1", "hey", classifier.SessionChat)
	require.NoError(t, err)

	reply, err := f.coach.SendMessage(context.Background(), "s1", "hey again", classifier.SessionChat)
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "tomorrow")
	assert.Equal(t, 1, f.local.callCount(), "no backend consulted past the daily ceiling")
	assert.Len(t, f.sessions.History("u1", "s1", 0), 2, "denied message is not appended to the transcript")
}

func TestAllBackendsDownYieldsDegradedReply(t *testing.T) {
	f := newFixture(t)
	f.local.err = context.DeadlineExceeded
	f.lite.err = context.DeadlineExceeded
	f.standard.err = context.DeadlineExceeded
	f.max.err = context.DeadlineExceeded

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"what should i eat before a run", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, model.TierLocal, reply.Tier)
	assert.Contains(t, reply.Text, "Next step:")
	assert.NotEmpty(t, reply.Text)
}

func TestUnaffordableTierIsSkippedPreFlight(t *testing.T) {
	// $0.01 of headroom left and no soft cap: the max-tier estimate cannot
	// fit, the cheaper tiers can.
	f := newFixture(t,
		withPlan(wallet.PlanPremium, config.PlanConfig{CloudAccess: true, HardCapUSD: 5.50}),
		withLedger(ledgerWithCost(t, 5.49)))

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"give me a weekly report on my sleep", classifier.SessionChat)
	require.NoError(t, err)

	assert.Zero(t, f.max.callCount(), "unaffordable call is never launched")
	assert.Equal(t, model.TierStandard, reply.Tier, "next affordable tier in the chain serves the request")
}

func TestWeeklyReviewSessionRoutesMax(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.SendMessage(context.Background(), "s1",
		"how was my week", classifier.SessionWeeklyReview)
	require.NoError(t, err)

	assert.Equal(t, model.TierMax, reply.Tier)

	u := f.wallet.Snapshot()
	assert.Equal(t, 1, u.CloudMessages.Report, "weekly reviews count in the report bucket")
}

func TestGenerateWeeklyReportPreFlightDenial(t *testing.T) {
	f := newFixture(t, withLedger(ledgerWithCost(t, 5.60)))

	reply, err := f.coach.GenerateWeeklyReport(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, model.TierLocal, reply.Tier)
	assert.NotEmpty(t, reply.Text)
	assert.Zero(t, f.max.callCount())
}

func TestGenerateWeeklyReport(t *testing.T) {
	f := newFixture(t)

	reply, err := f.coach.GenerateWeeklyReport(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, model.TierMax, reply.Tier)
	assert.Equal(t, 1, f.max.callCount())
}

func TestRepliesAreNormalized(t *testing.T) {
	f := newFixture(t)
	f.local.text = "One. Two. Three. Four. Next step: do a thing. Next step: do another thing."

	reply, err := f.coach.SendMessage(context.Background(), "s1", "hey", classifier.SessionChat)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(reply.Text, NextStepMarker))
	assert.LessOrEqual(t, len(splitSentences(reply.Text)), maxSentences)
}

func TestTranscriptRecordsBothTurns(t *testing.T) {
	f := newFixture(t)

	_, err := f.coach.SendMessage(context.Background(), "s1", "hey", classifier.SessionChat)
	require.NoError(t, err)

	msgs := f.sessions.History("u1", "s1", 0)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hey", msgs[0].Text)
	assert.Equal(t, "coach", msgs[1].Role)
	assert.Equal(t, "local", msgs[1].Tier)
}

func TestMemoriesFlowIntoContext(t *testing.T) {
	f := newFixture(t)
	f.sessions.Remember("u1", "training for a 10k in October")

	ctx := f.coach.buildContext("s1")
	assert.Contains(t, ctx, "training for a 10k in October")
}
