// Package coach is the orchestrator behind the chat surface.
//
// One SendMessage call runs the whole pipeline: wallet gate, context build,
// routing decision, execute-with-fallback across the tier chain, response
// shaping, ledger update, history append. Callers always get usable text
// back - model and network faults stop here.
package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/classifier"
	"github.com/dailywell-ai/dailywell/internal/download"
	"github.com/dailywell-ai/dailywell/internal/model"
	"github.com/dailywell-ai/dailywell/internal/routing"
	"github.com/dailywell-ai/dailywell/internal/session"
	"github.com/dailywell-ai/dailywell/internal/stats"
	"github.com/dailywell-ai/dailywell/internal/wallet"
)

// ContextProvider summarizes the user's profile for prompt building. The
// habit/nutrition repositories behind it are external collaborators.
type ContextProvider interface {
	Summary(userID string) string
}

// Coach orchestrates coaching replies for one user.
type Coach struct {
	userID   string
	models   map[model.Tier]model.Model
	router   *routing.Engine
	wallet   *wallet.Wallet
	sessions *session.Store
	download *download.Manager
	profile  ContextProvider
	persona  string
	stats    *stats.Collector
	now      func() time.Time
	log      zerolog.Logger
}

// Config assembles a coach.
type Config struct {
	UserID   string
	Models   map[model.Tier]model.Model
	Router   *routing.Engine
	Wallet   *wallet.Wallet
	Sessions *session.Store
	Download *download.Manager
	Profile  ContextProvider // optional
	Persona  string          // optional persona descriptor
	Now      func() time.Time
}

// New creates a coach.
func New(cfg *Config, log zerolog.Logger) *Coach {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	persona := cfg.Persona
	if persona == "" {
		persona = defaultPersona
	}
	return &Coach{
		userID:   cfg.UserID,
		models:   cfg.Models,
		router:   cfg.Router,
		wallet:   cfg.Wallet,
		sessions: cfg.Sessions,
		download: cfg.Download,
		profile:  cfg.Profile,
		persona:  persona,
		stats:    stats.NewCollector(),
		now:      now,
		log:      log.With().Str("component", "coach").Str("user_id", cfg.UserID).Logger(),
	}
}

// Reply is the orchestrator's answer to one message.
type Reply struct {
	Text       string
	Tier       model.Tier
	Notice     string // wallet warnings surfaced alongside the reply
	DurationMs int64
}

// SendMessage processes one user message end to end.
func (c *Coach) SendMessage(ctx context.Context, sessionID, text string, sessionType classifier.SessionType) (*Reply, error) {
	start := c.now()

	av := c.wallet.CheckAvailability(start)
	if !av.Allowed {
		// Daily ceiling reached; no model is consulted at all.
		return &Reply{Text: av.Message, Tier: model.TierLocal}, nil
	}

	c.sessions.Append(c.userID, sessionID, string(sessionType), session.NewMessage("user", text, ""))

	decision := c.router.Decide(&routing.Request{
		Message:      text,
		Session:      sessionType,
		CloudAllowed: av.CloudAllowed,
		LowBalance:   av.LowBalance,
	})

	req := &model.Request{
		System:      systemPrompt,
		Persona:     c.persona,
		Prompt:      text,
		UserContext: c.buildContext(sessionID),
		MaxTokens:   decision.MaxTokens,
	}

	category := wallet.CategoryChat
	if sessionType == classifier.SessionWeeklyReview {
		category = wallet.CategoryReport
	}

	resp := c.executeWithFallback(ctx, decision, req, category)

	var replyText string
	var tier model.Tier
	if resp != nil {
		replyText = Normalize(resp.Text, text)
		tier = resp.Tier
		c.stats.RecordRequest(resp.TotalTokens(), time.Since(start))
		if tier != decision.Tier {
			c.stats.RecordFallback()
		}
	} else {
		// Even the local model failed. Describe where its installation
		// stands instead of surfacing an error.
		replyText = degradedReply(c.download.State())
		tier = model.TierLocal
		c.stats.RecordError()
	}

	c.sessions.Append(c.userID, sessionID, string(sessionType), session.NewMessage("coach", replyText, tier.String()))

	return &Reply{
		Text:       replyText,
		Tier:       tier,
		Notice:     av.Message,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// executeWithFallback walks the decision's tier chain until a backend
// succeeds. Failures feed the circuit breakers; successes on paid tiers hit
// the wallet and reset their breaker.
func (c *Coach) executeWithFallback(ctx context.Context, decision *routing.Decision, req *model.Request, cat wallet.Category) *model.Response {
	tiers := append([]model.Tier{decision.Tier}, decision.Chain...)

	for _, tier := range tiers {
		m, ok := c.models[tier]
		if !ok || !m.IsAvailable() {
			continue
		}

		if tier.IsCloud() {
			// Never launch a call the wallet cannot absorb.
			estimate := c.wallet.EstimateCost(tier, estimateInputTokens(req), req.MaxTokens)
			if !c.wallet.CanAfford(estimate, c.now()) {
				c.log.Debug().Str("tier", tier.String()).Msg("skipping tier, cannot afford")
				continue
			}
		}

		resp, err := m.Generate(ctx, req)
		if err != nil {
			if tier.IsCloud() {
				c.router.RecordFailure(tier)
			}
			c.log.Warn().Err(err).Str("tier", tier.String()).Msg("backend failed, falling back")
			continue
		}

		if tier.IsCloud() {
			c.router.RecordSuccess(tier)
			c.wallet.RecordCloudCall(tier, resp.InputTokens, resp.OutputTokens, cat, c.now())
		} else {
			c.wallet.RecordLocalCall(cat, c.now())
		}

		return resp
	}

	return nil
}

// GenerateWeeklyReport runs the scheduled long-form report with an explicit
// affordability pre-flight, so the call is never launched half-funded.
func (c *Coach) GenerateWeeklyReport(ctx context.Context, sessionID string) (*Reply, error) {
	estimate := c.wallet.EstimateCost(model.TierMax, reportInputBudget, reportOutputBudget)
	if !c.wallet.CanAfford(estimate, c.now()) {
		av := c.wallet.CheckAvailability(c.now())
		msg := av.Message
		if msg == "" {
			msg = "Your weekly report will be ready after your AI budget resets."
		}
		return &Reply{Text: msg, Tier: model.TierLocal}, nil
	}

	return c.SendMessage(ctx, sessionID, "Give me my weekly progress report.", classifier.SessionWeeklyReview)
}

// Stats returns the collector snapshot.
func (c *Coach) Stats() *stats.Stats {
	return c.stats.Snapshot()
}

// degradedReply converts the acquisition state into user-facing text when
// every backend has failed.
func degradedReply(state download.State) string {
	return fmt.Sprintf("I'm catching my breath right now. %s Next step: try me again in a moment.", state.UserMessage())
}

const (
	reportInputBudget  = 2048
	reportOutputBudget = 1024
)

// estimateInputTokens sizes the prompt for the pre-flight cost check.
// Conservative: ~4 chars per token.
func estimateInputTokens(req *model.Request) int {
	chars := len(req.System) + len(req.Persona) + len(req.UserContext) + len(req.Prompt)
	return chars/4 + 64
}
