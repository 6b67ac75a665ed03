package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dailywell-ai/dailywell/internal/coach"
	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/download"
	"github.com/dailywell-ai/dailywell/internal/logger"
	"github.com/dailywell-ai/dailywell/internal/model"
	"github.com/dailywell-ai/dailywell/internal/routing"
	"github.com/dailywell-ai/dailywell/internal/session"
	"github.com/dailywell-ai/dailywell/internal/store"
	"github.com/dailywell-ai/dailywell/internal/wallet"
)

// app is the composition root: every service is constructed here
// explicitly and torn down in close. No package-level singletons.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *store.SQLiteStore
	queue    *store.WriteQueue
	sessions *session.Store
	download *download.Manager
	models   map[model.Tier]model.Model
	router   *routing.Engine
	wallet   *wallet.Wallet
	coach    *coach.Coach
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.CoreDB), 0755); err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Paths.CoreDB)
	if err != nil {
		return nil, err
	}

	queue := store.NewWriteQueue(db, log)
	sessions := session.NewStore(db, queue, log)

	dl := download.New(cfg.Download, cfg.Paths.ModelsDir, cfg.Local.ModelFile,
		download.StatfsDisk{}, download.StaticNetwork{Unmetered: true}, db, log)

	models := buildModels(cfg, dl, log)
	router := routing.New(nil, log)

	userID, _ := cmd.Flags().GetString("user")
	plan, _ := cmd.Flags().GetString("plan")

	w, err := restoreWallet(cfg, db, queue, userID, plan, log)
	if err != nil {
		return nil, err
	}

	c := coach.New(&coach.Config{
		UserID:   userID,
		Models:   models,
		Router:   router,
		Wallet:   w,
		Sessions: sessions,
		Download: dl,
	}, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		queue:    queue,
		sessions: sessions,
		download: dl,
		models:   models,
		router:   router,
		wallet:   w,
		coach:    c,
	}, nil
}

func buildModels(cfg *config.Config, dl *download.Manager, log zerolog.Logger) map[model.Tier]model.Model {
	timeout := time.Duration(cfg.Cloud.TimeoutSeconds) * time.Second

	cloud := func(tier model.Tier, name string) model.Model {
		return model.NewCloudClient(&model.CloudConfig{
			APIKey:  cfg.Cloud.APIKey,
			BaseURL: cfg.Cloud.BaseURL,
			Model:   name,
			Tier:    tier,
			Timeout: timeout,
		}, log)
	}

	local := model.NewLocalClient(&model.LocalConfig{
		Name:      cfg.Local.ModelFile,
		MaxTokens: cfg.Local.MaxTokens,
	}, dl, model.NewLlamaServerRunner(cfg.Local.ServerURL), log)

	return map[model.Tier]model.Model{
		model.TierLocal:    local,
		model.TierLite:     cloud(model.TierLite, cfg.Cloud.LiteModel),
		model.TierStandard: cloud(model.TierStandard, cfg.Cloud.StandardModel),
		model.TierMax:      cloud(model.TierMax, cfg.Cloud.MaxModel),
	}
}

func restoreWallet(cfg *config.Config, db *store.SQLiteStore, queue *store.WriteQueue, userID, plan string, log zerolog.Logger) (*wallet.Wallet, error) {
	raw, err := db.Get(wallet.LedgerKey(userID))
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	// Family plans share one pool; the CLI user is the pool owner.
	var family *wallet.Family
	if wallet.Plan(plan) == wallet.PlanFamily {
		family = wallet.NewFamily(cfg.Family)
		family.AddMember(userID, wallet.RoleOwner)
	}

	return wallet.Restore(wallet.Config{
		UserID:     userID,
		Plan:       wallet.Plan(plan),
		PlanConfig: cfg.Plan(plan),
		Rates:      wallet.RatesFromConfig(cfg.Rates),
		Family:     family,
		Store:      queue,
	}, raw, log)
}

func (a *app) close() {
	a.download.Close()
	a.queue.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("db close failed")
	}
}
