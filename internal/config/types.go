// Package config provides configuration types for the DailyWell AI core.
package config

import "github.com/dailywell-ai/dailywell/internal/logger"

// Config represents the main configuration.
//
// Everything that is policy rather than logic lives here: the per-tier USD
// rate table, plan caps, family shares and download endpoints are all
// expected to change without touching the routing code.
type Config struct {
	Logging  logger.Config  `toml:"logging"`
	Paths    PathsConfig    `toml:"paths"`
	Cloud    CloudConfig    `toml:"cloud"`
	Local    LocalConfig    `toml:"local"`
	Download DownloadConfig `toml:"download"`
	Plans    PlansConfig    `toml:"plans"`
	Rates    RatesConfig    `toml:"rates"`
	Family   FamilyConfig   `toml:"family"`
}

// PathsConfig contains file path settings.
type PathsConfig struct {
	DataDir   string `toml:"data_dir"`
	ModelsDir string `toml:"models_dir"`
	CoreDB    string `toml:"core_db"`
}

// CloudConfig configures the cloud chat-completion API.
type CloudConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	// Model names by tier
	LiteModel     string `toml:"lite_model"`
	StandardModel string `toml:"standard_model"`
	MaxModel      string `toml:"max_model"`
}

// LocalConfig configures on-device inference.
type LocalConfig struct {
	ModelFile   string `toml:"model_file"` // filename inside ModelsDir
	ServerURL   string `toml:"server_url"` // llama.cpp server endpoint
	ContextSize int    `toml:"context_size"`
	MaxTokens   int    `toml:"max_tokens"`
}

// DownloadConfig configures acquisition of the on-device model file.
type DownloadConfig struct {
	PrimaryURL   string `toml:"primary_url"`
	SecondaryURL string `toml:"secondary_url"`

	ExpectedBytes      int64 `toml:"expected_bytes"`
	MinValidBytes      int64 `toml:"min_valid_bytes"`
	StorageMarginBytes int64 `toml:"storage_margin_bytes"`

	// BundledPaths are candidate locations for a pre-delivered copy of the
	// model, searched most specific first.
	BundledPaths []string `toml:"bundled_paths"`

	StallWindowSeconds int  `toml:"stall_window_seconds"`
	MaxAttempts        int  `toml:"max_attempts"`
	UnmeteredOnly      bool `toml:"unmetered_only"`
	AutoStart          bool `toml:"auto_start"`
}

// PlansConfig holds per-plan entitlements.
type PlansConfig struct {
	Free    PlanConfig `toml:"free"`
	Trial   PlanConfig `toml:"trial"`
	Premium PlanConfig `toml:"premium"`
	Family  PlanConfig `toml:"family"`
}

// PlanConfig defines the budget envelope for one subscription plan.
type PlanConfig struct {
	CloudAccess   bool    `toml:"cloud_access"`
	SoftCapUSD    float64 `toml:"soft_cap_usd"`
	HardCapUSD    float64 `toml:"hard_cap_usd"`
	MonthlyTokens int64   `toml:"monthly_tokens"`
	DailyMessages int     `toml:"daily_messages"`
}

// RatesConfig is the published per-token price table plus internal markup.
type RatesConfig struct {
	// Markup multiplies the raw provider cost before it hits the wallet.
	Markup float64 `toml:"markup"`

	Lite     TierRate `toml:"lite"`
	Standard TierRate `toml:"standard"`
	Max      TierRate `toml:"max"`
}

// TierRate is the USD price per 1M tokens for one cloud tier.
type TierRate struct {
	InputPerMTok  float64 `toml:"input_per_mtok"`
	OutputPerMTok float64 `toml:"output_per_mtok"`
}

// FamilyConfig apportions a shared budget pool across family roles.
type FamilyConfig struct {
	PoolUSD float64 `toml:"pool_usd"`

	// Share per role, as a fraction of PoolUSD. Shares should sum to 1.
	OwnerShare  float64 `toml:"owner_share"`
	AdultShare  float64 `toml:"adult_share"`
	ChildShare  float64 `toml:"child_share"`
}
