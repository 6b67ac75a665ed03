// Package config handles configuration loading and management.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/dailywell-ai/dailywell/internal/logger"
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".dailywell")

	return &Config{
		Logging: logger.Config{
			Level:  "info",
			Output: "stderr",
		},
		Paths: PathsConfig{
			DataDir:   dataDir,
			ModelsDir: filepath.Join(dataDir, "models"),
			CoreDB:    filepath.Join(dataDir, "core.db"),
		},
		Cloud: CloudConfig{
			BaseURL:        "https://api.openrouter.ai/api/v1",
			TimeoutSeconds: 120,
			LiteModel:      "google/gemini-flash-1.5",
			StandardModel:  "anthropic/claude-3.5-haiku",
			MaxModel:       "anthropic/claude-3.5-sonnet",
		},
		Local: LocalConfig{
			ModelFile:   "qwen-2.5-1.5b-instruct-q4.gguf",
			ServerURL:   "http://127.0.0.1:8080",
			ContextSize: 4096,
			MaxTokens:   256,
		},
		Download: DownloadConfig{
			PrimaryURL:         "https://models.dailywell.ai/qwen-2.5-1.5b-instruct-q4.gguf",
			SecondaryURL:       "https://models-mirror.dailywell.ai/qwen-2.5-1.5b-instruct-q4.gguf",
			ExpectedBytes:      398_458_880, // ~380 MB
			MinValidBytes:      350_000_000,
			StorageMarginBytes: 500_000_000,
			BundledPaths: []string{
				filepath.Join(dataDir, "assets", "qwen-2.5-1.5b-instruct-q4.gguf"),
				"/opt/dailywell/assets/qwen-2.5-1.5b-instruct-q4.gguf",
			},
			StallWindowSeconds: 90,
			MaxAttempts:        5,
			UnmeteredOnly:      true,
			AutoStart:          true,
		},
		Plans: PlansConfig{
			Free: PlanConfig{
				CloudAccess:   false,
				DailyMessages: 30,
			},
			Trial: PlanConfig{
				CloudAccess:   true,
				SoftCapUSD:    1.00,
				HardCapUSD:    1.25,
				MonthlyTokens: 500_000,
				DailyMessages: 40,
			},
			Premium: PlanConfig{
				CloudAccess:   true,
				SoftCapUSD:    5.00,
				HardCapUSD:    5.50,
				MonthlyTokens: 3_000_000,
				DailyMessages: 150,
			},
			Family: PlanConfig{
				CloudAccess:   true,
				SoftCapUSD:    9.00,
				HardCapUSD:    10.00,
				MonthlyTokens: 6_000_000,
				DailyMessages: 150,
			},
		},
		Rates: RatesConfig{
			Markup:   1.2,
			Lite:     TierRate{InputPerMTok: 0.075, OutputPerMTok: 0.30},
			Standard: TierRate{InputPerMTok: 0.80, OutputPerMTok: 4.00},
			Max:      TierRate{InputPerMTok: 3.00, OutputPerMTok: 15.00},
		},
		Family: FamilyConfig{
			PoolUSD:    10.00,
			OwnerShare: 0.40,
			AdultShare: 0.35,
			ChildShare: 0.25,
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	expandPaths(cfg)

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// expandPaths expands ~ in configured paths.
func expandPaths(cfg *Config) {
	homeDir, _ := os.UserHomeDir()

	expand := func(p string) string {
		if len(p) > 0 && p[0] == '~' {
			return filepath.Join(homeDir, p[1:])
		}
		return p
	}

	cfg.Paths.DataDir = expand(cfg.Paths.DataDir)
	cfg.Paths.ModelsDir = expand(cfg.Paths.ModelsDir)
	cfg.Paths.CoreDB = expand(cfg.Paths.CoreDB)
	for i, p := range cfg.Download.BundledPaths {
		cfg.Download.BundledPaths[i] = expand(p)
	}
}

// Plan returns the plan config for a plan name, defaulting to free.
func (c *Config) Plan(name string) PlanConfig {
	switch name {
	case "trial":
		return c.Plans.Trial
	case "premium":
		return c.Plans.Premium
	case "family":
		return c.Plans.Family
	default:
		return c.Plans.Free
	}
}

// ModelPath returns the on-disk location of the local model file.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Paths.ModelsDir, c.Local.ModelFile)
}
