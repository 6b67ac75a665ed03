package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.True(t, cfg.Plans.Premium.CloudAccess)
	assert.Equal(t, 5.50, cfg.Plans.Premium.HardCapUSD)
	assert.False(t, cfg.Plans.Free.CloudAccess)
	assert.Greater(t, cfg.Download.ExpectedBytes, int64(0))
	assert.True(t, cfg.Download.UnmeteredOnly)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Cloud.APIKey = "sk-test"
	cfg.Plans.Premium.HardCapUSD = 7.00
	cfg.Rates.Markup = 1.5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", loaded.Cloud.APIKey)
	assert.Equal(t, 7.00, loaded.Plans.Premium.HardCapUSD)
	assert.Equal(t, 1.5, loaded.Rates.Markup)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cloud]\napi_key = \"sk-partial\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-partial", cfg.Cloud.APIKey)
	assert.Equal(t, 5.50, cfg.Plans.Premium.HardCapUSD, "unset sections fall back to defaults")
}

func TestLoadRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cloud\nbroken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExpandsHomePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[paths]\ndata_dir = \"~/wellness\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "wellness"), cfg.Paths.DataDir)
}

func TestPlanLookup(t *testing.T) {
	cfg := Default()

	assert.Equal(t, cfg.Plans.Premium, cfg.Plan("premium"))
	assert.Equal(t, cfg.Plans.Trial, cfg.Plan("trial"))
	assert.Equal(t, cfg.Plans.Family, cfg.Plan("family"))
	assert.Equal(t, cfg.Plans.Free, cfg.Plan("free"))
	assert.Equal(t, cfg.Plans.Free, cfg.Plan("gibberish"), "unknown plans get the free envelope")
}

func TestModelPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.ModelsDir = "/data/models"
	cfg.Local.ModelFile = "coach.gguf"

	assert.Equal(t, "/data/models/coach.gguf", cfg.ModelPath())
}

func TestDefaultCapsOrdering(t *testing.T) {
	cfg := Default()

	for name, plan := range map[string]PlanConfig{
		"trial":   cfg.Plans.Trial,
		"premium": cfg.Plans.Premium,
		"family":  cfg.Plans.Family,
	} {
		assert.Less(t, plan.SoftCapUSD, plan.HardCapUSD, "plan %s", name)
	}
}
