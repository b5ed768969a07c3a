package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/service"
)

func TestNewApp_AllLayers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history")
	cfg.Cache.Enabled = true

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{host: "api", metrics: true})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.svc)
	assert.NotNil(t, a.metrics)
	assert.NotNil(t, a.cache)
	assert.NotNil(t, a.history)

	resp, err := a.svc.RunKMeans(ctx, service.KMeansRequest{Dataset: "iris"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RunID)

	again, err := a.svc.RunKMeans(ctx, service.KMeansRequest{Dataset: "iris"})
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestNewApp_Minimal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false

	a, err := newApp(context.Background(), cfg, appOptions{host: "cli"})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.metrics)
	assert.Nil(t, a.cache)
	assert.Nil(t, a.history)

	_, err = a.svc.ListRuns(context.Background(), "", 0)
	assert.True(t, errors.Is(err, service.ErrHistoryDisabled))
}

func TestNewApp_BadSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Backend = "file"
	cfg.Source.Path = ""

	_, err := newApp(context.Background(), cfg, appOptions{host: "cli"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open file source")
}

func TestNewApp_BadCatalogueFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mining.CatalogueFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newApp(context.Background(), cfg, appOptions{host: "cli"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalogues")
}

func TestSourceConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Backend = "qdrant"
	cfg.Source.Host = "localhost:6334"
	cfg.Source.Collection = "docs"
	cfg.Source.UseTLS = true

	sc := sourceConfig(cfg)
	assert.Equal(t, "qdrant", sc.Backend)
	assert.Equal(t, "localhost:6334", sc.Host)
	assert.Equal(t, "docs", sc.Collection)
	assert.True(t, sc.UseTLS)
}

func TestOpenHistoryStore_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.History.Enabled = false

	_, err := openHistoryStore(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrHistoryDisabled))
}

func TestFormatSummary(t *testing.T) {
	got := formatSummary(map[string]float64{
		"k":       3,
		"inertia": 12.5,
		"quality": 0.71234,
	})
	assert.Equal(t, "inertia=12.5 k=3 quality=0.7123", got)
	assert.Equal(t, "", formatSummary(nil))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 run", plural(1, "run"))
	assert.Equal(t, "0 runs", plural(0, "run"))
	assert.Equal(t, "3 clusters", plural(3, "cluster"))
}

func TestFindConfigFile(t *testing.T) {
	path, err := findConfigFile([]string{"custom.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", path)

	old := cfgFile
	cfgFile = "/etc/minelab/minelab.yaml"
	defer func() { cfgFile = old }()

	path, err = findConfigFile(nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/minelab/minelab.yaml", path)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(config.GenerateTemplate()), 0o644))
	assert.NoError(t, runConfigValidate(configValidateCmd, []string{good}))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cluster:\n  init: random\n"), 0o644))
	err := runConfigValidate(configValidateCmd, []string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster.init")

	missingTx := filepath.Join(dir, "tx.yaml")
	require.NoError(t, os.WriteFile(missingTx, []byte("mining:\n  transactions_file: "+filepath.Join(dir, "none.jsonl")+"\n"), 0o644))
	err = runConfigValidate(configValidateCmd, []string{missingTx})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load transactions")
}
