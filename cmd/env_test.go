package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edinet-cli/internal/config"
	"github.com/sells-group/edinet-cli/internal/model"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "edinet.db"),
		},
		Scraping: config.ScrapingConfig{
			TargetTypeCodes: []string{"120", "130"},
			CacheTTLSecs:    60,
		},
	}
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = sqliteConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}

	st, err := initStore(context.Background())
	assert.Nil(t, st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitEnv_StoreMode(t *testing.T) {
	cfg = sqliteConfig(t)

	env, err := initEnv(context.Background(), "store")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Registry)
	assert.NotNil(t, env.Industry)
	assert.Nil(t, env.Edinet)
	assert.Nil(t, env.Batch)
}

func TestInitEnv_IngestModeNeedsAPIKey(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.Edinet.BaseURL = "https://api.edinet-fsa.go.jp"

	_, err := initEnv(context.Background(), "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edinet.api_key")
}

func TestInitEnv_IngestMode(t *testing.T) {
	cfg = sqliteConfig(t)
	cfg.Edinet = config.EdinetConfig{
		BaseURL:        "https://api.edinet-fsa.go.jp",
		APIKey:         "key",
		TimeoutSecs:    5,
		RequestsPerSec: 1,
	}

	env, err := initEnv(context.Background(), "ingest")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Edinet)
	assert.NotNil(t, env.Ingest)
	assert.Nil(t, env.Batch)
}

func TestTypeCodes(t *testing.T) {
	got := typeCodes([]string{"120", "140"})
	assert.Equal(t, []model.DocumentTypeCode{model.ParseDocumentTypeCode("120"), model.ParseDocumentTypeCode("140")}, got)
	assert.Empty(t, typeCodes(nil))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2021-06-25")
	require.NoError(t, err)
	assert.Equal(t, 2021, d.Year())
	assert.Equal(t, 25, d.Day())

	_, err = parseDate("25/06/2021")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}
