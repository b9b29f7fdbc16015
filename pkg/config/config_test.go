package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.Equal(t, "index.complete", cfg.Kafka.Topics.IndexComplete)
	assert.NotEmpty(t, cfg.Schema.Fields)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
search:
  defaultLimit: 5
  maxResults: 50
  segmentConcurrency: 2
indexer:
  dataDir: /tmp/idx
  segmentMaxDocs: 100
  flushInterval: 2s
schema:
  fields:
    - name: title
      type: text
      options: [indexed, stored]
    - name: size
      type: u64
      options: [fast, stored]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TD_SEARCH_MAX_RESULTS", "25")
	t.Setenv("TD_SERVER_RATE_LIMIT", "12.5")
	t.Setenv("TD_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.Equal(t, 2, cfg.Search.SegmentConcurrency)
	assert.Equal(t, 12.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.Indexer.FlushInterval)
	require.Len(t, cfg.Schema.Fields, 2)
	assert.Equal(t, []string{"fast", "stored"}, cfg.Schema.Fields[1].Options)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 1; c.Search.DefaultLimit = 2 }},
		{"zero concurrency", func(c *Config) { c.Search.SegmentConcurrency = 0 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"zero segment size", func(c *Config) { c.Indexer.SegmentMaxDocs = 0 }},
		{"empty schema", func(c *Config) { c.Schema.Fields = nil }},
		{"duplicate field", func(c *Config) {
			c.Schema.Fields = []FieldConfig{{Name: "a", Type: "text"}, {Name: "a", Type: "u64"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
