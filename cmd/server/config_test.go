package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, defaultEndpoint, cfg.Endpoint)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Equal(t, models.DefaultGreeting, cfg.Greeting)
	assert.Equal(t, models.DefaultInfoPanel(), cfg.InfoPanel)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
port: "3000"
endpoint: https://bot.example.org/chat
requestTimeout: 45s
greeting: ""
infoPanel:
  title: Otic Labs
  cards:
    - title: Mission
      body: Skilling.
chunkSize: 512
logLevel: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "https://bot.example.org/chat", cfg.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.Greeting)
	assert.Equal(t, "Otic Labs", cfg.InfoPanel.Title)
	assert.Equal(t, models.DefaultInfoPanel().Tagline, cfg.InfoPanel.Tagline)
	assert.Equal(t, []models.InfoCard{{Title: "Mission", Body: "Skilling."}}, cfg.InfoPanel.Cards)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"empty endpoint":   "endpoint: \"\"\n",
		"negative timeout": "requestTimeout: -1s\n",
		"bad duration":     "requestTimeout: soon\n",
		"negative chunk":   "chunkSize: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
