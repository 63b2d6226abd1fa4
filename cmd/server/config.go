package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/models"
	"gopkg.in/yaml.v3"
)

const defaultEndpoint = "http://localhost:8000/chat"

type config struct {
	Port string `yaml:"port"`
	// Endpoint is the chat backend URL the widget posts messages to.
	Endpoint string `yaml:"endpoint"`
	// RequestTimeout bounds a whole exchange. Zero waits for as long as the backend streams.
	RequestTimeout time.Duration    `yaml:"requestTimeout"`
	Greeting       string           `yaml:"greeting"`
	InfoPanel      models.InfoPanel `yaml:"infoPanel"`
	SessionTTL     time.Duration    `yaml:"sessionTTL"`
	SecureCookie   bool             `yaml:"secureCookie"`
	// ChunkSize bounds a single read of the backend response. Zero selects the client default.
	ChunkSize int    `yaml:"chunkSize"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

func defaultConfig() config {
	return config{
		Port:       "8080",
		Endpoint:   defaultEndpoint,
		Greeting:   models.DefaultGreeting,
		InfoPanel:  models.DefaultInfoPanel(),
		SessionTTL: 24 * time.Hour,
	}
}

// loadConfig reads the config file at path on top of the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	if cfg.Endpoint == "" {
		return config{}, fmt.Errorf("endpoint is required")
	}
	if cfg.RequestTimeout < 0 {
		return config{}, fmt.Errorf("requestTimeout must not be negative")
	}
	if cfg.ChunkSize < 0 {
		return config{}, fmt.Errorf("chunkSize must not be negative")
	}
	return cfg, nil
}
