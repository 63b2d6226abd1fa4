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
	Endpoint       string           `yaml:"endpoint"`
	RequestTimeout time.Duration    `yaml:"requestTimeout"`
	Greeting       string           `yaml:"greeting"`
	InfoPanel      models.InfoPanel `yaml:"infoPanel"`
	GlamourStyle   string           `yaml:"glamourStyle"`
	ChunkSize      int              `yaml:"chunkSize"`
	// LogFile receives the client's logs; the terminal itself is owned by the UI.
	LogFile  string `yaml:"logFile"`
	LogLevel string `yaml:"logLevel"`
}

func defaultConfig() config {
	return config{
		Endpoint:     defaultEndpoint,
		Greeting:     models.DefaultGreeting,
		InfoPanel:    models.DefaultInfoPanel(),
		GlamourStyle: "auto",
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
	if cfg.ChunkSize < 0 {
		return config{}, fmt.Errorf("chunkSize must not be negative")
	}
	return cfg, nil
}
