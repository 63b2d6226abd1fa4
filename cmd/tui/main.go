package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BusulwaJordan/Oticbot/internal/ingest"
	"github.com/BusulwaJordan/Oticbot/internal/logging"
	"github.com/BusulwaJordan/Oticbot/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	cfgFilePath := flag.String("config", filepath.Join(cfgDir, "oticbot", "tui.yaml"), "path to the config file")
	endpoint := flag.String("endpoint", "", "chat backend URL, overrides the config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgFilePath)
	if err != nil {
		log.Fatal(err)
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}

	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "oticbot")
		if err != nil {
			log.Fatal(fmt.Errorf("error opening log file: %w", err))
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, cfg.LogLevel, "text")
	if err != nil {
		log.Fatal(err)
	}

	client := ingest.NewClient(cfg.Endpoint,
		ingest.WithChunkSize(cfg.ChunkSize),
		ingest.WithLogger(logger))
	exchanger := ingest.NewExchanger(client, cfg.RequestTimeout, logger)

	m := tui.New(context.Background(), exchanger, tui.Config{
		Greeting:     cfg.Greeting,
		InfoPanel:    cfg.InfoPanel,
		GlamourStyle: cfg.GlamourStyle,
	}, logger)

	logger.Info("Client starting", slog.String("endpoint", client.Endpoint()))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("Client failed", slog.String("err", err.Error()))
		log.Fatal(err)
	}
}
