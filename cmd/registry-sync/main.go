// Command registry-sync pulls states, areas and the entity registry
// from Home Assistant and writes the flattened snapshot file the
// assistant resolves against.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"hey-george/config"
	"hey-george/internal/infra/homeassistant"
	"hey-george/internal/registrysync"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
	envPath := pflag.StringP("env", "e", ".env", "path to an optional dotenv file")
	outPath := pflag.StringP("out", "o", "", "snapshot output path (defaults to registry.path from the config)")
	timeout := pflag.Duration("timeout", 60*time.Second, "overall deadline for the sync")
	pflag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	path := *outPath
	if path == "" {
		path = cfg.Registry.Path
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Timeout)
	syncer := registrysync.NewSyncer(client, logger)

	snap, err := syncer.Build(ctx)
	if err != nil {
		logger.Error("snapshot build failed", "error", err)
		os.Exit(1)
	}
	if err := registrysync.Write(path, snap); err != nil {
		logger.Error("snapshot write failed", "error", err)
		os.Exit(1)
	}
	logger.Info("snapshot written",
		"path", path,
		"lights", snap.Counts.Lights,
		"switches", snap.Counts.Switches,
		"areas", len(snap.Areas))
}
