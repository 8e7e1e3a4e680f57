// mali-chat - terminal client for the Mali conversational assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nontawat9304/mali-chat/internal/admin"
	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/auth"
	"github.com/nontawat9304/mali-chat/internal/chat"
	"github.com/nontawat9304/mali-chat/internal/cli"
	"github.com/nontawat9304/mali-chat/internal/config"
	"github.com/nontawat9304/mali-chat/internal/storage"
	"github.com/nontawat9304/mali-chat/internal/telemetry"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("mali-chat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, err := telemetry.InitLogger(cfg.LogDir); err != nil {
		return err
	}
	_, _, telemetryCleanup, err := telemetry.Init(ctx, cfg.LogDir)
	if err != nil {
		return err
	}
	defer telemetryCleanup()

	// Session-scoped state (credentials, transcript) lives in one JSON
	// file; the device-scoped settings (remote inference endpoint) live
	// in SQLite and survive logout.
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	sessionStore, err := storage.NewFileStore(filepath.Join(dir, "session.json"))
	if err != nil {
		return err
	}
	settingsStore, err := storage.OpenSQLiteStore(cfg.SettingsDB)
	if err != nil {
		return err
	}
	defer settingsStore.Close()

	client := api.NewClient(&api.ClientConfig{BaseURL: cfg.BaseURL})
	router := chat.NewRouter(sessionStore, settingsStore, client)
	adminSvc := admin.NewService(client)

	// Environment wins over the persisted device setting for this
	// process only; it never writes through to the settings store.
	if endpoint := os.Getenv("MALICHAT_REMOTE_LLM_URL"); endpoint != "" {
		if err := router.SetEndpointOverride(endpoint); err != nil {
			return err
		}
	}

	input := cli.NewInput(cfg.HistoryFile)
	defer input.Close()

	var app *cli.App
	authStore := auth.NewStore(auth.Options{
		Storage:         sessionStore,
		Client:          client,
		ClearTranscript: router.Clear,
		Navigate:        func(path string) { app.Navigate(path) },
	})

	app = cli.NewApp(cfg, client, authStore, router, adminSvc, input)

	client.SetTokenSource(authStore.Token)
	client.SetForcedLogoutHook(authStore.ForceLogout)
	client.SetNotifier(app.Notify)

	// Pick up config edits while running; only the audio default is
	// hot-swappable, the rest applies on restart.
	configPath, err := config.Path()
	if err != nil {
		return err
	}
	stopWatch, err := config.Watch(configPath, func(updated *config.Config) {
		app.SetMuteAudio(updated.MuteAudio)
		slog.Info("config reloaded", "mute_audio", updated.MuteAudio)
	})
	if err != nil {
		slog.Warn("config watch unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	return app.Run(ctx)
}
