// Copyright 2026 The ShopQuery Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the product-search session binary.

ShopQuery is the front end to a remote product recommender. As the user
types, the suggestion engine debounces keystrokes, consults a bounded
session cache, and fetches autocomplete candidates; full recommendations,
image and voice uploads, and the admin surface are plain request/response
calls to the same backend.

# Usage

Start the msgpack IPC session on stdio (default mode):

	shopquery -addr http://127.0.0.1:18081

Run the interactive CLI session instead:

	shopquery -c

With no -addr, candidate ports on the configured host are probed until a
recommender answers, the way the ops scripts start one.

# Configuration

Runtime configuration is a TOML file created with defaults on first run:

	[server]
	host = "127.0.0.1"
	timeout_sec = 60
	top_k = 5

	[suggest]
	debounce_ms = 300
	min_prefix = 2
	cache_size = 100
	max_candidates = 8

Server mode picks up suggest-section changes without restart.

# IPC Protocol

The session speaks binary msgpack over stdin/stdout. Input events carry the
keystroke buffer; key events drive dropdown navigation; responses report the
dropdown state with timing in microseconds. See pkg/server for the message
reference.

# Command Line Flags

	-addr string
	    Backend base URL (skips port discovery)
	-config string
	    Path to a custom config.toml
	-c  Run the interactive CLI session instead of IPC mode
	-d  Enable debug logging
	-top int
	    Recommend depth for the CLI session
	-version
	    Show version and exit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/seyard/shopquery/internal/cli"
	"github.com/seyard/shopquery/pkg/client"
	"github.com/seyard/shopquery/pkg/config"
	"github.com/seyard/shopquery/pkg/server"
	"github.com/seyard/shopquery/pkg/suggest"
)

const (
	Version = "0.3.0"
	AppName = "shopquery"
	gh      = "https://github.com/seyard/shopquery"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, backend client, engine, and the chosen mode.
// It holds no logic of its own beyond flow control.
func main() {
	sigHandler()
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	addr := flag.String("addr", "", "Backend base URL, e.g. http://127.0.0.1:18081")
	configPath := flag.String("config", "", "Path to a custom config.toml")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run the interactive CLI session")
	topK := flag.Int("top", defaults.Server.TopK, "Recommend depth for the CLI session")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	baseURL := *addr
	if baseURL == "" {
		baseURL = cfg.Server.BaseURL
	}
	if baseURL == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		baseURL, err = client.Discover(ctx, cfg.Server.Host, nil, 0)
		cancel()
		if err != nil {
			log.Fatalf("No recommender found on %s: %v", cfg.Server.Host, err)
		}
		log.Debugf("Discovered recommender at %s", baseURL)
	}

	backend := client.New(baseURL, time.Duration(cfg.Server.TimeoutSec)*time.Second)
	engine := suggest.NewEngine(backend, suggest.Options{
		QuietInterval:  time.Duration(cfg.Suggest.DebounceMs) * time.Millisecond,
		CacheCapacity:  cfg.Suggest.CacheSize,
		CandidateLimit: cfg.Suggest.MaxCandidates,
	})

	if *cliMode {
		log.SetReportTimestamp(false)
		handler := cli.NewInputHandler(engine, backend, *topK, cfg.CLI.Language, cfg.CLI.ShowScores)
		if err := handler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC session")
	showStartupInfo(baseURL)
	srv := server.NewServer(engine, backend, cfg, activePath)
	if err := srv.Start(); err != nil {
		log.Fatalf("Session server failed: %v", err)
	}
}

// printVersion renders the styled version banner.
func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ ShopQuery ] product search with live suggestions")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(baseURL string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("backend: ( %s )", baseURL)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
