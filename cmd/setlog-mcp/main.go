package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/setlog/internal/backend"
	"github.com/claude/setlog/internal/config"
	setlogmcp "github.com/claude/setlog/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "SetLog server URL for remote mode (e.g. http://setlog.tail1234.ts.net)")
	migrations := flag.String("migrations", "migrations", "migrations directory for the postgres backend (local mode)")
	user := flag.String("user", "", "restrict queries to this chat user id (default: all users)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("setlog-mcp", Version)
		return
	}

	// stdout carries the protocol; logs go to stderr.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ds setlogmcp.DataSource
	if *serverURL != "" {
		ds = setlogmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if err := backend.Migrate(cfg, *migrations); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		stores, err := backend.Open(ctx, cfg, log)
		if err != nil {
			log.Error("failed to open stores", "error", err)
			os.Exit(1)
		}
		defer stores.Close()
		ds = setlogmcp.Local{EntryReader: stores.Records, CategoryLookup: stores.Categories}
		log.Info("local mode", "backend", cfg.Store.Backend)
	}

	s := setlogmcp.New(ds, Version, log)

	err := server.ServeStdio(s,
		server.WithErrorLogger(slog.NewLogLogger(handler, slog.LevelError)),
		server.WithStdioContextFunc(func(ctx context.Context) context.Context {
			if *user == "" {
				return ctx
			}
			return setlogmcp.WithUserID(ctx, *user)
		}),
	)
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
