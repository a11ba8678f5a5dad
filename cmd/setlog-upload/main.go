package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/setlog/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "SetLog server URL (e.g. http://setlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("SETLOG_AUTH_API_KEY"), "API key for the import endpoint")
	path := flag.String("path", "", "chat bot record file, or a directory of *.json record files")
	stateDir := flag.String("state-dir", "", "directory for the upload state database (default: ~/.setlog-upload)")
	dryRun := flag.Bool("dry-run", false, "parse and convert but don't send to server")
	batchSize := flag.Int("batch-size", upload.DefaultBatchSize, "sets per import request")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("setlog-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: setlog-upload -server <URL> -api-key <key> -path <file or dir> [-dry-run] [-batch-size N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if !*dryRun && (*serverURL == "" || *apiKey == "") {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".setlog-upload")
	}

	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// nil-safe in dry-run mode
	var sender upload.Sender
	if !*dryRun {
		sender = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: files will be parsed and converted but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := upload.New(sender, state, *path, *dryRun, *batchSize, log).Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (unchanged)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sets parsed:      %d\n", stats.ItemsParsed)
	fmt.Printf("  Sets skipped:     %d (malformed)\n", stats.ItemsSkipped)
	fmt.Printf("  Sets sent:        %d in %d batches\n", stats.ItemsSent, stats.Batches)
	fmt.Printf("  Sets inserted:    %d\n", stats.ItemsInserted)
	fmt.Println()
}
