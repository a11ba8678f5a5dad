package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/claude/setlog/internal/backend"
	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/dialogue"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// handler is the part of the controller the terminal needs.
type handler interface {
	Handle(ctx context.Context, in dialogue.Input) (dialogue.Reply, error)
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: json store from -records/-categories)")
	records := flag.String("records", "data/training-log.json", "record file for the json store")
	categories := flag.String("categories", "data/muscle-groups.json", "muscle group file for the json store")
	sessions := flag.String("sessions", "", "SQLite draft database (default: in memory)")
	migrations := flag.String("migrations", "migrations", "migrations directory for the postgres backend")
	user := flag.String("user", "local", "user id recorded on every set")
	verbose := flag.Bool("v", false, "log to stderr at debug level")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("setlog-chat", Version)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := &config.Config{
		Store: config.StoreConfig{
			Backend:        config.BackendJSON,
			RecordsPath:    *records,
			CategoriesPath: *categories,
		},
		Sessions: config.SessionsConfig{Path: *sessions},
	}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if err := backend.Migrate(cfg, *migrations); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	fmt.Println("SetLog chat. /train to start, /help for commands, Ctrl-D to quit.")
	if err := run(ctx, stores.Controller(log), os.Stdin, os.Stdout, "terminal:"+*user, *user); err != nil {
		log.Error("chat stopped", "error", err)
		os.Exit(1)
	}
}

// run feeds each input line to the controller and prints the replies.
// Collaborator failures are printed and the loop goes on.
func run(ctx context.Context, h handler, in io.Reader, out io.Writer, sessionID, userID string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		reply, err := h.Handle(ctx, dialogue.ParseInput(sessionID, userID, scanner.Text()))
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		printReply(out, reply)
	}
	return scanner.Err()
}

func printReply(out io.Writer, r dialogue.Reply) {
	if r.Silent() {
		return
	}
	fmt.Fprintln(out, r.Text)
	if labels := r.Keyboard.Labels(); len(labels) > 0 {
		fmt.Fprintf(out, "[%s]\n", strings.Join(labels, "] ["))
	}
	fmt.Fprintln(out)
}
