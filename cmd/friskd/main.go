package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"frisk/internal/config"
	"frisk/internal/friskd"
	"frisk/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "settings file")
	listen := flag.String("listen", "", "listen address (tcp, default from settings)")
	verbose := flag.Bool("verbose", false, "debug logging")
	noHistory := flag.Bool("no-history", false, "do not record find texts")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	addr := *listen
	if addr == "" {
		addr = settings.Daemon.Listen
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var (
		history friskd.FindHistory
		st      *sqlite.Store
	)
	if !*noHistory {
		if st = openHistory(settings, logger); st != nil {
			history = st
		}
	}

	s := friskd.NewServer(friskd.Options{
		Listen:       addr,
		Logger:       logger,
		PokeInterval: settings.PokeInterval(),
		PokeFiles:    settings.Search.PokeFiles,
		FindDefaults: settings.Find,
		History:      history,
		MaxHistory:   settings.MaxHistory,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.Run)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return s.Close()
	})

	err = g.Wait()
	if st != nil {
		_ = st.Close()
	}
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			_, _ = fmt.Fprintf(os.Stderr, "listen address in use: %s\nTry: -listen 127.0.0.1:7339\n", addr)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

// openHistory returns nil when the store cannot be opened; the daemon runs
// without find history in that case.
func openHistory(settings *config.Settings, logger *slog.Logger) *sqlite.Store {
	path := settings.Store.Path
	if path == "" {
		path = sqlite.DefaultPath()
	}
	st, err := sqlite.Open(path)
	if err != nil {
		logger.Warn("history unavailable", "db", path, "err", err)
		return nil
	}
	mode, err := st.JournalMode()
	if err != nil {
		logger.Warn("history journal mode", "db", path, "err", err)
	}
	logger.Debug("history store", "db", path, "journal_mode", mode)
	return st
}
