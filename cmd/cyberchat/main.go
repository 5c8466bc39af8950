package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dhkiller350/cyber-chat/internal/client/config"
	"github.com/dhkiller350/cyber-chat/internal/client/session"
	"github.com/dhkiller350/cyber-chat/internal/client/transport"
	"github.com/dhkiller350/cyber-chat/internal/client/ui"
	"github.com/dhkiller350/cyber-chat/internal/clock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	logger := zerolog.Nop()
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
		if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			logger = logger.Level(lvl)
		}
	}

	tr := transport.New(cfg.Transport, logger)
	sink := ui.NewSink()
	sess := session.New(cfg.Session, tr, sink, clock.New(), logger)
	sess.Bind(tr)
	sess.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	program := tea.NewProgram(ui.NewModel(sess, sink), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ui error: %v\n", err)
		os.Exit(1)
	}
}
