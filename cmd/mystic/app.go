package main

import (
	"io"
	"log/slog"

	"github.com/germanamz/mystic/internal/pizza"
	"github.com/germanamz/mystic/pkg/engine"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// app holds the state shared by the subcommands.
type app struct {
	cfg engine.Config
	log *slog.Logger
	tb  *toolbox.ToolBox
}

// newApp loads the configuration and registers the pizzeria tools. Logs go to
// logOut.
func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := engine.NewLogger(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}

	tb, err := engine.NewToolBox(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := pizza.Register(tb, pizza.NewShop()); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, tb: tb}, nil
}
