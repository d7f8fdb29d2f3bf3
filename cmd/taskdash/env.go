package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/config"
	"github.com/tgienger/taskdash/internal/db"
)

// env is what every command needs: config, database and a file logger
type env struct {
	cfg     *config.Config
	db      *db.DB
	log     *log.Logger
	logFile *os.File
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, f, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	return &env{cfg: cfg, db: database, log: logger, logFile: f}, nil
}

func (e *env) Close() {
	e.db.Close()
	e.logFile.Close()
}

// newLogger writes to the configured log file. The terminal belongs to the TUI.
func newLogger(cfg *config.Config) (*log.Logger, *os.File, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		Level:           level,
		Prefix:          "taskdash",
		ReportTimestamp: true,
	})
	return logger, f, nil
}
