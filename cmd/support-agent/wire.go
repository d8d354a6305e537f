package main

import (
	"fmt"

	"github.com/comigor/support-agent/internal/config"
	"github.com/comigor/support-agent/internal/desk"
	"github.com/comigor/support-agent/internal/history"
	"github.com/comigor/support-agent/internal/llm"
	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/session"
	"github.com/comigor/support-agent/internal/ticket"
)

type app struct {
	cfg      *config.Config
	backend  history.Backend
	desk     *desk.Service
	sessions *session.Manager
}

// wire loads configuration and builds the object graph. A missing credential
// stops here, before any form is shown.
func (a *app) wire() error {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return err
	}
	logger.SetLevel(cfg.Log.Level)

	backend, err := history.NewBackend(cfg.History.Driver)
	if err != nil {
		return fmt.Errorf("wire history backend: %w", err)
	}

	client := llm.NewClient(cfg.LLM)
	processor := ticket.NewProcessor(client, cfg.History.ContextWindow)

	a.cfg = cfg
	a.backend = backend
	a.desk = desk.New(processor, cfg.History.DisplayWindow)
	a.sessions = session.NewManager(backend, session.WithIdleTimeout(cfg.Session.IdleTimeout))
	logger.L.Debug("application wired", "model", client.Model(), "history", cfg.History.Driver)
	return nil
}

// endSession drops a session the command started. Failures are only logged;
// the command's own result stands.
func (a *app) endSession(id string) {
	if err := a.sessions.End(id); err != nil {
		logger.L.Warn("failed to end session", "session", id, "error", err)
	}
}

func (a *app) close() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil {
		logger.L.Warn("failed to close history backend", "error", err)
	}
}
