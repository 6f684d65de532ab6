// Package handlers implements the admin REST API endpoint handlers for
// flowinspectord.
//
// @title flowinspectord admin API
// @version 1.0
// @description Admin and introspection endpoints for the flow inspection engine.
//
// @contact.name flowinspect
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8099
// @BasePath /v1
package handlers

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jroosing/flowinspect/internal/clustersync"
	"github.com/jroosing/flowinspect/internal/config"
	"github.com/jroosing/flowinspect/internal/flow"
	"github.com/jroosing/flowinspect/internal/store"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time
	engine    *flow.Engine

	mu     sync.RWMutex
	store  *store.Store
	syncer *clustersync.Syncer

	// lastMalformedWarn is the malformed-packet count at which a
	// threshold warning was last logged, so logStats only warns once
	// per crossing instead of on every /v1/stats poll.
	lastMalformedWarn atomic.Uint64
}

// New creates a new Handler wired to the given flow engine.
func New(cfg *config.Config, logger *slog.Logger, engine *flow.Engine) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		engine:    engine,
	}
}

// SetStore attaches the domain-observation store for history lookups.
// Nil is valid and means the store is disabled.
func (h *Handler) SetStore(s *store.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store = s
}

// SetSyncer attaches the clustersync syncer for status/snapshot endpoints.
func (h *Handler) SetSyncer(s *clustersync.Syncer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncer = s
}

func (h *Handler) getStore() *store.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

func (h *Handler) getSyncer() *clustersync.Syncer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.syncer
}
