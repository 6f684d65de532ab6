// Package clustersync lets a fleet of flowinspectord instances share
// "ever observed domain" knowledge without centralizing packet inspection.
// A secondary node periodically pulls a reverse-index snapshot from a
// primary node's admin API and merges it into its own revindex.Index.
// Synchronization is one-way and deals only with the reverse index — it
// never touches the DNS response cache, which stays local and TTL-bound.
package clustersync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jroosing/flowinspect/internal/config"
	"github.com/jroosing/flowinspect/internal/revindex"
)

// Snapshot is the payload exchanged between nodes: a full copy of a
// primary's reverse index at the time it was taken.
type Snapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Index     map[string][]string `json:"index"`
}

// Status reports the current synchronization state for the admin API.
type Status struct {
	Mode          config.ClusterSyncMode `json:"mode"`
	PrimaryURL    string                 `json:"primary_url,omitempty"`
	LastSyncTime  *time.Time             `json:"last_sync_time,omitempty"`
	LastSyncError string                 `json:"last_sync_error,omitempty"`
	SyncCount     int64                  `json:"sync_count"`
	ErrorCount    int64                  `json:"error_count"`
}

// Syncer polls a primary node's reverse-index snapshot endpoint and merges
// it into a local revindex.Index.
type Syncer struct {
	cfg        config.ClusterSyncConfig
	index      *revindex.Index
	logger     *slog.Logger
	httpClient *http.Client

	mu            sync.RWMutex
	running       bool
	lastSyncTime  *time.Time
	lastSyncError string
	syncCount     int64
	errorCount    int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSyncer creates a syncer for secondary mode. cfg.Mode must be
// config.ClusterSecondary and cfg.PrimaryURL must be set.
func NewSyncer(cfg config.ClusterSyncConfig, index *revindex.Index, logger *slog.Logger) (*Syncer, error) {
	if cfg.Mode != config.ClusterSecondary {
		return nil, fmt.Errorf("syncer can only be created for secondary mode, got: %s", cfg.Mode)
	}
	if cfg.PrimaryURL == "" {
		return nil, fmt.Errorf("primary_url is required for secondary mode")
	}

	return &Syncer{
		cfg:        cfg,
		index:      index,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins periodic polling. It performs one sync immediately, then
// continues at cfg.PollInterval until Stop is called or ctx is canceled.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("syncer already running")
	}
	s.running = true
	s.mu.Unlock()

	interval, err := time.ParseDuration(s.cfg.PollInterval)
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}

	s.logger.Info("clustersync starting", "primary_url", s.cfg.PrimaryURL, "poll_interval", interval)

	if err := s.doSync(ctx); err != nil {
		s.logger.Warn("initial sync failed, will retry", "err", err)
	}

	go s.runLoop(ctx, interval)
	return nil
}

// Stop halts polling and waits for the poll loop to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("clustersync stopped")
}

// Status returns the current synchronization status for the admin API.
func (s *Syncer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Mode:          s.cfg.Mode,
		PrimaryURL:    s.cfg.PrimaryURL,
		LastSyncTime:  s.lastSyncTime,
		LastSyncError: s.lastSyncError,
		SyncCount:     s.syncCount,
		ErrorCount:    s.errorCount,
	}
}

// ForceSync triggers an immediate synchronization, bypassing the poll timer.
func (s *Syncer) ForceSync(ctx context.Context) error {
	return s.doSync(ctx)
}

func (s *Syncer) runLoop(ctx context.Context, interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.doSync(ctx); err != nil {
				s.logger.Warn("sync failed", "err", err)
			}
		}
	}
}

func (s *Syncer) doSync(ctx context.Context) error {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		s.recordError(err)
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	for ip, domains := range snap.Index {
		s.index.AddOne(ip, domains)
	}

	s.recordSuccess()
	s.logger.Debug("clustersync merged snapshot", "ips", len(snap.Index))
	return nil
}

func (s *Syncer) fetchSnapshot(ctx context.Context) (*Snapshot, error) {
	url := s.cfg.PrimaryURL + "/v1/clustersync/snapshot"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &snap, nil
}

func (s *Syncer) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastSyncTime = &now
	s.lastSyncError = ""
	s.syncCount++
}

func (s *Syncer) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncError = err.Error()
	s.errorCount++
}
