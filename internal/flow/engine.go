// Package flow owns the flow inspection engine: the per-flow data model
// (FlowIP, Context) and the orchestration that, on each packet, resolves a
// flow's domain from available evidence and recomputes its decision. The
// engine owns the DNS sub-engine and the protocol detector exclusively;
// neither knows the engine exists.
package flow

import (
	"sync"

	"github.com/jroosing/flowinspect/internal/detect"
	"github.com/jroosing/flowinspect/internal/dnscache"
	"github.com/jroosing/flowinspect/internal/dnsengine"
	"github.com/jroosing/flowinspect/internal/revindex"
)

// Observer receives a flow's resolved domains and last-known state when it
// closes. It is the engine's only hook into durable storage (internal/store
// implements it); the engine never imports internal/store directly.
type Observer interface {
	// RecordObservation appends one domain-history row per closed flow.
	RecordObservation(sessionID uint64, flowIP string, domains []string)

	// RecordFlowSnapshot persists the flow's full last-known state, for
	// later lookup by session ID.
	RecordFlowSnapshot(snap FlowSnapshot)
}

// Engine is a handle to one flow inspector: its own DNS sub-engine
// (response cache + reverse index), independent of any other Engine. Tests
// construct their own via NewEngine so they don't share state; Default
// returns a lazily-initialized process-wide instance. cmd/flowinspectord
// builds its engine with NewEngine and the configured cache capacity.
type Engine struct {
	dns *dnsengine.Engine

	mu       sync.RWMutex
	observer Observer
}

// Option configures an Engine constructed via NewEngine.
type Option func(*engineConfig)

type engineConfig struct {
	dnsCacheCapacity int
}

// WithDNSCacheCapacity overrides the DNS response cache's capacity.
func WithDNSCacheCapacity(n int) Option {
	return func(c *engineConfig) { c.dnsCacheCapacity = n }
}

// NewEngine constructs an isolated engine instance.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{dnsCacheCapacity: dnscache.DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{dns: dnsengine.New(cfg.dnsCacheCapacity)}
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine singleton, constructing it on
// first use.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = NewEngine()
	})
	return defaultEngine
}

// FlowArrive is called when a flow identity is first known, before any
// payload has been seen.
func (e *Engine) FlowArrive(ctx *Context) {
	e.resolveDomainFromCache(ctx)
	e.reevaluateDecision(ctx)
}

// FlowOpen is a reserved extension point; currently a no-op unless the
// flow is already Blocked, in which case it stays a no-op too.
func (e *Engine) FlowOpen(ctx *Context) {
	if ctx.FlowDecision == Block {
		return
	}
}

// FlowSend handles an outbound packet. DNS queries are delegated to the
// DNS sub-engine (any cache hit is discarded by this form — use
// FlowSendWithResponse to observe it); other traffic runs resolve+reevaluate.
func (e *Engine) FlowSend(ctx *Context, pkt []byte) {
	if ctx.IsDNS() {
		e.dns.HandleQuery(ctx, pkt)
		return
	}
	if e.resolveDomain(ctx, pkt) {
		e.reevaluateDecision(ctx)
	}
}

// FlowSendWithResponse is FlowSend's DNS-aware form: it returns the cached
// response image and true when the query hit the DNS response cache and
// must be sent to the client instead of forwarded. It returns (nil, false)
// for non-DNS traffic.
func (e *Engine) FlowSendWithResponse(ctx *Context, pkt []byte) ([]byte, bool) {
	if ctx.IsDNS() {
		return e.dns.HandleQuery(ctx, pkt)
	}
	if e.resolveDomain(ctx, pkt) {
		e.reevaluateDecision(ctx)
	}
	return nil, false
}

// FlowRecv handles an inbound packet. DNS responses are handed to the DNS
// sub-engine for parsing, index population, and caching; other traffic
// runs the same resolve+reevaluate path as FlowSend.
func (e *Engine) FlowRecv(ctx *Context, pkt []byte) {
	if ctx.IsDNS() {
		e.dns.HandleResponse(ctx, pkt)
		return
	}
	if e.resolveDomain(ctx, pkt) {
		e.reevaluateDecision(ctx)
	}
}

// FlowClose hands the flow's resolved domains and full snapshot to the
// observer (if any) for durable storage. It does not modify ctx, and it
// never touches the DNS cache or reverse index — those are reset
// only by ClearCache.
func (e *Engine) FlowClose(ctx *Context) {
	e.mu.RLock()
	obs := e.observer
	e.mu.RUnlock()
	if obs == nil {
		return
	}

	if domains := ctx.Domains(); len(domains) > 0 {
		obs.RecordObservation(ctx.SessionID, ctx.RawIPString(), domains)
	}
	obs.RecordFlowSnapshot(ctx.Snapshot())
}

// SetObserver installs (or clears, with nil) the observer notified by
// FlowClose.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// GetDomainsForIP is a direct pass-through to the DNS sub-engine's reverse
// index, for hosts that want to query it outside of a flow's lifecycle.
func (e *Engine) GetDomainsForIP(ip string) []string {
	return e.dns.GetDomainsForIP(ip)
}

// ClearCache atomically resets the DNS response cache and reverse index.
func (e *Engine) ClearCache() {
	e.dns.ClearCache()
}

// Stats reports DNS cache size, cumulative hit/miss counts, the number of
// IPs currently indexed in the reverse index, and the cumulative malformed
// DNS packet count.
func (e *Engine) Stats() (cacheSize, hits, misses, indexedIPs int, malformed uint64) {
	return e.dns.Stats()
}

// Snapshot returns a deep copy of the reverse index for cluster-sync export.
func (e *Engine) Snapshot() map[string][]string {
	return e.dns.Snapshot()
}

// Index returns the underlying reverse index, for a clustersync.Syncer to
// merge a fetched snapshot into.
func (e *Engine) Index() *revindex.Index {
	return e.dns.Index()
}

// resolveDomainFromCache populates ctx.domains from the reverse index by
// destination IP, if ctx has no domains yet. Returns whether anything was
// added.
func (e *Engine) resolveDomainFromCache(ctx *Context) bool {
	if len(ctx.domains) > 0 {
		return false
	}
	domains := e.dns.GetDomainsForIP(ctx.RawIPString())
	if len(domains) == 0 {
		return false
	}
	return ctx.AddDomains(domains)
}

// resolveDomain populates ctx.domains from the reverse index, falling back
// to the protocol detector's domain extraction over pkt. Returns whether
// anything was added.
func (e *Engine) resolveDomain(ctx *Context, pkt []byte) bool {
	if len(ctx.domains) > 0 {
		return false
	}
	if e.resolveDomainFromCache(ctx) {
		return true
	}

	transport := detect.TransportTCP
	if ctx.FlowType == UDP {
		transport = detect.TransportUDP
	}
	result := detect.Detect(transport, ctx.DstPort, pkt)
	if result.Domain == "" {
		return false
	}
	return ctx.AddDomains([]string{result.Domain})
}

// reevaluateDecision is the sole writer of FlowDecision/PathDecision. It
// is a pure function of ctx's current evidence: identical domains yield
// identical decisions. This revision always allows locally; it is the
// extension point for future domain-blocklist or port-rule policy.
func (e *Engine) reevaluateDecision(ctx *Context) {
	ctx.FlowDecision = Allow
	ctx.PathDecision = PathLocal
}
