// Package dnsengine glues the DNS wire parser, response cache, and reverse
// IP→domains index together: it exposes "handle query" (a cache probe) and
// "handle response" (cache + index ingest) to the flow inspection engine.
// It never imports the flow package — it only knows about a DomainSink,
// which FlowContext happens to satisfy — so the engine and its sub-engine
// never hold references to each other.
package dnsengine

import (
	"sync/atomic"

	"github.com/jroosing/flowinspect/internal/dnscache"
	"github.com/jroosing/flowinspect/internal/dnswire"
	"github.com/jroosing/flowinspect/internal/revindex"
)

// DomainSink receives domain names discovered while handling DNS traffic.
// It is implemented by the caller's flow context; the sink decides how to
// dedupe/store them.
type DomainSink interface {
	AddDomains(names []string) bool
}

// Engine is the DNS sub-engine: a response cache plus a reverse index,
// each guarded by its own internal lock.
type Engine struct {
	cache *dnscache.Cache
	index *revindex.Index

	// malformed counts packets that failed to parse as a DNS message.
	// Incremented lock-free on the hot path; read periodically by a
	// caller off that path (internal/api's stats logger) to warn when
	// it crosses a threshold.
	malformed atomic.Uint64
}

// New creates a DNS sub-engine with the given response-cache capacity.
func New(cacheCapacity int) *Engine {
	return &Engine{
		cache: dnscache.New(cacheCapacity),
		index: revindex.New(),
	}
}

// HandleQuery parses a raw query, adds its question name to sink, and
// probes the cache. On a hit it returns the rewritten response and true.
// Malformed input returns (nil, false) without touching sink or the cache;
// it only increments the malformed-packet counter.
func (e *Engine) HandleQuery(sink DomainSink, pkt []byte) ([]byte, bool) {
	msg, err := dnswire.ParseMessage(pkt)
	if err != nil {
		e.malformed.Add(1)
		return nil, false
	}
	if len(msg.Questions) > 0 && msg.Questions[0].Name != "" {
		sink.AddDomains([]string{msg.Questions[0].Name})
	}

	resp, hit := e.cache.BuildResponse(pkt)
	if !hit {
		return nil, false
	}
	return resp, true
}

// HandleResponse ingests a raw DNS response: every question name, answer
// owner name, and CNAME/PTR/MX/SRV target is added to sink; every A/AAAA
// address is indexed against all of those names; and, if any address was
// present, the raw response is offered to the cache.
func (e *Engine) HandleResponse(sink DomainSink, pkt []byte) {
	if len(pkt) < dnswire.HeaderSize {
		e.malformed.Add(1)
		return
	}
	msg, err := dnswire.ParseMessage(pkt)
	if err != nil {
		e.malformed.Add(1)
		return
	}
	if !dnswire.IsResponse(msg.Header.Flags) {
		return
	}

	var names []string
	var ips []string
	hasAddress := false

	addName := func(n string) {
		if n != "" {
			names = append(names, n)
		}
	}
	for _, q := range msg.Questions {
		addName(q.Name)
	}
	for _, rr := range msg.Answers {
		addName(rr.Name)
		switch d := rr.Data.(type) {
		case dnswire.ARecord:
			ips = append(ips, d.IP())
			hasAddress = true
		case dnswire.AAAARecord:
			ips = append(ips, d.IP())
			hasAddress = true
		case dnswire.CNAMERecord:
			addName(d.Target)
		case dnswire.PTRRecord:
			addName(d.Target)
		case dnswire.MXRecord:
			addName(d.Exchange)
		case dnswire.SRVRecord:
			addName(d.Target)
		}
	}

	if len(names) > 0 {
		sink.AddDomains(names)
		if len(ips) > 0 {
			e.index.AddMany(ips, names)
		}
	}
	if hasAddress {
		e.cache.Store(pkt)
	}
}

// GetDomainsForIP returns a snapshot of the domains indexed for ip, or an
// empty slice if ip was never observed.
func (e *Engine) GetDomainsForIP(ip string) []string {
	return e.index.Get(ip)
}

// ClearCache atomically resets both the response cache and the reverse
// index.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	e.index.Clear()
}

// Stats reports cache size, cumulative hit/miss counts, the number of IPs
// currently indexed in the reverse index, and the cumulative count of
// packets that failed to parse as DNS.
func (e *Engine) Stats() (cacheSize, hits, misses, indexedIPs int, malformed uint64) {
	hits, misses = e.cache.Stats()
	return e.cache.Len(), hits, misses, e.index.Len(), e.malformed.Load()
}

// Snapshot returns a deep copy of the reverse index for cluster-sync export.
func (e *Engine) Snapshot() map[string][]string {
	return e.index.Snapshot()
}

// Index returns the underlying reverse index, for a clustersync.Syncer to
// merge a fetched snapshot into.
func (e *Engine) Index() *revindex.Index {
	return e.index
}
