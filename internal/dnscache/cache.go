package dnscache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jroosing/flowinspect/internal/dnswire"
	"github.com/jroosing/flowinspect/internal/pool"
)

// DefaultCapacity is the cache size used when the host doesn't override it.
const DefaultCapacity = 2048

// QuestionKey identifies a cached response by its query triple. Names are
// lowercased before use so the cache is case-insensitive, matching how DNS
// names compare on the wire.
type QuestionKey struct {
	QName  string
	QType  uint16
	QClass uint16
}

type entry struct {
	response  []byte
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a bounded, LRU-evicted store of encoded DNS responses keyed by
// question. A single mutex serializes all access; the hot path copies the
// matched response into a per-caller scratch buffer before releasing the
// lock, so the caller never holds the lock while transmitting.
type Cache struct {
	mu       sync.Mutex
	capacity int
	lru      *list.List
	data     map[QuestionKey]*entry

	scratch *pool.Pool[[]byte]

	hits, misses int
}

// New creates a cache with the given capacity. A non-positive capacity is
// treated as 1 — the cache always holds at least one entry.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		lru:      list.New(),
		data:     map[QuestionKey]*entry{},
		scratch: pool.New(func() []byte {
			return make([]byte, 0, 512)
		}),
	}
}

// Store decodes a raw response packet and, if it is cacheable, inserts it.
// A response is cacheable only if the QR bit is set, the TC bit is clear,
// at least one answer carries an A or AAAA record, and the minimum TTL
// across those answers is greater than zero. Any decode failure or
// uncacheable shape is a silent no-op — the DNS sub-engine never surfaces
// cache errors.
func (c *Cache) Store(raw []byte) {
	msg, err := dnswire.ParseMessage(raw)
	if err != nil {
		return
	}
	if !dnswire.IsResponse(msg.Header.Flags) || dnswire.IsTruncated(msg.Header.Flags) {
		return
	}
	if len(msg.Questions) == 0 {
		return
	}

	minTTL, ok := minAddressTTL(msg.Answers)
	if !ok || minTTL <= 0 {
		return
	}

	q := msg.Questions[0]
	key := QuestionKey{QName: dnswire.NormalizeName(q.Name), QType: q.Type, QClass: q.Class}
	expires := time.Now().Add(time.Duration(minTTL) * time.Second)

	body := make([]byte, len(raw))
	copy(body, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, found := c.data[key]; found {
		existing.response = body
		existing.expiresAt = expires
		c.lru.MoveToBack(existing.elem)
		return
	}
	e := &entry{response: body, expiresAt: expires}
	e.elem = c.lru.PushBack(key)
	c.data[key] = e
	c.evictOldest()
}

// minAddressTTL returns the minimum TTL across answers carrying an A or
// AAAA record, and whether any such answer was present.
func minAddressTTL(answers []dnswire.Record) (uint32, bool) {
	var min uint32
	found := false
	for _, rr := range answers {
		switch rr.Data.(type) {
		case dnswire.ARecord, dnswire.AAAARecord:
		default:
			continue
		}
		if !found || rr.TTL < min {
			min = rr.TTL
		}
		found = true
	}
	return min, found
}

// BuildResponse decodes enough of a raw query to extract its question key
// and transaction id, and on a live cache hit returns a fresh byte image of
// the cached response with the transaction id rewritten to match the
// query. The returned slice is owned by the caller. A miss, expired entry,
// or malformed query returns (nil, false).
func (c *Cache) BuildResponse(rawQuery []byte) ([]byte, bool) {
	msg, err := dnswire.ParseMessage(rawQuery)
	if err != nil || len(msg.Questions) == 0 {
		return nil, false
	}
	q := msg.Questions[0]
	key := QuestionKey{QName: dnswire.NormalizeName(q.Name), QType: q.Type, QClass: q.Class}

	cached, hit := c.lookup(key)
	if !hit {
		return nil, false
	}
	return patchTransactionID(cached, msg.Header.ID), true
}

func (c *Cache) lookup(key QuestionKey) ([]byte, bool) {
	buf := c.scratch.Get()
	defer c.scratch.Put(buf[:0])

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.data[key]
	if e == nil {
		c.misses++
		return nil, false
	}
	if !e.expiresAt.After(time.Now()) {
		c.lru.Remove(e.elem)
		delete(c.data, key)
		c.misses++
		return nil, false
	}
	c.lru.MoveToBack(e.elem)
	c.hits++

	buf = append(buf[:0], e.response...)
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, true
}

// Clear atomically removes every cached response.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = list.New()
	c.data = map[QuestionKey]*entry{}
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of responses currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache) evictOldest() {
	for len(c.data) > c.capacity {
		front := c.lru.Front()
		if front == nil {
			break
		}
		k := front.Value.(QuestionKey)
		c.lru.Remove(front)
		delete(c.data, k)
	}
}

// patchTransactionID replaces the first two bytes (the transaction id) of a
// DNS message. Cached responses carry no meaningful stored id — the cache
// key alone determines a hit — so every read patches in the querying
// client's id before the bytes leave the cache.
func patchTransactionID(msg []byte, txid uint16) []byte {
	if len(msg) < 2 {
		return msg
	}
	if msg[0] == byte(txid>>8) && msg[1] == byte(txid) {
		return msg
	}
	out := make([]byte, len(msg))
	copy(out, msg)
	out[0] = byte(txid >> 8)
	out[1] = byte(txid)
	return out
}
