package dnsengine

import (
	"testing"

	"github.com/jroosing/flowinspect/internal/dnscache"
	"github.com/jroosing/flowinspect/internal/dnswire"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	domains []string
}

func (s *fakeSink) AddDomains(names []string) bool {
	seen := make(map[string]struct{}, len(s.domains))
	for _, d := range s.domains {
		seen[d] = struct{}{}
	}
	added := false
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		s.domains = append(s.domains, n)
		added = true
	}
	return added
}

func marshal(t *testing.T, msg dnswire.Message) []byte {
	t.Helper()
	b, err := msg.Marshal()
	require.NoError(t, err)
	return b
}

func aAnswer(name string, addr uint32, ttl uint32) dnswire.Record {
	return dnswire.Record{Name: name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN), TTL: ttl, Data: dnswire.ARecord{Addr: addr}}
}

// Scenario 1: DNS cache hit rewrites id.
func TestHandleQuery_CacheHitRewritesTransactionID(t *testing.T) {
	e := New(dnscache.DefaultCapacity)
	sink := &fakeSink{}

	r1 := marshal(t, dnswire.Message{
		Header:    dnswire.Header{ID: 0x1234, Flags: dnswire.QRFlag, QDCount: 1, ANCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
		Answers:   []dnswire.Record{aAnswer("example.com", 0x5DB8D822, 300)},
	})
	e.HandleResponse(sink, r1)

	q := marshal(t, dnswire.Message{
		Header:    dnswire.Header{ID: 0xABCD, QDCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	})
	qSink := &fakeSink{}
	resp, hit := e.HandleQuery(qSink, q)
	require.True(t, hit)
	require.Equal(t, byte(0xAB), resp[0])
	require.Equal(t, byte(0xCD), resp[1])
	require.Equal(t, r1[2:], resp[2:])
	require.Contains(t, qSink.domains, "example.com")
}

// Scenario 2: reverse index across CNAME.
func TestHandleResponse_IndexesAcrossCNAME(t *testing.T) {
	e := New(dnscache.DefaultCapacity)
	sink := &fakeSink{}

	resp := marshal(t, dnswire.Message{
		Header: dnswire.Header{ID: 1, Flags: dnswire.QRFlag, QDCount: 1, ANCount: 3},
		Questions: []dnswire.Question{
			{Name: "www.baidu.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)},
		},
		Answers: []dnswire.Record{
			{Name: "www.baidu.com", Type: uint16(dnswire.TypeCNAME), Class: uint16(dnswire.ClassIN), TTL: 300, Data: dnswire.CNAMERecord{Target: "www.a.shifen.com"}},
			aAnswer("www.a.shifen.com", ipToUint32(183, 2, 172, 177), 300),
			aAnswer("www.a.shifen.com", ipToUint32(183, 2, 172, 17), 300),
		},
	})
	e.HandleResponse(sink, resp)

	d1 := e.GetDomainsForIP("183.2.172.177")
	d2 := e.GetDomainsForIP("183.2.172.17")
	require.ElementsMatch(t, []string{"www.baidu.com", "www.a.shifen.com"}, d1)
	require.ElementsMatch(t, []string{"www.baidu.com", "www.a.shifen.com"}, d2)
	require.Contains(t, sink.domains, "www.baidu.com")
	require.Contains(t, sink.domains, "www.a.shifen.com")
}

// Scenario 6: malformed DNS is ignored.
func TestHandleResponse_MalformedIgnored(t *testing.T) {
	e := New(dnscache.DefaultCapacity)
	sink := &fakeSink{}
	random := make([]byte, 200)
	for i := range random {
		random[i] = byte(i * 7)
	}
	e.HandleResponse(sink, random)

	require.Empty(t, sink.domains)
	require.Equal(t, 0, e.index.Len())
}

func TestHandleResponse_IdempotentOnRepeatIngest(t *testing.T) {
	e := New(dnscache.DefaultCapacity)
	resp := marshal(t, dnswire.Message{
		Header:    dnswire.Header{ID: 1, Flags: dnswire.QRFlag, QDCount: 1, ANCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
		Answers:   []dnswire.Record{aAnswer("example.com", 0x5DB8D822, 300)},
	})
	e.HandleResponse(&fakeSink{}, resp)
	before := e.GetDomainsForIP("93.184.216.34")
	e.HandleResponse(&fakeSink{}, resp)
	after := e.GetDomainsForIP("93.184.216.34")
	require.ElementsMatch(t, before, after)
}

func TestClearCache_ResetsBoth(t *testing.T) {
	e := New(dnscache.DefaultCapacity)
	resp := marshal(t, dnswire.Message{
		Header:    dnswire.Header{ID: 1, Flags: dnswire.QRFlag, QDCount: 1, ANCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
		Answers:   []dnswire.Record{aAnswer("example.com", 0x5DB8D822, 300)},
	})
	e.HandleResponse(&fakeSink{}, resp)
	e.ClearCache()

	require.Empty(t, e.GetDomainsForIP("93.184.216.34"))
	q := marshal(t, dnswire.Message{
		Header:    dnswire.Header{ID: 2, QDCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	})
	_, hit := e.HandleQuery(&fakeSink{}, q)
	require.False(t, hit)
}

func ipToUint32(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}
