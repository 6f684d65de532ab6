package flow

import (
	"encoding/binary"
	"testing"

	"github.com/jroosing/flowinspect/internal/dnswire"
	"github.com/stretchr/testify/require"
)

func buildClientHelloRecord(sni string) []byte {
	var body []byte
	body = append(body, 0x03, 0x03)
	body = append(body, make([]byte, 32)...)
	body = append(body, 0x00)
	body = append(body, 0x00, 0x02, 0x00, 0xff)
	body = append(body, 0x01, 0x00)

	entry := []byte{0x00}
	nameLenB := make([]byte, 2)
	binary.BigEndian.PutUint16(nameLenB, uint16(len(sni)))
	entry = append(entry, nameLenB...)
	entry = append(entry, []byte(sni)...)
	listLenB := make([]byte, 2)
	binary.BigEndian.PutUint16(listLenB, uint16(len(entry)))
	sniBody := append(listLenB, entry...)
	extLenB := make([]byte, 2)
	binary.BigEndian.PutUint16(extLenB, uint16(len(sniBody)))
	var ext []byte
	ext = append(ext, 0x00, 0x00)
	ext = append(ext, extLenB...)
	ext = append(ext, sniBody...)

	extLenTotal := make([]byte, 2)
	binary.BigEndian.PutUint16(extLenTotal, uint16(len(ext)))
	body = append(body, extLenTotal...)
	body = append(body, ext...)

	handshake := []byte{0x01, 0, 0, byte(len(body))}
	handshake = append(handshake, body...)

	record := []byte{0x16, 0x03, 0x01, 0, byte(len(handshake))}
	record = append(record, handshake...)
	return record
}

func buildAResponse(t *testing.T, name, ip string) []byte {
	t.Helper()
	addr := ParseFlowIP(ip)
	require.Equal(t, IPV4, addr.Kind)
	msg := dnswire.Message{
		Header:    dnswire.Header{ID: 1, Flags: dnswire.QRFlag, QDCount: 1, ANCount: 1},
		Questions: []dnswire.Question{{Name: name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
		Answers: []dnswire.Record{
			{Name: name, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN), TTL: 300, Data: dnswire.ARecord{Addr: addr.V4}},
		},
	}
	b, err := msg.Marshal()
	require.NoError(t, err)
	return b
}

// Scenario 3: SNI extraction for HTTPS.
func TestFlowSend_TLSSNIExtraction(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(1, 0, 0, "", "", TCP, Outbound, ParseFlowIP("220.181.174.34"), 443)

	e.FlowSend(ctx, buildClientHelloRecord("www.baidu.com"))

	require.Equal(t, []string{"www.baidu.com"}, ctx.Domains())
	require.Equal(t, Allow, ctx.FlowDecision)
}

// Scenario 4: HTTP Host extraction.
func TestFlowSend_HTTPHostExtraction(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(1, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 80)

	e.FlowSend(ctx, []byte("GET / HTTP/1.1\r\nHost: api.example.com\r\n\r\n"))

	require.Equal(t, []string{"api.example.com"}, ctx.Domains())
}

// Scenario 5: IP-lookup short-circuits parsing.
func TestFlowArrive_IPLookupShortCircuits(t *testing.T) {
	e := NewEngine()
	seedCtx := NewContext(1, 0, 0, "", "", DNSTransport, Inbound, ParseFlowIP("0.0.0.0"), 53)
	e.FlowRecv(seedCtx, buildAResponse(t, "example.com", "93.184.216.34"))

	ctx := NewContext(2, 0, 0, "", "", TCP, Outbound, ParseFlowIP("93.184.216.34"), 443)
	e.FlowArrive(ctx)

	require.Equal(t, []string{"example.com"}, ctx.Domains())
}

func TestFlowArrive_TwiceInARowIsIdempotent(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(1, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	e.FlowArrive(ctx)
	snapshot := ctx.Domains()
	decision := ctx.FlowDecision
	path := ctx.PathDecision

	e.FlowArrive(ctx)
	require.Equal(t, snapshot, ctx.Domains())
	require.Equal(t, decision, ctx.FlowDecision)
	require.Equal(t, path, ctx.PathDecision)
}

func TestContext_AddDomainsDedupsAndSkipsEmpty(t *testing.T) {
	ctx := NewContext(1, 0, 0, "", "", TCP, Outbound, FlowIP{}, 0)
	ctx.AddDomains([]string{"a.example", "", "a.example", "b.example"})
	require.Equal(t, []string{"a.example", "b.example"}, ctx.Domains())
}

func TestReevaluateDecision_PureFunctionOfState(t *testing.T) {
	e := NewEngine()
	a := NewContext(1, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	b := NewContext(2, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	a.AddDomains([]string{"example.com"})
	b.AddDomains([]string{"example.com"})

	e.reevaluateDecision(a)
	e.reevaluateDecision(b)
	require.Equal(t, a.FlowDecision, b.FlowDecision)
	require.Equal(t, a.PathDecision, b.PathDecision)
}

func TestFlowRecv_MalformedDNSIsIgnored(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(1, 0, 0, "", "", DNSTransport, Inbound, ParseFlowIP("8.8.8.8"), 53)
	random := make([]byte, 200)
	for i := range random {
		random[i] = byte(i * 13)
	}
	e.FlowRecv(ctx, random)
	require.Empty(t, ctx.Domains())
}

func TestClearCache_ThenGetDomainsForIPIsEmpty(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(1, 0, 0, "", "", DNSTransport, Inbound, ParseFlowIP("0.0.0.0"), 53)
	e.FlowRecv(ctx, buildAResponse(t, "example.com", "93.184.216.34"))
	e.ClearCache()
	require.Empty(t, e.GetDomainsForIP("93.184.216.34"))
}

func TestFlowSendWithResponse_DNSCacheHit(t *testing.T) {
	e := NewEngine()
	seedCtx := NewContext(1, 0, 0, "", "", DNSTransport, Inbound, ParseFlowIP("0.0.0.0"), 53)
	e.FlowRecv(seedCtx, buildAResponse(t, "example.com", "93.184.216.34"))

	query := dnswire.Message{
		Header:    dnswire.Header{ID: 0xBEEF, QDCount: 1},
		Questions: []dnswire.Question{{Name: "example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	}
	q, err := query.Marshal()
	require.NoError(t, err)

	ctx := NewContext(2, 0, 0, "", "", DNSTransport, Outbound, ParseFlowIP("9.9.9.9"), 53)
	resp, hit := e.FlowSendWithResponse(ctx, q)
	require.True(t, hit)
	require.Equal(t, byte(0xBE), resp[0])
	require.Equal(t, byte(0xEF), resp[1])
}

func TestDefault_ReturnsSameSingletonInstance(t *testing.T) {
	require.Same(t, Default(), Default())
}

type recordingObserver struct {
	sessionID uint64
	flowIP    string
	domains   []string
	snapshot  FlowSnapshot
	snapshots int
}

func (r *recordingObserver) RecordObservation(sessionID uint64, flowIP string, domains []string) {
	r.sessionID = sessionID
	r.flowIP = flowIP
	r.domains = domains
}

func (r *recordingObserver) RecordFlowSnapshot(snap FlowSnapshot) {
	r.snapshot = snap
	r.snapshots++
}

func TestFlowClose_NotifiesObserverWithResolvedDomains(t *testing.T) {
	e := NewEngine()
	obs := &recordingObserver{}
	e.SetObserver(obs)

	ctx := NewContext(9, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	ctx.AddDomains([]string{"closed.example"})

	e.FlowClose(ctx)
	require.Equal(t, uint64(9), obs.sessionID)
	require.Equal(t, "1.2.3.4", obs.flowIP)
	require.Equal(t, []string{"closed.example"}, obs.domains)
	require.Equal(t, 1, obs.snapshots)
	require.Equal(t, []string{"closed.example"}, obs.snapshot.Domains)
	require.Equal(t, "allow", obs.snapshot.Decision)
}

func TestFlowClose_NoDomainsSkipsObservationButRecordsSnapshot(t *testing.T) {
	e := NewEngine()
	obs := &recordingObserver{}
	e.SetObserver(obs)

	ctx := NewContext(9, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	e.FlowClose(ctx)
	require.Zero(t, obs.sessionID)
	require.Empty(t, obs.domains)
	require.Equal(t, 1, obs.snapshots)
	require.Equal(t, uint64(9), obs.snapshot.SessionID)
}

func TestFlowClose_NilObserverIsSafe(t *testing.T) {
	e := NewEngine()
	ctx := NewContext(9, 0, 0, "", "", TCP, Outbound, ParseFlowIP("1.2.3.4"), 443)
	ctx.AddDomains([]string{"closed.example"})
	e.FlowClose(ctx)
}
