// Command flowfeed is a synthetic flow-feed harness: it constructs
// flow.Context values and hand-built DNS/TLS/HTTP byte slices, drives them
// through the public engine API, and prints the resulting decision and
// domain list for each flow. It is a smoke-testing/demo tool, not part of
// the core inspection path.
//
// With -replay it instead sends each scenario's outbound payload over one
// loopback UDP socket to -addr, without calling the engine in-process; no
// replies are read.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/jroosing/flowinspect/internal/dnswire"
	"github.com/jroosing/flowinspect/internal/flow"
)

func main() {
	replay := flag.Bool("replay", false, "replay synthetic packets over loopback UDP instead of driving the engine in-process")
	addr := flag.String("addr", "127.0.0.1:15353", "loopback target address for -replay")
	flag.Parse()

	scenarios := buildScenarios()

	if *replay {
		if err := replayScenarios(*addr, scenarios); err != nil {
			fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	driveInProcess(scenarios)
}

// scenario is one synthetic flow: a destination, a packet to send outbound,
// and optionally a response to feed back inbound.
type scenario struct {
	name      string
	dstIP     string
	dstPort   uint16
	transport flow.TransportType
	outbound  []byte
	inbound   []byte
}

func buildScenarios() []scenario {
	dnsQuery, dnsResponse := buildDNSExchange("example.com", "93.184.216.34")

	return []scenario{
		{
			name:      "dns-lookup",
			dstIP:     "8.8.8.8",
			dstPort:   53,
			transport: flow.UDP,
			outbound:  dnsQuery,
			inbound:   dnsResponse,
		},
		{
			name:      "tls-handshake",
			dstIP:     "93.184.216.34",
			dstPort:   443,
			transport: flow.TCP,
			outbound:  buildClientHello("secure.example.com"),
		},
		{
			name:      "http-request",
			dstIP:     "93.184.216.34",
			dstPort:   80,
			transport: flow.TCP,
			outbound:  []byte("GET / HTTP/1.1\r\nHost: www.example.org\r\nUser-Agent: flowfeed\r\n\r\n"),
		},
	}
}

func driveInProcess(scenarios []scenario) {
	engine := flow.NewEngine()

	var sessionID uint64
	for _, sc := range scenarios {
		sessionID++
		ctx := flow.NewContext(sessionID, 0, os.Getpid(), "flowfeed", os.Args[0],
			sc.transport, flow.Outbound, flow.ParseFlowIP(sc.dstIP), sc.dstPort)

		engine.FlowArrive(ctx)
		engine.FlowSend(ctx, sc.outbound)
		if sc.inbound != nil {
			engine.FlowRecv(ctx, sc.inbound)
		}

		fmt.Printf("%-16s dst=%s:%d decision=%v domains=%v\n",
			sc.name, sc.dstIP, sc.dstPort, ctx.FlowDecision, ctx.Domains())

		engine.FlowClose(ctx)
	}
}

func replayScenarios(addr string, scenarios []scenario) error {
	conn, err := listenReuseAddrUDP()
	if err != nil {
		return fmt.Errorf("open loopback socket: %w", err)
	}
	defer conn.Close()

	target, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}

	for _, sc := range scenarios {
		if _, err := conn.WriteToUDP(sc.outbound, target); err != nil {
			fmt.Fprintf(os.Stderr, "%s: send failed: %v\n", sc.name, err)
			continue
		}
		fmt.Printf("%-16s sent %d bytes to %s\n", sc.name, len(sc.outbound), addr)
	}
	return nil
}

// listenReuseAddrUDP opens an ephemeral loopback UDP socket with
// SO_REUSEADDR set, the same socket-tuning idiom the host process uses for
// its own listening sockets.
func listenReuseAddrUDP() (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			if err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return ctrlErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

// buildDNSExchange constructs a matched A-record query/response pair for
// domain resolving to addr.
func buildDNSExchange(domain, addr string) (query, response []byte) {
	q := dnswire.Message{
		Header: dnswire.Header{ID: 0x1234},
		Questions: []dnswire.Question{
			{Name: domain, Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)},
		},
	}
	qb, err := q.Marshal()
	if err != nil {
		panic(err)
	}

	ip := net.ParseIP(addr).To4()
	r := dnswire.Message{
		Header:    dnswire.Header{ID: 0x1234, Flags: dnswire.QRFlag},
		Questions: q.Questions,
		Answers: []dnswire.Record{
			{
				Name:  domain,
				Type:  uint16(dnswire.TypeA),
				Class: uint16(dnswire.ClassIN),
				TTL:   300,
				Data:  dnswire.ARecord{Addr: binary.BigEndian.Uint32(ip)},
			},
		},
	}
	rb, err := r.Marshal()
	if err != nil {
		panic(err)
	}

	return qb, rb
}

// TLS record/handshake constants for the minimal ClientHello built below.
const (
	tlsHandshakeClientHello = 0x01
	sniHostNameType         = 0x00
)

// buildClientHello constructs a minimal TLS 1.2 ClientHello record carrying
// a server_name extension, matching the wire layout the detector parses.
func buildClientHello(sni string) []byte {
	var body []byte
	body = append(body, 0x03, 0x03)
	body = append(body, make([]byte, 32)...)
	body = append(body, 0x00)
	body = append(body, 0x00, 0x02, 0x00, 0xff)
	body = append(body, 0x01, 0x00)

	var ext []byte
	if sni != "" {
		entry := []byte{sniHostNameType}
		nameLen := make([]byte, 2)
		binary.BigEndian.PutUint16(nameLen, uint16(len(sni)))
		entry = append(entry, nameLen...)
		entry = append(entry, []byte(sni)...)

		listLen := make([]byte, 2)
		binary.BigEndian.PutUint16(listLen, uint16(len(entry)))
		sniBody := append(listLen, entry...)

		extLen := make([]byte, 2)
		binary.BigEndian.PutUint16(extLen, uint16(len(sniBody)))
		ext = append(ext, 0x00, 0x00)
		ext = append(ext, extLen...)
		ext = append(ext, sniBody...)
	}

	extLenTotal := make([]byte, 2)
	binary.BigEndian.PutUint16(extLenTotal, uint16(len(ext)))
	body = append(body, extLenTotal...)
	body = append(body, ext...)

	handshake := []byte{tlsHandshakeClientHello, 0, 0, byte(len(body))}
	handshake = append(handshake, body...)

	record := []byte{0x16, 0x03, 0x01, 0, byte(len(handshake))}
	record = append(record, handshake...)
	return record
}
