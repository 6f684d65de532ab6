package flow

import (
	"encoding/binary"
	"net"
	"net/netip"
)

// IPKind tags the shape of a FlowIP's contents.
type IPKind int

const (
	IPUnknown IPKind = iota
	IPV4
	IPV6
)

// FlowIP is a tagged destination address. Parsing always yields the
// narrowest form: an IPv4-mapped IPv6 address collapses to IPV4.
// Unknown never participates in the reverse index.
type FlowIP struct {
	Kind IPKind
	V4   uint32 // valid when Kind == IPV4, network byte order
	Hi   uint64 // valid when Kind == IPV6, high 64 bits
	Lo   uint64 // valid when Kind == IPV6, low 64 bits
}

// ParseFlowIP parses a textual IPv4 or IPv6 address. An unparseable string
// yields IPUnknown, never an error — the detector and cache paths treat
// Unknown as "no usable destination" rather than failing outward.
func ParseFlowIP(s string) FlowIP {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return FlowIP{Kind: IPUnknown}
	}
	if addr.Is4() || addr.Is4In6() {
		a4 := addr.Unmap().As4()
		return FlowIP{Kind: IPV4, V4: binary.BigEndian.Uint32(a4[:])}
	}
	b := addr.As16()
	return FlowIP{
		Kind: IPV6,
		Hi:   binary.BigEndian.Uint64(b[0:8]),
		Lo:   binary.BigEndian.Uint64(b[8:16]),
	}
}

// RawString returns the bracket-free textual form, suitable as a reverse
// index key. Returns "" for IPUnknown.
func (ip FlowIP) RawString() string {
	switch ip.Kind {
	case IPV4:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, ip.V4)
		return net.IP(b).String()
	case IPV6:
		b := make([]byte, 16)
		binary.BigEndian.PutUint64(b[0:8], ip.Hi)
		binary.BigEndian.PutUint64(b[8:16], ip.Lo)
		return net.IP(b).String()
	default:
		return ""
	}
}

// String returns the display form: IPv6 addresses are bracketed. It is what
// Context.IPString returns.
func (ip FlowIP) String() string {
	if ip.Kind == IPV6 {
		return "[" + ip.RawString() + "]"
	}
	return ip.RawString()
}
