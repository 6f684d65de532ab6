package flow

// TransportType is the flow's transport kind.
type TransportType int

const (
	TCP TransportType = iota
	UDP
	DNSTransport
)

// String renders the transport the way it's logged and persisted.
func (t TransportType) String() string {
	switch t {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case DNSTransport:
		return "dns"
	default:
		return "unknown"
	}
}

// Direction is which way the flow originated.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// String renders the direction the way it's logged and persisted.
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Decision is the routing/admission decision the engine assigns to a flow.
type Decision int

const (
	Allow Decision = iota
	Block
)

// String renders the decision the way it's logged and persisted.
func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "allow"
}

// PathDecision is the path a proxy should take for an Allow'd flow.
type PathDecision int

const (
	PathNone PathDecision = iota
	PathDirect
	PathLocal
	PathGateway
)

// String renders the path decision the way it's logged and persisted.
func (p PathDecision) String() string {
	switch p {
	case PathDirect:
		return "direct"
	case PathLocal:
		return "local"
	case PathGateway:
		return "gateway"
	default:
		return "none"
	}
}

// Context is the per-flow mutable state the host passes through the
// engine. The host owns it: the engine never retains a reference past the
// call that received it, and the host guarantees no concurrent mutation of
// the same context from more than one goroutine.
type Context struct {
	SessionID   uint64
	TimestampNs int64
	ProcessID   int
	ProcessName string
	ProcessPath string

	FlowType  TransportType
	Direction Direction
	DstIP     FlowIP
	DstPort   uint16

	FlowDecision Decision
	PathDecision PathDecision

	domains []string
}

// NewContext constructs a context with the default decision (Allow/Local)
// the engine assigns before any evidence has been resolved.
func NewContext(sessionID uint64, timestampNs int64, processID int, processName, processPath string, flowType TransportType, direction Direction, dstIP FlowIP, dstPort uint16) *Context {
	return &Context{
		SessionID:    sessionID,
		TimestampNs:  timestampNs,
		ProcessID:    processID,
		ProcessName:  processName,
		ProcessPath:  processPath,
		FlowType:     flowType,
		Direction:    direction,
		DstIP:        dstIP,
		DstPort:      dstPort,
		FlowDecision: Allow,
		PathDecision: PathLocal,
	}
}

// IsDNS reports whether this flow should be routed to the DNS sub-engine.
func (ctx *Context) IsDNS() bool {
	return ctx.DstPort == 53
}

// Domains returns a snapshot of the insertion-ordered, deduplicated domain
// list accumulated so far.
func (ctx *Context) Domains() []string {
	out := make([]string, len(ctx.domains))
	copy(out, ctx.domains)
	return out
}

// FlowSnapshot is the last-known state of a flow at close time, handed to
// an Observer so a client can later ask "what was this session doing".
type FlowSnapshot struct {
	SessionID    uint64
	FlowIP       string
	DstPort      uint16
	Transport    string
	Direction    string
	ProcessID    int
	ProcessName  string
	ProcessPath  string
	Decision     string
	PathDecision string
	Domains      []string
}

// Snapshot captures ctx's current state as a FlowSnapshot.
func (ctx *Context) Snapshot() FlowSnapshot {
	return FlowSnapshot{
		SessionID:    ctx.SessionID,
		FlowIP:       ctx.RawIPString(),
		DstPort:      ctx.DstPort,
		Transport:    ctx.FlowType.String(),
		Direction:    ctx.Direction.String(),
		ProcessID:    ctx.ProcessID,
		ProcessName:  ctx.ProcessName,
		ProcessPath:  ctx.ProcessPath,
		Decision:     ctx.FlowDecision.String(),
		PathDecision: ctx.PathDecision.String(),
		Domains:      ctx.Domains(),
	}
}

// IPString returns the display form of DstIP (bracketed for IPv6). It is
// computed from DstIP on every call and is not cached.
func (ctx *Context) IPString() string {
	return ctx.DstIP.String()
}

// RawIPString returns the bracket-free form of DstIP, used as a
// reverse-index key. It is computed from DstIP on every call and is not
// cached.
func (ctx *Context) RawIPString() string {
	return ctx.DstIP.RawString()
}

// AddDomains appends names not already present, preserving insertion
// order and skipping empty strings. It satisfies dnsengine.DomainSink, so
// a *Context can be handed directly to the DNS sub-engine. Returns whether
// anything new was added.
func (ctx *Context) AddDomains(names []string) bool {
	if len(names) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(ctx.domains))
	for _, d := range ctx.domains {
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
		ctx.domains = append(ctx.domains, n)
		added = true
	}
	return added
}
