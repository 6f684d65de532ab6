package dnswire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Record is a single resource record from an answer section. Data holds one
// of the typed rdata shapes below depending on Type; record types this
// package doesn't interpret decode to OpaqueRecord instead of failing the
// whole message.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  any
}

// ARecord is the rdata of a TypeA record: an IPv4 address as a 32-bit value
// in network byte order, matching how FlowIP represents V4 addresses.
type ARecord struct {
	Addr uint32
}

// IP returns the dotted-quad textual form of the address.
func (r ARecord) IP() string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, r.Addr)
	return net.IP(b).String()
}

// AAAARecord is the rdata of a TypeAAAA record: a 128-bit IPv6 address split
// into two big-endian halves.
type AAAARecord struct {
	Hi, Lo uint64
}

// IP returns the canonical compressed textual form of the address.
func (r AAAARecord) IP() string {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], r.Hi)
	binary.BigEndian.PutUint64(b[8:16], r.Lo)
	return net.IP(b).String()
}

// CNAMERecord is the rdata of a TypeCNAME record.
type CNAMERecord struct{ Target string }

// PTRRecord is the rdata of a TypePTR record.
type PTRRecord struct{ Target string }

// MXRecord is the rdata of a TypeMX record.
type MXRecord struct {
	Preference uint16
	Exchange   string
}

// SRVRecord is the rdata of a TypeSRV record (RFC 2782).
type SRVRecord struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// OpaqueRecord carries the raw rdata bytes of any record type this package
// does not interpret (TXT, NS, SOA, OPT, ...). The bytes are preserved
// verbatim but never parsed.
type OpaqueRecord struct{ Raw []byte }

// ParseRecord decodes one resource record starting at *off, advancing *off
// past it. The owner name may use compression; rdata is dispatched by type.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, err
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF while reading DNS record", ErrDNSError)
	}
	rrType := binary.BigEndian.Uint16(msg[*off : *off+2])
	rrClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return Record{}, fmt.Errorf("%w: unexpected EOF while reading DNS record rdata", ErrDNSError)
	}

	data, err := parseRData(msg, off, start, rdlen, RecordType(rrType))
	if err != nil {
		return Record{}, err
	}

	return Record{Name: name, Type: rrType, Class: rrClass, TTL: ttl, Data: data}, nil
}

func parseRData(msg []byte, off *int, start, rdlen int, rt RecordType) (any, error) {
	switch rt {
	case TypeA:
		if rdlen != 4 {
			return nil, fmt.Errorf("%w: A record rdata must be 4 bytes, got %d", ErrDNSError, rdlen)
		}
		v := binary.BigEndian.Uint32(msg[start : start+4])
		*off = start + 4
		return ARecord{Addr: v}, nil
	case TypeAAAA:
		if rdlen != 16 {
			return nil, fmt.Errorf("%w: AAAA record rdata must be 16 bytes, got %d", ErrDNSError, rdlen)
		}
		hi := binary.BigEndian.Uint64(msg[start : start+8])
		lo := binary.BigEndian.Uint64(msg[start+8 : start+16])
		*off = start + 16
		return AAAARecord{Hi: hi, Lo: lo}, nil
	case TypeCNAME:
		target, err := decodeExactName(msg, off, start, rdlen)
		if err != nil {
			return nil, err
		}
		return CNAMERecord{Target: target}, nil
	case TypePTR:
		target, err := decodeExactName(msg, off, start, rdlen)
		if err != nil {
			return nil, err
		}
		return PTRRecord{Target: target}, nil
	case TypeMX:
		if rdlen < 2 {
			return nil, fmt.Errorf("%w: MX record rdata too short", ErrDNSError)
		}
		pref := binary.BigEndian.Uint16(msg[start : start+2])
		nameOff := start + 2
		exchange, err := DecodeName(msg, &nameOff)
		if err != nil {
			return nil, err
		}
		if nameOff-start != rdlen {
			return nil, fmt.Errorf("%w: MX record rdata length mismatch", ErrDNSError)
		}
		*off = nameOff
		return MXRecord{Preference: pref, Exchange: exchange}, nil
	case TypeSRV:
		if rdlen < 6 {
			return nil, fmt.Errorf("%w: SRV record rdata too short", ErrDNSError)
		}
		prio := binary.BigEndian.Uint16(msg[start : start+2])
		weight := binary.BigEndian.Uint16(msg[start+2 : start+4])
		port := binary.BigEndian.Uint16(msg[start+4 : start+6])
		nameOff := start + 6
		target, err := DecodeName(msg, &nameOff)
		if err != nil {
			return nil, err
		}
		if nameOff-start != rdlen {
			return nil, fmt.Errorf("%w: SRV record rdata length mismatch", ErrDNSError)
		}
		*off = nameOff
		return SRVRecord{Priority: prio, Weight: weight, Port: port, Target: target}, nil
	default:
		raw := make([]byte, rdlen)
		copy(raw, msg[start:start+rdlen])
		*off = start + rdlen
		return OpaqueRecord{Raw: raw}, nil
	}
}

// decodeExactName decodes a name-valued rdata (CNAME/PTR) and verifies the
// decoded name consumed exactly rdlen bytes of the record — a compressed
// name pointing backward can decode successfully yet span the wrong number
// of bytes, which would desynchronize the remaining sections.
func decodeExactName(msg []byte, off *int, start, rdlen int) (string, error) {
	nameOff := start
	name, err := DecodeName(msg, &nameOff)
	if err != nil {
		return "", err
	}
	if nameOff-start != rdlen {
		return "", fmt.Errorf("%w: name record rdata length mismatch", ErrDNSError)
	}
	*off = nameOff
	return name, nil
}

// Marshal serializes the record to wire format. Names are not compressed.
func (rr Record) Marshal() ([]byte, error) {
	nameWire, err := EncodeName(rr.Name)
	if err != nil {
		return nil, err
	}
	rdata, err := rr.marshalRData()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}

func (rr Record) marshalRData() ([]byte, error) {
	switch d := rr.Data.(type) {
	case ARecord:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, d.Addr)
		return b, nil
	case AAAARecord:
		b := make([]byte, 16)
		binary.BigEndian.PutUint64(b[0:8], d.Hi)
		binary.BigEndian.PutUint64(b[8:16], d.Lo)
		return b, nil
	case CNAMERecord:
		return EncodeName(d.Target)
	case PTRRecord:
		return EncodeName(d.Target)
	case MXRecord:
		name, err := EncodeName(d.Exchange)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2+len(name))
		binary.BigEndian.PutUint16(out[0:2], d.Preference)
		copy(out[2:], name)
		return out, nil
	case SRVRecord:
		name, err := EncodeName(d.Target)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 6+len(name))
		binary.BigEndian.PutUint16(out[0:2], d.Priority)
		binary.BigEndian.PutUint16(out[2:4], d.Weight)
		binary.BigEndian.PutUint16(out[4:6], d.Port)
		copy(out[6:], name)
		return out, nil
	case OpaqueRecord:
		return d.Raw, nil
	default:
		return nil, fmt.Errorf("%w: unsupported record data type %T", ErrDNSError, rr.Data)
	}
}
