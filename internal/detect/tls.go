package detect

import "encoding/binary"

const (
	tlsHandshakeContentType = 0x16
	tlsHandshakeClientHello = 0x01
	tlsExtensionServerName  = 0x0000
	sniHostNameType         = 0x00
)

// detectTLS recognizes a TLS handshake record and, for a ClientHello,
// attempts SNI extraction. Returns ok=false if the payload isn't shaped
// like a TLS record at all.
func detectTLS(payload []byte) (Result, bool) {
	if len(payload) < 6 {
		return Result{}, false
	}
	if payload[0] != tlsHandshakeContentType {
		return Result{}, false
	}
	version := uint16(payload[1])<<8 | uint16(payload[2])
	if version < 0x0301 || version > 0x0304 {
		return Result{}, false
	}

	r := Result{Protocol: TLS}
	if payload[5] == tlsHandshakeClientHello {
		if name, err := parseSNI(payload); err == nil {
			r.Domain = name
		}
	}
	return r, true
}

// parseSNI walks a ClientHello to find the server_name extension. Every
// length field is bounds-checked; any overflow returns ErrNotRecognized
// rather than panicking — detectTLS treats that as "no SNI", not failure.
func parseSNI(payload []byte) (string, error) {
	off := 5 + 4 // TLS record header + handshake header
	off += 2     // client_version
	off += 32    // random
	if off+1 > len(payload) {
		return "", ErrNotRecognized
	}

	sessionIDLen := int(payload[off])
	off += 1 + sessionIDLen
	if off+2 > len(payload) {
		return "", ErrNotRecognized
	}

	cipherSuitesLen := int(binary.BigEndian.Uint16(payload[off : off+2]))
	off += 2 + cipherSuitesLen
	if off+1 > len(payload) {
		return "", ErrNotRecognized
	}

	compressionLen := int(payload[off])
	off += 1 + compressionLen
	if off+2 > len(payload) {
		return "", ErrNotRecognized
	}

	extensionsLen := int(binary.BigEndian.Uint16(payload[off : off+2]))
	off += 2
	extEnd := off + extensionsLen
	if extEnd > len(payload) {
		return "", ErrNotRecognized
	}

	for off+4 <= extEnd {
		extType := binary.BigEndian.Uint16(payload[off : off+2])
		extLen := int(binary.BigEndian.Uint16(payload[off+2 : off+4]))
		bodyStart := off + 4
		bodyEnd := bodyStart + extLen
		if bodyEnd > extEnd || bodyEnd > len(payload) {
			return "", ErrNotRecognized
		}
		if extType == tlsExtensionServerName {
			if name, ok := parseServerNameBody(payload[bodyStart:bodyEnd]); ok {
				return name, nil
			}
			return "", ErrNotRecognized
		}
		off = bodyEnd
	}
	return "", ErrNotRecognized
}

func parseServerNameBody(body []byte) (string, bool) {
	if len(body) < 2 {
		return "", false
	}
	listLen := int(binary.BigEndian.Uint16(body[0:2]))
	if listLen > len(body)-2 {
		return "", false
	}
	entries := body[2 : 2+listLen]
	if len(entries) < 3 || entries[0] != sniHostNameType {
		return "", false
	}
	nameLen := int(binary.BigEndian.Uint16(entries[1:3]))
	if 3+nameLen > len(entries) {
		return "", false
	}
	return string(entries[3 : 3+nameLen]), true
}
