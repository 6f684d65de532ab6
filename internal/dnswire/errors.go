// Package dnswire decodes and encodes RFC 1035 DNS messages as used by the
// flow inspection engine: just enough of the wire format to pull the
// question, the answer records, and their typed rdata out of a packet, plus
// the inverse (marshal) so tests and the cmd/flowfeed harness can produce
// wire bytes.
//
// This is a decoder, not a resolver: it never validates DNSSEC, never walks
// EDNS options, and never assembles zone data. A syntactically valid but
// semantically unexpected message (a query where a response was wanted) is
// still decoded successfully; callers decide relevance from the QR flag.
//
// Error Handling:
//
// All errors are wrapped with context using fmt.Errorf("...: %w", err).
// This preserves error chains while adding operational context.
package dnswire

import "errors"

// ErrDNSError is a sentinel error type for DNS protocol violations.
// Wrap this with fmt.Errorf("context: %w", ErrDNSError) to add context.
var ErrDNSError = errors.New("dns wire error")
