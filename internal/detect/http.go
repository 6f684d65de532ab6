package detect

import (
	"bytes"
	"strings"
)

const httpScanLimit = 2048

// extractHTTPHost scans the first httpScanLimit bytes for a Host header,
// or for a CONNECT request returns the target host from the request line.
// Returns "" if neither is found.
func extractHTTPHost(payload []byte) string {
	limit := len(payload)
	if limit > httpScanLimit {
		limit = httpScanLimit
	}
	window := payload[:limit]

	if bytes.HasPrefix(window, []byte("CONNECT ")) {
		return extractConnectTarget(window)
	}

	for _, line := range bytes.Split(window, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) < len("Host:") {
			continue
		}
		if strings.EqualFold(string(line[:len("Host:")]), "Host:") {
			return strings.TrimSpace(string(line[len("Host:"):]))
		}
	}
	return ""
}

func extractConnectTarget(window []byte) string {
	rest := window[len("CONNECT "):]
	end := bytes.IndexAny(rest, " \r\n")
	if end <= 0 {
		return ""
	}
	target := string(rest[:end])
	if i := strings.LastIndexByte(target, ':'); i >= 0 {
		return target[:i]
	}
	return target
}
