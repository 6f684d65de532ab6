package detect

import "bytes"

// detectBanner tags a handful of common protocols by their greeting banner
// or an early client command. No domain is ever extracted for these — the
// spec lists them as tag-only. First match wins.
func detectBanner(payload []byte) (Protocol, bool) {
	switch {
	case bytes.HasPrefix(payload, []byte("SSH-")):
		return SSH, true
	case hasAnyPrefix(payload, "220 ", "220-", "USER ", "PASS ", "RETR ", "STOR ", "PASV"):
		return FTP, true
	case hasAnyPrefix(payload, "HELO ", "EHLO ", "MAIL FROM:", "RCPT TO:"):
		return SMTP, true
	case hasAnyPrefix(payload, "* OK", "a1 LOGIN", "A01 LOGIN"):
		return IMAP, true
	case hasAnyPrefix(payload, "+OK"):
		return POP3, true
	}
	return Unknown, false
}

func hasAnyPrefix(payload []byte, prefixes ...string) bool {
	for _, p := range prefixes {
		if bytes.HasPrefix(payload, []byte(p)) {
			return true
		}
	}
	return false
}
