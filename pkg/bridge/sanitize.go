package bridge

import (
	"regexp"
	"unicode/utf8"
)

// maxMessageBytes caps handler error messages returned to remote callers.
const maxMessageBytes = 512

// Handler errors frequently wrap raw SDK failures that can embed credentials
// (authorization headers, api_key query params, connection strings). The
// patterns below scrub the obvious shapes before a message crosses the wire.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`),
	regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password|authorization)\s*[=:]\s*\S+`),
}

// sanitizeMessage truncates and scrubs a handler error message before it is
// placed in a Failure envelope.
func sanitizeMessage(msg string) string {
	for _, p := range secretPatterns {
		msg = p.ReplaceAllStringFunc(msg, func(m string) string {
			return redactMatch(p, m)
		})
	}

	if len(msg) > maxMessageBytes {
		cut := maxMessageBytes
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character.
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "... (truncated)"
	}

	return msg
}

// redactMatch keeps the key portion of a key=value match so the message
// stays diagnosable, replacing only the value.
func redactMatch(p *regexp.Regexp, match string) string {
	sub := p.FindStringSubmatch(match)
	if len(sub) > 1 {
		return sub[1] + "=[redacted]"
	}

	return "[redacted]"
}
