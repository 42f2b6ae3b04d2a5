package ned

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var xmlEncodingExpr = regexp.MustCompile(`^\s*<\?xml[^>]*encoding=["']([^"']+)["']`)

// legacyToUTF8 decodes bytes that are not valid UTF-8 as Windows-1252, the superset of Latin-1 NED falls back to.
func legacyToUTF8(raw []byte) []byte {
	if utf8.Valid(raw) {
		return raw
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return []byte(strings.ToValidUTF8(string(raw), "�"))
	}
	return decoded
}

// declaredXMLEncoding returns the lower-cased encoding from the XML declaration, or "".
func declaredXMLEncoding(raw []byte) string {
	head := raw
	if len(head) > 256 {
		head = head[:256]
	}
	m := xmlEncodingExpr.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}
