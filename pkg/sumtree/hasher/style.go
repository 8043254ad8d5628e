package hasher

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Style selects the textual rendering of a digest.
type Style int

// Digest styles. StyleHex is the canonical manifest style.
const (
	StyleHex Style = iota
	StyleHexUpper
	StyleColon
	StyleSpace
	StyleBase64
)

// Canonical is the style written to and compared against manifests.
const Canonical = StyleHex

var styleNames = map[Style]string{
	StyleHex:      "hex",
	StyleHexUpper: "HEX",
	StyleColon:    "colon",
	StyleSpace:    "space",
	StyleBase64:   "base64",
}

// String returns the style name.
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStyle parses a style name. "hex" and "HEX" are case sensitive;
// the other names are not.
func ParseStyle(name string) (Style, error) {
	switch name {
	case "hex", "":
		return StyleHex, nil
	case "HEX":
		return StyleHexUpper, nil
	}
	switch strings.ToLower(name) {
	case "upper":
		return StyleHexUpper, nil
	case "colon":
		return StyleColon, nil
	case "space":
		return StyleSpace, nil
	case "base64":
		return StyleBase64, nil
	}
	return StyleHex, fmt.Errorf("unknown digest style %q", name)
}

// Format renders sum in the style.
func (s Style) Format(sum []byte) string {
	switch s {
	case StyleHexUpper:
		return strings.ToUpper(hex.EncodeToString(sum))
	case StyleColon:
		return joinOctets(sum, ":")
	case StyleSpace:
		return joinOctets(sum, " ")
	case StyleBase64:
		return base64.StdEncoding.EncodeToString(sum)
	default:
		return hex.EncodeToString(sum)
	}
}

func joinOctets(sum []byte, sep string) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, sep)
}
