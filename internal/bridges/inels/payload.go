package inels

import (
	"fmt"
	"strconv"
	"strings"
)

// Payload encoding constants.
const (
	// tokenTerminator ends every token of a status payload.
	tokenTerminator = "\n"

	// commandSeparator joins the fields of a set command.
	commandSeparator = " "

	// hexBase is the radix of hex-encoded tokens.
	hexBase = 16

	// byteBits is the width of a single hex token.
	byteBits = 8

	// maxByte is the largest value a single token can carry.
	maxByte = 0xFF
)

// Tokens splits a raw status payload into its newline-terminated tokens.
// The empty field after the final terminator is dropped, and surrounding
// whitespace (including a carriage return) is trimmed from each token.
//
// Example: "02\n01\n" → ["02", "01"]
func Tokens(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, tokenTerminator)
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// JoinPayload renders tokens as a newline-terminated status payload.
//
// Example: ["02", "01"] → "02\n01\n"
func JoinPayload(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, tokenTerminator) + tokenTerminator
}

// CommandPayload renders fields as a space-separated set command.
//
// Example: ["01", "C9", "4F"] → "01 C9 4F"
func CommandPayload(fields ...string) string {
	return strings.Join(fields, commandSeparator)
}

// canonicalPayload normalises a raw payload to the form used as table key:
// trimmed, upper-case tokens with a trailing terminator.
func canonicalPayload(raw string) string {
	tokens := Tokens(raw)
	for i, t := range tokens {
		tokens[i] = strings.ToUpper(t)
	}
	return JoinPayload(tokens)
}

// hexToken renders a byte value as a two-character upper-case hex token.
func hexToken(v int) string {
	return fmt.Sprintf("%02X", v)
}

// decodeHexGroup concatenates the tokens at the given offsets and decodes
// the result as one big-endian hex number.
//
// Example: tokens ["00", "B4", "0A"], offsets [2, 1] → 0x0AB4
func decodeHexGroup(tokens []string, offsets []int) (int, error) {
	var sb strings.Builder
	for _, off := range offsets {
		if off < 0 || off >= len(tokens) {
			return 0, fmt.Errorf("%w: token %d requested, payload has %d", ErrMalformedPayload, off, len(tokens))
		}
		sb.WriteString(tokens[off])
	}

	v, err := strconv.ParseUint(sb.String(), hexBase, len(offsets)*byteBits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not hex: %w", ErrMalformedPayload, sb.String(), err)
	}
	return int(v), nil
}

// encodeHexGroup writes v big-endian into the token positions named by
// offsets. The inverse of decodeHexGroup.
func encodeHexGroup(tokens []string, offsets []int, v int) error {
	limit := 1 << (len(offsets) * byteBits)
	if v < 0 || v >= limit {
		return fmt.Errorf("%w: %d does not fit in %d token(s)", ErrUnsupportedValue, v, len(offsets))
	}
	for i := len(offsets) - 1; i >= 0; i-- {
		off := offsets[i]
		if off < 0 || off >= len(tokens) {
			return fmt.Errorf("%w: token %d out of range", ErrMalformedPayload, off)
		}
		tokens[off] = hexToken(v & maxByte)
		v >>= byteBits
	}
	return nil
}

// requiredTokens returns the smallest payload length that covers every
// offset in groups.
func requiredTokens(groups ...[]int) int {
	n := 0
	for _, g := range groups {
		for _, off := range g {
			if off+1 > n {
				n = off + 1
			}
		}
	}
	return n
}
