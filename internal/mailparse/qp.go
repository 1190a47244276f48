package mailparse

import (
	"errors"
	"fmt"
	"strings"
)

var errMalformedEscape = errors.New("malformed quoted-printable escape")

// DecodeQuotedPrintable decodes "=XX" hex escapes and removes soft line
// breaks ("=" at end of line). Malformed escapes are kept literally and
// reported; decoding continues past them. Text without escapes is returned
// unchanged, so decoding it again is a no-op.
func DecodeQuotedPrintable(s string) (string, error) {
	var b strings.Builder
	var bad int
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		decoded, soft, n := decodeQPLine(line)
		bad += n
		b.Write(decoded)
		if !soft && i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	if bad > 0 {
		return b.String(), fmt.Errorf("%w (%d occurrences)", errMalformedEscape, bad)
	}
	return b.String(), nil
}

// decodeQPLine decodes one physical line. soft reports a trailing "="
// soft line break; bad counts escapes that were kept literally.
func decodeQPLine(line string) (decoded []byte, soft bool, bad int) {
	line = strings.TrimRight(line, "\r")
	trimmed := strings.TrimRight(line, " \t")
	if strings.HasSuffix(trimmed, "=") {
		soft = true
		line = trimmed[:len(trimmed)-1]
	}

	out := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '=' {
			out = append(out, c)
			continue
		}
		if i+2 < len(line) && isHex(line[i+1]) && isHex(line[i+2]) {
			out = append(out, unhex(line[i+1])<<4|unhex(line[i+2]))
			i += 2
			continue
		}
		bad++
		out = append(out, c)
	}
	return out, soft, bad
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
