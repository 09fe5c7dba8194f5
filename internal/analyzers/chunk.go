package analyzers

import (
	"bytes"
	"strings"
)

// Chunk splits data into consecutive size-byte slices in offset order. The
// trailing remainder shorter than size is dropped unless keepRemainder is
// set. The returned slices alias data.
func Chunk(data []byte, size int, keepRemainder bool) [][]byte {
	if size <= 0 {
		return nil
	}
	n := len(data) / size
	chunks := make([][]byte, 0, n+1)
	for i := 0; i < n; i++ {
		chunks = append(chunks, data[i*size:(i+1)*size:(i+1)*size])
	}
	if keepRemainder && len(data)%size != 0 {
		chunks = append(chunks, data[n*size:])
	}
	return chunks
}

const hexDigits = "0123456789abcdef"

// ReprBytes renders b as a Python bytes literal, e.g. b'\x7fELF\x02'.
// Single quotes are used unless b contains a single quote and no double
// quote.
func ReprBytes(b []byte) string {
	quote := byte('\'')
	if bytes.IndexByte(b, '\'') >= 0 && bytes.IndexByte(b, '"') < 0 {
		quote = '"'
	}

	var sb strings.Builder
	sb.Grow(len(b)*2 + 3)
	sb.WriteByte('b')
	sb.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == quote || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			sb.WriteString(`\x`)
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}
