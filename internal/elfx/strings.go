package elfx

import "github.com/efebarandurmaz/lodestone/internal/resource"

// Strings returns NUL-terminated runs of printable ASCII of at least minLen
// bytes found in the read-only data region, in file order.
func (im *Image) Strings(minLen int) []resource.AsciiString {
	if im.Rodata.Size == 0 || im.Rodata.Off >= uint64(len(im.All)) {
		return nil
	}
	end := im.Rodata.Off + im.Rodata.Size
	if end > uint64(len(im.All)) {
		end = uint64(len(im.All))
	}
	return ScanStrings(im.All[im.Rodata.Off:end], int64(im.Rodata.Off), minLen)
}

// ScanStrings finds NUL-terminated printable ASCII runs in b. base is added
// to every reported offset.
func ScanStrings(b []byte, base int64, minLen int) []resource.AsciiString {
	if minLen < 1 {
		minLen = 1
	}
	var out []resource.AsciiString
	start := -1
	for i, c := range b {
		switch {
		case isPrintable(c):
			if start < 0 {
				start = i
			}
		case c == 0 && start >= 0:
			if i-start >= minLen {
				out = append(out, resource.AsciiString{Offset: base + int64(start), Text: string(b[start:i])})
			}
			start = -1
		default:
			start = -1
		}
	}
	return out
}

// isPrintable matches printable ASCII plus tab and newline, which are
// common inside format strings.
func isPrintable(c byte) bool {
	return (c >= 0x20 && c < 0x7f) || c == '\t' || c == '\n'
}
