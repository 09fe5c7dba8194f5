// Package disasm decodes machine code into listings for the function
// analyzer. ARM64 and x86 (32/64-bit) are supported.
package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Architectures accepted by Disassemble.
const (
	ArchARM64 = "arm64"
	ArchAMD64 = "amd64"
	Arch386   = "386"
)

// ErrUnsupportedArch is returned for architectures without a decoder.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// Inst is one decoded instruction.
type Inst struct {
	VA   uint64 // virtual address of instruction
	Text string // formatted disassembly (GNU syntax)
	Op   string // mnemonic in lowercase, empty if undecodable
	Raw  []byte // raw encoding
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Disassemble linearly decodes code located at va. Undecodable bytes are
// emitted as data directives so the listing stays complete.
func Disassemble(arch string, va uint64, code []byte) (Stream, error) {
	switch arch {
	case ArchARM64:
		return decodeARM64(va, code), nil
	case ArchAMD64:
		return decodeX86(va, code, 64), nil
	case Arch386:
		return decodeX86(va, code, 32), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArch, arch)
	}
}

func decodeARM64(va uint64, code []byte) Stream {
	out := make(Stream, 0, len(code)/4)
	for off := 0; off+4 <= len(code); off += 4 {
		raw := code[off : off+4]
		pc := va + uint64(off)
		inst, err := arm64asm.Decode(raw)
		if err != nil {
			out = append(out, Inst{
				VA:   pc,
				Text: fmt.Sprintf(".word 0x%08x", binary.LittleEndian.Uint32(raw)),
				Raw:  raw,
			})
			continue
		}
		out = append(out, Inst{
			VA:   pc,
			Text: arm64asm.GNUSyntax(inst),
			Op:   strings.ToLower(inst.Op.String()),
			Raw:  raw,
		})
	}
	// Trailing bytes that do not form a full word.
	for off := len(code) &^ 3; off < len(code); off++ {
		out = append(out, byteDirective(va+uint64(off), code[off:off+1]))
	}
	return out
}

func decodeX86(va uint64, code []byte, mode int) Stream {
	var out Stream
	for off := 0; off < len(code); {
		pc := va + uint64(off)
		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			out = append(out, byteDirective(pc, code[off:off+1]))
			off++
			continue
		}
		out = append(out, Inst{
			VA:   pc,
			Text: x86asm.GNUSyntax(inst, pc, nil),
			Op:   strings.ToLower(inst.Op.String()),
			Raw:  code[off : off+inst.Len],
		})
		off += inst.Len
	}
	return out
}

func byteDirective(va uint64, raw []byte) Inst {
	return Inst{VA: va, Text: fmt.Sprintf(".byte 0x%02x", raw[0]), Raw: raw}
}

// Listing renders s one instruction per line as "0xADDR:\tTEXT".
func Listing(s Stream) string {
	var sb strings.Builder
	for i, in := range s {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "0x%x:\t%s", in.VA, in.Text)
	}
	return sb.String()
}
