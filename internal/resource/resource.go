// Package resource defines the views the analyzers read from a binary: the
// whole program image, a disassembled function, and an embedded string.
package resource

import "fmt"

// Program is the raw contents of a loaded program.
type Program struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// ComplexBlock is a function-like region with its disassembly.
type ComplexBlock struct {
	Symbol   string `json:"symbol"`
	Address  uint64 `json:"address"`
	Size     uint64 `json:"size"`
	Assembly string `json:"assembly"`
}

// String returns "symbol@0xaddr".
func (b ComplexBlock) String() string {
	return fmt.Sprintf("%s@%#x", b.Symbol, b.Address)
}

// AsciiString is a NUL-terminated printable string inside a program image.
// Offset is the file offset of its first byte.
type AsciiString struct {
	Offset int64  `json:"offset"`
	Text   string `json:"text"`
}
