// Package elfxtest builds small ELF64 images for tests.
package elfxtest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// BaseVA is where the single PT_LOAD segment of a built image is mapped.
const BaseVA = 0x400000

const textOff = 0x100

// Func is a function symbol placed in .text. Code is laid out in order.
type Func struct {
	Name string
	Code []byte
}

// Spec describes an image to build.
type Spec struct {
	Machine elf.Machine
	Funcs   []Func
	// Rodata is copied verbatim into .rodata.
	Rodata []byte
	// Strip omits .symtab and .strtab.
	Strip bool
}

// Layout reports where Build placed things.
type Layout struct {
	FuncAddrs  []uint64
	RodataOff  uint64
	RodataAddr uint64
}

// Build returns the encoded image and its layout.
func Build(s Spec) ([]byte, Layout) {
	var lay Layout

	var text []byte
	for _, f := range s.Funcs {
		lay.FuncAddrs = append(lay.FuncAddrs, BaseVA+textOff+uint64(len(text)))
		text = append(text, f.Code...)
	}

	body := make([]byte, textOff)
	body = append(body, text...)
	body = pad(body, 8)
	lay.RodataOff = uint64(len(body))
	lay.RodataAddr = BaseVA + lay.RodataOff
	body = append(body, s.Rodata...)

	// String and symbol tables.
	strtab := []byte{0}
	symbols := []elf.Sym64{{}}
	for i, f := range s.Funcs {
		symbols = append(symbols, elf.Sym64{
			Name:  uint32(len(strtab)),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
			Shndx: 1,
			Value: lay.FuncAddrs[i],
			Size:  uint64(len(f.Code)),
		})
		strtab = append(strtab, f.Name...)
		strtab = append(strtab, 0)
	}

	names := []string{"", ".text", ".rodata", ".shstrtab", ".symtab", ".strtab"}
	if s.Strip {
		names = names[:4]
	}
	shstrtab := []byte{0}
	nameOff := make([]uint32, len(names))
	for i, n := range names[1:] {
		nameOff[i+1] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, n...)
		shstrtab = append(shstrtab, 0)
	}

	body = pad(body, 8)
	shstrOff := uint64(len(body))
	body = append(body, shstrtab...)

	var symOff, strOff uint64
	if !s.Strip {
		body = pad(body, 8)
		symOff = uint64(len(body))
		var sb bytes.Buffer
		binary.Write(&sb, binary.LittleEndian, symbols)
		body = append(body, sb.Bytes()...)
		strOff = uint64(len(body))
		body = append(body, strtab...)
	}

	body = pad(body, 8)
	shOff := uint64(len(body))

	sections := []elf.Section64{
		{},
		{
			Name: nameOff[1], Type: uint32(elf.SHT_PROGBITS),
			Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:  BaseVA + textOff, Off: textOff, Size: uint64(len(text)), Addralign: 4,
		},
		{
			Name: nameOff[2], Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC),
			Addr: lay.RodataAddr, Off: lay.RodataOff, Size: uint64(len(s.Rodata)), Addralign: 1,
		},
		{
			Name: nameOff[3], Type: uint32(elf.SHT_STRTAB),
			Off: shstrOff, Size: uint64(len(shstrtab)), Addralign: 1,
		},
	}
	if !s.Strip {
		sections = append(sections,
			elf.Section64{
				Name: nameOff[4], Type: uint32(elf.SHT_SYMTAB),
				Off: symOff, Size: uint64(len(symbols) * 24),
				Link: 5, Info: 1, Addralign: 8, Entsize: 24,
			},
			elf.Section64{
				Name: nameOff[5], Type: uint32(elf.SHT_STRTAB),
				Off: strOff, Size: uint64(len(strtab)), Addralign: 1,
			},
		)
	}

	var shdrs bytes.Buffer
	binary.Write(&shdrs, binary.LittleEndian, sections)
	total := shOff + uint64(shdrs.Len())

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(s.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     BaseVA + textOff,
		Phoff:     64,
		Shoff:     shOff,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     1,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  3,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  BaseVA,
		Paddr:  BaseVA,
		Filesz: total,
		Memsz:  total,
		Align:  0x1000,
	}

	var head bytes.Buffer
	binary.Write(&head, binary.LittleEndian, hdr)
	binary.Write(&head, binary.LittleEndian, prog)
	copy(body, head.Bytes())

	return append(body, shdrs.Bytes()...), lay
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}
