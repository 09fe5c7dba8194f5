// Package elfx opens ELF binaries and exposes the pieces the analyzers need:
// the raw image, function symbols, their bytes and read-only strings.
package elfx

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ianlancetaylor/demangle"

	"github.com/efebarandurmaz/lodestone/internal/disasm"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

// ErrSymbolNotFound is returned when a named function is not in the image.
var ErrSymbolNotFound = errors.New("symbol not found")

// Image is a parsed ELF file together with its raw bytes.
type Image struct {
	Path   string
	File   *elf.File
	All    []byte
	Loads  []Seg
	Text   Section
	Rodata Section

	funcs []Function
}

// Seg is a PT_LOAD segment.
type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

// Section locates a section in memory and in the file.
type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Function is a sized STT_FUNC symbol.
type Function struct {
	Name    string `json:"name"`              // demangled
	Mangled string `json:"mangled,omitempty"` // raw symbol name when it differs
	Addr    uint64 `json:"addr"`
	Size    uint64 `json:"size"`
}

// Open reads and parses the ELF file at path.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse parses an ELF image held in memory. The image keeps data.
func Parse(path string, data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{Path: path, File: f, All: data}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		switch s.Name {
		case ".text":
			im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".rodata":
			im.Rodata = Section{s.Name, s.Addr, s.Offset, s.Size}
		}
	}

	// Stripped binaries: fall back to the first executable / read-only segments.
	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	if im.Rodata.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_R != 0 && l.Flags&(elf.PF_W|elf.PF_X) == 0 && l.Filesz > 0 {
				im.Rodata = Section{"LOAD(ro)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}

	im.funcs = im.loadFunctions()
	return im, nil
}

// Close releases the parsed file.
func (im *Image) Close() error {
	if im.File == nil {
		return nil
	}
	err := im.File.Close()
	im.File = nil
	return err
}

// Arch names the machine in disasm terms, or the ELF machine name for
// architectures without a decoder.
func (im *Image) Arch() string {
	switch im.File.Machine {
	case elf.EM_AARCH64:
		return disasm.ArchARM64
	case elf.EM_X86_64:
		return disasm.ArchAMD64
	case elf.EM_386:
		return disasm.Arch386
	default:
		return im.File.Machine.String()
	}
}

// VA2Off translates a virtual address into a file offset using PT_LOAD
// segments. It returns false if va is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns the file bytes backing [va, va+size).
func (im *Image) SliceVA(va, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	end := off + size
	if end > uint64(len(im.All)) || end < off {
		return nil, false
	}
	return im.All[off:end], true
}

// loadFunctions collects sized function symbols from .symtab, or .dynsym
// when the static table is stripped. One name per address is kept.
func (im *Image) loadFunctions() []Function {
	syms, err := im.File.Symbols()
	if err != nil || len(syms) == 0 {
		syms, _ = im.File.DynamicSymbols()
	}

	seen := make(map[uint64]bool, len(syms))
	var out []Function
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Size == 0 || s.Value == 0 || s.Name == "" {
			continue
		}
		if seen[s.Value] {
			continue
		}
		seen[s.Value] = true

		fn := Function{Name: s.Name, Addr: s.Value, Size: s.Size}
		if d := demangle.Filter(s.Name, demangle.NoClones); d != s.Name {
			fn.Name, fn.Mangled = d, s.Name
		}
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Functions returns the image's functions sorted by address.
func (im *Image) Functions() []Function {
	return im.funcs
}

// FindFunction looks a function up by demangled or raw name.
func (im *Image) FindFunction(name string) (Function, error) {
	for _, fn := range im.funcs {
		if fn.Name == name || (fn.Mangled != "" && fn.Mangled == name) {
			return fn, nil
		}
	}
	return Function{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
}

// FunctionBytes returns the machine code of fn.
func (im *Image) FunctionBytes(fn Function) ([]byte, error) {
	b, ok := im.SliceVA(fn.Addr, fn.Size)
	if !ok {
		return nil, fmt.Errorf("function %s at %#x+%d is not mapped", fn.Name, fn.Addr, fn.Size)
	}
	return b, nil
}

// Program returns the whole file as a program view.
func (im *Image) Program() resource.Program {
	return resource.Program{Name: filepath.Base(im.Path), Data: im.All}
}

// ComplexBlock disassembles fn.
func (im *Image) ComplexBlock(fn Function) (resource.ComplexBlock, error) {
	code, err := im.FunctionBytes(fn)
	if err != nil {
		return resource.ComplexBlock{}, err
	}
	insts, err := disasm.Disassemble(im.Arch(), fn.Addr, code)
	if err != nil {
		return resource.ComplexBlock{}, err
	}
	return resource.ComplexBlock{
		Symbol:   fn.Name,
		Address:  fn.Addr,
		Size:     fn.Size,
		Assembly: disasm.Listing(insts),
	}, nil
}

// ComplexBlocks disassembles the named functions, or every function when
// no names are given.
func (im *Image) ComplexBlocks(names ...string) ([]resource.ComplexBlock, error) {
	fns := im.funcs
	if len(names) > 0 {
		fns = make([]Function, 0, len(names))
		for _, n := range names {
			fn, err := im.FindFunction(n)
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
	}

	blocks := make([]resource.ComplexBlock, 0, len(fns))
	for _, fn := range fns {
		b, err := im.ComplexBlock(fn)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
