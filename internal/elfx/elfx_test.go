package elfx

import (
	"debug/elf"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/lodestone/internal/elfx/elfxtest"
)

var (
	arm64Ret = []byte{0xc0, 0x03, 0x5f, 0xd6}
	arm64Nop = []byte{0x1f, 0x20, 0x03, 0xd5}
	arm64Mov = []byte{0xe1, 0x03, 0x00, 0xaa}
)

func buildImage(t *testing.T, spec elfxtest.Spec) (*Image, elfxtest.Layout) {
	t.Helper()
	data, lay := elfxtest.Build(spec)
	im, err := Parse("testbin", data)
	if err != nil {
		t.Fatalf("parse built image: %v", err)
	}
	t.Cleanup(func() { im.Close() })
	return im, lay
}

func arm64Spec() elfxtest.Spec {
	return elfxtest.Spec{
		Machine: elf.EM_AARCH64,
		Funcs: []elfxtest.Func{
			{Name: "main", Code: append(append([]byte{}, arm64Mov...), arm64Ret...)},
			{Name: "_ZN3foo3barEv", Code: append(append([]byte{}, arm64Nop...), arm64Ret...)},
		},
		Rodata: []byte("hi\x00Hello, %s! You have %d messages.\x00\x01\x02short\x00"),
	}
}

func TestParse_Functions(t *testing.T) {
	im, lay := buildImage(t, arm64Spec())

	if im.Arch() != "arm64" {
		t.Errorf("expected arm64, got %q", im.Arch())
	}
	fns := im.Functions()
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].Name != "main" || fns[0].Addr != lay.FuncAddrs[0] || fns[0].Size != 8 {
		t.Errorf("unexpected first function %+v", fns[0])
	}
	if fns[1].Name != "foo::bar()" || fns[1].Mangled != "_ZN3foo3barEv" {
		t.Errorf("expected demangled name, got %+v", fns[1])
	}
}

func TestFindFunction(t *testing.T) {
	im, _ := buildImage(t, arm64Spec())

	for _, name := range []string{"foo::bar()", "_ZN3foo3barEv"} {
		if fn, err := im.FindFunction(name); err != nil || fn.Mangled != "_ZN3foo3barEv" {
			t.Errorf("FindFunction(%q) = %+v, %v", name, fn, err)
		}
	}
	if _, err := im.FindFunction("missing"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestComplexBlocks(t *testing.T) {
	im, lay := buildImage(t, arm64Spec())

	blocks, err := im.ComplexBlocks("main")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Symbol != "main" || b.Address != lay.FuncAddrs[0] {
		t.Errorf("unexpected block %+v", b)
	}
	lines := strings.Split(b.Assembly, "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "\tret") {
		t.Errorf("unexpected listing %q", b.Assembly)
	}

	all, err := im.ComplexBlocks()
	if err != nil || len(all) != 2 {
		t.Fatalf("expected all functions, got %d, %v", len(all), err)
	}
	if _, err := im.ComplexBlocks("nope"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestStrings(t *testing.T) {
	im, lay := buildImage(t, arm64Spec())

	got := im.Strings(4)
	if len(got) != 2 {
		t.Fatalf("expected 2 strings, got %+v", got)
	}
	if got[0].Text != "Hello, %s! You have %d messages." || got[0].Offset != int64(lay.RodataOff)+3 {
		t.Errorf("unexpected first string %+v", got[0])
	}
	if got[1].Text != "short" {
		t.Errorf("unexpected second string %+v", got[1])
	}
	if string(im.All[got[0].Offset:got[0].Offset+5]) != "Hello" {
		t.Error("offset does not point at the string in the file")
	}
}

func TestScanStrings(t *testing.T) {
	got := ScanStrings([]byte("abc\x00\xffdef\x00gh\x00tail"), 100, 3)
	if len(got) != 2 || got[0].Offset != 100 || got[1].Offset != 105 || got[1].Text != "def" {
		t.Errorf("unexpected scan %+v", got)
	}
}

func TestStrings_RodataPastEOF(t *testing.T) {
	im, _ := buildImage(t, arm64Spec())
	im.Rodata.Off = uint64(len(im.All)) + 16
	if got := im.Strings(1); got != nil {
		t.Errorf("expected no strings, got %+v", got)
	}
}

func TestStrippedImage(t *testing.T) {
	spec := arm64Spec()
	spec.Strip = true
	im, _ := buildImage(t, spec)
	if len(im.Functions()) != 0 {
		t.Errorf("stripped image should have no functions, got %d", len(im.Functions()))
	}
	if im.Text.Size == 0 {
		t.Error("expected .text section")
	}
}

func TestOpen(t *testing.T) {
	data, _ := elfxtest.Build(arm64Spec())
	path := filepath.Join(t.TempDir(), "prog.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	im, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer im.Close()

	prog := im.Program()
	if prog.Name != "prog.elf" || len(prog.Data) != len(data) {
		t.Errorf("unexpected program view %s/%d", prog.Name, len(prog.Data))
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse("junk", []byte("not an elf")); err == nil {
		t.Error("expected error for non-ELF data")
	}
}

func TestSliceVA(t *testing.T) {
	im, lay := buildImage(t, arm64Spec())
	b, ok := im.SliceVA(lay.FuncAddrs[0], 4)
	if !ok || string(b) != string(arm64Mov) {
		t.Errorf("SliceVA = %x, %v", b, ok)
	}
	if _, ok := im.SliceVA(0x10, 4); ok {
		t.Error("expected unmapped VA to fail")
	}
}
