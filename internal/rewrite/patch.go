package rewrite

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/lodestone/internal/resource"
)

var (
	// ErrPatchTooLong is returned when a replacement does not fit in the
	// storage of the string it replaces.
	ErrPatchTooLong = errors.New("replacement longer than original string")

	// ErrPatchMismatch is returned when the image no longer holds the
	// original string at its offset.
	ErrPatchMismatch = errors.New("image does not contain string at offset")
)

// Patch overwrites s inside image with replacement followed by a NUL. Bytes
// after the new terminator are left as they were.
func Patch(image []byte, s resource.AsciiString, replacement string) error {
	if len(replacement) > len(s.Text) {
		return fmt.Errorf("patch 0x%x: %w (%d > %d)", s.Offset, ErrPatchTooLong, len(replacement), len(s.Text))
	}
	end := s.Offset + int64(len(s.Text))
	if s.Offset < 0 || end >= int64(len(image)) || string(image[s.Offset:end]) != s.Text {
		return fmt.Errorf("patch 0x%x: %w", s.Offset, ErrPatchMismatch)
	}
	n := copy(image[s.Offset:], replacement)
	image[s.Offset+int64(n)] = 0
	return nil
}

// Apply patches every changed result into image and returns how many were
// written. It stops at the first error.
func Apply(image []byte, results []Result) (int, error) {
	patched := 0
	for _, r := range results {
		if !r.Changed() {
			continue
		}
		if err := Patch(image, resource.AsciiString{Offset: r.Offset, Text: r.Original}, r.Rewritten); err != nil {
			return patched, err
		}
		patched++
	}
	return patched, nil
}
