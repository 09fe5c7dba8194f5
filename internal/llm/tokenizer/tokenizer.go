// Package tokenizer estimates prompt sizes in model tokens.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoder turns text into token ids.
type Encoder interface {
	Encode(text string) []int
}

// Count returns the number of tokens enc produces for text.
func Count(enc Encoder, text string) int {
	return len(enc.Encode(text))
}

var loaderOnce sync.Once

// useOfflineLoader makes tiktoken read its BPE ranks from the embedded
// loader instead of downloading them.
func useOfflineLoader() {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

type tiktokenEncoder struct {
	tk *tiktoken.Tiktoken
}

func (e tiktokenEncoder) Encode(text string) []int {
	// Special-token text is encoded as ordinary text.
	return e.tk.Encode(text, nil, nil)
}

// ForModel returns the encoder tiktoken associates with model.
func ForModel(model string) (Encoder, error) {
	useOfflineLoader()
	tk, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer for model %q: %w", model, err)
	}
	return tiktokenEncoder{tk: tk}, nil
}

// ForEncoding returns the encoder registered under name, e.g. "cl100k_base".
func ForEncoding(name string) (Encoder, error) {
	useOfflineLoader()
	tk, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("tokenizer encoding %q: %w", name, err)
	}
	return tiktokenEncoder{tk: tk}, nil
}

// Func adapts a plain function to Encoder.
type Func func(text string) []int

func (f Func) Encode(text string) []int { return f(text) }
