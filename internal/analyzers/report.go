package analyzers

import (
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/resource"
)

// FunctionReport is the serializable form of a function Result.
type FunctionReport struct {
	Symbol       string  `json:"symbol" jsonschema:"description=Symbol name of the function"`
	Address      uint64  `json:"address,omitempty"`
	Outcome      Outcome `json:"outcome" jsonschema:"enum=sent,enum=skipped,enum=failed"`
	Description  string  `json:"description,omitempty"`
	Code         string  `json:"code,omitempty" jsonschema:"description=First fenced code block of the description"`
	PromptTokens int     `json:"prompt_tokens,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// NewFunctionReport flattens r for block.
func NewFunctionReport(block resource.ComplexBlock, r Result) FunctionReport {
	rep := FunctionReport{
		Symbol:       block.Symbol,
		Address:      block.Address,
		Outcome:      r.Outcome,
		Description:  r.Description(),
		Code:         llm.ExtractCode(r.Description()),
		PromptTokens: r.PromptTokens,
		MaxTokens:    r.MaxTokens,
	}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	return rep
}

// ProgramReport is the serializable form of a program analysis.
type ProgramReport struct {
	Name        string `json:"name"`
	Size        int    `json:"size"`
	Chunks      int    `json:"chunks"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

// BinaryReport collects every analysis run on one binary.
type BinaryReport struct {
	Path      string           `json:"path"`
	Arch      string           `json:"arch,omitempty"`
	Program   *ProgramReport   `json:"program,omitempty"`
	Functions []FunctionReport `json:"functions,omitempty"`
}

// Counts tallies function outcomes.
func (b *BinaryReport) Counts() map[Outcome]int {
	out := make(map[Outcome]int, 3)
	for _, f := range b.Functions {
		out[f.Outcome]++
	}
	return out
}
