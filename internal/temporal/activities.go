package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/elfx"
)

// FunctionListing names the functions a workflow will analyze.
type FunctionListing struct {
	Arch    string
	Symbols []string
}

// FunctionInput selects one function of a binary.
type FunctionInput struct {
	Path   string
	Symbol string
}

// Dependencies holds the analyzers shared by all activities of a worker.
type Dependencies struct {
	Function *analyzers.FunctionAnalyzer
	Program  *analyzers.ProgramAnalyzer
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

var errNoAnalyzer = errors.New("worker has no analyzer configured")

// ListFunctionsActivity resolves the symbols to analyze. It fails when a
// requested symbol is missing so the workflow stops before any request.
func ListFunctionsActivity(_ context.Context, path string, symbols []string) (FunctionListing, error) {
	im, err := elfx.Open(path)
	if err != nil {
		return FunctionListing{}, err
	}
	defer im.Close()

	out := FunctionListing{Arch: im.Arch()}
	if len(symbols) == 0 {
		for _, fn := range im.Functions() {
			out.Symbols = append(out.Symbols, fn.Name)
		}
		return out, nil
	}
	for _, s := range symbols {
		fn, err := im.FindFunction(s)
		if err != nil {
			return FunctionListing{}, err
		}
		out.Symbols = append(out.Symbols, fn.Name)
	}
	return out, nil
}

// FunctionActivity disassembles and explains one function. Skips and
// provider failures are reported in the result, not as activity errors.
func FunctionActivity(ctx context.Context, in FunctionInput) (analyzers.FunctionReport, error) {
	if deps == nil || deps.Function == nil {
		return analyzers.FunctionReport{}, errNoAnalyzer
	}
	im, err := elfx.Open(in.Path)
	if err != nil {
		return analyzers.FunctionReport{}, err
	}
	defer im.Close()

	fn, err := im.FindFunction(in.Symbol)
	if err != nil {
		return analyzers.FunctionReport{}, err
	}
	block, err := im.ComplexBlock(fn)
	if err != nil {
		return analyzers.FunctionReport{}, fmt.Errorf("disassemble %s: %w", in.Symbol, err)
	}

	res := deps.Function.Analyze(ctx, block)
	activity.GetLogger(ctx).Info("function analyzed", "symbol", in.Symbol, "outcome", string(res.Outcome))
	return analyzers.NewFunctionReport(block, res), nil
}

// ProgramActivity summarizes the whole file.
func ProgramActivity(ctx context.Context, path string) (analyzers.ProgramReport, error) {
	if deps == nil || deps.Program == nil {
		return analyzers.ProgramReport{}, errNoAnalyzer
	}
	im, err := elfx.Open(path)
	if err != nil {
		return analyzers.ProgramReport{}, err
	}
	defer im.Close()

	report, err := deps.Program.Report(ctx, im.Program())
	if err != nil {
		return analyzers.ProgramReport{}, err
	}
	return *report, nil
}
