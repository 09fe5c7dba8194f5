// Package temporal runs binary analyses as Temporal workflows: one activity
// per function, plus an optional whole-program summary.
package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
)

// DefaultActivityTimeout bounds one analysis when the input sets none.
const DefaultActivityTimeout = 5 * time.Minute

// BinaryInput holds the workflow parameters. Path must be readable by the
// worker.
type BinaryInput struct {
	Path            string
	Symbols         []string // empty means every function
	IncludeProgram  bool
	ActivityTimeout time.Duration
}

// AnalyzeBinaryWorkflow explains the functions of one binary. Analyses are
// independent, so all activities are started before any result is awaited.
// Activities are never retried: a request is sent at most once.
func AnalyzeBinaryWorkflow(ctx workflow.Context, input BinaryInput) (*analyzers.BinaryReport, error) {
	timeout := input.ActivityTimeout
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	log := workflow.GetLogger(ctx)

	var listing FunctionListing
	if err := workflow.ExecuteActivity(ctx, ListFunctionsActivity, input.Path, input.Symbols).Get(ctx, &listing); err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	log.Info("analyzing binary", "path", input.Path, "arch", listing.Arch, "functions", len(listing.Symbols))

	var program workflow.Future
	if input.IncludeProgram {
		program = workflow.ExecuteActivity(ctx, ProgramActivity, input.Path)
	}
	futures := make([]workflow.Future, len(listing.Symbols))
	for i, sym := range listing.Symbols {
		futures[i] = workflow.ExecuteActivity(ctx, FunctionActivity, FunctionInput{Path: input.Path, Symbol: sym})
	}

	report := &analyzers.BinaryReport{
		Path:      input.Path,
		Arch:      listing.Arch,
		Functions: make([]analyzers.FunctionReport, len(futures)),
	}
	for i, f := range futures {
		if err := f.Get(ctx, &report.Functions[i]); err != nil {
			return nil, fmt.Errorf("function %s: %w", listing.Symbols[i], err)
		}
	}
	if program != nil {
		var pr analyzers.ProgramReport
		if err := program.Get(ctx, &pr); err != nil {
			return nil, fmt.Errorf("program: %w", err)
		}
		report.Program = &pr
	}
	return report, nil
}
