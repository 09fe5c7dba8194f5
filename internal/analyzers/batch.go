package analyzers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/lodestone/internal/resource"
)

// AnalyzeAll runs the function analyzer over blocks with at most
// concurrency calls in flight. Reports keep the order of blocks. Each
// analysis is independent: a skipped or failed function does not stop the
// others, only cancellation of ctx does.
func (a *FunctionAnalyzer) AnalyzeAll(ctx context.Context, blocks []resource.ComplexBlock, concurrency int) ([]FunctionReport, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	reports := make([]FunctionReport, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, block := range blocks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reports[i] = NewFunctionReport(block, a.Analyze(gctx, block))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}
