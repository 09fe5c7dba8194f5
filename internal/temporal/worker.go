package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Register adds the workflow and its activities to w.
func Register(w worker.Worker) {
	w.RegisterWorkflow(AnalyzeBinaryWorkflow)
	w.RegisterActivity(ListFunctionsActivity)
	w.RegisterActivity(FunctionActivity)
	w.RegisterActivity(ProgramActivity)
}

// StartWorker creates and starts a Temporal worker. Call SetDependencies
// first.
func StartWorker(c client.Client, taskQueue string, concurrency int) (worker.Worker, error) {
	opts := worker.Options{}
	if concurrency > 0 {
		opts.MaxConcurrentActivityExecutionSize = concurrency
	}
	w := worker.New(c, taskQueue, opts)
	Register(w)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}
