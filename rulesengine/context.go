package rulesengine

import "context"

// ExecutionContext carries the run's cancellation plumbing through a rule
// evaluation. Unlike the boolean engine this replaces, conditions here
// never short-circuit (every child's score is needed for the weighted
// aggregate), so this no longer tracks a StopEarly flag. Engine.Stop()
// only flips the engine's status; Engine.Run checks that status between
// priority buckets and calls Cancel when it stops early or returns.
type ExecutionContext struct {
	context.Context
	Cancel context.CancelFunc
}

func NewExecutionContext(ctx context.Context) *ExecutionContext {
	ctx, cancel := context.WithCancel(ctx)
	return &ExecutionContext{Context: ctx, Cancel: cancel}
}
