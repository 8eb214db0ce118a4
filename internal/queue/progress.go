package queue

import "context"

type progressKey struct{}

// ProgressFunc receives progress updates from a running handler.
type ProgressFunc func(progress int)

// WithProgress attaches a progress reporter to ctx.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress records handler progress (clamped to 0..100).
// It is a no-op when ctx carries no reporter.
func ReportProgress(ctx context.Context, progress int) {
	fn, ok := ctx.Value(progressKey{}).(ProgressFunc)
	if !ok {
		return
	}
	fn(min(100, max(0, progress)))
}
