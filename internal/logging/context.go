package logging

import "context"

type ctxKey struct{}

// ContextWith returns a copy of ctx carrying key-value pairs. Both backends
// add them to every record logged with that context, before the call args.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := fromContext(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKey{}).([]any)
	return v
}

func withContextArgs(ctx context.Context, args []any) []any {
	extra := fromContext(ctx)
	if len(extra) == 0 {
		return args
	}
	out := make([]any, 0, len(extra)+len(args))
	out = append(out, extra...)
	return append(out, args...)
}
