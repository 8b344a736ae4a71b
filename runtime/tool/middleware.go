package tool

import "context"

// Next invokes the remainder of the middleware chain (and ultimately the
// tool itself). Implementations enforce that Next is consumed at most once
// per Middleware invocation: calling it twice panics.
type Next interface {
	Run(ctx context.Context, call Call) (Result, error)
}

// Middleware inspects or modifies a Call, and either short-circuits by
// returning a Result without invoking next, or forwards by calling
// next.Run(ctx, call) exactly once.
type Middleware func(ctx context.Context, call Call, next Next) (Result, error)

// nextFunc adapts a function into a Next, panicking if invoked more than
// once so chain authors notice a double-call bug immediately rather than
// silently re-executing a tool.
type nextFunc struct {
	called bool
	fn     func(ctx context.Context, call Call) (Result, error)
}

func (n *nextFunc) Run(ctx context.Context, call Call) (Result, error) {
	if n.called {
		panic("tool: Next invoked more than once")
	}
	n.called = true
	return n.fn(ctx, call)
}

// chain composes middlewares (outermost first) around a terminal handler,
// returning a single Next representing the head of the pipeline.
func chain(mws []Middleware, terminal func(ctx context.Context, call Call) (Result, error)) Next {
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		prevNext := next
		next = func(ctx context.Context, call Call) (Result, error) {
			return mw(ctx, call, &nextFunc{fn: prevNext})
		}
	}
	return &nextFunc{fn: next}
}
