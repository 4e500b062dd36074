// Package now provides a function to return the current time that is also
// easily overridden for testing.
package now

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type contextKeyType string

// ContextKey is used by tests to make the time deterministic. The associated
// value may be either a time.Time or a NowProvider:
//
//	ctx = context.WithValue(ctx, now.ContextKey, time.Unix(0, 12).UTC())
const ContextKey contextKeyType = "overwriteNow"

// NowProvider is a function whose return value is used as the current time
// every time Now is called with a context carrying it. It must be threadsafe
// if the context is shared across goroutines.
type NowProvider func() time.Time

// Now returns the current time, or the time stashed in the context.
func Now(ctx context.Context) time.Time {
	if v := ctx.Value(ContextKey); v != nil {
		switch t := v.(type) {
		case NowProvider:
			return t()
		case time.Time:
			return t
		default:
			panic(fmt.Sprintf("Unknown value for ContextKey: %v", v))
		}
	}
	return time.Now()
}

// TimeTravelCtx is a context.Context whose apparent time can be changed
// mid-test:
//
//	ctx := now.TimeTravelingContext(start)
//	first := doSomething(ctx)
//	ctx.SetTime(start.Add(30 * time.Hour))
//	second := doSomething(ctx)
type TimeTravelCtx struct {
	context.Context

	mtx sync.RWMutex
	ts  time.Time
}

// TimeTravelingContext returns a *TimeTravelCtx reporting the given time,
// derived from the background context.
func TimeTravelingContext(start time.Time) *TimeTravelCtx {
	t := &TimeTravelCtx{ts: start}
	t.Context = context.WithValue(context.Background(), ContextKey, NowProvider(t.now))
	return t
}

func (t *TimeTravelCtx) now() time.Time {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.ts
}

// SetTime changes the time subsequently reported by Now for this context.
func (t *TimeTravelCtx) SetTime(ts time.Time) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.ts = ts
}
