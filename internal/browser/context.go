// internal/browser/context.go
package browser

import "context"

// CombineContext returns a context derived from primary that is also canceled
// when secondary is done. Values come from primary only, which is what chromedp
// needs: the tab context carries the CDP target while the operational context
// carries the deadline of one step.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// Detach returns a context that carries ctx's values but is never canceled by it.
// Teardown runs under a detached context so a request that already timed out
// can still release its session.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
