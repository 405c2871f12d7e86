package aisen

import "context"

type (
	hubKey       struct{}
	contextIDKey struct{}
)

// WithHub returns a context carrying hub. Capture helpers called with the
// returned context, at any call depth, report through hub.
func WithHub(ctx context.Context, hub *Hub) context.Context {
	return context.WithValue(ctx, hubKey{}, hub)
}

// HubFromContext extracts the hub bound by WithHub.
// Returns nil and false if none is set.
func HubFromContext(ctx context.Context) (*Hub, bool) {
	hub, ok := ctx.Value(hubKey{}).(*Hub)
	return hub, ok && hub != nil
}

// CurrentHub returns the hub bound to ctx, falling back to the default hub.
func CurrentHub(ctx context.Context) *Hub {
	if hub, ok := HubFromContext(ctx); ok {
		return hub
	}
	return DefaultHub()
}

// CaptureError captures err through the hub bound to ctx.
func CaptureError(ctx context.Context, err error) EventID {
	return CurrentHub(ctx).CaptureError(ctx, err)
}

// CaptureEvent captures event through the hub bound to ctx.
func CaptureEvent(ctx context.Context, event ErrorEvent) EventID {
	return CurrentHub(ctx).CaptureEvent(ctx, event)
}

// ConfigureScope configures the scope of the hub bound to ctx.
//
// Without a bound hub this configures the default hub, which affects every
// later event in the process.
func ConfigureScope(ctx context.Context, fn func(scope *Scope)) {
	CurrentHub(ctx).ConfigureScope(fn)
}

// WithContextID links events captured with the returned context to an
// existing cxdb context. Zero is a valid ID.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextID)
}

// ContextIDFromContext reports the cxdb context ID set by WithContextID.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(contextIDKey{}).(uint64)
	return id, ok
}
