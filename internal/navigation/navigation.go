// Package navigation carries route signals from the account lifecycle back to the
// client that started the operation.
package navigation

import (
	"context"
	"sync"
)

const (
	RouteLanding = "/"
	RouteLogin   = "/login"
	RouteHome    = "/home"
	RouteDetails = "/login/details"
)

type Navigator interface {
	NavigateTo(ctx context.Context, route string)
	// ForceReload asks for a full page load, dropping all client state.
	ForceReload(ctx context.Context, route string)
}

// Signal is the last navigation requested during an operation.
type Signal struct {
	Route  string `json:"route"`
	Reload bool   `json:"reload"`
}

// Recorder collects the signal for one request.
type Recorder struct {
	mu     sync.Mutex
	signal *Signal
}

func (r *Recorder) set(route string, reload bool) {
	r.mu.Lock()
	r.signal = &Signal{Route: route, Reload: reload}
	r.mu.Unlock()
}

// Signal returns nil when nothing was requested.
func (r *Recorder) Signal() *Signal {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.signal == nil {
		return nil
	}
	s := *r.signal
	return &s
}

type recorderKey struct{}

func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func RecorderFromContext(ctx context.Context) *Recorder {
	if ctx == nil {
		return nil
	}
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}

// ContextNavigator writes signals into the request's Recorder. Calls without a
// recorder are dropped.
type ContextNavigator struct{}

func New() Navigator {
	return ContextNavigator{}
}

func (ContextNavigator) NavigateTo(ctx context.Context, route string) {
	if rec := RecorderFromContext(ctx); rec != nil {
		rec.set(route, false)
	}
}

func (ContextNavigator) ForceReload(ctx context.Context, route string) {
	if rec := RecorderFromContext(ctx); rec != nil {
		rec.set(route, true)
	}
}
