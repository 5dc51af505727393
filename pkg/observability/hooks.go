// Package observability lets binaries watch what the libraries do.
//
// Registry fetches, cache lookups, outgoing HTTP requests and diagnostics
// refreshes each report through a small interface. Nothing is reported until
// a binary installs a receiver; the defaults discard every event:
//
//	observability.SetRegistryHooks(observability.NewLogHooks(logger))
//
// [LogHooks] implements every interface and writes debug lines.
package observability

import (
	"context"
	"sync"
	"time"
)

// RegistryHooks sees registry fetches. Kind is "tree", "author", "package"
// or "config" and key names the object.
type RegistryHooks interface {
	OnFetchStart(ctx context.Context, registry, kind, key string)
	OnFetchComplete(ctx context.Context, registry, kind, key string, duration time.Duration, err error)
	OnInvalidate(ctx context.Context, registry string)
}

// DiagnosticsHooks sees document refreshes. Discarded is set when the
// results were dropped because the document changed or closed meanwhile.
type DiagnosticsHooks interface {
	OnRefreshStart(ctx context.Context, uri string, dependencies int)
	OnRefreshComplete(ctx context.Context, uri string, findings int, duration time.Duration, discarded bool)
}

// CacheHooks sees content cache traffic by key type.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks sees requests to registry hosts.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

type NoopRegistryHooks struct{}

func (NoopRegistryHooks) OnFetchStart(context.Context, string, string, string) {}
func (NoopRegistryHooks) OnFetchComplete(context.Context, string, string, string, time.Duration, error) {
}
func (NoopRegistryHooks) OnInvalidate(context.Context, string) {}

type NoopDiagnosticsHooks struct{}

func (NoopDiagnosticsHooks) OnRefreshStart(context.Context, string, int)                         {}
func (NoopDiagnosticsHooks) OnRefreshComplete(context.Context, string, int, time.Duration, bool) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// installed holds the active receivers.
var installed = struct {
	sync.RWMutex
	registry    RegistryHooks
	diagnostics DiagnosticsHooks
	cache       CacheHooks
	http        HTTPHooks
}{
	registry:    NoopRegistryHooks{},
	diagnostics: NoopDiagnosticsHooks{},
	cache:       NoopCacheHooks{},
	http:        NoopHTTPHooks{},
}

// set stores h into *slot under the write lock unless h is nil.
func set[T any](slot *T, h T, isNil bool) {
	if isNil {
		return
	}
	installed.Lock()
	*slot = h
	installed.Unlock()
}

func get[T any](slot *T) T {
	installed.RLock()
	defer installed.RUnlock()
	return *slot
}

// SetRegistryHooks installs h. Nil is ignored, as for the other setters.
func SetRegistryHooks(h RegistryHooks) { set(&installed.registry, h, h == nil) }

func SetDiagnosticsHooks(h DiagnosticsHooks) { set(&installed.diagnostics, h, h == nil) }

func SetCacheHooks(h CacheHooks) { set(&installed.cache, h, h == nil) }

func SetHTTPHooks(h HTTPHooks) { set(&installed.http, h, h == nil) }

func Registry() RegistryHooks       { return get(&installed.registry) }
func Diagnostics() DiagnosticsHooks { return get(&installed.diagnostics) }
func Cache() CacheHooks             { return get(&installed.cache) }
func HTTP() HTTPHooks               { return get(&installed.http) }

// Reset puts the discarding defaults back.
func Reset() {
	installed.Lock()
	defer installed.Unlock()
	installed.registry = NoopRegistryHooks{}
	installed.diagnostics = NoopDiagnosticsHooks{}
	installed.cache = NoopCacheHooks{}
	installed.http = NoopHTTPHooks{}
}
