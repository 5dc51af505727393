package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event as a debug line.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks logging through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger.WithPrefix("trace")}
}

// Install registers h for every event kind.
func (h *LogHooks) Install() {
	SetRegistryHooks(h)
	SetDiagnosticsHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnFetchStart(_ context.Context, registry, kind, key string) {
	h.logger.Debug("fetch", "registry", registry, "kind", kind, "key", key)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, registry, kind, key string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("fetch failed", "registry", registry, "kind", kind, "key", key, "took", d, "err", err)
		return
	}
	h.logger.Debug("fetched", "registry", registry, "kind", kind, "key", key, "took", d)
}

func (h *LogHooks) OnInvalidate(_ context.Context, registry string) {
	h.logger.Debug("invalidated", "registry", registry)
}

func (h *LogHooks) OnRefreshStart(_ context.Context, uri string, dependencies int) {
	h.logger.Debug("refresh", "uri", uri, "dependencies", dependencies)
}

func (h *LogHooks) OnRefreshComplete(_ context.Context, uri string, findings int, d time.Duration, discarded bool) {
	h.logger.Debug("refreshed", "uri", uri, "findings", findings, "took", d, "discarded", discarded)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path, "status", status, "took", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ RegistryHooks    = (*LogHooks)(nil)
	_ DiagnosticsHooks = (*LogHooks)(nil)
	_ CacheHooks       = (*LogHooks)(nil)
	_ HTTPHooks        = (*LogHooks)(nil)
)
