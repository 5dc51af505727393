package diagnostics

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/wallyscope/pkg/manifest"
	"github.com/matzehuels/wallyscope/pkg/observability"
	"github.com/matzehuels/wallyscope/pkg/registry"
)

// Publisher receives the finding set of a document whenever it changes.
type Publisher interface {
	Publish(uri string, findings []Finding)
	Clear(uri string)
}

// Collection is an in-memory [Publisher].
type Collection struct {
	mu   sync.RWMutex
	sets map[string][]Finding
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{sets: make(map[string][]Finding)}
}

// Publish replaces the findings stored for uri.
func (c *Collection) Publish(uri string, findings []Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[uri] = slices.Clone(findings)
}

// Clear forgets uri.
func (c *Collection) Clear(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, uri)
}

// Get returns the findings stored for uri.
func (c *Collection) Get(uri string) ([]Finding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fs, ok := c.sets[uri]
	return slices.Clone(fs), ok
}

// URIs lists the documents with a published set, sorted.
func (c *Collection) URIs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sets))
	for uri := range c.sets {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

type document struct {
	text string
	gen  uint64
}

// Engine keeps the findings of a set of tracked manifests current.
//
// Every refresh bumps the document's generation. A refresh only publishes if,
// once its registry lookups settle, the document is still tracked, still at
// the same generation and diagnostics are still enabled; otherwise its
// results are dropped.
type Engine struct {
	checker   *Checker
	cfg       settings
	publisher Publisher

	mu       sync.Mutex
	enabled  bool
	docs     map[string]*document
	findings map[string][]Finding
}

// NewEngine creates an enabled engine. Findings go to an in-memory
// [Collection] unless [WithPublisher] is given.
func NewEngine(store *registry.Store, opts ...Option) *Engine {
	cfg := buildSettings(opts)
	pub := cfg.publisher
	if pub == nil {
		pub = NewCollection()
	}
	return &Engine{
		checker:   &Checker{store: store, cfg: cfg},
		cfg:       cfg,
		publisher: pub,
		enabled:   true,
		docs:      make(map[string]*document),
		findings:  make(map[string][]Finding),
	}
}

// Publisher returns where findings are published.
func (e *Engine) Publisher() Publisher { return e.publisher }

// Enabled reports whether diagnostics are on.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Open starts tracking uri and validates it. Documents that are already
// tracked are left alone.
func (e *Engine) Open(ctx context.Context, uri, text string) {
	e.mu.Lock()
	_, tracked := e.docs[uri]
	e.mu.Unlock()
	if !tracked {
		e.Refresh(ctx, uri, text)
	}
}

// Refresh validates text as the new content of uri, tracking the document if
// it was not tracked yet. It returns the published findings and true, or
// false when the results were discarded.
func (e *Engine) Refresh(ctx context.Context, uri, text string) ([]Finding, bool) {
	e.mu.Lock()
	doc, ok := e.docs[uri]
	if !ok {
		doc = &document{}
		e.docs[uri] = doc
	}
	doc.text = text
	doc.gen++
	gen := doc.gen
	enabled := e.enabled
	if !enabled {
		delete(e.findings, uri)
		e.publisher.Clear(uri)
	}
	e.mu.Unlock()

	if !enabled {
		return nil, false
	}

	start := time.Now()
	hooks := observability.Diagnostics()

	var findings []Finding
	m, err := manifest.Parse(text)
	if err != nil {
		e.cfg.logger.Debug("manifest does not parse, nothing to validate", "uri", uri, "err", err)
		hooks.OnRefreshStart(ctx, uri, 0)
	} else {
		hooks.OnRefreshStart(ctx, uri, m.Dependencies.Len())
		findings = e.checker.Check(ctx, m)
	}

	e.mu.Lock()
	cur, ok := e.docs[uri]
	stale := !ok || cur != doc || cur.gen != gen || !e.enabled || ctx.Err() != nil
	if !stale {
		e.findings[uri] = findings
		e.publisher.Publish(uri, findings)
	}
	e.mu.Unlock()

	hooks.OnRefreshComplete(ctx, uri, len(findings), time.Since(start), stale)
	if stale {
		e.cfg.logger.Debug("discarding stale diagnostics", "uri", uri)
		return nil, false
	}
	switch n := len(findings); {
	case n == 1:
		e.cfg.logger.Debug("diagnosed 1 manifest issue", "uri", uri)
	case n > 1:
		e.cfg.logger.Debug("diagnosed manifest issues", "uri", uri, "count", n)
	}
	return findings, true
}

// Delete stops tracking uri and clears its findings.
func (e *Engine) Delete(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.docs[uri]; !ok {
		return
	}
	delete(e.docs, uri)
	delete(e.findings, uri)
	e.publisher.Clear(uri)
}

// RefreshAll revalidates every tracked document concurrently.
func (e *Engine) RefreshAll(ctx context.Context) {
	e.mu.Lock()
	texts := make(map[string]string, len(e.docs))
	for uri, d := range e.docs {
		texts[uri] = d.text
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	for uri, text := range texts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Refresh(ctx, uri, text)
		}()
	}
	wg.Wait()
}

// SetEnabled turns diagnostics on or off. A change revalidates every tracked
// document, which clears their findings when disabling.
func (e *Engine) SetEnabled(ctx context.Context, enabled bool) {
	e.mu.Lock()
	changed := e.enabled != enabled
	e.enabled = enabled
	e.mu.Unlock()
	if changed {
		e.RefreshAll(ctx)
	}
}

// Tracked lists tracked documents, sorted.
func (e *Engine) Tracked() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.docs))
	for uri := range e.docs {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// Findings returns the last published findings for uri.
func (e *Engine) Findings(uri string) []Finding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.findings[uri])
}

// Summary counts the findings of uri.
func (e *Engine) Summary(uri string) Summary {
	return Summarize(e.Findings(uri))
}

// Total counts the findings across every tracked document.
func (e *Engine) Total() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	var s Summary
	for _, fs := range e.findings {
		s = s.Add(Summarize(fs))
	}
	return s
}
