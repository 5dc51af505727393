package diagnostics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wallyscope/pkg/observability"
	"github.com/matzehuels/wallyscope/pkg/registry"
)

const (
	uriA = "file:///game/wally.toml"
	uriB = "file:///lib/wally.toml"

	outdatedManifest = "[dependencies]\nPromise = \"evaera/promise@3.0.0\"\n"
	brokenManifest   = "[dependencies]\nPromise = \"acme/widget@1.0.0\"\nRealm = \"evaera\"\n"
)

func newTestEngine(src registry.Source, opts ...Option) (*Engine, *Collection) {
	col := NewCollection()
	opts = append([]Option{WithLogger(quiet()), WithPublisher(col)}, opts...)
	return NewEngine(newTestStore(src), opts...), col
}

func TestEngineOpenRefreshDelete(t *testing.T) {
	ctx := context.Background()
	e, col := newTestEngine(fakeRegistry())

	e.Open(ctx, uriA, outdatedManifest)
	fs, ok := col.Get(uriA)
	require.True(t, ok)
	require.Len(t, fs, 1)
	assert.Equal(t, CodeNewerVersion, fs[0].Code)
	assert.Equal(t, Summary{Upgrades: 1, Total: 1}, e.Summary(uriA))

	// Open on a tracked document does nothing.
	e.Open(ctx, uriA, brokenManifest)
	assert.Len(t, e.Findings(uriA), 1)

	fs, ok = e.Refresh(ctx, uriA, brokenManifest)
	require.True(t, ok)
	assert.Len(t, fs, 2)
	assert.Equal(t, Summary{Errors: 1, Warnings: 1, Total: 2}, e.Summary(uriA))

	e.Delete(uriA)
	_, ok = col.Get(uriA)
	assert.False(t, ok)
	assert.Empty(t, e.Findings(uriA))
	assert.Empty(t, e.Tracked())
}

func TestEngineRefreshTracksUnknownDocuments(t *testing.T) {
	e, _ := newTestEngine(fakeRegistry())
	_, ok := e.Refresh(context.Background(), uriB, outdatedManifest)
	assert.True(t, ok)
	assert.Equal(t, []string{uriB}, e.Tracked())
}

func TestEngineParseFailurePublishesNothing(t *testing.T) {
	ctx := context.Background()
	e, col := newTestEngine(fakeRegistry())

	e.Open(ctx, uriA, brokenManifest)
	require.NotEmpty(t, e.Findings(uriA))

	fs, ok := e.Refresh(ctx, uriA, "[dependencies]\nPromise = \"evaera/prom")
	assert.True(t, ok)
	assert.Empty(t, fs)
	published, ok := col.Get(uriA)
	assert.True(t, ok)
	assert.Empty(t, published)
}

func TestEngineSetEnabled(t *testing.T) {
	ctx := context.Background()
	e, col := newTestEngine(fakeRegistry())
	e.Open(ctx, uriA, outdatedManifest)
	e.Open(ctx, uriB, brokenManifest)
	assert.Equal(t, Summary{Errors: 1, Warnings: 1, Upgrades: 1, Total: 3}, e.Total())

	e.SetEnabled(ctx, false)
	assert.False(t, e.Enabled())
	assert.Empty(t, col.URIs())
	assert.Equal(t, Summary{}, e.Total())
	assert.Len(t, e.Tracked(), 2, "documents stay tracked while disabled")

	_, ok := e.Refresh(ctx, uriA, outdatedManifest)
	assert.False(t, ok)

	e.SetEnabled(ctx, true)
	assert.Equal(t, []string{uriA, uriB}, col.URIs())
	assert.Equal(t, 3, e.Total().Total)
}

// gatedSource blocks root tree reads until released.
type gatedSource struct {
	registry.Source
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Tree(ctx context.Context, repo registry.Repo, ref string) ([]registry.TreeItem, error) {
	if ref == registry.DefaultRef {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Source.Tree(ctx, repo, ref)
}

type discardHooks struct {
	observability.NoopDiagnosticsHooks
	mu        sync.Mutex
	discarded int
}

func (h *discardHooks) OnRefreshComplete(_ context.Context, _ string, _ int, _ time.Duration, discarded bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if discarded {
		h.discarded++
	}
}

func TestEngineDiscardsResultsForDeletedDocument(t *testing.T) {
	hooks := &discardHooks{}
	observability.SetDiagnosticsHooks(hooks)
	defer observability.Reset()

	gate := &gatedSource{
		Source:  fakeRegistry(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e, col := newTestEngine(gate)

	done := make(chan bool)
	go func() {
		_, ok := e.Refresh(context.Background(), uriA, brokenManifest)
		done <- ok
	}()

	<-gate.entered
	e.Delete(uriA)
	close(gate.release)

	assert.False(t, <-done)
	_, ok := col.Get(uriA)
	assert.False(t, ok)
	assert.Equal(t, 1, hooks.discarded)
}

func TestEngineDiscardsOvertakenRefresh(t *testing.T) {
	gate := &gatedSource{
		Source:  fakeRegistry(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e, col := newTestEngine(gate)
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		_, ok := e.Refresh(ctx, uriA, brokenManifest)
		done <- ok
	}()
	<-gate.entered

	// A newer edit that needs no registry lookups completes first.
	newer := "[package]\nrealm = \"sever\"\n"
	fs, ok := e.Refresh(ctx, uriA, newer)
	require.True(t, ok)
	require.Len(t, fs, 1)

	close(gate.release)
	assert.False(t, <-done)

	published, _ := col.Get(uriA)
	require.Len(t, published, 1)
	assert.Equal(t, CodeInvalidRealm, published[0].Code)
}
