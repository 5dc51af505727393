package registry_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/registry/registrytest"
)

const (
	mainURL     = "https://github.com/acme/index"
	fallbackURL = "https://github.com/other/index"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newStore(t *testing.T, src registry.Source) (*registry.Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	store := registry.NewStore(
		func(string) registry.Source { return src },
		registry.WithLogger(quietLogger()),
		registry.WithNotifier(rec),
	)
	return store, rec
}

func seed() *registrytest.Source {
	src := registrytest.New()
	src.Add(mainURL, registry.Config{API: "https://api.acme.dev", FallbackRegistries: []string{fallbackURL}},
		registrytest.Releases("evaera", "promise", "shared", "3.0.0", "4.0.0-rc.1", "3.1.0", "4.0.0"),
		registrytest.Releases("sleitnick", "knit", "shared", "1.4.7", "1.5.1"),
		registrytest.Releases("osyris", "serverutil", "server", "0.1.0"),
	)
	src.Add(fallbackURL, registry.Config{API: "https://api.other.dev"},
		registrytest.Releases("roblox", "roact", "shared", "1.4.4"),
		registrytest.Releases("evaera", "cmdr", "shared", "1.9.0"),
	)
	return src
}

func TestAuthorNamesUnionsFallbacks(t *testing.T) {
	store, _ := newStore(t, seed())
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	names, ok := c.AuthorNames(context.Background())
	require.True(t, ok)
	assert.Equal(t, []string{"evaera", "osyris", "sleitnick", "roblox"}, names)
}

func TestFallbackCycleTerminates(t *testing.T) {
	src := registrytest.New()
	src.Add(mainURL, registry.Config{FallbackRegistries: []string{fallbackURL}},
		registrytest.Releases("a", "one", "shared", "1.0.0"))
	src.Add(fallbackURL, registry.Config{FallbackRegistries: []string{mainURL + ".git"}},
		registrytest.Releases("b", "two", "shared", "1.0.0"))
	store, _ := newStore(t, src)
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	names, ok := c.AuthorNames(context.Background())
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, registry.Invalid, c.IsValidAuthor(context.Background(), "nobody"))
}

func TestValidityTriState(t *testing.T) {
	ctx := context.Background()
	src := seed()
	store, rec := newStore(t, src)
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	assert.Equal(t, registry.Valid, c.IsValidAuthor(ctx, "Evaera"))
	assert.Equal(t, registry.Valid, c.IsValidAuthor(ctx, "roblox"))
	assert.Equal(t, registry.Invalid, c.IsValidAuthor(ctx, "evaer"))

	assert.Equal(t, registry.Valid, c.IsValidPackage(ctx, "evaera", "promise"))
	assert.Equal(t, registry.Valid, c.IsValidPackage(ctx, "evaera", "cmdr"), "found in fallback")
	assert.Equal(t, registry.Invalid, c.IsValidPackage(ctx, "evaera", "promis"))

	assert.Equal(t, registry.Valid, c.IsValidVersion(ctx, "evaera", "promise", "3.1.0"))
	assert.Equal(t, registry.Valid, c.IsValidVersion(ctx, "evaera", "promise", "^3.0.0"))
	assert.Equal(t, registry.Invalid, c.IsValidVersion(ctx, "evaera", "promise", "5.0.0"))
	assert.Zero(t, rec.count())

	src.SetFailing(mainURL, true)
	c.InvalidateCache(ctx)
	assert.Equal(t, registry.Indeterminate, c.IsValidAuthor(ctx, "evaer"))
	assert.Equal(t, registry.Indeterminate, c.IsValidPackage(ctx, "evaera", "promise"))
	assert.Equal(t, registry.Indeterminate, c.IsValidVersion(ctx, "evaera", "promise", "5.0.0"))
	assert.NotZero(t, rec.count())
}

func TestFallbackFailureKeepsAuthorIndeterminate(t *testing.T) {
	ctx := context.Background()
	src := seed()
	src.SetFailing(fallbackURL, true)
	store, _ := newStore(t, src)
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	assert.Equal(t, registry.Valid, c.IsValidAuthor(ctx, "evaera"))
	assert.Equal(t, registry.Indeterminate, c.IsValidAuthor(ctx, "roblox"))

	names, ok := c.AuthorNames(ctx)
	assert.True(t, ok)
	assert.Contains(t, names, "sleitnick")
}

func TestPackageVersionsNewestFirst(t *testing.T) {
	store, _ := newStore(t, seed())
	c, err := store.Client(mainURL)
	require.NoError(t, err)
	ctx := context.Background()

	versions, ok := c.PackageVersions(ctx, "evaera", "promise")
	require.True(t, ok)
	assert.Equal(t, []string{"4.0.0", "4.0.0-rc.1", "3.1.0", "3.0.0"}, versions)

	latest, ok := c.LatestVersion(ctx, "evaera", "promise")
	assert.True(t, ok)
	assert.Equal(t, "4.0.0", latest)

	compat, ok := c.LatestCompatibleVersion(ctx, "evaera", "promise", "3.0.0")
	assert.True(t, ok)
	assert.Equal(t, "3.1.0", compat)

	newer, outdated := c.Outdated(ctx, "evaera", "promise", "3.0.0")
	assert.True(t, outdated)
	assert.Equal(t, "4.0.0", newer)

	_, outdated = c.Outdated(ctx, "evaera", "promise", "4.0.0")
	assert.False(t, outdated)

	_, ok = c.PackageVersions(ctx, "evaera", "missing")
	assert.False(t, ok)
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	src := registrytest.New()
	src.Add(mainURL, registry.Config{}, registrytest.Package{
		Author: "acme",
		Name:   "widget",
		Raw: `{"package":{"name":"acme/widget","version":"1.0.0","realm":"shared"}}
not json at all
{"package": broken}
{"package":{"name":"acme/widget","version":"1.1.0","realm":"shared"}}
`,
	})
	store, _ := newStore(t, src)
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	versions, ok := c.PackageVersions(context.Background(), "acme", "widget")
	require.True(t, ok)
	assert.Equal(t, []string{"1.1.0", "1.0.0"}, versions)
}

func TestOwnersFileIsNotAPackage(t *testing.T) {
	store, _ := newStore(t, seed())
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	names, ok := c.PackageNames(context.Background(), "evaera")
	require.True(t, ok)
	assert.Equal(t, []string{"promise"}, names)
}

func TestFullPackageInfo(t *testing.T) {
	store, _ := newStore(t, seed())
	c, err := store.Client(mainURL)
	require.NoError(t, err)
	ctx := context.Background()

	info, ok := c.FullPackageInfo(ctx, "osyris", "serverutil", "0.1.0")
	require.True(t, ok)
	assert.Equal(t, "server", info.Package.Realm)

	info, ok = c.FullPackageInfo(ctx, "evaera", "promise", "3.0")
	require.True(t, ok)
	assert.Equal(t, "3.1.0", info.Package.Version)

	_, ok = c.FullPackageInfo(ctx, "evaera", "promise", "9.0.0")
	assert.False(t, ok)
}

func TestConfigAndAPIURL(t *testing.T) {
	store, _ := newStore(t, seed())
	c, err := store.Client(mainURL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	api, ok := c.APIURL(ctx)
	assert.True(t, ok)
	assert.Equal(t, "https://api.acme.dev", api)
	assert.Equal(t, []string{fallbackURL}, c.FallbackURLs(ctx))
	assert.Equal(t, mainURL, c.URL())
}

func TestInvalidateCacheRefetchesRootTree(t *testing.T) {
	ctx := context.Background()
	src := seed()
	store, _ := newStore(t, src)
	c, err := store.Client(mainURL)
	require.NoError(t, err)

	c.IsValidPackage(ctx, "evaera", "promise")
	c.IsValidPackage(ctx, "evaera", "promise")
	assert.Equal(t, 1, src.Calls(mainURL, "tree", registry.DefaultRef))

	c.InvalidateCache(ctx)
	assert.Equal(t, 2, src.Calls(mainURL, "tree", registry.DefaultRef), "config is reloaded eagerly")

	c.IsValidPackage(ctx, "evaera", "promise")
	assert.Equal(t, 2, src.Calls(mainURL, "tree", registry.DefaultRef))
}

func TestSetAuthTokenInvalidates(t *testing.T) {
	ctx := context.Background()
	src := seed()
	var tokens []string
	store := registry.NewStore(func(token string) registry.Source {
		tokens = append(tokens, token)
		return src
	}, registry.WithLogger(quietLogger()), registry.WithNotifier(&recorder{}))

	c, err := store.Client(mainURL)
	require.NoError(t, err)
	c.IsValidAuthor(ctx, "evaera")
	before := src.Calls(mainURL, "tree", registry.DefaultRef)

	assert.False(t, store.SetAuthToken(ctx, ""))
	assert.True(t, store.SetAuthToken(ctx, "ghp_secret"))
	assert.Equal(t, "ghp_secret", store.Token())
	assert.Equal(t, []string{"", "ghp_secret"}, tokens)
	assert.Greater(t, src.Calls(mainURL, "tree", registry.DefaultRef), before)
}

func TestStoreRejectsUnsupportedRegistry(t *testing.T) {
	store, _ := newStore(t, registrytest.New())

	_, err := store.Client("https://gitlab.com/acme/index")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrCodeUnsupportedRegistry))

	a, err := store.Client(mainURL)
	require.NoError(t, err)
	b, err := store.Client(mainURL + ".git")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    registry.Repo
		wantErr bool
	}{
		{"https://github.com/UpliftGames/wally-index", registry.Repo{Owner: "UpliftGames", Name: "wally-index"}, false},
		{"https://github.com/UpliftGames/wally-index.git", registry.Repo{Owner: "UpliftGames", Name: "wally-index"}, false},
		{"https://github.com/UpliftGames/wally-index/", registry.Repo{Owner: "UpliftGames", Name: "wally-index"}, false},
		{"https://github.com/UpliftGames", registry.Repo{}, true},
		{"https://example.com/a/b", registry.Repo{}, true},
		{"not a url", registry.Repo{}, true},
	}
	for _, tt := range tests {
		got, err := registry.ParseRepo(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestExistsAndEmptyRegistry(t *testing.T) {
	ctx := context.Background()
	src := registrytest.New()
	src.Add(mainURL, registry.Config{})
	store, _ := newStore(t, src)

	empty, err := store.Client(mainURL)
	require.NoError(t, err)
	assert.Equal(t, registry.Valid, empty.Exists(ctx))
	names, ok := empty.AuthorNames(ctx)
	assert.True(t, ok, "a readable registry without authors is still an answer")
	assert.Empty(t, names)

	absent, err := store.Client("https://github.com/nobody/no-such-index")
	require.NoError(t, err)
	assert.Equal(t, registry.Invalid, absent.Exists(ctx))
	assert.Equal(t, registry.Invalid, absent.IsValidAuthor(ctx, "evaera"))

	src.SetFailing(mainURL, true)
	empty.InvalidateCache(ctx)
	assert.Equal(t, registry.Indeterminate, empty.Exists(ctx))
	_, ok = empty.AuthorNames(ctx)
	assert.False(t, ok)
}
