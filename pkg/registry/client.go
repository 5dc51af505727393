package registry

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wallyscope/pkg/observability"
	"github.com/matzehuels/wallyscope/pkg/semver"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// DefaultRef is the branch whose tree lists a registry's authors.
const DefaultRef = "main"

// ownersFile is metadata inside an author's subtree, not a package.
const ownersFile = "owners.json"

// Option configures a [Client] or [Store].
type Option func(*options)

type options struct {
	logger   *log.Logger
	notifier Notifier
	ref      string
}

// WithLogger sets the logger for fetch activity.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets where fetch failures are reported.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithRef overrides the branch the root tree is read from.
func WithRef(ref string) Option {
	return func(o *options) { o.ref = ref }
}

func buildOptions(opts []Option) options {
	o := options{ref: DefaultRef}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.notifier == nil {
		o.notifier = NewCooldownNotifier(LogNotifier{Logger: o.logger}, DefaultNotifyCooldown)
	}
	return o
}

// outcome is the result of a lookup against one registry.
type outcome int

const (
	found outcome = iota
	missing
	failed
)

// Client reads one Wally registry and caches what it learns in memory.
// Lookups that find nothing in this registry continue into the fallback
// registries named by its config. All methods are safe for concurrent use.
type Client struct {
	url   string
	repo  Repo
	store *Store
	opts  options

	mu       sync.Mutex
	source   Source
	tree     *Tree
	authors  map[string]*Author
	packages map[string]*Package
	config   *Config
}

// NewClient creates a standalone client for the registry at url. It cannot
// follow fallback registries; use a [Store] for that.
func NewClient(url string, source Source, opts ...Option) (*Client, error) {
	return newClient(url, source, nil, buildOptions(opts))
}

func newClient(url string, source Source, store *Store, o options) (*Client, error) {
	repo, err := ParseRepo(url)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:      wally.NormalizeRegistry(url),
		repo:     repo,
		store:    store,
		opts:     o,
		source:   source,
		authors:  make(map[string]*Author),
		packages: make(map[string]*Package),
	}, nil
}

// URL returns the normalized registry URL.
func (c *Client) URL() string { return c.url }

func (c *Client) setSource(s Source) {
	c.mu.Lock()
	c.source = s
	c.mu.Unlock()
}

// InvalidateCache drops everything cached in memory and eagerly reloads the
// registry config.
func (c *Client) InvalidateCache(ctx context.Context) {
	c.mu.Lock()
	c.tree = nil
	c.config = nil
	c.authors = make(map[string]*Author)
	c.packages = make(map[string]*Package)
	c.mu.Unlock()

	observability.Registry().OnInvalidate(ctx, c.url)
	c.opts.logger.Debug("registry cache invalidated", "registry", c.url)
	c.loadConfig(ctx)
}

// =============================================================================
// Direct lookups
// =============================================================================

func (c *Client) observe(ctx context.Context, kind, key string, fn func() error) error {
	hooks := observability.Registry()
	hooks.OnFetchStart(ctx, c.url, kind, key)
	start := time.Now()
	err := fn()
	hooks.OnFetchComplete(ctx, c.url, kind, key, time.Since(start), err)

	if err == nil {
		c.opts.logger.Debug("registry fetch", "registry", c.url, "kind", kind, "key", key, "took", time.Since(start).Round(time.Millisecond))
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.opts.logger.Warn("registry fetch failed", "registry", c.url, "kind", kind, "key", key, "err", err)
	c.opts.notifier.Notify(ctx, failureMessage(c.url, err))
	return err
}

func (c *Client) loadTree(ctx context.Context) (*Tree, outcome) {
	c.mu.Lock()
	if t := c.tree; t != nil {
		c.mu.Unlock()
		return t, found
	}
	src := c.source
	c.mu.Unlock()

	var items []TreeItem
	err := c.observe(ctx, "tree", c.opts.ref, func() (err error) {
		items, err = src.Tree(ctx, c.repo, c.opts.ref)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, missing
	case err != nil:
		return nil, failed
	}

	t := &Tree{}
	for _, it := range items {
		switch {
		case it.Type == "tree":
			t.Authors = append(t.Authors, Entry{Name: strings.ToLower(it.Path), SHA: it.SHA})
		case it.Type == "blob" && strings.HasSuffix(it.Path, ".json"):
			t.Config = &Entry{Name: it.Path, SHA: it.SHA}
		}
	}

	c.mu.Lock()
	c.tree = t
	c.mu.Unlock()
	return t, found
}

func (c *Client) loadAuthor(ctx context.Context, name string) (*Author, outcome) {
	key := strings.ToLower(name)
	c.mu.Lock()
	if a, ok := c.authors[key]; ok {
		c.mu.Unlock()
		return a, found
	}
	src := c.source
	c.mu.Unlock()

	t, o := c.loadTree(ctx)
	if o != found {
		return nil, o
	}
	entry, ok := t.author(key)
	if !ok {
		return nil, missing
	}

	var items []TreeItem
	err := c.observe(ctx, "author", key, func() (err error) {
		items, err = src.Tree(ctx, c.repo, entry.SHA)
		return err
	})
	if err != nil {
		return nil, failed
	}

	a := &Author{Name: key, SHA: entry.SHA}
	for _, it := range items {
		if it.Type != "blob" || it.Path == ownersFile {
			continue
		}
		a.Packages = append(a.Packages, Entry{Name: strings.ToLower(it.Path), SHA: it.SHA})
	}

	c.mu.Lock()
	c.authors[key] = a
	c.mu.Unlock()
	return a, found
}

func (c *Client) loadPackage(ctx context.Context, author, name string) (*Package, outcome) {
	key := strings.ToLower(author) + "/" + strings.ToLower(name)
	c.mu.Lock()
	if p, ok := c.packages[key]; ok {
		c.mu.Unlock()
		return p, found
	}
	src := c.source
	c.mu.Unlock()

	a, o := c.loadAuthor(ctx, author)
	if o != found {
		return nil, o
	}
	entry, ok := a.pkg(name)
	if !ok {
		return nil, missing
	}

	var data []byte
	err := c.observe(ctx, "package", key, func() (err error) {
		data, err = src.Blob(ctx, c.repo, entry.SHA)
		return err
	})
	if err != nil {
		return nil, failed
	}

	p := &Package{
		Author:   a.Name,
		Name:     entry.Name,
		SHA:      entry.SHA,
		Versions: parseVersions(data, c.opts.logger),
	}

	c.mu.Lock()
	c.packages[key] = p
	c.mu.Unlock()
	return p, found
}

func (c *Client) loadConfig(ctx context.Context) (*Config, outcome) {
	c.mu.Lock()
	if cfg := c.config; cfg != nil {
		c.mu.Unlock()
		return cfg, found
	}
	src := c.source
	c.mu.Unlock()

	t, o := c.loadTree(ctx)
	if o != found {
		return nil, o
	}
	if t.Config == nil {
		return nil, missing
	}

	var cfg Config
	err := c.observe(ctx, "config", t.Config.Name, func() error {
		data, err := src.Blob(ctx, c.repo, t.Config.SHA)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &cfg)
	})
	if err != nil {
		return nil, failed
	}

	c.mu.Lock()
	c.config = &cfg
	c.mu.Unlock()
	return &cfg, found
}

// parseVersions reads a package index file: one JSON manifest per line.
// Lines that are not JSON objects are skipped.
func parseVersions(data []byte, logger *log.Logger) []PackageVersion {
	var out []PackageVersion
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		var v PackageVersion
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			logger.Debug("skipping malformed version record", "err", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// =============================================================================
// Fallback resolution
// =============================================================================

// walk visits this registry and then its fallbacks breadth-first, each at
// most once, until visit returns false.
func (c *Client) walk(ctx context.Context, visit func(*Client) bool) {
	seen := map[string]bool{c.url: true}
	queue := []*Client{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !visit(cur) {
			return
		}
		if c.store == nil {
			continue
		}
		for _, u := range cur.FallbackURLs(ctx) {
			key := wally.NormalizeRegistry(u)
			if seen[key] {
				continue
			}
			seen[key] = true
			fc, err := c.store.Client(u)
			if err != nil {
				c.opts.logger.Debug("skipping fallback registry", "registry", u, "err", err)
				continue
			}
			queue = append(queue, fc)
		}
	}
}

// firstHit runs lookup against each registry in fallback order and stops at
// the first one that finds something. A miss is reported only when every
// registry answered; otherwise failed wins.
func (c *Client) firstHit(ctx context.Context, lookup func(*Client) outcome) outcome {
	result := missing
	c.walk(ctx, func(cl *Client) bool {
		switch lookup(cl) {
		case found:
			result = found
			return false
		case failed:
			result = failed
		}
		return ctx.Err() == nil
	})
	return result
}

func (c *Client) authorNames(ctx context.Context) ([]string, outcome) {
	var names []string
	seen := make(map[string]bool)
	anyFound, anyFailed := false, false
	c.walk(ctx, func(cl *Client) bool {
		t, o := cl.loadTree(ctx)
		switch o {
		case failed:
			anyFailed = true
			return ctx.Err() == nil
		case missing:
			return ctx.Err() == nil
		}
		anyFound = true
		for _, e := range t.Authors {
			if !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		}
		return true
	})
	switch {
	case anyFailed:
		return names, failed
	case anyFound:
		return names, found
	}
	return nil, missing
}

func (c *Client) findPackage(ctx context.Context, author, name string) (*Package, outcome) {
	var pkg *Package
	o := c.firstHit(ctx, func(cl *Client) outcome {
		p, o := cl.loadPackage(ctx, author, name)
		pkg = p
		return o
	})
	return pkg, o
}

// =============================================================================
// Queries
// =============================================================================

// AuthorNames returns every author known to this registry and its fallbacks,
// direct registry first. It reports false only when a registry could not be
// read and nothing was learned from the others; an empty registry yields an
// empty list and true.
func (c *Client) AuthorNames(ctx context.Context) ([]string, bool) {
	names, o := c.authorNames(ctx)
	return names, o != failed || len(names) > 0
}

// PackageNames returns the packages of author from the first registry that
// knows the author.
func (c *Client) PackageNames(ctx context.Context, author string) ([]string, bool) {
	var names []string
	o := c.firstHit(ctx, func(cl *Client) outcome {
		a, o := cl.loadAuthor(ctx, author)
		if o == found {
			names = a.PackageNames()
		}
		return o
	})
	return names, o == found
}

// Package returns a package's publication history.
func (c *Client) Package(ctx context.Context, author, name string) (*Package, bool) {
	p, o := c.findPackage(ctx, author, name)
	return p, o == found
}

// PackageVersions returns every published version, newest first.
func (c *Client) PackageVersions(ctx context.Context, author, name string) ([]string, bool) {
	p, ok := c.Package(ctx, author, name)
	if !ok {
		return nil, false
	}
	return p.VersionStrings(), true
}

// FullPackageInfo returns the published manifest for version: the exact
// match if there is one, otherwise the newest version compatible with it.
func (c *Client) FullPackageInfo(ctx context.Context, author, name, version string) (*PackageVersion, bool) {
	p, ok := c.Package(ctx, author, name)
	if !ok {
		return nil, false
	}
	if v, ok := p.Version(version); ok {
		return v, true
	}
	best, ok := semver.LatestCompatible(version, p.VersionStrings())
	if !ok {
		return nil, false
	}
	return p.Version(best)
}

// Config returns the registry's own config.json.
func (c *Client) Config(ctx context.Context) (*Config, bool) {
	cfg, o := c.loadConfig(ctx)
	return cfg, o == found
}

// APIURL returns the registry's publishing API.
func (c *Client) APIURL(ctx context.Context) (string, bool) {
	cfg, ok := c.Config(ctx)
	if !ok || cfg.API == "" {
		return "", false
	}
	return cfg.API, true
}

// FallbackURLs returns the registries consulted when this one has no answer.
func (c *Client) FallbackURLs(ctx context.Context) []string {
	cfg, ok := c.Config(ctx)
	if !ok {
		return nil
	}
	return cfg.FallbackRegistries
}

// Exists checks that the registry's root tree is there. Only a definite
// not-found answer is Invalid; outages and rate limits are Indeterminate.
func (c *Client) Exists(ctx context.Context) Validity {
	_, o := c.loadTree(ctx)
	switch o {
	case found:
		return Valid
	case missing:
		return Invalid
	}
	return Indeterminate
}

// IsValidAuthor checks author against this registry and its fallbacks.
func (c *Client) IsValidAuthor(ctx context.Context, author string) Validity {
	names, o := c.authorNames(ctx)
	if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, author) }) {
		return Valid
	}
	if o == failed {
		return Indeterminate
	}
	return Invalid
}

// IsValidPackage checks that author publishes name.
func (c *Client) IsValidPackage(ctx context.Context, author, name string) Validity {
	o := c.firstHit(ctx, func(cl *Client) outcome {
		a, o := cl.loadAuthor(ctx, author)
		if o != found {
			return o
		}
		if _, ok := a.pkg(name); ok {
			return found
		}
		return missing
	})
	if o == failed {
		return Indeterminate
	}
	return validity(o == found)
}

// IsValidVersion checks that some published version satisfies version.
func (c *Client) IsValidVersion(ctx context.Context, author, name, version string) Validity {
	p, o := c.findPackage(ctx, author, name)
	switch o {
	case failed:
		return Indeterminate
	case missing:
		return Invalid
	}
	return validity(semver.IsCompatibleAny(version, p.VersionStrings()))
}

// LatestVersion returns the newest stable version of a package.
func (c *Client) LatestVersion(ctx context.Context, author, name string) (string, bool) {
	versions, ok := c.PackageVersions(ctx, author, name)
	if !ok {
		return "", false
	}
	return semver.Latest(versions)
}

// LatestCompatibleVersion returns the newest version satisfying desired.
func (c *Client) LatestCompatibleVersion(ctx context.Context, author, name, desired string) (string, bool) {
	versions, ok := c.PackageVersions(ctx, author, name)
	if !ok {
		return "", false
	}
	return semver.LatestCompatible(desired, versions)
}

// Outdated returns the latest version when it is newer than anything desired
// can resolve to.
func (c *Client) Outdated(ctx context.Context, author, name, desired string) (string, bool) {
	versions, ok := c.PackageVersions(ctx, author, name)
	if !ok {
		return "", false
	}
	return semver.Outdated(desired, versions)
}
