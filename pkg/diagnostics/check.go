package diagnostics

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wallyscope/pkg/manifest"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/semver"
	"github.com/matzehuels/wallyscope/pkg/suggest"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// DefaultConcurrency bounds the diagnosis tasks run at once per document.
const DefaultConcurrency = 8

// Option configures a [Checker] or [Engine].
type Option func(*settings)

type settings struct {
	logger      *log.Logger
	concurrency int
	publisher   Publisher
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithConcurrency bounds concurrent diagnosis tasks. Values below one select
// [DefaultConcurrency].
func WithConcurrency(n int) Option {
	return func(s *settings) { s.concurrency = n }
}

// WithPublisher sets where an [Engine] publishes findings.
func WithPublisher(p Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

func buildSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.concurrency < 1 {
		s.concurrency = DefaultConcurrency
	}
	return s
}

// Checker diagnoses parsed manifests against their registries.
type Checker struct {
	store *registry.Store
	cfg   settings
}

// NewChecker creates a checker that resolves registries through store.
func NewChecker(store *registry.Store, opts ...Option) *Checker {
	return &Checker{store: store, cfg: buildSettings(opts)}
}

// CheckText parses text and diagnoses it. Text that does not parse yields the
// parse error and no findings.
func (c *Checker) CheckText(ctx context.Context, text string) ([]Finding, error) {
	m, err := manifest.Parse(text)
	if err != nil {
		return nil, err
	}
	return c.Check(ctx, m), nil
}

type task func(ctx context.Context) *Finding

// Check runs every package-field and dependency diagnosis concurrently and
// returns the findings ordered by position.
func (c *Checker) Check(ctx context.Context, m *manifest.Manifest) []Finding {
	client, err := c.store.Client(m.Registry())
	if err != nil {
		c.cfg.logger.Debug("registry not usable, skipping dependency checks", "registry", m.Registry(), "err", err)
		client = nil
	}
	exists := registry.Indeterminate
	if client != nil && m.Package.Registry.Present {
		exists = client.Exists(ctx)
	}
	if exists == registry.Invalid {
		c.cfg.logger.Debug("registry does not exist, skipping dependency checks", "registry", m.Registry())
		client = nil
	}

	tasks := []task{
		func(context.Context) *Finding { return diagnoseRealm(m.Package.Realm) },
		func(context.Context) *Finding { return diagnoseRegistry(m.Package.Registry, exists) },
		func(context.Context) *Finding { return diagnoseVersion(m.Package.Version) },
		func(context.Context) *Finding { return diagnoseName(m.Package.Name) },
	}
	if client != nil {
		m.Each(func(realm wally.Realm, d *manifest.Dependency) {
			tasks = append(tasks, func(ctx context.Context) *Finding {
				return diagnoseDependency(ctx, client, realm, d)
			})
		})
	}

	results := make([]*Finding, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = t(gctx)
			return nil
		})
	}
	_ = g.Wait()

	var out []Finding
	for _, f := range results {
		if f != nil {
			out = append(out, *f)
		}
	}
	sortFindings(out)
	return out
}

// =============================================================================
// Package fields
// =============================================================================

func diagnoseRealm(f manifest.Field) *Finding {
	if !f.Present {
		return nil
	}
	if _, ok := wally.ParseRealm(f.Value); ok {
		return nil
	}
	options := make([]string, len(wally.Realms))
	for i, r := range wally.Realms {
		options[i] = string(r)
	}
	closest := suggest.Closest(f.Value, options, string(wally.RealmShared))
	return newFinding(CodeInvalidRealm, f.ValueRange, map[string]string{PlaceholderRealm: closest})
}

// diagnoseRegistry flags a registry URL that is malformed or whose index
// the registry host says does not exist.
func diagnoseRegistry(f manifest.Field, exists registry.Validity) *Finding {
	if !f.Present {
		return nil
	}
	if _, err := registry.ParseRepo(f.Value); err == nil && exists != registry.Invalid {
		return nil
	}
	return newFinding(CodeInvalidRegistry, f.ValueRange, suggestion(PlaceholderRegistry, closestRegistry(f.Value), f.Value))
}

// closestRegistry suggests the public registry when the typed text looks
// like the start of it.
func closestRegistry(typed string) string {
	pub := wally.PublicRegistry
	if typed == "" || strings.HasPrefix(pub, typed) ||
		suggest.Distance(typed, pub[:min(len(typed), len(pub))]) <= 0.25 {
		return pub
	}
	return ""
}

func diagnoseVersion(f manifest.Field) *Finding {
	if !f.Present || semver.IsValid(f.Value) {
		return nil
	}
	return newFinding(CodeInvalidVersion, f.ValueRange, nil)
}

func diagnoseName(f manifest.Field) *Finding {
	if !f.Present {
		return nil
	}
	spec := manifest.MatchSpecifier(f.Value)
	switch {
	case !spec.HasFullAuthor:
		return newFinding(CodeMissingAuthor, f.ValueRange, nil)
	case spec.Name == "":
		return newFinding(CodeMissingName, f.ValueRange, nil)
	}
	return nil
}

// =============================================================================
// Dependencies
// =============================================================================

// diagnoseDependency returns the first problem found with d, checking author,
// name, version, realm placement and staleness in that order. A registry
// that cannot answer ends the chain without a finding.
func diagnoseDependency(ctx context.Context, client *registry.Client, realm wally.Realm, d *manifest.Dependency) *Finding {
	rng := d.ValueRange

	author := client.IsValidAuthor(ctx, d.Author)
	if author == registry.Indeterminate {
		return nil
	}
	if !d.HasFullAuthor && author != registry.Valid {
		return newFinding(CodeMissingAuthor, rng, nil)
	}
	if author == registry.Invalid {
		names, _ := client.AuthorNames(ctx)
		closest := suggest.Closest(d.Author, names, d.Author)
		return newFinding(CodeInvalidAuthor, rng, suggestion(PlaceholderAuthor, closest, d.Author))
	}

	pkg := client.IsValidPackage(ctx, d.Author, d.Name)
	if pkg == registry.Indeterminate {
		return nil
	}
	if !d.HasFullName && pkg != registry.Valid {
		return newFinding(CodeMissingName, rng, nil)
	}
	if pkg == registry.Invalid {
		names, _ := client.PackageNames(ctx, d.Author)
		closest := suggest.Closest(d.Name, names, d.Name)
		return newFinding(CodeInvalidName, rng, suggestion(PlaceholderName, closest, d.Name))
	}

	if d.Version == "" {
		return newFinding(CodeMissingVersion, rng, nil)
	}
	version := client.IsValidVersion(ctx, d.Author, d.Name, d.VersionText)
	if version == registry.Indeterminate {
		return nil
	}
	if version == registry.Invalid {
		versions, _ := client.PackageVersions(ctx, d.Author, d.Name)
		closest := suggest.Closest(d.Version, versions, d.Version)
		return newFinding(CodeInvalidVersion, rng, suggestion(PlaceholderVersion, closest, d.Version))
	}

	if info, ok := client.FullPackageInfo(ctx, d.Author, d.Name, d.VersionText); ok {
		if actual, ok := wally.ParseRealm(info.Package.Realm); ok {
			if corrected, ok := wally.Correction(realm, actual); ok {
				return newFinding(CodeMisplacedRealm, rng, map[string]string{
					PlaceholderRealm:        string(actual),
					PlaceholderRealmCurrent: realm.Section(),
					PlaceholderRealmSection: corrected.Section(),
				})
			}
		}
	}

	if latest, ok := client.Outdated(ctx, d.Author, d.Name, d.VersionText); ok {
		return newFinding(CodeNewerVersion, rng, map[string]string{PlaceholderLatest: latest})
	}
	return nil
}
