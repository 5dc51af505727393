// Package pkg contains the wallyscope libraries.
//
// # Overview
//
// wallyscope validates Wally manifests (wally.toml) for Roblox projects. It
// reads a manifest with positions, looks every dependency up in the Wally
// registry index (a GitHub repository) and reports problems anchored to the
// text that caused them.
//
// The typical data flow:
//
//	wally.toml text
//	      ↓
//	[manifest] (token walk → fields and dependencies with ranges)
//	      ↓
//	[diagnostics] ← [registry] (index tree, author listings, version records)
//	      ↓
//	findings (code, severity, range, message)
//
// # Packages
//
//   - [wally]: realms, sections and registry URL helpers
//   - [manifest]: lexer, positioned manifest model, specifier matcher, strict
//     TOML decoding
//   - [semver]: version requirement matching and ordering
//   - [suggest]: closest-option matching for "did you mean" messages
//   - [registry]: GitHub-backed registry index client with fallback walk,
//     caching, circuit breaking and failure notices
//   - [diagnostics]: finding codes, the per-manifest checker and the
//     document engine
//   - [assist]: completion candidates and dependency descriptions
//   - [cache]: file, Redis and null storage for registry content
//   - [httputil]: retry helpers
//   - [observability]: hook interfaces for metrics and tracing
//   - [errors]: coded errors and input validation
//   - [buildinfo]: version information
//
// # Quick Start
//
//	store := registry.NewStore(func(token string) registry.Source {
//	    return registry.NewGitHubSource(registry.WithToken(token))
//	})
//	checker := diagnostics.NewChecker(store)
//	findings, err := checker.CheckText(ctx, text)
//
// [wally]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/wally
// [manifest]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/manifest
// [semver]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/semver
// [suggest]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/suggest
// [registry]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/registry
// [diagnostics]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/diagnostics
// [assist]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/assist
// [cache]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/wallyscope/pkg/buildinfo
package pkg
