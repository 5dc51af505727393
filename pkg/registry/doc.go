// Package registry reads Wally package registries.
//
// A Wally registry is a Git repository on GitHub. Its root tree holds a
// config.json and one subtree per author; each author subtree holds one blob
// per package, containing the package's published manifests as
// newline-delimited JSON, oldest first.
//
// # Layers
//
//   - [Source] reads raw Git trees and blobs. [GitHubSource] talks to the
//     GitHub REST API with retries and a per-host circuit breaker;
//     [CachedSource] persists SHA-addressed objects in a [cache.Cache].
//   - [Client] interprets one registry and memoizes what it has read. Lookups
//     that come up empty continue into the registry's fallback registries.
//   - [Store] owns one client per registry URL and the shared GitHub token.
//
// # Failures
//
// Network and API failures never surface as "not found". Predicates such as
// [Client.IsValidAuthor] return [Indeterminate] when a registry could not be
// read, and the failure is reported once per cooldown through a [Notifier].
//
// [cache.Cache]: github.com/matzehuels/wallyscope/pkg/cache.Cache
package registry
