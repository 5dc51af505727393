// Package wally holds the vocabulary shared by the manifest parser, the
// registry client and the diagnostics engine: realms, their manifest
// sections, and the public registry location.
package wally

import "strings"

// PublicRegistry is the default package index used when a manifest does not
// name one.
const PublicRegistry = "https://github.com/UpliftGames/wally-index"

// PublicSite is the browsable front-end of the public registry.
const PublicSite = "https://wally.run"

// ManifestFilename is the conventional manifest name.
const ManifestFilename = "wally.toml"

// Realm is the execution context a package targets.
type Realm string

const (
	RealmShared Realm = "shared"
	RealmServer Realm = "server"
	RealmDev    Realm = "dev"
)

// Realms lists every realm in declaration order.
var Realms = []Realm{RealmShared, RealmServer, RealmDev}

// Manifest table names.
const (
	SectionPackage            = "package"
	SectionDependencies       = "dependencies"
	SectionServerDependencies = "server-dependencies"
	SectionDevDependencies    = "dev-dependencies"
)

// Section returns the dependency table a realm's dependencies are listed in.
func (r Realm) Section() string {
	switch r {
	case RealmServer:
		return SectionServerDependencies
	case RealmDev:
		return SectionDevDependencies
	default:
		return SectionDependencies
	}
}

// String implements fmt.Stringer.
func (r Realm) String() string { return string(r) }

// Valid reports whether r is one of the known realms.
func (r Realm) Valid() bool {
	switch r {
	case RealmShared, RealmServer, RealmDev:
		return true
	}
	return false
}

// ParseRealm converts raw manifest text into a Realm. Matching is exact.
func ParseRealm(s string) (Realm, bool) {
	r := Realm(s)
	return r, r.Valid()
}

// RealmForSection maps a dependency table name back to its realm.
func RealmForSection(section string) (Realm, bool) {
	switch section {
	case SectionDependencies:
		return RealmShared, true
	case SectionServerDependencies:
		return RealmServer, true
	case SectionDevDependencies:
		return RealmDev, true
	}
	return "", false
}

// Correction reports the realm a dependency should be listed under when a
// package published for actual is declared in the declared realm's table.
//
// Shared packages may be listed anywhere. A server package listed as a
// shared dependency belongs in the server table, and a dev package listed as
// a server dependency belongs in the dev table. No other combination is
// corrected.
func Correction(declared, actual Realm) (Realm, bool) {
	switch {
	case actual == RealmServer && declared == RealmShared:
		return RealmServer, true
	case actual == RealmDev && declared == RealmServer:
		return RealmDev, true
	}
	return "", false
}

// IsPublicRegistry reports whether url points at the public index, ignoring
// a trailing slash or ".git" suffix.
func IsPublicRegistry(url string) bool {
	return NormalizeRegistry(url) == PublicRegistry
}

// NormalizeRegistry trims whitespace, a trailing slash and a ".git" suffix so
// registry URLs can be used as identity keys.
func NormalizeRegistry(url string) string {
	s := strings.TrimSpace(url)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	return s
}

// PackagePage returns the public registry page for a package.
func PackagePage(author, name string) string {
	return PublicSite + "/package/" + author + "/" + name
}
