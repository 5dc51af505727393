// Package registrytest provides an in-memory registry [registry.Source] for
// tests.
package registrytest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/wallyscope/pkg/registry"
)

// Package is one package file in a fake registry.
type Package struct {
	Author   string
	Name     string
	Versions []registry.PackageVersion // oldest first

	// Raw replaces the generated file content when set.
	Raw string
}

// Release builds a published manifest record.
func Release(author, name, version, realm string) registry.PackageVersion {
	return registry.PackageVersion{
		Package: registry.PackageMeta{
			Name:    author + "/" + name,
			Version: version,
			Realm:   realm,
		},
	}
}

// Releases builds a package with one record per version, all in realm.
func Releases(author, name, realm string, versions ...string) Package {
	p := Package{Author: author, Name: name}
	for _, v := range versions {
		p.Versions = append(p.Versions, Release(author, name, v, realm))
	}
	return p
}

type repo struct {
	root  []registry.TreeItem
	trees map[string][]registry.TreeItem
	blobs map[string][]byte
	fail  bool
}

// Source serves registries added with [Source.Add]. It counts every call so
// tests can assert on caching.
type Source struct {
	mu    sync.Mutex
	repos map[string]*repo
	calls map[string]int
}

// New creates an empty fake source.
func New() *Source {
	return &Source{
		repos: make(map[string]*repo),
		calls: make(map[string]int),
	}
}

// Add installs (or replaces) the registry at url.
func (s *Source) Add(url string, cfg registry.Config, pkgs ...Package) {
	r, err := registry.ParseRepo(url)
	if err != nil {
		panic(err)
	}

	rp := &repo{
		trees: make(map[string][]registry.TreeItem),
		blobs: make(map[string][]byte),
	}

	byAuthor := make(map[string][]Package)
	for _, p := range pkgs {
		byAuthor[p.Author] = append(byAuthor[p.Author], p)
	}
	authors := make([]string, 0, len(byAuthor))
	for a := range byAuthor {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	for _, a := range authors {
		owners := rp.blob(r, a+"/owners.json", []byte("[1]"))
		items := []registry.TreeItem{{Path: "owners.json", Type: "blob", SHA: owners}}
		for _, p := range byAuthor[a] {
			content := []byte(p.Raw)
			if p.Raw == "" {
				content = encode(p.Versions)
			}
			items = append(items, registry.TreeItem{Path: p.Name, Type: "blob", SHA: rp.blob(r, a+"/"+p.Name, content)})
		}
		sha := objectID(r.String(), "tree", a)
		rp.trees[sha] = items
		rp.root = append(rp.root, registry.TreeItem{Path: a, Type: "tree", SHA: sha})
	}

	cfgData, _ := json.Marshal(cfg)
	rp.root = append(rp.root, registry.TreeItem{Path: "config.json", Type: "blob", SHA: rp.blob(r, "config.json", cfgData)})

	s.mu.Lock()
	s.repos[r.String()] = rp
	s.mu.Unlock()
}

// SetFailing makes every read of the registry at url fail with a network
// error until reset.
func (s *Source) SetFailing(url string, fail bool) {
	r, err := registry.ParseRepo(url)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rp, ok := s.repos[r.String()]; ok {
		rp.fail = fail
	} else {
		s.repos[r.String()] = &repo{fail: fail}
	}
}

// Calls returns how many times kind ("tree" or "blob") was read at ref from
// the registry at url.
func (s *Source) Calls(url, kind, ref string) int {
	r, err := registry.ParseRepo(url)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[callKey(r, kind, ref)]
}

// TotalCalls returns the number of reads across all registries.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Tree implements [registry.Source].
func (s *Source) Tree(ctx context.Context, r registry.Repo, ref string) ([]registry.TreeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[callKey(r, "tree", ref)]++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rp, ok := s.repos[r.String()]
	switch {
	case !ok:
		return nil, registry.ErrNotFound
	case rp.fail:
		return nil, fmt.Errorf("%w: simulated outage", registry.ErrNetwork)
	case ref == registry.DefaultRef:
		return rp.root, nil
	}
	items, ok := rp.trees[ref]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return items, nil
}

// Blob implements [registry.Source].
func (s *Source) Blob(ctx context.Context, r registry.Repo, sha string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[callKey(r, "blob", sha)]++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rp, ok := s.repos[r.String()]
	switch {
	case !ok:
		return nil, registry.ErrNotFound
	case rp.fail:
		return nil, fmt.Errorf("%w: simulated outage", registry.ErrNetwork)
	}
	data, ok := rp.blobs[sha]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return data, nil
}

func (rp *repo) blob(r registry.Repo, path string, data []byte) string {
	sha := objectID(r.String(), "blob", path, string(data))
	rp.blobs[sha] = data
	return sha
}

func encode(versions []registry.PackageVersion) []byte {
	var b strings.Builder
	for _, v := range versions {
		line, _ := json.Marshal(v)
		b.Write(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func objectID(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

func callKey(r registry.Repo, kind, ref string) string {
	return r.String() + " " + kind + " " + ref
}

var _ registry.Source = (*Source)(nil)
