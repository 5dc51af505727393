package manifest

import (
	"strings"

	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// Field is a key/value pair located in the source text.
//
// FieldRange spans from the first character of the key to the end of the
// value; ValueRange covers just the value literal, quotes included. A field
// that was not written in the manifest has Present set to false, zero ranges
// and the documented default as its Value.
type Field struct {
	Key        string `json:"key"`
	Raw        string `json:"raw"`
	Value      string `json:"value"`
	FieldRange Range  `json:"fieldRange"`
	ValueRange Range  `json:"valueRange"`
	Present    bool   `json:"present"`
}

// Dependency is one entry of a dependency table.
type Dependency struct {
	Field
	Specifier
}

// Package holds the recognised fields of the [package] table.
type Package struct {
	Name     Field `json:"name"`
	Version  Field `json:"version"`
	Realm    Field `json:"realm"`
	Registry Field `json:"registry"`
}

// Dependencies groups dependency entries by the table they were listed in.
type Dependencies struct {
	Shared []Dependency `json:"shared"`
	Server []Dependency `json:"server"`
	Dev    []Dependency `json:"dev"`
}

// ForRealm returns the entries listed under r's table.
func (d *Dependencies) ForRealm(r wally.Realm) []Dependency {
	switch r {
	case wally.RealmServer:
		return d.Server
	case wally.RealmDev:
		return d.Dev
	default:
		return d.Shared
	}
}

func (d *Dependencies) add(r wally.Realm, dep Dependency) {
	switch r {
	case wally.RealmServer:
		d.Server = append(d.Server, dep)
	case wally.RealmDev:
		d.Dev = append(d.Dev, dep)
	default:
		d.Shared = append(d.Shared, dep)
	}
}

// Len returns the number of entries across all tables.
func (d *Dependencies) Len() int {
	return len(d.Shared) + len(d.Server) + len(d.Dev)
}

// Manifest is the positioned view of a wally.toml document.
type Manifest struct {
	Package      Package      `json:"package"`
	Dependencies Dependencies `json:"dependencies"`
}

func newManifest() *Manifest {
	return &Manifest{
		Package: Package{
			Name:     Field{Key: "name"},
			Version:  Field{Key: "version"},
			Realm:    Field{Key: "realm", Value: string(wally.RealmShared)},
			Registry: Field{Key: "registry", Value: wally.PublicRegistry},
		},
	}
}

// Registry returns the registry the manifest resolves packages from.
func (m *Manifest) Registry() string {
	return m.Package.Registry.Value
}

// Each calls fn for every dependency, shared first, then server, then dev.
// The pointer refers to the manifest's own storage.
func (m *Manifest) Each(fn func(wally.Realm, *Dependency)) {
	for _, r := range wally.Realms {
		deps := m.Dependencies.ForRealm(r)
		for i := range deps {
			fn(r, &deps[i])
		}
	}
}

// DependencyAt returns the dependency whose field range contains pos, along
// with the realm of the table it is listed in.
func (m *Manifest) DependencyAt(pos Position) (wally.Realm, *Dependency, bool) {
	var (
		realm wally.Realm
		found *Dependency
	)
	m.Each(func(r wally.Realm, d *Dependency) {
		if found == nil && d.FieldRange.Contains(pos) {
			realm, found = r, d
		}
	})
	return realm, found, found != nil
}

// Parse builds a Manifest from raw text.
//
// Only string-valued assignments in the [package] table and the three
// dependency tables are recorded; everything else is skipped. Parsing fails
// with an INVALID_MANIFEST error when the text has lexical errors or contains
// no tokens besides whitespace and comments.
func Parse(text string) (*Manifest, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "tokenize manifest")
	}

	sig := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if !t.IsTrivia() {
			sig = append(sig, t)
		}
	}
	if len(sig) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest is empty")
	}

	m := newManifest()
	table := ""
	depth := 0

	for i := 0; i < len(sig); i++ {
		t := sig[i]
		switch t.Kind {
		case KindTableOpen:
			var next int
			table, next = readHeader(sig, i)
			i = next - 1
		case KindArrayOpen, KindInlineTableOpen:
			depth++
		case KindArrayClose, KindInlineTableClose:
			depth = max(depth-1, 0)
		case KindEquals:
			if depth > 0 || i+1 >= len(sig) || sig[i+1].Category != CategoryString {
				continue
			}
			path, keyStart, ok := readKeyPath(sig, i)
			if !ok {
				continue
			}
			m.record(table, path, keyStart, sig[i+1])
		}
	}
	return m, nil
}

// readHeader consumes a [table] or [[array]] header starting at sig[i] and
// returns the dotted table name and the index after the header. Headers are
// confined to a single line; anything unexpected yields an empty name.
func readHeader(sig []Token, i int) (string, int) {
	line := sig[i].Range.Start.Line
	j := i
	for j < len(sig) && sig[j].Kind == KindTableOpen && sig[j].Range.Start.Line == line {
		j++
	}

	var parts []string
	valid := true
	for ; j < len(sig) && sig[j].Range.Start.Line == line && sig[j].Kind != KindTableClose; j++ {
		switch sig[j].Category {
		case CategoryKey:
			parts = append(parts, unquoteKey(sig[j]))
		default:
			if sig[j].Kind != KindDot {
				valid = false
			}
		}
	}
	if j < len(sig) && sig[j].Kind == KindTableClose {
		for j < len(sig) && sig[j].Kind == KindTableClose && sig[j].Range.Start.Line == line {
			j++
		}
	} else {
		valid = false
	}

	if !valid || len(parts) == 0 {
		return "", j
	}
	return strings.Join(parts, "."), j
}

// readKeyPath walks backwards from the "=" at sig[eq] over a dotted key.
func readKeyPath(sig []Token, eq int) ([]string, Position, bool) {
	var path []string
	var start Position
	j := eq - 1
	for j >= 0 && sig[j].Category == CategoryKey {
		path = append([]string{unquoteKey(sig[j])}, path...)
		start = sig[j].Range.Start
		if j == 0 || sig[j-1].Kind != KindDot {
			break
		}
		j -= 2
	}
	return path, start, len(path) > 0
}

func (m *Manifest) record(table string, path []string, keyStart Position, val Token) {
	key := path[len(path)-1]
	if len(path) > 1 {
		prefix := strings.Join(path[:len(path)-1], ".")
		if table == "" {
			table = prefix
		} else {
			table += "." + prefix
		}
	}

	f := Field{
		Key:        key,
		Raw:        val.Text,
		Value:      cleanString(val),
		FieldRange: Range{Start: keyStart, End: val.Range.End},
		ValueRange: val.Range,
		Present:    true,
	}

	if table == wally.SectionPackage {
		switch key {
		case "name":
			m.Package.Name = f
		case "version":
			m.Package.Version = f
		case "realm":
			m.Package.Realm = f
		case "registry":
			m.Package.Registry = f
		}
		return
	}
	if realm, ok := wally.RealmForSection(table); ok {
		m.Dependencies.add(realm, Dependency{Field: f, Specifier: MatchSpecifier(f.Value)})
	}
}

// cleanString strips the delimiters from a string literal. Delimiters are
// removed only as a matching pair; text without one is returned as is.
func cleanString(t Token) string {
	switch t.Kind {
	case KindMultiLineBasicString, KindMultiLineLiteralString:
		for _, delim := range []string{`"""`, "'''"} {
			if len(t.Text) >= 2*len(delim) && strings.HasPrefix(t.Text, delim) && strings.HasSuffix(t.Text, delim) {
				s := t.Text[len(delim) : len(t.Text)-len(delim)]
				return strings.TrimPrefix(strings.TrimPrefix(s, "\r"), "\n")
			}
		}
		return t.Text
	}
	return trimQuote(t.Text)
}

// trimQuote removes one pair of matching single or double quotes.
func trimQuote(s string) string {
	if len(s) < 2 {
		return s
	}
	if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

func unquoteKey(t Token) string {
	if t.Kind == KindQuotedKey {
		return trimQuote(t.Text)
	}
	return t.Text
}
