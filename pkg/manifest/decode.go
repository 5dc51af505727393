package manifest

import (
	"github.com/BurntSushi/toml"

	"github.com/matzehuels/wallyscope/pkg/errors"
)

// Document is the strict, full-TOML reading of a manifest. Unlike [Parse] it
// carries no positions and rejects anything that is not valid TOML.
type Document struct {
	Package            PackageInfo       `toml:"package" json:"package"`
	Place              map[string]string `toml:"place" json:"place,omitempty"`
	Dependencies       map[string]string `toml:"dependencies" json:"dependencies,omitempty"`
	ServerDependencies map[string]string `toml:"server-dependencies" json:"server-dependencies,omitempty"`
	DevDependencies    map[string]string `toml:"dev-dependencies" json:"dev-dependencies,omitempty"`

	// Undecoded lists keys present in the file that map to no known field.
	Undecoded []string `toml:"-" json:"undecoded,omitempty"`
}

// PackageInfo is the [package] table.
type PackageInfo struct {
	Name        string   `toml:"name" json:"name,omitempty"`
	Version     string   `toml:"version" json:"version,omitempty"`
	Registry    string   `toml:"registry" json:"registry,omitempty"`
	Realm       string   `toml:"realm" json:"realm,omitempty"`
	Description string   `toml:"description" json:"description,omitempty"`
	License     string   `toml:"license" json:"license,omitempty"`
	Authors     []string `toml:"authors" json:"authors,omitempty"`
	Include     []string `toml:"include" json:"include,omitempty"`
	Exclude     []string `toml:"exclude" json:"exclude,omitempty"`
	Private     bool     `toml:"private" json:"private,omitempty"`
}

// Decode reads text as TOML into a Document.
func Decode(text string) (*Document, error) {
	var doc Document
	md, err := toml.Decode(text, &doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	for _, k := range md.Undecoded() {
		doc.Undecoded = append(doc.Undecoded, k.String())
	}
	return &doc, nil
}
