package registry

import (
	"context"
	"errors"
	"net/url"
	"strings"

	apperr "github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// Sentinel errors returned by [Source] implementations.
var (
	ErrNotFound     = errors.New("registry object not found")
	ErrRateLimited  = errors.New("rate limited by GitHub")
	ErrUnauthorized = errors.New("GitHub rejected the access token")
	ErrUpstreamDown = errors.New("registry host unavailable")
	ErrNetwork      = errors.New("network error")
)

// TreeItem is one entry of a Git tree listing.
type TreeItem struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
}

// Source reads Git objects from a registry repository.
type Source interface {
	// Tree lists the entries of the tree at ref, which may be a branch name
	// or an object SHA.
	Tree(ctx context.Context, repo Repo, ref string) ([]TreeItem, error)

	// Blob returns the decoded content of the blob with the given SHA.
	Blob(ctx context.Context, repo Repo, sha string) ([]byte, error)
}

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// ParseRepo extracts the repository from a registry URL such as
// "https://github.com/UpliftGames/wally-index". Only GitHub-hosted
// registries are supported.
func ParseRepo(rawURL string) (Repo, error) {
	s := wally.NormalizeRegistry(rawURL)
	if err := apperr.ValidateURL(s); err != nil {
		return Repo{}, apperr.Wrap(apperr.ErrCodeInvalidRegistry, err, "invalid registry %q", rawURL)
	}

	u, err := url.Parse(s)
	if err != nil {
		return Repo{}, apperr.Wrap(apperr.ErrCodeInvalidRegistry, err, "invalid registry %q", rawURL)
	}
	if host := strings.ToLower(u.Host); host != "github.com" && host != "www.github.com" {
		return Repo{}, apperr.New(apperr.ErrCodeUnsupportedRegistry, "registry %q is not hosted on GitHub", rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, apperr.New(apperr.ErrCodeInvalidRegistry, "registry %q must name a repository as owner/name", rawURL)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// isObjectID reports whether ref looks like a full Git SHA-1.
func isObjectID(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
