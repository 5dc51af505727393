package registry

import (
	"context"
	"sync"

	"github.com/matzehuels/wallyscope/pkg/wally"
)

// SourceFactory builds the object source used for a given GitHub token.
type SourceFactory func(token string) Source

// Store hands out one [Client] per registry URL and owns the GitHub
// credentials they share.
type Store struct {
	factory SourceFactory
	opts    options

	mu      sync.Mutex
	token   string
	source  Source
	clients map[string]*Client
}

// NewStore creates a store. The factory is called once up front with an
// empty token and again whenever the token changes.
func NewStore(factory SourceFactory, opts ...Option) *Store {
	return &Store{
		factory: factory,
		opts:    buildOptions(opts),
		source:  factory(""),
		clients: make(map[string]*Client),
	}
}

// Client returns the client for url, creating it on first use. URLs that
// differ only by a trailing slash or ".git" share a client.
func (s *Store) Client(url string) (*Client, error) {
	key := wally.NormalizeRegistry(url)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c, err := newClient(key, s.source, s, s.opts)
	if err != nil {
		return nil, err
	}
	s.clients[key] = c
	return c, nil
}

// Token returns the current GitHub token.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetAuthToken switches every client to a source built for token. When the
// token actually changes all in-memory caches are dropped, since anonymous
// and authenticated reads may have seen different things. It reports whether
// anything changed.
func (s *Store) SetAuthToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	if token == s.token {
		s.mu.Unlock()
		return false
	}
	s.token = token
	s.source = s.factory(token)
	clients := s.snapshot()
	for _, c := range clients {
		c.setSource(s.source)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.InvalidateCache(ctx)
	}
	return true
}

// InvalidateAll drops the in-memory caches of every client.
func (s *Store) InvalidateAll(ctx context.Context) {
	s.mu.Lock()
	clients := s.snapshot()
	s.mu.Unlock()

	for _, c := range clients {
		c.InvalidateCache(ctx)
	}
}

func (s *Store) snapshot() []*Client {
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}
