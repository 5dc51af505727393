package registry

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wallyscope/pkg/cache"
	"github.com/matzehuels/wallyscope/pkg/observability"
)

// CachedSource persists objects addressed by SHA. Git objects are immutable,
// so these entries never expire. Refs that are not object IDs (such as the
// root tree's "main") always go to the wrapped source.
type CachedSource struct {
	next   Source
	cache  cache.Cache
	logger *log.Logger
}

// NewCachedSource wraps next with a persistent cache. A nil cache disables
// persistence.
func NewCachedSource(next Source, c cache.Cache, logger *log.Logger) *CachedSource {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedSource{
		next:   next,
		cache:  cache.NewScoped(c, "registry:"),
		logger: logger,
	}
}

// Tree implements [Source].
func (s *CachedSource) Tree(ctx context.Context, repo Repo, ref string) ([]TreeItem, error) {
	if !isObjectID(ref) {
		return s.next.Tree(ctx, repo, ref)
	}

	key := cache.Key("tree", repo.String(), ref)
	if data, ok := s.lookup(ctx, "tree", key); ok {
		var items []TreeItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		s.logger.Debug("discarding unreadable cached tree", "key", key)
	}

	items, err := s.next.Tree(ctx, repo, ref)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		s.store(ctx, "tree", key, data)
	}
	return items, nil
}

// Blob implements [Source].
func (s *CachedSource) Blob(ctx context.Context, repo Repo, sha string) ([]byte, error) {
	if !isObjectID(sha) {
		return s.next.Blob(ctx, repo, sha)
	}

	key := cache.Key("blob", repo.String(), sha)
	if data, ok := s.lookup(ctx, "blob", key); ok {
		return data, nil
	}

	data, err := s.next.Blob(ctx, repo, sha)
	if err != nil {
		return nil, err
	}
	s.store(ctx, "blob", key, data)
	return data, nil
}

func (s *CachedSource) lookup(ctx context.Context, kind, key string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Debug("cache read failed", "key", key, "err", err)
	}
	if !ok || err != nil {
		observability.Cache().OnCacheMiss(ctx, kind)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return data, true
}

func (s *CachedSource) store(ctx context.Context, kind, key string, data []byte) {
	if err := s.cache.Set(ctx, key, data, 0); err != nil {
		s.logger.Debug("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

var _ Source = (*CachedSource)(nil)
