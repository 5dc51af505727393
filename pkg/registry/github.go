package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/rs/dnscache"

	apperr "github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/httputil"
	"github.com/matzehuels/wallyscope/pkg/observability"
)

const (
	// DefaultAPIURL is the GitHub REST API endpoint.
	DefaultAPIURL = "https://api.github.com"

	httpTimeout = 30 * time.Second
)

var (
	resolverOnce sync.Once
	resolver     *dnscache.Resolver
)

// sharedResolver returns the process-wide DNS cache, refreshed every five
// minutes.
func sharedResolver() *dnscache.Resolver {
	resolverOnce.Do(func() {
		resolver = &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				resolver.Refresh(true)
			}
		}()
	})
	return resolver
}

// NewHTTPClient creates an HTTP client that resolves hosts through a shared
// DNS cache.
func NewHTTPClient() *http.Client {
	r := sharedResolver()
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: httpTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := r.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// GitHubSource reads registry objects through the GitHub Git database API.
// It is safe for concurrent use.
type GitHubSource struct {
	baseURL  string
	http     *http.Client
	token    string
	attempts int
	delay    time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

// GitHubOption configures a [GitHubSource].
type GitHubOption func(*GitHubSource)

// WithBaseURL points the source at a different API host, such as a test server.
func WithBaseURL(u string) GitHubOption {
	return func(s *GitHubSource) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(s *GitHubSource) { s.http = c }
}

// WithToken authenticates requests with a GitHub token. Empty means anonymous.
func WithToken(token string) GitHubOption {
	return func(s *GitHubSource) { s.token = token }
}

// WithRetry sets the attempt count and initial delay for transient failures.
func WithRetry(attempts int, delay time.Duration) GitHubOption {
	return func(s *GitHubSource) {
		s.attempts = attempts
		s.delay = delay
	}
}

// NewGitHubSource creates a source for api.github.com.
func NewGitHubSource(opts ...GitHubOption) *GitHubSource {
	s := &GitHubSource{
		baseURL:  DefaultAPIURL,
		attempts: 3,
		delay:    time.Second,
		breakers: make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = NewHTTPClient()
	}
	return s
}

type treeResponse struct {
	SHA       string     `json:"sha"`
	Tree      []TreeItem `json:"tree"`
	Truncated bool       `json:"truncated"`
}

type blobResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Tree implements [Source].
func (s *GitHubSource) Tree(ctx context.Context, repo Repo, ref string) ([]TreeItem, error) {
	var resp treeResponse
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(ref))
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Tree, nil
}

// Blob implements [Source].
func (s *GitHubSource) Blob(ctx context.Context, repo Repo, sha string) ([]byte, error) {
	var resp blobResponse
	path := fmt.Sprintf("/repos/%s/%s/git/blobs/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(sha))
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Encoding != "" && resp.Encoding != "base64" {
		return []byte(resp.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decoding blob %s: %w", sha, err)
	}
	return data, nil
}

// BreakerStates reports "open" or "closed" per API host.
func (s *GitHubSource) BreakerStates() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]string, len(s.breakers))
	for host, b := range s.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func (s *GitHubSource) breaker(host string) *circuit.Breaker {
	s.mu.RLock()
	b, ok := s.breakers[host]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	s.breakers[host] = b
	return b
}

func (s *GitHubSource) get(ctx context.Context, path string, v any) error {
	target := s.baseURL + path
	host := hostOf(target)
	b := s.breaker(host)
	if !b.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	// Answers the server gave on purpose do not count against the breaker.
	var answered error
	err := b.Call(func() error {
		err := httputil.Retry(ctx, s.attempts, s.delay, func() error {
			return s.do(ctx, target, host, path, v)
		})
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
			answered = err
			return nil
		}
		return err
	}, 0)
	if answered != nil {
		return answered
	}
	return err
}

func (s *GitHubSource) do(ctx context.Context, target, host, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "wallyscope")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := s.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrNetwork, path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests,
		code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("%w: %w", ErrRateLimited, &apperr.RateLimitedError{
			RetryAfter: retryAfter(resp.Header, time.Now()),
			Message:    "GitHub API rate limit exceeded",
		})
	case code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// retryAfter returns the wait in seconds advertised by Retry-After or
// X-RateLimit-Reset, or 0 if neither is usable.
func retryAfter(h http.Header, now time.Time) int {
	if n, err := strconv.Atoi(h.Get("Retry-After")); err == nil && n > 0 {
		return n
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if wait := time.Unix(reset, 0).Sub(now); wait > 0 {
			return int(wait.Round(time.Second) / time.Second)
		}
	}
	return 0
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
