package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	apperr "github.com/matzehuels/wallyscope/pkg/errors"
)

var testRepo = Repo{Owner: "UpliftGames", Name: "wally-index"}

func TestGitHubSourceTreeAndBlob(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte(`{"package":{"name":"evaera/promise","version":"4.0.0"}}`))
	wrapped := content[:10] + "\n" + content[10:]

	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Path {
		case "/repos/UpliftGames/wally-index/git/trees/main":
			fmt.Fprint(w, `{"sha":"abc","tree":[{"path":"evaera","type":"tree","sha":"t1"},{"path":"config.json","type":"blob","sha":"b1"}]}`)
		case "/repos/UpliftGames/wally-index/git/blobs/b2":
			fmt.Fprintf(w, `{"sha":"b2","encoding":"base64","content":%q}`, wrapped)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithToken("ghp_test"), WithRetry(1, 0))
	ctx := context.Background()

	items, err := src.Tree(ctx, testRepo, "main")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(items) != 2 || items[0].Path != "evaera" || items[0].Type != "tree" {
		t.Errorf("Tree = %+v", items)
	}
	if gotAuth != "Bearer ghp_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/vnd.github.v3+json" {
		t.Errorf("Accept = %q", gotAccept)
	}

	data, err := src.Blob(ctx, testRepo, "b2")
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if string(data) != `{"package":{"name":"evaera/promise","version":"4.0.0"}}` {
		t.Errorf("Blob = %q", data)
	}

	if _, err := src.Blob(ctx, testRepo, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing blob error = %v, want ErrNotFound", err)
	}
}

func TestGitHubSourceAnonymous(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"tree":[]}`)
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(1, 0))
	if _, err := src.Tree(context.Background(), testRepo, "main"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Errorf("anonymous request sent Authorization %q", gotAuth)
	}
}

func TestGitHubSourceRateLimit(t *testing.T) {
	reset := time.Now().Add(90 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(1, 0))
	_, err := src.Tree(context.Background(), testRepo, "main")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	var rl *apperr.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error %v does not carry RateLimitedError", err)
	}
	if rl.RetryAfter < 80 || rl.RetryAfter > 91 {
		t.Errorf("RetryAfter = %d, want about 90", rl.RetryAfter)
	}
}

func TestGitHubSourceForbiddenIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(1, 0))
	if _, err := src.Tree(context.Background(), testRepo, "main"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestGitHubSourceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"tree":[{"path":"a","type":"tree","sha":"s"}]}`)
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	items, err := src.Tree(context.Background(), testRepo, "main")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(items) != 1 || hits.Load() != 3 {
		t.Errorf("items = %d, hits = %d", len(items), hits.Load())
	}
}

func TestGitHubSourceBreakerTrips(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(1, 0))
	ctx := context.Background()
	for range 5 {
		if _, err := src.Tree(ctx, testRepo, "main"); !errors.Is(err, ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
	}

	_, err := src.Tree(ctx, testRepo, "main")
	if !errors.Is(err, ErrUpstreamDown) {
		t.Fatalf("error after trip = %v, want ErrUpstreamDown", err)
	}
	if hits.Load() != 5 {
		t.Errorf("hits = %d, want 5", hits.Load())
	}
	for host, state := range src.BreakerStates() {
		if state != "open" {
			t.Errorf("breaker %s = %s, want open", host, state)
		}
	}
}

func TestGitHubSourceNotFoundDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := NewGitHubSource(WithBaseURL(srv.URL), WithRetry(1, 0))
	for range 8 {
		if _, err := src.Tree(context.Background(), testRepo, "main"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	h := http.Header{}
	h.Set("Retry-After", "12")
	if got := retryAfter(h, now); got != 12 {
		t.Errorf("Retry-After: got %d", got)
	}

	h = http.Header{}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Unix()+30, 10))
	if got := retryAfter(h, now); got != 30 {
		t.Errorf("X-RateLimit-Reset: got %d", got)
	}

	if got := retryAfter(http.Header{}, now); got != 0 {
		t.Errorf("no headers: got %d", got)
	}
}

func TestIsObjectID(t *testing.T) {
	if !isObjectID("0123456789abcdef0123456789abcdef01234567") {
		t.Error("40 hex chars should be an object ID")
	}
	for _, ref := range []string{"main", "0123456789ABCDEF0123456789ABCDEF01234567", "0123"} {
		if isObjectID(ref) {
			t.Errorf("isObjectID(%q) = true", ref)
		}
	}
}
