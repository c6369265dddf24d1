package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// upstreamStub serves a tiny shell: an index page, one script whose content
// can be swapped, and an API echo. It counts hits per path.
type upstreamStub struct {
	mu     sync.Mutex
	hits   map[string]int
	script string
}

func newUpstreamStub() *upstreamStub {
	return &upstreamStub{hits: map[string]int{}, script: "v1"}
}

func (u *upstreamStub) hitCount(p string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[p]
}

func (u *upstreamStub) setScript(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.script = s
}

func (u *upstreamStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	script := u.script
	u.mu.Unlock()

	switch r.URL.Path {
	case "/":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>shell</html>"))
	case "/app.js":
		w.Header().Set("Content-Type", "text/javascript")
		_, _ = w.Write([]byte(script))
	case "/api/vehicles":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	default:
		http.NotFound(w, r)
	}
}

func newTestWorker(t *testing.T, upstream *httptest.Server, manifest []string) *Worker {
	t.Helper()
	w, err := NewWorker(upstream.URL, manifest, testLogger())
	require.NoError(t, err)
	return w
}

func activated(t *testing.T, upstream *httptest.Server, manifest []string) *Worker {
	t.Helper()
	w := newTestWorker(t, upstream, manifest)
	ctx := context.Background()
	w.Install(ctx)
	w.Activate(ctx)
	require.Equal(t, StateActivated, w.State())
	return w
}

func doGet(w *Worker, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, req)
	return rec
}

func TestInstall_PrecachesShellAndIsolatesFailures(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := newTestWorker(t, srv, []string{"/", "/app.js", "/missing.css"})
	w.Install(context.Background())

	assert.Equal(t, StateInstalled, w.State())
	assert.NotNil(t, w.Caches().Match(StaticCacheName, "/"))
	assert.NotNil(t, w.Caches().Match(StaticCacheName, "/app.js"))
	// the missing asset did not abort installation and was not cached
	assert.Nil(t, w.Caches().Match(StaticCacheName, "/missing.css"))
}

func TestActivate_EvictsStaleGenerations(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := newTestWorker(t, srv, nil)
	w.Caches().Put("static-assets-v3", "/old.js", &Entry{Status: 200, Body: []byte("old")})
	w.Caches().Put("api-cache-v0", "/x", &Entry{Status: 200, Body: []byte("old")})

	w.Install(context.Background())
	w.Activate(context.Background())

	assert.Equal(t, []string{DynamicCacheName, StaticCacheName}, w.Caches().Names())
}

func TestServe_PassthroughBeforeActivation(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := newTestWorker(t, srv, nil)
	rec := doGet(w, "/app.js", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	// nothing cached: the worker does not govern requests yet
	assert.Nil(t, w.Caches().Match(StaticCacheName, "/app.js"))
}

func TestServe_APIPathsAreNotIntercepted(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, nil)
	rec := doGet(w, "/api/vehicles", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1}]`, rec.Body.String())
	assert.Nil(t, w.Caches().Match(DynamicCacheName, "/api/vehicles"))
}

func TestServe_StaticAssetCacheFirstWithRevalidation(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, nil)

	// miss: fetched from network and stored
	rec := doGet(w, "/app.js", nil)
	assert.Equal(t, "v1", rec.Body.String())
	require.NotNil(t, w.Caches().Match(StaticCacheName, "/app.js"))

	// hit: returned from cache immediately even though upstream changed,
	// while the background revalidation refreshes the stored copy
	stub.setScript("v2")
	rec = doGet(w, "/app.js", nil)
	assert.Equal(t, "v1", rec.Body.String(), "stale copy is served without blocking")

	require.Eventually(t, func() bool {
		e := w.Caches().Match(StaticCacheName, "/app.js")
		return e != nil && string(e.Body) == "v2"
	}, 2*time.Second, 10*time.Millisecond, "background refresh must update the cache")
}

func TestServe_NavigationNetworkFirstThenCachedShell(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)

	w := activated(t, srv, []string{"/"})

	headers := map[string]string{"Sec-Fetch-Mode": "navigate", "Accept": "text/html"}
	rec := doGet(w, "/", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, w.Caches().Match(DynamicCacheName, "/"))

	// upstream gone: an unseen route falls back to the cached shell
	srv.Close()
	rec = doGet(w, "/vehicles/12", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>shell</html>", rec.Body.String())
}

func TestServe_SynthesizedOffline503(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	w := activated(t, srv, nil)
	srv.Close()

	rec := doGet(w, "/logo.png", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "offline")
}

func TestServe_DynamicNetworkFirstWithCacheFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("manifest-data"))
	}))

	w := activated(t, srv, nil)

	rec := doGet(w, "/manifest.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manifest-data", rec.Body.String())

	srv.Close()

	rec = doGet(w, "/manifest.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manifest-data", rec.Body.String(), "served from dynamic cache")
}

func TestClearCache_PurgesEverything(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, []string{"/"})
	require.NotEmpty(t, w.Caches().Names())

	require.NoError(t, w.ClearCache())
	assert.Empty(t, w.Caches().Names())
}

func TestHandleMessage_SkipWaitingActivates(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := newTestWorker(t, srv, nil)
	w.Install(context.Background())
	require.Equal(t, StateInstalled, w.State())

	reply := w.handleMessage(context.Background(), Message{Type: MsgSkipWaiting})
	assert.Nil(t, reply)
	assert.Equal(t, StateActivated, w.State())
}

func TestHandleMessage_ClearCacheReplies(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, nil)
	reply := w.handleMessage(context.Background(), Message{Type: MsgClearCache})
	require.NotNil(t, reply)
	assert.True(t, reply.Success)
	assert.Empty(t, reply.Error)
}

func TestHandleMessage_StartSyncTriggers(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, nil)

	synced := make(chan struct{}, 1)
	w.SetSyncTrigger(func() { synced <- struct{}{} })

	w.handleMessage(context.Background(), Message{Type: MsgStartSync})
	select {
	case <-synced:
	case <-time.After(time.Second):
		t.Fatal("sync trigger was not invoked")
	}
}

func TestSyncTags_FlushFiresOnce(t *testing.T) {
	stub := newUpstreamStub()
	srv := httptest.NewServer(stub)
	defer srv.Close()

	w := activated(t, srv, nil)

	var calls int
	w.SetSyncTrigger(func() { calls++ })

	w.handleMessage(context.Background(), Message{Type: MsgRegisterTag, Tag: TagPendingOperations})
	w.handleMessage(context.Background(), Message{Type: MsgRegisterTag, Tag: TagFuelRecordSync})

	w.FlushSyncTags()
	assert.Equal(t, 1, calls, "one drain covers all registered tags")

	w.FlushSyncTags()
	assert.Equal(t, 1, calls, "no outstanding tags, no drain")
}
