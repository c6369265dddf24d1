package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/netx"
)

// State tracks the worker lifecycle. Requests are only served from cache
// after activation; before that they pass straight through.
type State int32

const (
	StateInstalling State = iota
	StateInstalled
	StateActivating
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// Background-sync tags recognized from UI clients.
const (
	TagPendingOperations = "sync-pending-operations"
	TagFuelRecordSync    = "fuel-record-sync"
)

// staticExtensions is the allow-list for the cache-first policy.
var staticExtensions = map[string]struct{}{
	".js": {}, ".css": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".svg": {},
	".webp": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// Worker applies the per-resource-class cache policy in front of the
// upstream web server.
type Worker struct {
	upstream *url.URL
	client   *http.Client
	caches   *CacheSet
	hub      *Hub
	log      logging.Logger

	state    atomic.Int32
	manifest []string

	syncFn func()
	tagMu  sync.Mutex
	tags   map[string]struct{}
}

// NewWorker builds a worker for the given upstream origin. manifest lists
// the shell URLs precached at install time.
func NewWorker(upstream string, manifest []string, logger logging.Logger) (*Worker, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("bad upstream url: %w", err)
	}

	w := &Worker{
		upstream: u,
		client:   netx.NewHTTPClient(10 * time.Second),
		caches:   NewCacheSet(),
		log:      logger,
		manifest: manifest,
		tags:     make(map[string]struct{}),
	}
	w.hub = NewHub(logger, w.handleMessage)
	return w, nil
}

func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(ctx context.Context, s State) {
	w.state.Store(int32(s))
	w.log.Info(ctx, "worker state", "state", s.String())
}

// Hub exposes the websocket endpoint for UI clients.
func (w *Worker) Hub() *Hub { return w.hub }

// SetSyncTrigger wires the reconciler in; START_SYNC messages and flushed
// background-sync tags invoke it.
func (w *Worker) SetSyncTrigger(fn func()) { w.syncFn = fn }

// Install opens the versioned static bucket and pre-populates it with the
// shell manifest. Each URL's failure is isolated: one missing asset must not
// abort installation. Finishes in the installed state, ready for immediate
// activation (no waiting for an old instance).
func (w *Worker) Install(ctx context.Context) {
	w.setState(ctx, StateInstalling)
	w.caches.Open(StaticCacheName)

	for _, p := range w.manifest {
		entry, err := w.fetchEntry(ctx, p)
		if err != nil || entry.Status < 200 || entry.Status > 299 {
			w.log.Warn(ctx, "failed to precache shell url", "url", p, "err", err)
			continue
		}
		w.caches.Put(StaticCacheName, p, entry)
	}

	w.setState(ctx, StateInstalled)
}

// Activate evicts every cache generation that is not the current static or
// dynamic bucket, then starts governing requests immediately.
func (w *Worker) Activate(ctx context.Context) {
	w.setState(ctx, StateActivating)

	for _, name := range w.caches.Names() {
		if name == StaticCacheName || name == DynamicCacheName {
			continue
		}
		w.log.Info(ctx, "deleting stale cache generation", "name", name)
		w.caches.Delete(name)
	}
	w.caches.Open(DynamicCacheName)

	w.setState(ctx, StateActivated)
}

// ClearCache purges every bucket, current generations included.
func (w *Worker) ClearCache() error {
	for _, name := range w.caches.Names() {
		w.caches.Delete(name)
	}
	return nil
}

// Caches is exported for tests and diagnostics.
func (w *Worker) Caches() *CacheSet { return w.caches }

// RegisterSyncTag records a background-sync registration to replay once
// connectivity returns.
func (w *Worker) RegisterSyncTag(tag string) {
	w.tagMu.Lock()
	defer w.tagMu.Unlock()
	w.tags[tag] = struct{}{}
}

// FlushSyncTags fires the sync trigger if any background-sync registrations
// are outstanding. The agent calls it on every offline-to-online transition.
func (w *Worker) FlushSyncTags() {
	w.tagMu.Lock()
	tags := make([]string, 0, len(w.tags))
	for t := range w.tags {
		tags = append(tags, t)
	}
	w.tags = make(map[string]struct{})
	w.tagMu.Unlock()

	if len(tags) == 0 {
		return
	}
	w.hub.Broadcast(EventStartSync, map[string]any{"tags": tags})
	if w.syncFn != nil {
		w.syncFn()
	}
}

// Push forwards a push notification payload to all connected clients.
func (w *Worker) Push(payload any) {
	w.hub.Broadcast(EventPush, payload)
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) *Reply {
	switch msg.Type {
	case MsgSkipWaiting:
		if w.State() == StateInstalled {
			w.Activate(ctx)
		}
	case MsgClearCache:
		if err := w.ClearCache(); err != nil {
			return &Reply{Success: false, Error: err.Error()}
		}
		return &Reply{Success: true}
	case MsgStartSync:
		if w.syncFn != nil {
			go w.syncFn()
		}
	case MsgRegisterTag:
		if msg.Tag != "" {
			w.RegisterSyncTag(msg.Tag)
		}
	default:
		w.log.Debug(ctx, "ignoring unknown message", "type", msg.Type)
	}
	return nil
}

// ServeHTTP classifies the request and applies the matching policy.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	// An un-activated worker does not govern requests yet.
	if w.State() != StateActivated {
		w.passthrough(rw, req)
		return
	}

	switch {
	case w.isCrossOrigin(req) || strings.HasPrefix(req.URL.Path, "/api/"):
		// API freshness and offline handling belong to the fetch wrapper,
		// not the transport cache: no interception, no double-caching.
		w.passthrough(rw, req)
	case isNavigation(req):
		w.serveNavigation(rw, req)
	case isStaticAsset(req.URL.Path):
		w.serveStatic(rw, req)
	default:
		w.serveDynamic(rw, req)
	}
}

func (w *Worker) isCrossOrigin(req *http.Request) bool {
	return req.URL.IsAbs() && req.URL.Host != "" && req.URL.Host != w.upstream.Host
}

func isNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func isStaticAsset(p string) bool {
	_, ok := staticExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// serveNavigation: network-first; successful documents refresh the dynamic
// cache; offline falls back to the matching cached page, then to the cached
// shell root.
func (w *Worker) serveNavigation(rw http.ResponseWriter, req *http.Request) {
	key := req.URL.RequestURI()

	entry, err := w.fetchEntry(req.Context(), key)
	if err == nil {
		if entry.Status >= 200 && entry.Status <= 299 {
			w.caches.Put(DynamicCacheName, key, entry)
			w.hub.Broadcast(EventNetworkSuccess, map[string]any{"url": key})
		}
		writeEntry(rw, entry)
		return
	}

	for _, candidate := range []struct{ bucket, key string }{
		{DynamicCacheName, key},
		{DynamicCacheName, "/"},
		{StaticCacheName, "/"},
	} {
		if cached := w.caches.Match(candidate.bucket, candidate.key); cached != nil {
			w.hub.Broadcast(EventCacheUsed, map[string]any{"url": key})
			writeEntry(rw, cached)
			return
		}
	}

	w.serveOffline(rw, req, key)
}

// serveStatic: cache-first with background revalidation. A cached asset is
// returned immediately and refreshed without blocking the response.
func (w *Worker) serveStatic(rw http.ResponseWriter, req *http.Request) {
	key := req.URL.RequestURI()

	if cached := w.caches.Match(StaticCacheName, key); cached != nil {
		w.hub.Broadcast(EventCacheUsed, map[string]any{"url": key})
		writeEntry(rw, cached)
		go w.revalidate(key)
		return
	}

	entry, err := w.fetchEntry(req.Context(), key)
	if err != nil {
		w.serveOffline(rw, req, key)
		return
	}
	if entry.Status >= 200 && entry.Status <= 299 {
		w.caches.Put(StaticCacheName, key, entry)
		w.hub.Broadcast(EventNetworkSuccess, map[string]any{"url": key})
	}
	writeEntry(rw, entry)
}

// revalidate refreshes one static asset in the background.
func (w *Worker) revalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry, err := w.fetchEntry(ctx, key)
	if err != nil || entry.Status < 200 || entry.Status > 299 {
		return
	}
	w.caches.Put(StaticCacheName, key, entry)
}

// serveDynamic: network-first with bare cache fallback.
func (w *Worker) serveDynamic(rw http.ResponseWriter, req *http.Request) {
	key := req.URL.RequestURI()

	entry, err := w.fetchEntry(req.Context(), key)
	if err == nil {
		if entry.Status >= 200 && entry.Status <= 299 {
			w.caches.Put(DynamicCacheName, key, entry)
		}
		writeEntry(rw, entry)
		return
	}

	if cached := w.caches.Match(DynamicCacheName, key); cached != nil {
		w.hub.Broadcast(EventCacheUsed, map[string]any{"url": key})
		writeEntry(rw, cached)
		return
	}

	w.serveOffline(rw, req, key)
}

// serveOffline synthesizes the 503 returned when neither network nor cache
// can satisfy a request.
func (w *Worker) serveOffline(rw http.ResponseWriter, req *http.Request, key string) {
	w.hub.Broadcast(EventOfflineError, map[string]any{"url": key})
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprintf(rw, "offline: %s is not available\n", key)
}

// passthrough forwards the request to the upstream unchanged and streams the
// response back.
func (w *Worker) passthrough(rw http.ResponseWriter, req *http.Request) {
	target := *req.URL
	target.Scheme = w.upstream.Scheme
	target.Host = w.upstream.Host
	if w.isCrossOrigin(req) {
		target = *req.URL
	}

	out, err := http.NewRequestWithContext(req.Context(), req.Method, target.String(), req.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	out.Header = req.Header.Clone()

	resp, err := w.client.Do(out)
	if err != nil {
		http.Error(rw, "upstream unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeader(rw.Header(), resp.Header)
	rw.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(rw, resp.Body)
}

// fetchEntry GETs one upstream path and buffers the whole response so it can
// be both cached and written out.
func (w *Worker) fetchEntry(ctx context.Context, key string) (*Entry, error) {
	u := *w.upstream
	parsed, err := url.Parse(key)
	if err != nil {
		return nil, err
	}
	u.Path = parsed.Path
	u.RawQuery = parsed.RawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Entry{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

func writeEntry(rw http.ResponseWriter, e *Entry) {
	copyHeader(rw.Header(), e.Header)
	rw.WriteHeader(e.Status)
	_, _ = rw.Write(e.Body)
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
