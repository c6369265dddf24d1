// Package gateway is the transport-layer cache in front of the fleet web
// UI, the agent's counterpart of a browser service worker. It intercepts
// navigation, static-asset and API traffic, applies a per-class caching
// policy over versioned cache generations, and pushes worker events to
// connected UI clients over a websocket.
package gateway

import (
	"net/http"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Versioned generation names. Bump on every deploy that changes the shape of
// cached assets: activation evicts every bucket that no longer matches.
const (
	StaticCacheName  = "static-assets-v4"
	DynamicCacheName = "api-cache-v1"
)

// Entry is a cached HTTP response. Bodies are copied before storing because
// a response body can only be consumed once.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
}

func (e *Entry) clone() *Entry {
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	return &Entry{Status: e.Status, Header: e.Header.Clone(), Body: body}
}

// CacheSet is the registry of named cache generations. Buckets never expire
// entries on their own; lifecycle is owned by install/activate.
type CacheSet struct {
	mu      sync.Mutex
	buckets map[string]*gocache.Cache
}

func NewCacheSet() *CacheSet {
	return &CacheSet{buckets: make(map[string]*gocache.Cache)}
}

// Open returns the named bucket, creating it if needed.
func (cs *CacheSet) Open(name string) *gocache.Cache {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b, ok := cs.buckets[name]
	if !ok {
		b = gocache.New(gocache.NoExpiration, 0)
		cs.buckets[name] = b
	}
	return b
}

// Names lists every existing bucket, sorted.
func (cs *CacheSet) Names() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	names := make([]string, 0, len(cs.buckets))
	for name := range cs.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete drops a whole generation.
func (cs *CacheSet) Delete(name string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.buckets, name)
}

// Put stores a cloned entry under key.
func (cs *CacheSet) Put(bucket, key string, e *Entry) {
	cs.Open(bucket).Set(key, e.clone(), gocache.NoExpiration)
}

// Match returns the cached entry for key, or nil.
func (cs *CacheSet) Match(bucket, key string) *Entry {
	v, ok := cs.Open(bucket).Get(key)
	if !ok {
		return nil
	}
	return v.(*Entry)
}
