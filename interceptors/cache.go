package interceptors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// Store is the cache backend used by the cache interceptor. Implementations
// must be safe for concurrent use; one store instance is shared across every
// call that flows through the interceptor.
type Store interface {
	Get(ctx context.Context, key string) (*contracts.ChatResponse, bool)
	Set(ctx context.Context, key string, resp *contracts.ChatResponse)
}

type cacheEntry struct {
	resp     *contracts.ChatResponse
	storedAt time.Time
}

// MemoryStore is an in-process TTL cache store guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewMemoryStore creates a memory store. A non-positive TTL means entries
// never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get implements Store. Expired entries are treated as misses and dropped.
func (s *MemoryStore) Get(_ context.Context, key string) (*contracts.ChatResponse, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && time.Since(entry.storedAt) > s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return entry.resp, true
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, resp *contracts.ChatResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{resp: resp, storedAt: time.Now()}
}

// Len returns the number of live entries, for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CacheConfig configures the cache interceptor.
type CacheConfig struct {
	// Store holds cached responses. Defaults to an in-memory TTL store.
	Store Store

	// TTL bounds entry lifetime in the default store. Defaults to 5 minutes.
	// Ignored when a custom Store is supplied.
	TTL time.Duration

	// KeyFunc computes the cache key. Defaults to CacheKey.
	KeyFunc func(req *contracts.ChatRequest, opts *contracts.CallOptions) string

	// SkipFunc, when it returns true, bypasses the cache for that call.
	SkipFunc func(ex *pipeline.Execution) bool
}

// CacheKey is the default cache key: a SHA-256 over the canonical JSON of the
// effective request and options.
func CacheKey(req *contracts.ChatRequest, opts *contracts.CallOptions) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(req)
	_ = enc.Encode(opts)
	return hex.EncodeToString(h.Sum(nil))
}

// Cache returns an interceptor that serves repeated requests from a store.
// On a live hit it sets the cached response and terminates the chain, so the
// unit of work and all not-yet-entered interceptors are skipped. Its own
// leave callback still runs on a hit and must not re-store the value, which
// it detects through MetaCacheHit. On a miss, the leave callback stores the
// response under the same key.
func Cache(cfg CacheConfig) pipeline.Interceptor {
	store := cfg.Store
	if store == nil {
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		store = NewMemoryStore(ttl)
	}
	keyFn := cfg.KeyFunc
	if keyFn == nil {
		keyFn = CacheKey
	}

	return pipeline.Interceptor{
		Name: "cache",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			if cfg.SkipFunc != nil && cfg.SkipFunc(ex) {
				return ex, nil
			}
			key := keyFn(ex.EffectiveRequest(), ex.EffectiveOptions())
			ex.SetMeta(MetaCacheKey, key)

			if resp, ok := store.Get(ctx, key); ok {
				ex.SetMeta(MetaCacheHit, true)
				return ex.WithResponse(resp).Terminate(), nil
			}
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			if hit, ok := ex.Meta(MetaCacheHit); ok && hit == true {
				return ex, nil
			}
			if ex.Response == nil {
				return ex, nil
			}
			if key, ok := ex.MetaString(MetaCacheKey); ok {
				store.Set(ctx, key, ex.Response)
			}
			return ex, nil
		},
	}
}
