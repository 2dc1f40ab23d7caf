package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	loadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	data, ok := s.data[key]
	if !ok {
		return nil, errNoResponse
	}
	return data, nil
}

func (s *memoryStore) Save(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func newIdempotentRouter(store ResponseStore, calls *int32, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(IdempotencyWithStore(store))
	handle := func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"call": n})
	}
	router.POST("/rides", handle)
	router.PATCH("/rides/:id/complete", handle)
	router.GET("/rides/:id", handle)
	return router
}

func doRequest(router *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	var calls int32
	router := newIdempotentRouter(store, &calls, http.StatusCreated)

	first := doRequest(router, http.MethodPost, "/rides", "key-1")
	second := doRequest(router, http.MethodPost, "/rides", "key-1")

	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed status 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed body %q, got %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Error("expected replay header on second response")
	}
}

func TestIdempotency_KeysAreScopedToPath(t *testing.T) {
	store := newMemoryStore()
	var calls int32
	router := newIdempotentRouter(store, &calls, http.StatusOK)

	doRequest(router, http.MethodPatch, "/rides/a/complete", "same-key")
	doRequest(router, http.MethodPatch, "/rides/b/complete", "same-key")

	if calls != 2 {
		t.Errorf("expected 2 handler calls, got %d", calls)
	}
}

func TestIdempotency_SkipsReadsAndMissingKeys(t *testing.T) {
	store := newMemoryStore()
	var calls int32
	router := newIdempotentRouter(store, &calls, http.StatusOK)

	doRequest(router, http.MethodGet, "/rides/a", "key")
	doRequest(router, http.MethodGet, "/rides/a", "key")
	doRequest(router, http.MethodPost, "/rides", "")
	doRequest(router, http.MethodPost, "/rides", "")

	if calls != 4 {
		t.Errorf("expected 4 handler calls, got %d", calls)
	}
	if store.len() != 0 {
		t.Errorf("expected nothing stored, got %d entries", store.len())
	}
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	store := newMemoryStore()
	var calls int32
	router := newIdempotentRouter(store, &calls, http.StatusInternalServerError)

	doRequest(router, http.MethodPost, "/rides", "key-5xx")
	doRequest(router, http.MethodPost, "/rides", "key-5xx")

	if calls != 2 {
		t.Errorf("expected retries to reach the handler, got %d calls", calls)
	}
}

func TestIdempotency_StoreFailureFallsThrough(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("connection refused")
	var calls int32
	router := newIdempotentRouter(store, &calls, http.StatusCreated)

	w := doRequest(router, http.MethodPost, "/rides", "key-1")

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run, got %d calls", calls)
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := doRequest(router, http.MethodOptions, "/health", "")
	if preflight.Code != http.StatusNoContent {
		t.Errorf("expected preflight 204, got %d", preflight.Code)
	}

	w := doRequest(router, http.MethodGet, "/health", "")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}
