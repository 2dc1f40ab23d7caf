package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// errNoResponse is returned by a ResponseStore when no response is stored for a key.
var errNoResponse = errors.New("no stored response")

// ResponseStore persists replayable responses.
type ResponseStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// redisResponseStore keeps responses in Redis.
type redisResponseStore struct {
	client *redis.Client
}

// NewRedisResponseStore creates a ResponseStore backed by Redis.
func NewRedisResponseStore(client *redis.Client) ResponseStore {
	return &redisResponseStore{client: client}
}

func (s *redisResponseStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNoResponse
	}
	return data, err
}

func (s *redisResponseStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, data, ttl).Err()
}

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key on POST, PUT and PATCH. Keys are scoped to the request path,
// so retrying PATCH /rides/:id/complete returns the first completion
// instead of a conflict.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	return IdempotencyWithStore(NewRedisResponseStore(redisClient))
}

// IdempotencyWithStore is IdempotencyMiddleware over an arbitrary ResponseStore.
func IdempotencyWithStore(store ResponseStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		cached, err := loadResponse(ctx, store, cacheKey)
		if err != nil && !errors.Is(err, errNoResponse) {
			// Store unavailable: serve the request without replay protection.
			log.Printf("idempotency lookup failed for %s: %v", cacheKey, err)
			c.Next()
			return
		}

		if cached != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// 5xx responses are not stored so the client can retry.
		status := c.Writer.Status()
		if status >= http.StatusOK && status < http.StatusInternalServerError {
			response := cachedResponse{
				StatusCode:  status,
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			}
			if err := saveResponse(ctx, store, cacheKey, &response); err != nil {
				log.Printf("idempotency store failed for %s: %v", cacheKey, err)
			}
		}
	}
}

func loadResponse(ctx context.Context, store ResponseStore, key string) (*cachedResponse, error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

func saveResponse(ctx context.Context, store ResponseStore, key string, response *cachedResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return store.Save(ctx, key, data, idempotencyTTL)
}
