package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	idempotencyKeyPrefix = "movix:idem:"
	idempotencyTTL       = 24 * time.Hour
)

// storedReply is the replayable outcome of a mutating call. Negotiation
// clients retry aggressively on flaky mobile links; replaying the original
// reply keeps a retried accept from surfacing as a spurious conflict.
type storedReply struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

type replyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *replyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored reply for a repeated Idempotency-Key on
// mutating methods. Requests without the header pass through untouched, as
// do all requests when Redis is unreachable.
func Idempotency(redisClient *redis.Client) gin.HandlerFunc {
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
		cacheKey := idempotencyKeyPrefix + key

		prior, err := loadReply(ctx, redisClient, cacheKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}
		if prior != nil {
			for name, values := range prior.Headers {
				for _, v := range values {
					c.Header(name, v)
				}
			}
			c.Data(prior.StatusCode, "application/json", prior.Body)
			c.Abort()
			return
		}

		rec := &replyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rec

		c.Next()

		// Conflicts (409) are stored too: a retried accept must see the
		// same verdict, not race the winner a second time. Server errors
		// stay retryable.
		if status := c.Writer.Status(); status < http.StatusInternalServerError {
			_ = storeReply(ctx, redisClient, cacheKey, &storedReply{
				StatusCode: status,
				Body:       rec.body.Bytes(),
				Headers:    replayHeaders(c),
			})
		}
	}
}

func loadReply(ctx context.Context, client *redis.Client, key string) (*storedReply, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func storeReply(ctx context.Context, client *redis.Client, key string, reply *storedReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, idempotencyTTL).Err()
}

func replayHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
