// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key handling for recompute requests. A
// client that retries POST /clients/:id/attribution/recompute with the same
// key gets the first successful response back instead of a second recompute.
// Stored responses are scoped by client id and by the request line (method,
// path and query), so a key reused for a different request never replays.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client-chosen key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set to "true" on responses served from storage.
const HeaderIdempotentReplay = "Idempotent-Replay"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

// GetIdempotencyKey returns the validated key stashed by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response for this request was served from a
// stored idempotency record.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StoredResponse is a previously completed response eligible for replay.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists completed responses per (client, key). The key it
// sees is the header value combined with the request line. Lookup
// returns (nil, nil) when nothing live is stored. Expiry is the store's
// concern.
type IdempotencyStore interface {
	Lookup(ctx context.Context, clientID, key string, now time.Time) (*StoredResponse, error)
	Save(ctx context.Context, clientID, key string, status int, body []byte) error
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Now is used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Idempotency validates the Idempotency-Key header on unsafe methods and, when
// a store is given, replays stored responses or records fresh 2xx ones.
//
//   - No header, or a safe method: no-op.
//   - Malformed key: 400 bad_idempotency_key.
//   - Stored response for (":id", key, request line): written as-is with Idempotent-Replay
//     and the chain is aborted, so later middleware such as the rate limiter
//     never sees the request.
//   - Otherwise the handler runs and a 2xx body is saved. A failed lookup or
//     save is logged and does not fail the request.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		clientID := c.Param("id")
		if store == nil || clientID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := requestScopedKey(c.Request, key)
		stored, err := store.Lookup(ctx, clientID, storeKey, now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
		}
		if stored != nil {
			c.Set(ctxKeyIdemReplay, true)
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 || cw.buf.Len() == 0 {
			return
		}
		if err := store.Save(ctx, clientID, storeKey, status, cw.buf.Bytes()); err != nil {
			LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency save failed")
		}
	}
}

// requestScopedKey binds key to the request line. Query parameters are
// re-encoded in sorted order so equivalent URLs share a record.
func requestScopedKey(r *http.Request, key string) string {
	return key + " " + r.Method + " " + r.URL.Path + "?" + r.URL.Query().Encode()
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// captureWriter tees the response body so it can be stored after the handler.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
