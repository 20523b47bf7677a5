package mw

import (
	"bytes"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// KeyFunc derives the cache key of a request.
type KeyFunc func(c *gin.Context) string

// QueryKey keys responses by path and the named query parameters only, in a
// fixed order. Unknown parameters and their order do not split the cache, so
// "?available=true&utm=x" and "?available=true" share one entry.
func QueryKey(params ...string) KeyFunc {
	sorted := append([]string(nil), params...)
	sort.Strings(sorted)
	return func(c *gin.Context) string {
		var b strings.Builder
		b.WriteString(c.Request.URL.Path)
		for _, p := range sorted {
			v, ok := c.GetQuery(p)
			if !ok {
				continue
			}
			b.WriteByte('|')
			b.WriteString(p)
			b.WriteByte('=')
			b.WriteString(strings.ToLower(strings.TrimSpace(v)))
		}
		return b.String()
	}
}

// Cache is a middleware for in-memory caching of GET requests. A nil key
// uses the raw request URI.
func Cache(store *cache.Cache, duration time.Duration, keyOf KeyFunc) gin.HandlerFunc {
	if keyOf == nil {
		keyOf = func(c *gin.Context) string { return c.Request.RequestURI }
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := keyOf(c)
		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		c.Writer.Header().Set("X-Cache", "MISS")
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			headers := blw.Header().Clone()
			headers.Del("X-Cache")
			response := cachedResponse{
				status:  blw.Status(),
				headers: headers,
				body:    blw.body.Bytes(),
			}
			store.Set(key, response, duration)
		}
	}
}

// Invalidate flushes the cache after a request that may have changed room
// availability succeeds.
func Invalidate(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusBadRequest {
			store.Flush()
		}
	}
}
