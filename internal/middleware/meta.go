package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	started  time.Time
	cacheHit *bool
}

// WithResponseMeta starts the per-request metadata that cached endpoints return under "meta".
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now()})
		c.Next()
	}
}

// SetCacheHit marks whether the response body came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFrom(c).cacheHit = &hit
}

// ExtractMeta renders the metadata collected so far, including the elapsed time and request id.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	m := metaFrom(c)
	out := map[string]interface{}{
		"processing_time_ms": time.Since(m.started).Milliseconds(),
	}
	if m.cacheHit != nil {
		out["cache_hit"] = *m.cacheHit
	}
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	return out
}

func metaFrom(c *gin.Context) *responseMeta {
	if v, ok := c.Get(responseMetaKey); ok {
		if m, ok := v.(*responseMeta); ok {
			return m
		}
	}
	m := &responseMeta{started: time.Now()}
	c.Set(responseMetaKey, m)
	return m
}
