package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

// RateLimiterStore is the counter surface backing the fixed-window limiter.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// SyncRateLimitPolicy throttles manual sync triggers. A full reconciliation
// is expensive against the platform API, so operators get a small budget per
// window rather than a free-for-all button.
type SyncRateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int64
}

// NewSyncRateLimitPolicy builds a policy with the supplied window and limit.
func NewSyncRateLimitPolicy(name string, window time.Duration, limit int64) SyncRateLimitPolicy {
	return SyncRateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limit:  limit,
	}
}

func (p SyncRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p SyncRateLimitPolicy) scope(ip string) string {
	name := p.name
	if name == "" {
		name = "sync"
	}
	if ip == "" {
		return name
	}
	return name + ":" + ip
}

// SyncRateLimit enforces a fixed-window budget per client IP.
func SyncRateLimit(policy SyncRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(clientIP(r)), policy.limit, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"scope": policy.scope(""),
						"count": count,
						"limit": policy.limit,
					})
					logg.Warn(ctx, "sync trigger throttled")
				}
				responses.WriteError(ctx, nil, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many sync requests, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
