package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rodrigoferraz/autovendas-backend/api/responses"
	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// WriteRateLimit throttles state-changing endpoints with per-user and per-IP
// counters held in Redis. Read endpoints are left alone.
func WriteRateLimit(cfg config.RateLimitConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.WriteWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.WriteUserLimit > 0 {
				if userID := UserIDFromContext(ctx); userID != "" {
					key := fmt.Sprintf("rl:write:user:%s", userID)
					if blocked := enforce(ctx, logg, w, store, key, cfg.WriteWindow, int64(cfg.WriteUserLimit), "user"); blocked {
						return
					}
				}
			}
			if cfg.WriteIPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					key := fmt.Sprintf("rl:write:ip:%s", ip)
					if blocked := enforce(ctx, logg, w, store, key, cfg.WriteWindow, int64(cfg.WriteIPLimit), "ip"); blocked {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func enforce(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store rateLimiterStore, key string, window time.Duration, limit int64, scope string) bool {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return true
	}
	if count <= limit {
		return false
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteRetryAfter(w, window)
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return true
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
