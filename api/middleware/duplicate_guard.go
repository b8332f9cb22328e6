package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/rodrigoferraz/autovendas-backend/api/responses"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/rodrigoferraz/autovendas-backend/pkg/guard"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
)

// GuardPreset selects which request attributes feed the duplicate fingerprint
// for a route class.
type GuardPreset struct {
	Name        string
	IncludeUser bool
	IncludeIP   bool
	IncludeBody bool
}

var (
	// GuardCritical fingerprints caller plus payload. Used on the offer and
	// response endpoints where a double submit creates real state.
	GuardCritical = GuardPreset{Name: "critical", IncludeUser: true, IncludeBody: true}
	// GuardPerUser fingerprints method/route/caller only.
	GuardPerUser = GuardPreset{Name: "per_user", IncludeUser: true}
	// GuardPerIP fingerprints unauthenticated traffic by source address.
	GuardPerIP = GuardPreset{Name: "per_ip", IncludeIP: true}
)

// DuplicateGuard rejects a second identical request while the first is still
// in flight. The key is always released when the handler returns, whether it
// succeeded, failed or the client went away; the guard's background sweep
// covers keys whose release never ran.
func DuplicateGuard(g *guard.Guard, preset GuardPreset, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if g == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			parts := []string{preset.Name, r.Method, r.URL.Path}
			if preset.IncludeUser {
				parts = append(parts, UserIDFromContext(ctx))
			}
			if preset.IncludeIP {
				parts = append(parts, clientIP(r))
			}
			if preset.IncludeBody {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				sum := sha256.Sum256(body)
				parts = append(parts, hex.EncodeToString(sum[:]))
			}

			key := guard.Fingerprint(parts...)
			retryAfter, ok := g.Acquire(key)
			if !ok {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"preset":      preset.Name,
						"retry_after": retryAfter.String(),
					})
					logg.Warn(logCtx, "duplicate_guard.blocked")
				}
				responses.WriteRetryAfter(w, retryAfter)
				responses.WriteError(ctx, nil, w, pkgerrors.
					New(pkgerrors.CodeDuplicate, "identical request already in progress").
					WithDetails(map[string]any{"retry_after_seconds": int(retryAfter.Seconds()) + 1}))
				return
			}
			defer g.Release(key)

			next.ServeHTTP(w, r)
		})
	}
}
