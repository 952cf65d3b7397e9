// Package admin guards the listing endpoint with a single shared secret.
package admin

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/class-registration/internal/metrics"
	"github.com/aanand-mishra/class-registration/internal/utils/response"
)

// HeaderName is the request header carrying the admin secret.
const HeaderName = "admin-key"

// MsgUnauthorized is the body of a rejected admin request.
const MsgUnauthorized = "Unauthorized: Invalid Admin Password"

// ErrUnauthorized is returned when the supplied secret does not match.
var ErrUnauthorized = errors.New("unauthorized")

// Gate compares supplied secrets against the configured one.
// There is no lockout; throttling is left to whatever sits in front.
type Gate struct {
	secret      []byte
	usesDefault bool
}

// NewGate returns a Gate for secret. usesDefault marks a secret that was
// not explicitly configured, so startup can warn about it.
func NewGate(secret string, usesDefault bool) *Gate {
	return &Gate{secret: []byte(secret), usesDefault: usesDefault}
}

// UsesDefault reports whether the gate runs on the fallback secret.
func (g *Gate) UsesDefault() bool { return g.usesDefault }

// Authorize returns nil when supplied equals the configured secret.
// An empty secret never matches, even if one was configured empty.
func (g *Gate) Authorize(supplied string) error {
	if supplied == "" || len(g.secret) == 0 {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(supplied), g.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// RequireAdminKey rejects requests whose admin-key header does not pass
// the gate with 403 and a JSON error, before next runs.
func RequireAdminKey(gate *Gate, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := gate.Authorize(r.Header.Get(HeaderName)); err != nil {
				m.ObserveAdmin(false)
				logger.WarnContext(r.Context(), "admin key mismatch",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
				_ = response.WriteJSON(w, http.StatusForbidden, response.Error(MsgUnauthorized))
				return
			}
			m.ObserveAdmin(true)
			next.ServeHTTP(w, r)
		})
	}
}
