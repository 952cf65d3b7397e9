package admin

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/class-registration/internal/metrics"
)

func TestAuthorize(t *testing.T) {
	gate := NewGate("s3cret", false)

	tests := []struct {
		name     string
		supplied string
		wantErr  bool
	}{
		{name: "match", supplied: "s3cret"},
		{name: "empty", supplied: "", wantErr: true},
		{name: "wrong", supplied: "guess", wantErr: true},
		{name: "prefix", supplied: "s3cre", wantErr: true},
		{name: "longer", supplied: "s3cret!", wantErr: true},
		{name: "case differs", supplied: "S3CRET", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.supplied)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAuthorize_EmptyConfiguredSecretNeverMatches(t *testing.T) {
	require.ErrorIs(t, NewGate("", false).Authorize(""), ErrUnauthorized)
}

func TestUsesDefault(t *testing.T) {
	assert.True(t, NewGate("admin123", true).UsesDefault())
	assert.False(t, NewGate("s3cret", false).UsesDefault())
}

func TestRequireAdminKey(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var reached int
	h := RequireAdminKey(NewGate("s3cret", false), logger, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, MsgUnauthorized, body["error"])
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
		req.Header.Set(HeaderName, "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("right key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
		req.Header.Set(HeaderName, "s3cret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	assert.Equal(t, 1, reached)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdminDenied))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdminAllowed))
}
