package student

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/class-registration/internal/registration"
	"github.com/aanand-mishra/class-registration/internal/types"
	"github.com/aanand-mishra/class-registration/internal/utils/response"
)

type fakeService struct {
	registerErr error
	listErr     error
	students    []types.Student
	got         registration.Submission
}

func (f *fakeService) Register(_ context.Context, sub registration.Submission) (types.Student, error) {
	f.got = sub
	if f.registerErr != nil {
		return types.Student{}, f.registerErr
	}
	return types.Student{ID: types.IDFromInt(42), AdmissionNumber: sub.AdmissionNumber}, nil
}

func (f *fakeService) List(context.Context) ([]types.Student, error) {
	return f.students, f.listErr
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func serveRegister(t *testing.T, svc Service, body string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	Register(svc, discard).ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return rec.Code, out
}

func TestRegister(t *testing.T) {
	const payload = `{"name":"Asha","phone":"555-0100","admission_number":"CT100"}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "accepted", wantStatus: http.StatusOK},
		{
			name:       "invalid",
			err:        &registration.InvalidInputError{Reason: registration.MsgAdmissionFormat},
			wantStatus: http.StatusBadRequest,
			wantError:  registration.MsgAdmissionFormat,
		},
		{
			name:       "duplicate",
			err:        registration.ErrDuplicate,
			wantStatus: http.StatusConflict,
			wantError:  response.MsgDuplicate,
		},
		{
			name:       "unavailable",
			err:        fmt.Errorf("%w: disk on fire", registration.ErrUnavailable),
			wantStatus: http.StatusInternalServerError,
			wantError:  response.MsgInternal,
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  response.MsgInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{registerErr: tt.err}
			status, body := serveRegister(t, svc, payload)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, "CT100", svc.got.AdmissionNumber)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				assert.NotContains(t, body, "success")
				return
			}
			assert.Equal(t, true, body["success"])
			assert.Equal(t, 42.0, body["id"])
		})
	}
}

func TestRegister_InternalDetailNotLeaked(t *testing.T) {
	svc := &fakeService{registerErr: fmt.Errorf("%w: open /var/db.sqlite: permission denied", registration.ErrUnavailable)}
	_, body := serveRegister(t, svc, `{"name":"a","phone":"b","admission_number":"AB123"}`)

	assert.Equal(t, response.MsgInternal, body["error"])
}

func TestRegister_MalformedBodySkipsService(t *testing.T) {
	svc := &fakeService{registerErr: errors.New("must not be called")}
	status, body := serveRegister(t, svc, `not json`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.MsgInvalidRequest, body["error"])
	assert.Empty(t, svc.got.Name)
}

func TestRegister_OversizedBody(t *testing.T) {
	big := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	status, body := serveRegister(t, &fakeService{}, big)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.MsgInvalidRequest, body["error"])
}

func TestGetList(t *testing.T) {
	ts := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	t.Run("students", func(t *testing.T) {
		svc := &fakeService{students: []types.Student{
			{ID: types.IDFromInt(2), Name: "Ravi", Phone: "2", AdmissionNumber: "CT101", Timestamp: ts.Add(time.Second)},
			{ID: types.IDFromInt(1), Name: "Asha", Phone: "1", AdmissionNumber: "CT100", Timestamp: ts},
		}}
		rec := httptest.NewRecorder()
		GetList(svc, discard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []types.Student
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, svc.students, got)
	})

	t.Run("nil becomes empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetList(&fakeService{}, discard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		svc := &fakeService{listErr: fmt.Errorf("%w: timeout", registration.ErrUnavailable)}
		rec := httptest.NewRecorder()
		GetList(svc, discard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal server error."}`, rec.Body.String())
	})
}
