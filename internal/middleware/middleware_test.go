package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type staticTokens map[string]string

func (s staticTokens) UserForToken(token string) (string, bool) {
	u, ok := s[token]
	return u, ok
}

func TestBearerAuth(t *testing.T) {
	tokens := staticTokens{"T1": "7"}
	tests := []struct {
		name       string
		header     string
		wantCalled bool
		wantCode   int
		wantUser   string
	}{
		{name: "no header", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic T1", wantCode: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantCode: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer T2", wantCode: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer T1", wantCalled: true, wantCode: http.StatusOK, wantUser: "7"},
		{name: "lowercase scheme", header: "bearer T1", wantCalled: true, wantCode: http.StatusOK, wantUser: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(tokens)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCalled, dummy.called)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCalled {
				assert.Equal(t, tt.wantUser, GetUserIDFromContext(dummy.ctx))
			} else {
				assert.Contains(t, rec.Body.String(), `"detail"`)
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, GetUserIDFromContext(context.Background()))
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/notes", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "POST", fields["method"])
		assert.Equal(t, "/notes", fields["path"])
		assert.EqualValues(t, http.StatusTeapot, fields["status"])
		assert.EqualValues(t, len("short and stout"), fields["size"])
		assert.Equal(t, "rid-1", fields["request_id"])
	}
}
