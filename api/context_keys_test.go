package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jatrackr/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	api, _, _ := setupTestAPI(t, config.EnvironmentDevelopment, testAPIOptions{})

	rec := serve(api, http.MethodGet, "/health", "")

	id := rec.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestID_ClientValueEchoedSanitized(t *testing.T) {
	api, _, _ := setupTestAPI(t, config.EnvironmentDevelopment, testAPIOptions{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123\n<script>")
	rec := httptestServeRequest(api, req)

	assert.Equal(t, "abc-123script", rec.Header().Get(RequestIDHeader))
}

func TestRequestID_ReachesHandlers(t *testing.T) {
	api, _, _ := setupTestAPI(t, config.EnvironmentDevelopment, testAPIOptions{})

	var seen string
	handler := api.requestLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDOrDefault(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "trace-42", seen)
}

func TestSanitizeRequestID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"req_1-A", "req_1-A"},
		{"a b;c", "abc"},
		{strings.Repeat("x", 80), strings.Repeat("x", maxRequestIDLength)},
		{"\r\n", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeRequestID(tt.in), tt.in)
	}
}

func TestResolveRequestID_FallsBackWhenNothingSurvives(t *testing.T) {
	id := resolveRequestID("!!!")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestGetRequestIDOrDefault(t *testing.T) {
	assert.Equal(t, "unknown", GetRequestIDOrDefault(context.Background()))
	assert.Equal(t, "r1", GetRequestIDOrDefault(WithRequestID(context.Background(), "r1")))
}
