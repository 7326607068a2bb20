package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/stepfree/stepfree/internal/api/middleware"
)

func loggedRequest(t *testing.T, status int) string {
	t.Helper()
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := middleware.RequestID(middleware.Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("body"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/obstacles", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return buf.String()
}

func TestLogger_RecordsRequestFields(t *testing.T) {
	line := loggedRequest(t, http.StatusOK)

	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/v1/obstacles"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"request_id":"req_`)
	assert.Contains(t, line, "request completed")
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	assert.Contains(t, loggedRequest(t, http.StatusBadRequest), `"level":"warn"`)
	assert.Contains(t, loggedRequest(t, http.StatusInternalServerError), `"level":"error"`)
}
