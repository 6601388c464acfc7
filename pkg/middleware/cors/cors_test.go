package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, "/students/student-1/checklist", nil)
	require.NoError(t, err)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	c.Request = req
	handler(c)
	return w
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	handler := New([]string{"https://app.example.com/"})
	w := performRequest(t, handler, http.MethodGet, "https://app.example.com")

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	handler := New([]string{"https://app.example.com"})
	w := performRequest(t, handler, http.MethodGet, "https://evil.example.com")

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardWhenUnconfigured(t *testing.T) {
	handler := New(nil)
	w := performRequest(t, handler, http.MethodGet, "")

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	handler := New([]string{"https://app.example.com"})
	w := performRequest(t, handler, http.MethodOptions, "https://app.example.com")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
