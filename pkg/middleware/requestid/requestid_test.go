package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMiddleware(t *testing.T, forwarded string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
	require.NoError(t, err)
	if forwarded != "" {
		req.Header.Set("X-Request-ID", forwarded)
	}
	c.Request = req
	Middleware()(c)
	return c, w
}

func TestRequestIDGenerated(t *testing.T) {
	c, w := runMiddleware(t, "")

	id := Value(c)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestRequestIDReusesForwarded(t *testing.T) {
	c, w := runMiddleware(t, "client-trace-42")

	assert.Equal(t, "client-trace-42", Value(c))
	assert.Equal(t, "client-trace-42", w.Header().Get("X-Request-ID"))
}

func TestRequestIDRejectsOversizedForwarded(t *testing.T) {
	c, _ := runMiddleware(t, strings.Repeat("x", 200))

	id := Value(c)
	assert.NotEmpty(t, id)
	assert.NotContains(t, id, "xxx")
}
