package sandboxagent

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEditWritesComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src", "LLMComponent.tsx")
	r := NewServer(path).Router()

	w := do(t, r, http.MethodPost, "/edit", `{"component":"export default function A(){}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export default function A(){}", string(got))

	w = do(t, r, http.MethodPost, "/edit", `{"component":"export default function B(){}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got, _ = os.ReadFile(path)
	assert.Equal(t, "export default function B(){}", string(got))
}

func TestEditRejectsInvalidComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LLMComponent.tsx")
	r := NewServer(path).Router()

	w := do(t, r, http.MethodPost, "/edit", `{"component":"function A(){}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "Invalid component", gjson.Get(w.Body.String(), "message").String())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEditMalformedBody(t *testing.T) {
	r := NewServer(filepath.Join(t.TempDir(), "c.tsx")).Router()
	w := do(t, r, http.MethodPost, "/edit", `not json`)
	assert.Equal(t, 422, w.Code)
}

func TestHeartbeat(t *testing.T) {
	r := NewServer(filepath.Join(t.TempDir(), "c.tsx")).Router()
	w := do(t, r, http.MethodGet, "/heartbeat", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
