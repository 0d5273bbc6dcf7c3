package mycontext

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFromHTTPRequest(t *testing.T) {
	t.Run("With trace and session", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "sheetmusic")
		request, err := http.NewRequest(http.MethodGet, "/api/cart", nil)
		assert.NoError(t, err)
		request.Header.Set("X-Cloud-Trace-Context", "abc123/456;o=1")
		request.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-1"})

		c := ContextFromHTTPRequest(request)

		assert.Equal(t, "projects/sheetmusic/traces/abc123", TraceFromContext(c))
		assert.Equal(t, "session-1", SessionUIDFromContext(c))
	})

	t.Run("Without trace and session", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "/api/cart", nil)
		assert.NoError(t, err)

		c := ContextFromHTTPRequest(request)

		assert.Equal(t, "", TraceFromContext(c))
		assert.Equal(t, "", SessionUIDFromContext(c))
	})
}
