package extsession_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"connect-service/internal/extsession"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCookie(t *testing.T) {
	w := httptest.NewRecorder()
	extsession.SetCookie(w, "abc", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, extsession.CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	// __Host- prefix requirements
	assert.Equal(t, "/", c.Path)
	assert.Empty(t, c.Domain)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
}

func TestClearCookie(t *testing.T) {
	w := httptest.NewRecorder()
	extsession.ClearCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
