package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumarkic/volonterko/internal/utils"
)

func runProtected(t *testing.T, authHeader string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": c.Get("user_id"),
			"role":    c.Get("role"),
		})
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	rec := runProtected(t, "", JWTAuth("secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runProtected(t, "Bearer not-a-token", JWTAuth("secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	at, err := utils.NewAccessToken("other-secret", 42, "VOLUNTEER", 15)
	require.NoError(t, err)
	rec = runProtected(t, "Bearer "+at.Token, JWTAuth("secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 42, "VOLUNTEER", 15)
	require.NoError(t, err)

	rec := runProtected(t, "Bearer "+at.Token, JWTAuth("secret"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
	assert.Contains(t, rec.Body.String(), `"role":"VOLUNTEER"`)
}

func TestRequireRole(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 42, "VOLUNTEER", 15)
	require.NoError(t, err)

	rec := runProtected(t, "Bearer "+at.Token, JWTAuth("secret"), RequireRole("VOLUNTEER", "ADMIN"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runProtected(t, "Bearer "+at.Token, JWTAuth("secret"), RequireRole("ORGANIZATION"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No JWTAuth in front means no role in context: always forbidden.
	rec = runProtected(t, "", RequireRole("VOLUNTEER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
