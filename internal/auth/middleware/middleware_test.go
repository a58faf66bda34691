package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/starmaker/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("k", time.Hour)
	tok, err := a.IssueJWT("sess-1", RoleTeacher)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", c.Sub)
	assert.Equal(t, RoleTeacher, c.Role)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	assert.Error(t, err)

	_, err = a.Parse("not-a-token")
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	a := NewAuthService("k", time.Nanosecond)
	tok, err := a.IssueJWT("s", RoleStudent)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = a.Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("k", time.Hour)
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("sess-9", RoleStudent)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sess-9", gotSub)
	assert.Equal(t, RoleStudent, gotRole)
}
