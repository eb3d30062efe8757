package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	j := JWT{Secret: []byte("s3cret"), Issuer: "dealflow", TokenTTL: time.Hour}
	tok, exp, err := j.Sign(Claims{Role: RoleOperator, RegisteredClaims: jwt.RegisteredClaims{Subject: "analyst"}})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, RoleOperator, claims.Role)
	require.Equal(t, "analyst", claims.Subject)

	_, err = JWT{Secret: []byte("other"), Issuer: "dealflow"}.Verify(tok)
	require.Error(t, err)
	_, err = JWT{Secret: []byte("s3cret"), Issuer: "someone-else"}.Verify(tok)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	past := time.Now().Add(-time.Hour)
	tok, _, err := j.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)}})
	require.NoError(t, err)
	_, err = j.Verify(tok)
	require.Error(t, err)
}

func TestMiddleware_Roles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("s3cret"), Issuer: "dealflow"}
	r := gin.New()
	r.Use(Middleware(j))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/deals", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/deals", func(c *gin.Context) { c.Status(http.StatusOK) })

	reader, _, err := j.Sign(Claims{Role: RoleReader})
	require.NoError(t, err)
	operator, _, err := j.Sign(Claims{Role: RoleOperator})
	require.NoError(t, err)

	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/deals", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/deals", "garbage", http.StatusUnauthorized},
		{http.MethodGet, "/api/deals", reader, http.StatusOK},
		{http.MethodPost, "/api/deals", reader, http.StatusForbidden},
		{http.MethodPost, "/api/deals", operator, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(JWT{}))
	r.POST("/api/deals", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/deals", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
