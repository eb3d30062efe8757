package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "dealflow.auth.claims"

func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// Middleware guards /api routes. Readers may only read. With
// no secret configured every request passes.
func Middleware(j JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !j.Enabled() || !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.Role != RoleOperator && mutates(c.Request) {
			abort(c, http.StatusForbidden, "operator role required")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// mutates reports whether the request can change state. The pipeline stream
// is a GET upgrade that runs stages.
func mutates(r *http.Request) bool {
	return r.Method != http.MethodGet || strings.HasSuffix(r.URL.Path, "/pipeline/stream")
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
		"meta":    gin.H{"kind": "unauthorized"},
	})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
