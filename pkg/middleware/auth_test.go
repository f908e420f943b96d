package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TinyTales/pkg/constants"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/me", func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": p.UserID, "name": p.Name, "user_id": c.GetString(constants.UserField)})
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, Principal{UserID: "u-1", Email: "a@b.c", Name: "Ana"}, time.Hour)
	require.NoError(t, err)

	w := doGet(authRouter(), "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-1","name":"Ana","user_id":"u-1"}`, w.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired, err := IssueToken(testSecret, Principal{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other-secret", Principal{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := IssueToken(testSecret, Principal{}, time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u-1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":    "",
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			w := doGet(authRouter(), "/me", token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"success":false,"error":"unauthorized","data":null}`, w.Body.String())
		})
	}
}
