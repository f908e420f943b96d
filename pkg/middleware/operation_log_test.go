package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TinyTales/pkg/constants"
	"TinyTales/pkg/i18n"
	"TinyTales/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationLogMiddleware(t *testing.T) {
	db, err := util.InitDatabase(nil, "", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, util.MakeMigrates(db, []any{&OperationLog{}}))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.UserField, "u1")
		c.Set(constants.PrincipalField, Principal{UserID: "u1", Email: "mom@example.com", Name: "Mom"})
		c.Next()
	})
	r.Use(OperationLogMiddleware(db))
	r.DELETE("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodDelete, "/items/42", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items", nil))

	var logs []OperationLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1, "reads are not logged")
	entry := logs[0]
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "mom@example.com", entry.UserEmail)
	assert.Equal(t, "Mom", entry.UserName)
	assert.Equal(t, http.MethodDelete, entry.Action)
	assert.Equal(t, "/items/:id", entry.Target)
	assert.Equal(t, http.StatusNoContent, entry.Status)
	assert.True(t, entry.Mobile)
	assert.Contains(t, entry.Browser, "Safari")
}

func TestOperationLogMiddleware_StoreFailureIsNotFatal(t *testing.T) {
	db, err := util.InitDatabase(nil, "", "file::memory:")
	require.NoError(t, err)
	// 表不存在，写日志会失败

	r := gin.New()
	r.Use(OperationLogMiddleware(db))
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/items", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOperationLogMiddleware_WithAuth(t *testing.T) {
	db, err := util.InitDatabase(nil, "", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, util.MakeMigrates(db, []any{&OperationLog{}}))

	r := gin.New()
	r.Use(AuthMiddleware(testSecret), OperationLogMiddleware(db))
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })

	token, err := IssueToken(testSecret, Principal{UserID: "u7", Email: "dad@example.com", Name: "Dad"}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry OperationLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "u7", entry.UserID)
	assert.Equal(t, "dad@example.com", entry.UserEmail)
	assert.Equal(t, "Dad", entry.UserName)
}

func TestLanguageMiddleware(t *testing.T) {
	support, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)

	r := gin.New()
	r.Use(LanguageMiddleware(support))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, Lang(c)) })

	cases := []struct {
		query, header, want string
	}{
		{"", "", "en"},
		{"es", "", "es"},
		{"", "es-ES,es;q=0.9,en;q=0.8", "es"},
		{"", "de-DE", "en"},
	}
	for _, tc := range cases {
		path := "/lang"
		if tc.query != "" {
			path += "?lang=" + tc.query
		}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if tc.header != "" {
			req.Header.Set("Accept-Language", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Body.String(), "query=%q header=%q", tc.query, tc.header)
	}
}
