package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TinyTales/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := NewMetrics()

	m.ObserveStage("generation", 2*time.Second, nil)
	m.ObserveStage("synthesis", time.Second, errors.New("quota"))
	m.ObserveOrphan()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("generation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("synthesis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orphanedAudio))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestMonitorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(MonitorMiddleware(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordVoiceOperation("create", "ok")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `tinytales_voice_operations_total{operation="create",status="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestGormPlugin(t *testing.T) {
	m := NewMetrics()
	db, err := util.InitDatabase(nil, "", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Use(NewGormPlugin(m)))

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var got []widget
	require.NoError(t, db.Find(&got).Error)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `tinytales_db_query_duration_seconds_count{operation="create",table="widgets"} 1`)
	assert.Contains(t, body, `tinytales_db_query_duration_seconds_count{operation="query",table="widgets"} 1`)
}
