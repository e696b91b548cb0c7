package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestRecordCounters 测试业务计数器
func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(dataRequestsCreatedTotal)
	RecordRequestCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(dataRequestsCreatedTotal))

	before = testutil.ToFloat64(decisionsTotal.WithLabelValues("approve"))
	RecordDecision("approve")
	assert.Equal(t, before+1, testutil.ToFloat64(decisionsTotal.WithLabelValues("approve")))

	before = testutil.ToFloat64(accessDeniedTotal.WithLabelValues("ViewRequest"))
	RecordAccessDenied("ViewRequest")
	assert.Equal(t, before+1, testutil.ToFloat64(accessDeniedTotal.WithLabelValues("ViewRequest")))
}

// TestHandler 测试指标端点输出
func TestHandler(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/requests/:id", 200, 0.01)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "api_requests_total"))
}

// TestUpdateDatabaseConnections 测试连接数指标
func TestUpdateDatabaseConnections(t *testing.T) {
	assert.Error(t, UpdateDatabaseConnections(nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, UpdateDatabaseConnections(db))
}

// TestCollector_CollectOnce 测试收集器刷新状态分布
func TestCollector_CollectOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	counter := func(ctx context.Context) (map[string]int64, error) {
		return map[string]int64{"pending": 3, "approved": 1}, nil
	}
	c := NewCollector(db, counter, time.Hour, nil)
	c.CollectOnce()

	assert.Equal(t, float64(3), testutil.ToFloat64(dataRequestsByStatus.WithLabelValues("pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(dataRequestsByStatus.WithLabelValues("approved")))
}

// TestCollector_StartStop 测试收集器启停,统计失败不影响运行
func TestCollector_StartStop(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	failing := func(ctx context.Context) (map[string]int64, error) {
		return nil, errors.New("boom")
	}
	c := NewCollector(db, failing, 10*time.Millisecond, nil)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
}

// stopsWithin 在限定时间内完成 Stop,否则失败
func stopsWithin(t *testing.T, c *Collector, limit time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		t.Fatalf("Stop did not return within %s", limit)
	}
}

// TestCollector_StopWithoutStart 未启动的收集器可以直接停止
func TestCollector_StopWithoutStart(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	c := NewCollector(db, nil, time.Hour, nil)
	stopsWithin(t, c, 2*time.Second)
	stopsWithin(t, c, 2*time.Second)

	// 停止后再启动不会运行采集协程
	c.Start()
	stopsWithin(t, c, 2*time.Second)
}

func TestCollector_StopTwiceAfterStart(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	c := NewCollector(db, nil, time.Hour, nil)
	c.Start()
	c.Start()
	stopsWithin(t, c, 2*time.Second)
	stopsWithin(t, c, 2*time.Second)
}
