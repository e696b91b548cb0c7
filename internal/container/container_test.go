package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/config"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "container-secret"
	cfg.Log.Output = "stdout"
	cfg.Log.Level = "error"
	return cfg
}

// TestNewContainer_SQLite 测试容器完整组装并可提供服务
func TestNewContainer_SQLite(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctr, err := NewContainer(sqliteConfig())
	require.NoError(t, err)
	defer ctr.Close()

	ctx := context.Background()
	m, err := ctr.Ministries().Provision(ctx, service.MinistryInput{Name: "Ministry of Finance", Abbreviation: "MOF"})
	require.NoError(t, err)
	u, err := ctr.Users().Provision(ctx, service.UserInput{MinistryID: m.ID, Email: "ops@mof.gov", Password: "password123", Role: model.RoleAdmin})
	require.NoError(t, err)

	token, err := ctr.Resolver().IssueToken(u.ID, time.Minute)
	require.NoError(t, err)
	p, err := ctr.Resolver().Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, m.ID, p.MinistryID)

	router := ctr.Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ministries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 采集一次不应出错
	ctr.Collector().CollectOnce()
}

// TestContainer_CloseWithoutCollector 命令行场景下未启动采集器,Close 必须返回
func TestContainer_CloseWithoutCollector(t *testing.T) {
	ctr, err := NewContainer(sqliteConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ctr.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestNewContainer_BadDriverConfig(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Database.Path = "/nonexistent-dir/ministry.db"

	_, err := NewContainer(cfg)
	assert.Error(t, err)
}
