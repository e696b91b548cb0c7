package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/auth"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/database"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupUsers(t *testing.T) repository.UserRepository {
	t.Helper()
	_, users := setupUsersDB(t)
	return users
}

func setupUsersDB(t *testing.T) (*gorm.DB, repository.UserRepository) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	require.NoError(t, users.Create(context.Background(), &model.UserModel{
		ID:           "user-1",
		MinistryID:   "ministry-a",
		Role:         model.RoleAdmin,
		Email:        "admin@a.gov",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}))
	return db, users
}

// closeDB 关闭底层连接,模拟数据库不可用
func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

// TestJWTIdentityResolver_RoundTrip 测试签发的令牌可解析为用户身份
func TestJWTIdentityResolver_RoundTrip(t *testing.T) {
	resolver := auth.NewJWTIdentityResolver(testSecret, "ministry-exchange", setupUsers(t))

	token, err := resolver.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	p, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{UserID: "user-1", MinistryID: "ministry-a", Role: model.RoleAdmin}, p)
}

// TestJWTIdentityResolver_Rejects 测试各类无效令牌
func TestJWTIdentityResolver_Rejects(t *testing.T) {
	users := setupUsers(t)
	resolver := auth.NewJWTIdentityResolver(testSecret, "ministry-exchange", users)

	expired, err := resolver.IssueToken("user-1", -time.Minute)
	require.NoError(t, err)

	unknown, err := resolver.IssueToken("nobody", time.Hour)
	require.NoError(t, err)

	otherSecret, err := auth.NewJWTIdentityResolver("other", "ministry-exchange", users).IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := auth.NewJWTIdentityResolver(testSecret, "someone-else", users).IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"expired":      expired,
		"unknown user": unknown,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), token)
			assert.True(t, errors.Is(err, auth.ErrUnauthenticated))
		})
	}
}

// TestJWTIdentityResolver_StoreUnavailable 测试用户表读取失败时不当作未认证
func TestJWTIdentityResolver_StoreUnavailable(t *testing.T) {
	db, users := setupUsersDB(t)
	resolver := auth.NewJWTIdentityResolver(testSecret, "ministry-exchange", users)
	token, err := resolver.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	closeDB(t, db)

	_, err = resolver.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrIdentityUnavailable))
	assert.False(t, errors.Is(err, auth.ErrUnauthenticated))
}

// TestJWTIdentityResolver_NoSecret 测试未配置密钥时拒绝签发
func TestJWTIdentityResolver_NoSecret(t *testing.T) {
	resolver := auth.NewJWTIdentityResolver("", "ministry-exchange", nil)
	_, err := resolver.IssueToken("user-1", time.Hour)
	assert.Error(t, err)
}

// TestIdentityMiddleware 测试认证中间件
func TestIdentityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resolver := auth.NewJWTIdentityResolver(testSecret, "ministry-exchange", setupUsers(t))
	token, err := resolver.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(auth.IdentityMiddleware(resolver))
	router.GET("/whoami", func(c *gin.Context) {
		p, ok := auth.PrincipalFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.UserID)
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"invalid token", "Bearer invalid.token.here", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "user-1", w.Body.String())
			}
		})
	}
}

// TestIdentityMiddleware_StoreUnavailable 测试用户表不可用时返回 503
func TestIdentityMiddleware_StoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, users := setupUsersDB(t)
	resolver := auth.NewJWTIdentityResolver(testSecret, "ministry-exchange", users)
	token, err := resolver.IssueToken("user-1", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(auth.IdentityMiddleware(resolver))
	router.GET("/whoami", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	closeDB(t, db)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "service temporarily unavailable")
}
