package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// ErrUnauthenticated 会话令牌无效或用户不存在
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrIdentityUnavailable 用户表暂时无法读取,令牌本身可能有效
var ErrIdentityUnavailable = errors.New("identity store unavailable")

// principalKey gin 上下文中存放调用方身份的键
const principalKey = "principal"

// IdentityResolver 将会话令牌解析为调用方身份
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (model.Principal, error)
}

// SessionClaims 会话令牌声明,Subject 为用户 ID
type SessionClaims struct {
	jwt.RegisteredClaims
}

// JWTIdentityResolver 基于 HS256 会话令牌的身份解析器
// 部委与角色总是从用户表读取,令牌只证明用户 ID
type JWTIdentityResolver struct {
	secret []byte
	issuer string
	users  repository.UserRepository
	now    func() time.Time
}

// NewJWTIdentityResolver 创建身份解析器
func NewJWTIdentityResolver(secret string, issuer string, users repository.UserRepository) *JWTIdentityResolver {
	return &JWTIdentityResolver{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		now:    time.Now,
	}
}

// IssueToken 为用户签发会话令牌,供登录子系统和命令行使用
func (r *JWTIdentityResolver) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(r.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := r.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve 验证令牌并加载用户
func (r *JWTIdentityResolver) Resolve(ctx context.Context, tokenString string) (model.Principal, error) {
	if tokenString == "" || len(r.secret) == 0 {
		return model.Principal{}, ErrUnauthenticated
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return model.Principal{}, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}

	user, err := r.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Principal{}, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
	}
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	return user.Principal(), nil
}

// IdentityMiddleware 认证中间件,解析 Authorization 头并写入调用方身份
func IdentityMiddleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		principal, err := resolver.Resolve(c.Request.Context(), token)
		if errors.Is(err, ErrIdentityUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    503,
				"message": "service temporarily unavailable",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// SetPrincipal 写入调用方身份(测试与内部路由使用)
func SetPrincipal(c *gin.Context, p model.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFromContext 读取调用方身份
func PrincipalFromContext(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}
