package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey 会话中间件注入到 gin.Context 的用户名键
const ContextUserKey = "user"

// SessionClaims 定义会话 Token 的 Payload 结构
type SessionClaims struct {
	UserName             string `json:"userName"`
	jwt.RegisteredClaims        // 包含标准的注册声明
}

// IssueToken 签发会话 Token（登录成功后返回给客户端）
func IssueToken(secret, userName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SessionMiddleware 解析请求携带的会话 Token 并把用户名注入 Context
// Token 缺失或无效不阻断请求：身份的权威来源是账户存储的当前用户指针，
// 这里解析出的用户名只用于请求日志关联
func SessionMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.Next()
			return
		}

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims.UserName)
		c.Next()
	}
}
