package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/webshop/internal/auth"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/webshop/pkg/jwt"
	"github.com/xiebiao/webshop/pkg/response"
)

// actorKey Actor在gin.Context里的存放键
const actorKey = "actor"

// AuthMiddleware JWT认证中间件
// 设计说明：
// 1. 从Header提取Token，验证签名与有效期
// 2. 检查Token黑名单（登出后的Token立即失效）
// 3. Token只携带认证句柄——每个请求都通过注册表把句柄
//    重新解析为Actor，账户删除后旧Token立即失去主体
type AuthMiddleware struct {
	jwtManager   *jwt.Manager
	sessionStore *redis.SessionStore
	registry     auth.Registry
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, sessionStore *redis.SessionStore, registry auth.Registry) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
		registry:     registry,
	}
}

// RequireAuth 要求登录
// 使用方式：
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从Header提取Token
		// 格式：Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithCode(c, 40100, "请先登录")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithCode(c, 40101, "Token格式错误")
			c.Abort()
			return
		}

		tokenString := parts[1]

		// 2. 检查黑名单（已登出或被强制失效）
		isBlacklisted, err := m.sessionStore.IsInBlacklist(c.Request.Context(), tokenString)
		if err != nil {
			response.ErrorWithCode(c, 50000, "验证Token失败")
			c.Abort()
			return
		}
		if isBlacklisted {
			response.ErrorWithCode(c, 40102, "Token已失效，请重新登录")
			c.Abort()
			return
		}

		// 3. 验证Token并解析Claims
		claims, err := m.jwtManager.ParseToken(tokenString)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		// 4. 句柄 → Actor（角色以注册表当下的结论为准，不信Token）
		actor, err := m.registry.LookupActor(c.Request.Context(), claims.Handle)
		if err != nil {
			response.ErrorWithCode(c, 50000, "解析操作者失败")
			c.Abort()
			return
		}
		if actor == nil {
			// Token合法但主体已不存在（如账户被删除）
			response.ErrorWithCode(c, 40105, "操作者不存在，请重新登录")
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor 从Context获取已解析的操作者（未认证时返回nil）
func GetActor(c *gin.Context) *auth.Actor {
	if v, exists := c.Get(actorKey); exists {
		if a, ok := v.(*auth.Actor); ok {
			return a
		}
	}
	return nil
}

// GetToken 从Header提取原始Token（登出时进黑名单用）
func GetToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
