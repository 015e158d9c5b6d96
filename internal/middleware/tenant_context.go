package middleware

import (
	"net/http"
	"strings"

	"backend/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TenantContextMiddleware 将 JWT 中解析出的租户信息注入 Gin 上下文。
// 仅当上游已经通过 AuthMiddleware 验证身份后使用。
func TenantContextMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		userCtx, exists := auth.GetUserContext(c)
		if !exists {
			log.Warn("missing user context before tenant middleware", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
			return
		}

		tenantID := strings.TrimSpace(userCtx.TenantID)
		if tenantID == "" {
			log.Warn("token missing tenant id", zap.String("user", userCtx.UserID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "缺少租户信息"})
			return
		}

		c.Set("tenant_id", tenantID)
		c.Set("user_id", strings.TrimSpace(userCtx.UserID))

		c.Next()
	}
}
