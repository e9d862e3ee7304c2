package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorContextKey 操作人身份在 gin.Context 中的键名
const OperatorContextKey = "operator"

const (
	operatorHeader  = "X-Operator"
	defaultOperator = "admin"
)

// OperatorIdentity 从请求头提取操作人身份并写入上下文。
// 认证由上游网关完成，这里只负责透传经网关校验过的用户名；
// 审计字段一律取自该身份，绝不信任请求体里的创建者/更新者字段。
func OperatorIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := strings.TrimSpace(c.GetHeader(operatorHeader))
		if operator == "" {
			operator = defaultOperator
		}
		c.Set(OperatorContextKey, operator)
		c.Next()
	}
}

// CurrentOperator 返回当前请求的操作人身份
func CurrentOperator(c *gin.Context) string {
	if value, ok := c.Get(OperatorContextKey); ok {
		if operator, ok := value.(string); ok && operator != "" {
			return operator
		}
	}
	return defaultOperator
}
