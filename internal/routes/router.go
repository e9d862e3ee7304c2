package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes 初始化所有路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	SetupIssueRoutes(api) // 注册Issue管理路由
}
