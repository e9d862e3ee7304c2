package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/xutong0258/LCFC/internal/auth"
	"github.com/xutong0258/LCFC/internal/config"
	"github.com/xutong0258/LCFC/internal/handlers"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/internal/services"
	"github.com/xutong0258/LCFC/pkg/db"
	"github.com/xutong0258/LCFC/pkg/upload"
)

// SetupIssueRoutes 设置Issue管理相关路由
func SetupIssueRoutes(router *gin.RouterGroup) {
	gormDB := db.GetDB()

	issueService := services.NewIssueService(repositories.NewGormIssueRepository(gormDB))
	issueHandler := handlers.NewIssueHandler(issueService)

	storage := upload.NewStorage(config.AppConfig.UploadRoot, config.AppConfig.UploadURLPrefix)
	attachmentService := services.NewAttachmentService(repositories.NewGormAttachmentRepository(gormDB), storage)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)

	apiV1 := router.Group("/v1") // 创建 /api/v1 路由组

	issueGroup := apiV1.Group("/issues")
	issueGroup.Use(auth.OperatorIdentity()) // 从网关透传的请求头中提取操作人身份
	{
		issueGroup.GET("", issueHandler.GetIssueList)
		issueGroup.GET("/statistics", issueHandler.GetIssueStatistics)
		issueGroup.GET("/options/types", issueHandler.GetIssueTypeOptions)
		issueGroup.GET("/options/priorities", issueHandler.GetPriorityOptions)
		issueGroup.GET("/options/status", issueHandler.GetStatusOptions)
		issueGroup.GET("/:issueId", issueHandler.GetIssueDetail)
		issueGroup.POST("", issueHandler.CreateIssue)
		issueGroup.PUT("", issueHandler.EditIssue)
		issueGroup.DELETE("/:issueIds", issueHandler.DeleteIssues)
		issueGroup.PATCH("/:issueId/status", issueHandler.UpdateIssueStatus)

		issueGroup.POST("/diagnosis/logs", issueHandler.AddDiagnosisLog)

		issueGroup.POST("/attachments/upload", attachmentHandler.UploadAttachment)
		issueGroup.DELETE("/attachments/:attachmentId", attachmentHandler.DeleteAttachment)
	}
}
