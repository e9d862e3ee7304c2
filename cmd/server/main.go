package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xutong0258/LCFC/internal/config"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/internal/routes"
	"github.com/xutong0258/LCFC/internal/services"
	"github.com/xutong0258/LCFC/internal/tasks"
	"github.com/xutong0258/LCFC/pkg/db"
	"github.com/xutong0258/LCFC/pkg/upload"
)

func main() {
	// 加载应用配置
	config.LoadConfig()

	// 初始化数据库连接
	db.InitDB()        // 从 pkg/db 调用 InitDB
	defer db.CloseDB() // 确保在 main 函数退出时关闭数据库连接

	router := gin.Default()

	// 设置API路由
	routes.SetupRoutes(router)

	// 启动临时附件定时清理任务
	storage := upload.NewStorage(config.AppConfig.UploadRoot, config.AppConfig.UploadURLPrefix)
	attachmentService := services.NewAttachmentService(
		repositories.NewGormAttachmentRepository(db.GetDB()),
		storage,
	)
	reaper, err := tasks.NewAttachmentReaper(
		attachmentService,
		config.AppConfig.RetentionHours,
		time.Duration(config.AppConfig.ReaperIntervalMinutes)*time.Minute,
	)
	if err != nil {
		log.Fatalf("Failed to create attachment reaper: %v", err)
	}
	if err := reaper.Start(); err != nil {
		log.Fatalf("Failed to start attachment reaper: %v", err)
	}
	defer func() {
		if err := reaper.Stop(); err != nil {
			log.Printf("Error stopping attachment reaper: %v", err)
		}
	}()

	port := config.AppConfig.ServerPort
	log.Printf("Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
