package config

import (
	"log"
	"os"
	"strconv"
	"sync"
)

// AppConfig holds the application configuration.
// It's populated once by LoadConfig.
var AppConfig Configuration
var once sync.Once

// Configuration defines the structure for application settings.
type Configuration struct {
	ServerPort            string
	UploadRoot            string // 附件物理存储根目录
	UploadURLPrefix       string // 附件对外展示路径前缀
	RetentionHours        int    // 临时附件保留时长（小时）
	ReaperIntervalMinutes int    // 清理任务执行间隔（分钟）
}

const (
	defaultServerPort      = "8080"
	envServerPortKey       = "SERVER_PORT"
	defaultUploadRoot      = "data/profile"
	envUploadRootKey       = "UPLOAD_ROOT"
	defaultUploadURLPrefix = "/profile"
	envUploadURLPrefixKey  = "UPLOAD_URL_PREFIX"
	defaultRetentionHours  = 24
	envRetentionHoursKey   = "ATTACHMENT_RETENTION_HOURS"
	defaultReaperInterval  = 60
	envReaperIntervalKey   = "REAPER_INTERVAL_MINUTES"
)

// LoadConfig loads configuration from environment variables or defaults.
// It should be called once at application startup.
func LoadConfig() {
	once.Do(func() {
		serverPort := os.Getenv(envServerPortKey)
		if serverPort == "" {
			serverPort = defaultServerPort
			log.Printf("信息: %s 环境变量未设置。正在使用默认端口 %s。", envServerPortKey, defaultServerPort)
		}

		uploadRoot := os.Getenv(envUploadRootKey)
		if uploadRoot == "" {
			uploadRoot = defaultUploadRoot
			log.Printf("信息: %s 环境变量未设置。附件将存储到默认目录 %s。", envUploadRootKey, defaultUploadRoot)
		}

		uploadURLPrefix := os.Getenv(envUploadURLPrefixKey)
		if uploadURLPrefix == "" {
			uploadURLPrefix = defaultUploadURLPrefix
		}

		AppConfig = Configuration{
			ServerPort:            serverPort,
			UploadRoot:            uploadRoot,
			UploadURLPrefix:       uploadURLPrefix,
			RetentionHours:        intFromEnv(envRetentionHoursKey, defaultRetentionHours),
			ReaperIntervalMinutes: intFromEnv(envReaperIntervalKey, defaultReaperInterval),
		}

		log.Println("应用配置已加载。")
	})
}

// intFromEnv 读取整型环境变量，未设置或非法时回退到默认值
func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("警告: %s 环境变量值 %q 无效，使用默认值 %d。", key, raw, fallback)
		return fallback
	}
	return value
}
