package models

// IssueSystemEnv 对应于数据库中的 issue_system_env 表
// 每个 Issue 最多只有一条环境信息，编辑时按存在性判断做原地更新，不会产生重复行
type IssueSystemEnv struct {
	EnvID            int64   `json:"envId" gorm:"column:env_id;primaryKey;autoIncrement"`
	IssueID          int64   `json:"issueId" gorm:"column:issue_id;not null;index"`
	CPUInfo          *string `json:"cpuInfo,omitempty" gorm:"column:cpu_info;size:200"`                     // CPU信息
	MemoryInfo       *string `json:"memoryInfo,omitempty" gorm:"column:memory_info;size:200"`               // 内存信息
	GPUInfo          *string `json:"gpuInfo,omitempty" gorm:"column:gpu_info;size:200"`                     // 显卡信息
	OSInfo           *string `json:"osInfo,omitempty" gorm:"column:os_info;size:200"`                       // 操作系统信息
	GPUDriverVersion *string `json:"gpuDriverVersion,omitempty" gorm:"column:gpu_driver_version;size:100"`  // 显卡驱动版本
	BIOSVersion      *string `json:"biosVersion,omitempty" gorm:"column:bios_version;size:100"`             // BIOS版本
}

// TableName 指定 IssueSystemEnv 结构体对应的数据库表名
func (IssueSystemEnv) TableName() string {
	return "issue_system_env"
}
