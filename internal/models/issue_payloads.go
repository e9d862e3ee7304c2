package models

import (
	"time"
)

// SystemEnvPayload 是系统环境信息的请求载荷
type SystemEnvPayload struct {
	CPUInfo          *string `json:"cpuInfo,omitempty"`
	MemoryInfo       *string `json:"memoryInfo,omitempty"`
	GPUInfo          *string `json:"gpuInfo,omitempty"`
	OSInfo           *string `json:"osInfo,omitempty"`
	GPUDriverVersion *string `json:"gpuDriverVersion,omitempty"`
	BIOSVersion      *string `json:"biosVersion,omitempty"`
}

// AddIssuePayload 是新增Issue的请求载荷
// attachmentIds 关联之前上传的临时附件，创建成功后这些附件被标记为 linked
type AddIssuePayload struct {
	Title               string            `json:"title" binding:"required"`
	Priority            string            `json:"priority" binding:"omitempty,oneof=high medium low"`
	IssueType           string            `json:"issueType" binding:"required,max=50"`
	IssueSource         *string           `json:"issueSource,omitempty"`
	Description         *string           `json:"description,omitempty"`
	Solution            *string           `json:"solution,omitempty"`
	ExpectedResolveDate *time.Time        `json:"expectedResolveDate,omitempty"`
	SystemEnv           *SystemEnvPayload `json:"systemEnv,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	AttachmentIDs       []int64           `json:"attachmentIds,omitempty"`
}

// EditIssuePayload 是编辑Issue的请求载荷
// 部分更新语义：只有非 nil 的字段才会被应用；issueNumber 不可修改，提交了也会被丢弃
// Tags 使用指针切片区分"字段省略"（保留现有标签）与"显式空列表"（清空全部标签）
type EditIssuePayload struct {
	IssueID             int64             `json:"issueId" binding:"required"`
	Title               *string           `json:"title,omitempty"`
	Priority            *string           `json:"priority,omitempty"`
	Status              *string           `json:"status,omitempty"`
	IssueType           *string           `json:"issueType,omitempty"`
	IssueSource         *string           `json:"issueSource,omitempty"`
	Description         *string           `json:"description,omitempty"`
	Solution            *string           `json:"solution,omitempty"`
	ExpectedResolveDate *time.Time        `json:"expectedResolveDate,omitempty"`
	SystemEnv           *SystemEnvPayload `json:"systemEnv,omitempty"`
	Tags                *[]string         `json:"tags,omitempty"`
}

// AddDiagnosisLogPayload 是新增诊断记录的请求载荷
type AddDiagnosisLogPayload struct {
	IssueID           int64   `json:"issueId" binding:"required"`
	StepName          string  `json:"stepName" binding:"required,max=200"`
	MethodDescription *string `json:"methodDescription,omitempty"`
}

// IssueQuery 是Issue列表查询参数
type IssueQuery struct {
	IssueNumber string `form:"issueNumber"`
	Title       string `form:"title"`
	Priority    string `form:"priority"`
	Status      string `form:"status"`
	IssueType   string `form:"issueType"`
	IssueSource string `form:"issueSource"`
	CreateBy    string `form:"createBy"`
	BeginTime   string `form:"beginTime"` // 创建时间范围起点 YYYY-MM-DD
	EndTime     string `form:"endTime"`   // 创建时间范围终点 YYYY-MM-DD
}

// IssueDetail 是Issue详情的聚合响应
type IssueDetail struct {
	IssueInfo     *Issue              `json:"issueInfo"`
	SystemEnv     *IssueSystemEnv     `json:"systemEnv,omitempty"`
	DiagnosisLogs []IssueDiagnosisLog `json:"diagnosisLogs"`
	Attachments   []IssueAttachment   `json:"attachments"`
	Tags          []IssueTag          `json:"tags"`
}

// IssueStatistics 是Issue统计数据响应
type IssueStatistics struct {
	TotalCount        int64 `json:"totalCount"`        // Issue总数
	MonthlyNewCount   int64 `json:"monthlyNewCount"`   // 本月新增Issue数
	PendingCount      int64 `json:"pendingCount"`      // 待处理Issue数
	DiagnosisCount    int64 `json:"diagnosisCount"`    // 诊断记录总数
	HighPriorityCount int64 `json:"highPriorityCount"` // 高优先级Issue数
	CompletedCount    int64 `json:"completedCount"`    // 已完成Issue数
}

// OptionItem 是下拉选项模型（类型、优先级、状态选项共用）
type OptionItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UploadAttachmentResult 是上传附件成功后的响应
// FilePath 是可供前端访问的展示路径，物理路径不对外暴露
type UploadAttachmentResult struct {
	AttachmentID int64  `json:"attachmentId"`
	FileName     string `json:"fileName"`
	FilePath     string `json:"filePath"`
	FileSize     int64  `json:"fileSize"`
	FileType     string `json:"fileType"`
}
