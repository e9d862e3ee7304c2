package models

import (
	"time"
)

// Issue 优先级常量
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Issue 状态常量
const (
	StatusPending    = "pending"    // 待诊断
	StatusDiagnosing = "diagnosing" // 诊断中
	StatusCompleted  = "completed"  // 已完成
	StatusCancelled  = "cancelled"  // 已取消
)

// 删除标志常量（软删除，行永远保留以保证编号唯一性历史）
const (
	DelFlagActive  = "0" // 存在
	DelFlagDeleted = "2" // 已删除
)

// IsValidPriority 检查优先级取值是否合法
func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// IsValidStatus 检查状态取值是否合法
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusDiagnosing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Issue 对应于数据库中的 issue_main 表
type Issue struct {
	IssueID             int64      `json:"issueId" gorm:"column:issue_id;primaryKey;autoIncrement"`
	IssueNumber         string     `json:"issueNumber" gorm:"column:issue_number;unique;not null;size:32"` // Issue编号(如ISU-2023-01-15-0001)，分配后不可变更
	Title               string     `json:"title" gorm:"column:title;not null;size:200"`                    // Issue标题
	Priority            string     `json:"priority" gorm:"column:priority;not null;default:'low';size:10"` // 优先级(high,medium,low)
	Status              string     `json:"status" gorm:"column:status;not null;default:'pending';size:20"` // 状态(pending,diagnosing,completed,cancelled)
	IssueType           string     `json:"issueType" gorm:"column:issue_type;not null;size:50"`            // Issue类型(BUG,工单,系统日志,测试报告等)
	IssueSource         *string    `json:"issueSource,omitempty" gorm:"column:issue_source;size:100"`      // Issue来源
	Description         *string    `json:"description,omitempty" gorm:"column:description;type:text"`      // 问题描述
	Solution            *string    `json:"solution,omitempty" gorm:"column:solution;type:text"`            // 解决方案
	ExpectedResolveDate *time.Time `json:"expectedResolveDate,omitempty" gorm:"column:expected_resolve_date"`
	CreateBy            string     `json:"createBy" gorm:"column:create_by;size:64"`
	CreateTime          time.Time  `json:"createTime" gorm:"column:create_time"`
	UpdateBy            string     `json:"updateBy" gorm:"column:update_by;size:64"`
	UpdateTime          time.Time  `json:"updateTime" gorm:"column:update_time"`
	DelFlag             string     `json:"delFlag" gorm:"column:del_flag;not null;default:'0';size:1"` // 删除标志（0代表存在 2代表删除）
}

// TableName 指定 Issue 结构体对应的数据库表名
func (Issue) TableName() string {
	return "issue_main"
}
