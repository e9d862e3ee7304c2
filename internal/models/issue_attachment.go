package models

import (
	"time"
)

// 附件状态常量
// 状态流转是单向的：temporary -> linked，且只发生一次，永不回退
const (
	AttachmentStatusTemporary = "temporary" // 临时附件，尚未关联Issue，issue_id 必须为空
	AttachmentStatusLinked    = "linked"    // 已关联附件，issue_id 必须非空
)

// IssueAttachment 对应于数据库中的 issue_attachment 表
// issue_id 可空：上传先于Issue保存发生，临时附件在关联前不属于任何Issue
type IssueAttachment struct {
	AttachmentID int64     `json:"attachmentId" gorm:"column:attachment_id;primaryKey;autoIncrement"`
	IssueID      *int64    `json:"issueId,omitempty" gorm:"column:issue_id;index"`
	FileName     string    `json:"fileName" gorm:"column:file_name;not null;size:255"` // 原始文件名（面向用户展示）
	FilePath     string    `json:"-" gorm:"column:file_path;not null;size:500"`        // 物理文件路径（仅服务端内部使用，用于删除）
	FileSize     int64     `json:"fileSize" gorm:"column:file_size"`                   // 文件大小(字节)
	FileType     string    `json:"fileType" gorm:"column:file_type;size:50"`           // 文件类型（扩展名）
	UploadTime   time.Time `json:"uploadTime" gorm:"column:upload_time;index"`
	UploadBy     string    `json:"uploadBy" gorm:"column:upload_by;size:64"`
	Status       string    `json:"status" gorm:"column:status;not null;default:'temporary';size:20"` // 附件状态(temporary临时,linked已关联)
}

// TableName 指定 IssueAttachment 结构体对应的数据库表名
func (IssueAttachment) TableName() string {
	return "issue_attachment"
}
