package models

import (
	"time"
)

// IssueDiagnosisLog 对应于数据库中的 issue_diagnosis_log 表
// 诊断记录只增不改，展示时按操作时间倒序排列
type IssueDiagnosisLog struct {
	LogID             int64     `json:"logId" gorm:"column:log_id;primaryKey;autoIncrement"`
	IssueID           int64     `json:"issueId" gorm:"column:issue_id;not null;index"`
	StepName          string    `json:"stepName" gorm:"column:step_name;not null;size:200"`               // 诊断步骤名称
	MethodDescription *string   `json:"methodDescription,omitempty" gorm:"column:method_description;type:text"` // 具体诊断方法
	Operator          string    `json:"operator" gorm:"column:operator;not null;size:64"`                 // 操作人
	OperateTime       time.Time `json:"operateTime" gorm:"column:operate_time"`                           // 操作时间
}

// TableName 指定 IssueDiagnosisLog 结构体对应的数据库表名
func (IssueDiagnosisLog) TableName() string {
	return "issue_diagnosis_log"
}
