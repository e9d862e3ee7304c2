package models

// IssueTag 对应于数据库中的 issue_tag 表
// 编辑时采用整体替换策略：先删除该Issue的全部标签，再插入新标签集合，不做差量比较
type IssueTag struct {
	TagID   int64  `json:"tagId" gorm:"column:tag_id;primaryKey;autoIncrement"`
	IssueID int64  `json:"issueId" gorm:"column:issue_id;not null;index"`
	TagName string `json:"tagName" gorm:"column:tag_name;not null;size:50"` // 标签名称
}

// TableName 指定 IssueTag 结构体对应的数据库表名
func (IssueTag) TableName() string {
	return "issue_tag"
}
