package repositories

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/pkg/utils"
)

// ErrRecordNotFound 表示记录未找到，可以重用 gorm 的错误或自定义
var ErrRecordNotFound = gorm.ErrRecordNotFound

// ErrIssueNumberConflict 表示Issue编号发生唯一约束冲突
// 同一天并发创建时 max+1 生成存在读写竞争，唯一索引是兜底，调用方据此错误换新编号重试
var ErrIssueNumberConflict = errors.New("Issue编号已存在")

// IssueRepository 定义了Issue数据仓库的接口
type IssueRepository interface {
	// GetIssueByID 获取未删除的Issue主记录
	GetIssueByID(issueID int64) (*models.Issue, error)
	// GetIssueDetail 获取Issue详情聚合（主记录、环境、诊断记录、附件、标签）
	GetIssueDetail(issueID int64) (*models.IssueDetail, error)
	GetIssueList(query models.IssueQuery, page, pageSize int) ([]models.Issue, int64, error)
	GetIssueStatistics() (*models.IssueStatistics, error)
	// MaxIssueNumber 返回具有给定前缀的最大Issue编号，不存在时返回空字符串
	MaxIssueNumber(prefix string) (string, error)
	// CreateIssueGraph 在一个事务中写入Issue主记录、可选环境信息、标签，并将列出的临时附件关联到该Issue
	CreateIssueGraph(issue *models.Issue, env *models.IssueSystemEnv, tagNames []string, attachmentIDs []int64) error
	// UpdateIssueGraph 在一个事务中对主记录做部分更新、按存在性更新或插入环境信息、
	// 并在 replaceTags 非 nil 时整体替换标签集合
	UpdateIssueGraph(issueID int64, updates map[string]interface{}, env *models.IssueSystemEnv, replaceTags *[]string, tagNames []string) error
	// SoftDeleteIssues 在一个事务中对每个存在的Issue打删除标记，不存在的ID静默跳过
	SoftDeleteIssues(issueIDs []int64, operator string, deleteTime time.Time) error
	// AddDiagnosisLog 在一个事务中插入诊断记录；若Issue当前为待诊断状态，同事务内推进为诊断中
	AddDiagnosisLog(logEntry *models.IssueDiagnosisLog) error
}

// gormIssueRepository 是 IssueRepository 的 GORM 实现
type gormIssueRepository struct {
	db *gorm.DB
}

// NewGormIssueRepository 创建一个新的 gormIssueRepository 实例
func NewGormIssueRepository(db *gorm.DB) IssueRepository {
	return &gormIssueRepository{db: db}
}

// isUniqueConstraintError 判断错误是否为唯一约束冲突（SQLite/MySQL 的报错文案不同，统一按关键词识别）
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}

// GetIssueByID 获取未删除的Issue主记录
func (r *gormIssueRepository) GetIssueByID(issueID int64) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.Where("issue_id = ? AND del_flag = ?", issueID, models.DelFlagActive).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssueDetail 获取Issue详情聚合信息
// 诊断记录按操作时间倒序、附件按上传时间倒序返回
func (r *gormIssueRepository) GetIssueDetail(issueID int64) (*models.IssueDetail, error) {
	issue, err := r.GetIssueByID(issueID)
	if err != nil {
		return nil, err
	}

	detail := &models.IssueDetail{
		IssueInfo:     issue,
		DiagnosisLogs: []models.IssueDiagnosisLog{},
		Attachments:   []models.IssueAttachment{},
		Tags:          []models.IssueTag{},
	}

	var env models.IssueSystemEnv
	err = r.db.Where("issue_id = ?", issueID).First(&env).Error
	if err == nil {
		detail.SystemEnv = &env
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.Where("issue_id = ?", issueID).
		Order("operate_time DESC").
		Find(&detail.DiagnosisLogs).Error; err != nil {
		return nil, err
	}

	if err := r.db.Where("issue_id = ?", issueID).
		Order("upload_time DESC").
		Find(&detail.Attachments).Error; err != nil {
		return nil, err
	}

	if err := r.db.Where("issue_id = ?", issueID).Find(&detail.Tags).Error; err != nil {
		return nil, err
	}

	return detail, nil
}

// GetIssueList 根据查询参数获取Issue列表，支持模糊搜索、筛选与创建时间范围，按创建时间倒序分页返回
func (r *gormIssueRepository) GetIssueList(query models.IssueQuery, page, pageSize int) ([]models.Issue, int64, error) {
	tx := r.db.Model(&models.Issue{}).Where("del_flag = ?", models.DelFlagActive)

	if query.IssueNumber != "" {
		tx = tx.Where("issue_number LIKE ?", "%"+query.IssueNumber+"%")
	}
	if query.Title != "" {
		tx = tx.Where("title LIKE ?", "%"+query.Title+"%")
	}
	if query.Priority != "" {
		tx = tx.Where("priority = ?", query.Priority)
	}
	if query.Status != "" {
		tx = tx.Where("status = ?", query.Status)
	}
	if query.IssueType != "" {
		tx = tx.Where("issue_type = ?", query.IssueType)
	}
	if query.IssueSource != "" {
		tx = tx.Where("issue_source LIKE ?", "%"+query.IssueSource+"%")
	}
	if query.CreateBy != "" {
		tx = tx.Where("create_by LIKE ?", "%"+query.CreateBy+"%")
	}
	if query.BeginTime != "" && query.EndTime != "" {
		begin, err := utils.ParseDate(query.BeginTime)
		if err != nil {
			return nil, 0, err
		}
		end, err := utils.ParseDate(query.EndTime)
		if err != nil {
			return nil, 0, err
		}
		// 终点取当天最后一秒，保证范围闭合
		end = end.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		tx = tx.Where("create_time BETWEEN ? AND ?", begin, end)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var issues []models.Issue
	err := tx.Order("create_time DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&issues).Error
	if err != nil {
		return nil, 0, err
	}

	return issues, total, nil
}

// GetIssueStatistics 获取Issue统计数据
func (r *gormIssueRepository) GetIssueStatistics() (*models.IssueStatistics, error) {
	stats := &models.IssueStatistics{}

	active := func() *gorm.DB {
		return r.db.Model(&models.Issue{}).Where("del_flag = ?", models.DelFlagActive)
	}

	if err := active().Count(&stats.TotalCount).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := active().Where("create_time >= ?", monthStart).Count(&stats.MonthlyNewCount).Error; err != nil {
		return nil, err
	}

	if err := active().Where("status = ?", models.StatusPending).Count(&stats.PendingCount).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.IssueDiagnosisLog{}).Count(&stats.DiagnosisCount).Error; err != nil {
		return nil, err
	}

	if err := active().Where("priority = ?", models.PriorityHigh).Count(&stats.HighPriorityCount).Error; err != nil {
		return nil, err
	}

	if err := active().Where("status = ?", models.StatusCompleted).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// MaxIssueNumber 查询具有给定前缀的最大Issue编号
// 编号唯一性覆盖已删除的行，因此这里不过滤 del_flag，软删除的编号同样被保留占用
func (r *gormIssueRepository) MaxIssueNumber(prefix string) (string, error) {
	var maxNumber *string
	err := r.db.Model(&models.Issue{}).
		Select("MAX(issue_number)").
		Where("issue_number LIKE ?", prefix+"%").
		Scan(&maxNumber).Error
	if err != nil {
		return "", err
	}
	if maxNumber == nil {
		return "", nil
	}
	return *maxNumber, nil
}

// CreateIssueGraph 在一个事务中创建Issue及其关联数据
// 任一步骤失败整体回滚，不会留下部分写入
func (r *gormIssueRepository) CreateIssueGraph(issue *models.Issue, env *models.IssueSystemEnv, tagNames []string, attachmentIDs []int64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}

		if env != nil {
			env.IssueID = issue.IssueID
			if err := tx.Create(env).Error; err != nil {
				return err
			}
		}

		for _, name := range tagNames {
			tag := models.IssueTag{IssueID: issue.IssueID, TagName: name}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		}

		if len(attachmentIDs) > 0 {
			// 批量改指向：设置 issue_id 并将状态置为 linked
			if err := tx.Model(&models.IssueAttachment{}).
				Where("attachment_id IN ?", attachmentIDs).
				Updates(map[string]interface{}{
					"issue_id": issue.IssueID,
					"status":   models.AttachmentStatusLinked,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if isUniqueConstraintError(err) {
		return ErrIssueNumberConflict
	}
	return err
}

// UpdateIssueGraph 在一个事务中更新Issue及其关联数据
// updates 只包含调用方显式提供的字段；env 非 nil 时按存在性更新或插入；
// replaceTags 非 nil 时（包括显式空列表）整体替换标签集合
func (r *gormIssueRepository) UpdateIssueGraph(issueID int64, updates map[string]interface{}, env *models.IssueSystemEnv, replaceTags *[]string, tagNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Issue{}).
				Where("issue_id = ?", issueID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		if env != nil {
			var existing models.IssueSystemEnv
			err := tx.Where("issue_id = ?", issueID).First(&existing).Error
			if err == nil {
				// 原地更新，保留 env_id，绝不产生第二条环境记录
				env.EnvID = existing.EnvID
				env.IssueID = issueID
				if err := tx.Model(&models.IssueSystemEnv{}).
					Where("env_id = ?", existing.EnvID).
					Updates(map[string]interface{}{
						"cpu_info":           env.CPUInfo,
						"memory_info":        env.MemoryInfo,
						"gpu_info":           env.GPUInfo,
						"os_info":            env.OSInfo,
						"gpu_driver_version": env.GPUDriverVersion,
						"bios_version":       env.BIOSVersion,
					}).Error; err != nil {
					return err
				}
			} else if errors.Is(err, gorm.ErrRecordNotFound) {
				env.IssueID = issueID
				if err := tx.Create(env).Error; err != nil {
					return err
				}
			} else {
				return err
			}
		}

		if replaceTags != nil {
			if err := tx.Where("issue_id = ?", issueID).Delete(&models.IssueTag{}).Error; err != nil {
				return err
			}
			for _, name := range tagNames {
				tag := models.IssueTag{IssueID: issueID, TagName: name}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// SoftDeleteIssues 批量软删除：打删除标记并盖更新者/更新时间戳，整批一个事务
func (r *gormIssueRepository) SoftDeleteIssues(issueIDs []int64, operator string, deleteTime time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, issueID := range issueIDs {
			var issue models.Issue
			err := tx.Where("issue_id = ? AND del_flag = ?", issueID, models.DelFlagActive).First(&issue).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 不存在的ID静默跳过，不视为错误
			}
			if err != nil {
				return err
			}

			if err := tx.Model(&models.Issue{}).
				Where("issue_id = ?", issueID).
				Updates(map[string]interface{}{
					"del_flag":    models.DelFlagDeleted,
					"update_by":   operator,
					"update_time": deleteTime,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddDiagnosisLog 插入诊断记录；若Issue当前为待诊断状态，同一事务内将其推进为诊断中。
// 状态的自动推进只发生这一次，已进入 diagnosing 之后的记录不再触发任何状态变化。
func (r *gormIssueRepository) AddDiagnosisLog(logEntry *models.IssueDiagnosisLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var issue models.Issue
		err := tx.Where("issue_id = ? AND del_flag = ?", logEntry.IssueID, models.DelFlagActive).First(&issue).Error
		if err != nil {
			return err
		}

		if err := tx.Create(logEntry).Error; err != nil {
			return err
		}

		if issue.Status == models.StatusPending {
			if err := tx.Model(&models.Issue{}).
				Where("issue_id = ?", logEntry.IssueID).
				Updates(map[string]interface{}{
					"status":      models.StatusDiagnosing,
					"update_by":   logEntry.Operator,
					"update_time": logEntry.OperateTime,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
