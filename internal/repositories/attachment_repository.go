package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/xutong0258/LCFC/internal/models"
)

// AttachmentRepository 定义了附件数据仓库的接口
type AttachmentRepository interface {
	// CreateAttachment 插入附件记录（上传时为 temporary 状态，issue_id 为空）
	CreateAttachment(attachment *models.IssueAttachment) error
	GetAttachmentByID(attachmentID int64) (*models.IssueAttachment, error)
	// DeleteAttachment 无条件删除附件记录（不区分状态）
	DeleteAttachment(attachmentID int64) error
	// FindExpiredTemporary 查询上传时间早于阈值的临时附件
	FindExpiredTemporary(threshold time.Time) ([]models.IssueAttachment, error)
	// DeleteExpiredTemporary 按与查询完全相同的谓词删除临时附件，返回删除的行数。
	// 删除时重新检查 status=temporary，选取之后被并发关联的行会因状态翻转而幸存。
	DeleteExpiredTemporary(threshold time.Time) (int64, error)
}

// gormAttachmentRepository 是 AttachmentRepository 的 GORM 实现
type gormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository 创建一个新的 gormAttachmentRepository 实例
func NewGormAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &gormAttachmentRepository{db: db}
}

// CreateAttachment 插入附件记录
func (r *gormAttachmentRepository) CreateAttachment(attachment *models.IssueAttachment) error {
	return r.db.Create(attachment).Error
}

// GetAttachmentByID 根据附件ID获取附件记录
func (r *gormAttachmentRepository) GetAttachmentByID(attachmentID int64) (*models.IssueAttachment, error) {
	var attachment models.IssueAttachment
	err := r.db.Where("attachment_id = ?", attachmentID).First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

// DeleteAttachment 删除附件记录
func (r *gormAttachmentRepository) DeleteAttachment(attachmentID int64) error {
	result := r.db.Where("attachment_id = ?", attachmentID).Delete(&models.IssueAttachment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// FindExpiredTemporary 查询超过保留时限的临时附件
func (r *gormAttachmentRepository) FindExpiredTemporary(threshold time.Time) ([]models.IssueAttachment, error) {
	var attachments []models.IssueAttachment
	err := r.db.Where("status = ? AND upload_time < ?", models.AttachmentStatusTemporary, threshold).
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

// DeleteExpiredTemporary 删除超过保留时限的临时附件记录
func (r *gormAttachmentRepository) DeleteExpiredTemporary(threshold time.Time) (int64, error) {
	result := r.db.Where("status = ? AND upload_time < ?", models.AttachmentStatusTemporary, threshold).
		Delete(&models.IssueAttachment{})
	return result.RowsAffected, result.Error
}
