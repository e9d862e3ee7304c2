package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/pkg/upload"
)

// ErrAttachmentNotFound 表示附件未找到
var ErrAttachmentNotFound = errors.New("附件不存在")

// CleanResult 是临时附件清理任务的执行结果
// RowsDeleted 是删除的附件记录数（权威口径），FilesRemoved 是实际删除的物理文件数（参考口径，
// 物理文件可能已不存在或删除失败，两者不必相等）
type CleanResult struct {
	RowsDeleted  int64
	FilesRemoved int
}

// AttachmentService 定义了附件服务的接口
type AttachmentService interface {
	// UploadTemporary 上传临时附件：校验扩展名与大小，落盘后写入 temporary 状态的附件记录
	UploadTemporary(fileHeader *multipart.FileHeader, operator string) (*models.UploadAttachmentResult, error)
	// DeleteAttachment 显式删除附件：无条件删除记录，随后尽力删除物理文件
	DeleteAttachment(attachmentID int64) error
	// CleanTemporaryAttachments 清理超过保留时限的临时附件（记录与物理文件），幂等可重入
	CleanTemporaryAttachments(retentionHours int) (*CleanResult, error)
}

// attachmentService 是 AttachmentService 的实现
type attachmentService struct {
	repo    repositories.AttachmentRepository
	storage *upload.Storage
}

// NewAttachmentService 创建一个新的 attachmentService 实例
func NewAttachmentService(repo repositories.AttachmentRepository, storage *upload.Storage) AttachmentService {
	return &attachmentService{repo: repo, storage: storage}
}

// UploadTemporary 处理上传临时附件的业务逻辑
// 校验全部通过之前不发生任何写入；先写文件后插记录，插记录失败时删除已写入的文件作为补偿，
// 保证附件记录与物理文件不会出现只剩一半的状态
func (s *attachmentService) UploadTemporary(fileHeader *multipart.FileHeader, operator string) (*models.UploadAttachmentResult, error) {
	ext := upload.NormalizeExtension(fileHeader.Filename)
	if err := upload.CheckExtension(ext); err != nil {
		return nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer src.Close()

	// 实际 seek 到流末尾测量大小，不信任客户端声明的 Content-Length
	size, err := upload.ProbeSize(src)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if size > upload.MaxFileSize {
		return nil, upload.ErrFileTooLarge
	}

	physicalPath, displayPath, err := s.storage.Save(src, ext)
	if err != nil {
		return nil, err
	}

	attachment := &models.IssueAttachment{
		IssueID:    nil, // 临时附件，不关联Issue
		FileName:   fileHeader.Filename,
		FilePath:   physicalPath,
		FileSize:   size,
		FileType:   ext,
		UploadTime: time.Now(),
		UploadBy:   operator,
		Status:     models.AttachmentStatusTemporary,
	}

	if err := s.repo.CreateAttachment(attachment); err != nil {
		// 记录插入失败，删除刚写入的物理文件，避免产生无记录的孤儿文件
		if _, rmErr := s.storage.Remove(physicalPath); rmErr != nil {
			log.Printf("上传附件回滚时删除文件失败: %s, 错误: %v", physicalPath, rmErr)
		}
		return nil, fmt.Errorf("保存附件记录失败: %w", err)
	}

	return &models.UploadAttachmentResult{
		AttachmentID: attachment.AttachmentID,
		FileName:     attachment.FileName,
		FilePath:     displayPath,
		FileSize:     size,
		FileType:     ext,
	}, nil
}

// DeleteAttachment 处理显式删除附件的业务逻辑
// 记录删除是权威操作；物理文件随后尽力删除，失败只记日志，不影响结果
func (s *attachmentService) DeleteAttachment(attachmentID int64) error {
	attachment, err := s.repo.GetAttachmentByID(attachmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if err := s.repo.DeleteAttachment(attachmentID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if _, err := s.storage.Remove(attachment.FilePath); err != nil {
		log.Printf("删除附件物理文件失败: %s, 错误: %v", attachment.FilePath, err)
	}

	return nil
}

// CleanTemporaryAttachments 清理超过保留时限的临时附件
// 物理文件删除失败或文件缺失只记日志不中断；记录删除使用与查询完全相同的谓词并在删除时
// 重新检查 temporary 状态，被并发关联的附件不会被误删。任务只删不增，中断后重跑安全。
func (s *attachmentService) CleanTemporaryAttachments(retentionHours int) (*CleanResult, error) {
	threshold := time.Now().Add(-time.Duration(retentionHours) * time.Hour)

	expired, err := s.repo.FindExpiredTemporary(threshold)
	if err != nil {
		return nil, err
	}

	filesRemoved := 0
	for _, attachment := range expired {
		removed, err := s.storage.Remove(attachment.FilePath)
		if err != nil {
			log.Printf("清理临时附件时删除文件失败: %s, 错误: %v", attachment.FilePath, err)
			continue
		}
		if removed {
			filesRemoved++
		}
	}

	rowsDeleted, err := s.repo.DeleteExpiredTemporary(threshold)
	if err != nil {
		return nil, err
	}

	return &CleanResult{RowsDeleted: rowsDeleted, FilesRemoved: filesRemoved}, nil
}
