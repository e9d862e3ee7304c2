package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/pkg/upload"
)

func newAttachmentService(t *testing.T) (AttachmentService, *gorm.DB, string) {
	t.Helper()
	gdb := newTestDB(t)
	root := t.TempDir()
	storage := upload.NewStorage(root, "/profile")
	svc := NewAttachmentService(repositories.NewGormAttachmentRepository(gdb), storage)
	return svc, gdb, root
}

// makeFileHeader 构造一个与 gin 的 c.FormFile 返回值等价的 multipart 文件头
func makeFileHeader(t *testing.T, fileName string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

// seedAttachment 直接写入一条附件记录及其物理文件，返回记录
func seedAttachment(t *testing.T, gdb *gorm.DB, root, status string, uploadTime time.Time, withFile bool) *models.IssueAttachment {
	t.Helper()

	physicalPath := filepath.Join(root, "upload", "seed-"+status+"-"+uploadTime.Format("150405.000000000")+".log")
	if withFile {
		require.NoError(t, os.MkdirAll(filepath.Dir(physicalPath), 0755))
		require.NoError(t, os.WriteFile(physicalPath, []byte("seed"), 0644))
	}

	att := &models.IssueAttachment{
		FileName:   "seed.log",
		FilePath:   physicalPath,
		FileSize:   4,
		FileType:   ".log",
		UploadTime: uploadTime,
		UploadBy:   "tester",
		Status:     status,
	}
	require.NoError(t, gdb.Create(att).Error)
	return att
}

func TestUploadTemporaryCreatesRowAndFile(t *testing.T) {
	svc, gdb, _ := newAttachmentService(t)

	result, err := svc.UploadTemporary(makeFileHeader(t, "崩溃日志.log", []byte("panic at 0x00")), "tester")
	require.NoError(t, err)
	require.Equal(t, "崩溃日志.log", result.FileName)
	require.Equal(t, ".log", result.FileType)
	require.EqualValues(t, len("panic at 0x00"), result.FileSize)
	require.True(t, strings.HasPrefix(result.FilePath, "/profile/upload/"))

	var row models.IssueAttachment
	require.NoError(t, gdb.First(&row, result.AttachmentID).Error)
	require.Equal(t, models.AttachmentStatusTemporary, row.Status)
	require.Nil(t, row.IssueID)
	require.Equal(t, "tester", row.UploadBy)

	// 物理文件真实落盘，内容一致
	data, err := os.ReadFile(row.FilePath)
	require.NoError(t, err)
	require.Equal(t, []byte("panic at 0x00"), data)
}

func TestUploadTemporaryRejectsDisallowedExtension(t *testing.T) {
	svc, gdb, root := newAttachmentService(t)

	_, err := svc.UploadTemporary(makeFileHeader(t, "payload.exe", []byte("MZ")), "tester")
	require.ErrorIs(t, err, upload.ErrExtensionNotAllowed)

	// 既没有记录也没有文件写入
	var count int64
	require.NoError(t, gdb.Model(&models.IssueAttachment{}).Count(&count).Error)
	require.Zero(t, count)
	_, statErr := os.Stat(filepath.Join(root, "upload"))
	require.True(t, os.IsNotExist(statErr))
}

func TestUploadTemporaryExtensionCaseInsensitive(t *testing.T) {
	svc, _, _ := newAttachmentService(t)

	result, err := svc.UploadTemporary(makeFileHeader(t, "SCREENSHOT.PNG", []byte{0x89, 0x50}), "tester")
	require.NoError(t, err)
	require.Equal(t, ".png", result.FileType)
}

func TestCleanTemporaryAttachmentsRemovesExpired(t *testing.T) {
	svc, gdb, root := newAttachmentService(t)

	expired := seedAttachment(t, gdb, root, models.AttachmentStatusTemporary, time.Now().Add(-25*time.Hour), true)
	fresh := seedAttachment(t, gdb, root, models.AttachmentStatusTemporary, time.Now().Add(-1*time.Hour), true)
	issueID := int64(42)
	linked := seedAttachment(t, gdb, root, models.AttachmentStatusLinked, time.Now().Add(-48*time.Hour), true)
	require.NoError(t, gdb.Model(linked).Update("issue_id", issueID).Error)

	result, err := svc.CleanTemporaryAttachments(24)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.RowsDeleted)
	require.Equal(t, 1, result.FilesRemoved)

	// 过期临时附件的记录与文件都被清除
	require.ErrorIs(t, gdb.First(&models.IssueAttachment{}, expired.AttachmentID).Error, gorm.ErrRecordNotFound)
	_, statErr := os.Stat(expired.FilePath)
	require.True(t, os.IsNotExist(statErr))

	// 未过期的临时附件和已关联附件不受影响
	require.NoError(t, gdb.First(&models.IssueAttachment{}, fresh.AttachmentID).Error)
	require.NoError(t, gdb.First(&models.IssueAttachment{}, linked.AttachmentID).Error)
	_, statErr = os.Stat(linked.FilePath)
	require.NoError(t, statErr)

	// 幂等：紧接着再跑一轮，没有可清理的内容
	again, err := svc.CleanTemporaryAttachments(24)
	require.NoError(t, err)
	require.EqualValues(t, 0, again.RowsDeleted)
	require.Equal(t, 0, again.FilesRemoved)
}

func TestCleanTemporaryAttachmentsToleratesMissingFile(t *testing.T) {
	svc, gdb, root := newAttachmentService(t)

	orphanRow := seedAttachment(t, gdb, root, models.AttachmentStatusTemporary, time.Now().Add(-30*time.Hour), false)

	result, err := svc.CleanTemporaryAttachments(24)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.RowsDeleted)
	require.Equal(t, 0, result.FilesRemoved) // 文件早已不在，只有记录被删

	require.ErrorIs(t, gdb.First(&models.IssueAttachment{}, orphanRow.AttachmentID).Error, gorm.ErrRecordNotFound)
}

func TestCleanTemporaryAttachmentsSkipsConcurrentlyLinked(t *testing.T) {
	svc, gdb, root := newAttachmentService(t)

	// 清理启动前还是过期临时附件，随后被并发请求关联到了Issue
	att := seedAttachment(t, gdb, root, models.AttachmentStatusTemporary, time.Now().Add(-25*time.Hour), true)
	issueID := int64(7)
	require.NoError(t, gdb.Model(att).Updates(map[string]interface{}{
		"status":   models.AttachmentStatusLinked,
		"issue_id": issueID,
	}).Error)

	result, err := svc.CleanTemporaryAttachments(24)
	require.NoError(t, err)
	require.EqualValues(t, 0, result.RowsDeleted)

	// 删除谓词重查 temporary 状态，已关联的记录安然无恙
	var row models.IssueAttachment
	require.NoError(t, gdb.First(&row, att.AttachmentID).Error)
	require.Equal(t, models.AttachmentStatusLinked, row.Status)
}

func TestDeleteAttachmentRemovesRowAndFile(t *testing.T) {
	svc, gdb, root := newAttachmentService(t)

	att := seedAttachment(t, gdb, root, models.AttachmentStatusTemporary, time.Now(), true)

	require.NoError(t, svc.DeleteAttachment(att.AttachmentID))

	require.ErrorIs(t, gdb.First(&models.IssueAttachment{}, att.AttachmentID).Error, gorm.ErrRecordNotFound)
	_, statErr := os.Stat(att.FilePath)
	require.True(t, os.IsNotExist(statErr))
}

func TestDeleteAttachmentNotFound(t *testing.T) {
	svc, _, _ := newAttachmentService(t)

	require.ErrorIs(t, svc.DeleteAttachment(99999), ErrAttachmentNotFound)
}
