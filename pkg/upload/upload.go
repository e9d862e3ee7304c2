package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrExtensionNotAllowed = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件大小不能超过2G")
)

// MaxFileSize 单个附件的大小上限（2 GiB）
const MaxFileSize = 2 * 1024 * 1024 * 1024

// allowedExtensions 是附件扩展名白名单：
// 图片、办公文档、压缩包、部分视频格式、pdf、日志/转储文件和纯文本
var allowedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".gz": {}, ".tar": {},
	".mp4": {}, ".avi": {}, ".mov": {},
	".pdf": {},
	".log": {}, ".dmp": {},
	".txt": {},
}

// NormalizeExtension 提取并标准化文件扩展名（含点，小写）
func NormalizeExtension(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

// CheckExtension 校验扩展名是否在白名单内
func CheckExtension(ext string) error {
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
	}
	return nil
}

// ProbeSize 通过 seek 到流末尾测量真实文件大小，不信任客户端声明的长度。
// 测量完成后将读取位置重置到流开头。
func ProbeSize(src io.Seeker) (int64, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

// Storage 负责附件的物理文件存取。
// 物理路径位于 root 之下，展示路径以 urlPrefix 开头，两者一一对应。
type Storage struct {
	root      string
	urlPrefix string
}

// NewStorage 创建附件存储，root 为物理根目录，urlPrefix 为对外展示路径前缀
func NewStorage(root, urlPrefix string) *Storage {
	return &Storage{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// Save 将文件流写入按日期分区的物理路径，返回物理路径与展示路径。
// 存储文件名使用 UUID 重命名，避免原始文件名冲突或路径注入。
func (s *Storage) Save(src io.Reader, ext string) (physicalPath string, displayPath string, err error) {
	now := time.Now()
	relDir := filepath.Join("upload", now.Format("2006"), now.Format("01"), now.Format("02"))
	storedName := uuid.NewString() + ext

	dir := filepath.Join(s.root, relDir)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	physicalPath = filepath.Join(dir, storedName)
	dst, err := os.Create(physicalPath)
	if err != nil {
		return "", "", fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(physicalPath) // 写入失败不留下半截文件
		return "", "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err = dst.Close(); err != nil {
		os.Remove(physicalPath)
		return "", "", fmt.Errorf("关闭文件失败: %w", err)
	}

	displayPath = s.urlPrefix + "/" + path.Join(filepath.ToSlash(relDir), storedName)
	return physicalPath, displayPath, nil
}

// Remove 删除物理文件。返回值表示文件是否被真正删除：
// 文件不存在不算错误（removed=false, err=nil），元数据行的删除不依赖物理文件是否仍在。
func (s *Storage) Remove(physicalPath string) (removed bool, err error) {
	if physicalPath == "" {
		return false, nil
	}
	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
