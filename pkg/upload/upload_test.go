package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeExtension(t *testing.T) {
	require.Equal(t, ".log", NormalizeExtension("crash.log"))
	require.Equal(t, ".png", NormalizeExtension("SCREENSHOT.PNG"))
	require.Equal(t, ".gz", NormalizeExtension("dump.tar.gz"))
	require.Equal(t, "", NormalizeExtension("noextension"))
}

func TestCheckExtension(t *testing.T) {
	for _, ext := range []string{".jpg", ".docx", ".zip", ".mp4", ".pdf", ".dmp", ".txt"} {
		require.NoError(t, CheckExtension(ext), "ext: %s", ext)
	}
	for _, ext := range []string{".exe", ".sh", ".bat", ".js", ""} {
		require.ErrorIs(t, CheckExtension(ext), ErrExtensionNotAllowed, "ext: %s", ext)
	}
}

func TestProbeSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.log")
	content := []byte("twelve bytes")
	require.NoError(t, os.WriteFile(path, content, 0644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	size, err := ProbeSize(f)
	require.NoError(t, err)
	require.EqualValues(t, len(content), size)

	// 测量后读取位置回到流开头，后续拷贝能读到完整内容
	var buf bytes.Buffer
	_, err = buf.ReadFrom(f)
	require.NoError(t, err)
	require.Equal(t, content, buf.Bytes())
}

func TestStorageSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	storage := NewStorage(root, "/profile")

	physicalPath, displayPath, err := storage.Save(bytes.NewReader([]byte("附件内容")), ".txt")
	require.NoError(t, err)

	// 物理路径位于按日期分区的目录下，内容完整
	require.True(t, strings.HasPrefix(physicalPath, filepath.Join(root, "upload")))
	data, err := os.ReadFile(physicalPath)
	require.NoError(t, err)
	require.Equal(t, []byte("附件内容"), data)

	// 展示路径带前缀且使用斜杠分隔，存储文件名不是原始文件名
	require.True(t, strings.HasPrefix(displayPath, "/profile/upload/"))
	require.True(t, strings.HasSuffix(displayPath, ".txt"))

	removed, err := storage.Remove(physicalPath)
	require.NoError(t, err)
	require.True(t, removed)
	_, statErr := os.Stat(physicalPath)
	require.True(t, os.IsNotExist(statErr))

	// 重复删除：文件已不在，不算错误
	removed, err = storage.Remove(physicalPath)
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = storage.Remove("")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestStorageDisplayPathTrimsPrefixSlash(t *testing.T) {
	storage := NewStorage(t.TempDir(), "/profile/")

	_, displayPath, err := storage.Save(bytes.NewReader([]byte("x")), ".log")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(displayPath, "/profile/upload/"))
	require.False(t, strings.Contains(displayPath, "//"))
}
