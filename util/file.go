package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultDirMode  os.FileMode = 0755
	defaultFileMode os.FileMode = 0644
	defaultFileFlag int         = os.O_APPEND | os.O_CREATE | os.O_WRONLY
)

// OpenFile 以追加方式打开文件, 目录不存在时自动创建
func OpenFile(fullpath string) (*os.File, error) {
	fullpath = strings.ReplaceAll(fullpath, "\\", "/")
	dir := filepath.Dir(fullpath)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err = os.MkdirAll(dir, defaultDirMode); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(fullpath, defaultFileFlag, defaultFileMode)
}

func GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// RotateFile 把filePath重命名为 filePath.时间戳, 然后重新创建filePath
func RotateFile(filePath string, now time.Time) (*os.File, error) {
	newFilePath := fmt.Sprintf("%s.%s", filePath, now.Format("20060102_150405"))
	if err := os.Rename(filePath, newFilePath); err != nil {
		return nil, err
	}
	return os.OpenFile(filePath, defaultFileFlag, defaultFileMode)
}
