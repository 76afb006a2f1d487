package utils

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// CalculateMD5 computes the MD5 hash of a byte slice.
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// HasExtension 判断文件名是否以给定扩展名结尾（忽略大小写）
func HasExtension(filename, ext string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ext)
}
