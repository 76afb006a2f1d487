package handler

import (
	"io"

	"github.com/cloudwego/hertz/pkg/app"

	"resume-autofill/pkg/utils"
)

// uploadFailure 上传文件校验失败的原因
type uploadFailure int

const (
	uploadOK uploadFailure = iota
	uploadMissing
	uploadNoFilename
	uploadBadExtension
	uploadTooLarge
	uploadUnreadable
)

// uploadedFile 通过校验的上传文件
type uploadedFile struct {
	Filename string
	Data     []byte
}

// readUpload 读取 multipart 中的单个文件并按扩展名和大小校验
// 文件名为空的部分会被解析为普通表单值，按 uploadNoFilename 处理
func readUpload(c *app.RequestContext, field, ext string, maxBytes int64) (uploadedFile, uploadFailure) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if form, ferr := c.MultipartForm(); ferr == nil {
			if _, ok := form.Value[field]; ok {
				return uploadedFile{}, uploadNoFilename
			}
		}
		return uploadedFile{}, uploadMissing
	}
	if fileHeader.Filename == "" {
		return uploadedFile{}, uploadNoFilename
	}
	if !utils.HasExtension(fileHeader.Filename, ext) {
		return uploadedFile{}, uploadBadExtension
	}
	if fileHeader.Size > maxBytes {
		return uploadedFile{}, uploadTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return uploadedFile{}, uploadUnreadable
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return uploadedFile{}, uploadUnreadable
	}
	if int64(len(data)) > maxBytes {
		return uploadedFile{}, uploadTooLarge
	}
	return uploadedFile{Filename: fileHeader.Filename, Data: data}, uploadOK
}
