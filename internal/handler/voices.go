package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"TinyTales/internal/narration"
	"TinyTales/pkg/constants"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// maxSampleSize 单个音色样本上限
const maxSampleSize = 20 << 20

// 上传样本并克隆音色，服务商异步处理，返回 202
func (h *Handlers) handleCreateVoice(c *gin.Context) {
	in, err := readVoiceUpload(c)
	if err != nil {
		h.recordVoice("create", err)
		h.abortWithError(c, err)
		return
	}
	in.UserID = c.GetString(constants.UserField)

	result, err := h.service.CreateVoiceProfile(c.Request.Context(), in)
	h.recordVoice("create", err)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Accepted(c, h.t(c, "voice.created"), result)
}

// 获取当前用户的音色，没有时 data 为 null
func (h *Handlers) handleGetVoice(c *gin.Context) {
	profile, err := h.service.GetVoiceProfile(c.Request.Context(), c.GetString(constants.UserField))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Success(c, h.t(c, "voice.fetched"), profile)
}

func (h *Handlers) handleDeleteVoice(c *gin.Context) {
	err := h.service.DeleteVoiceProfile(c.Request.Context(), c.GetString(constants.UserField))
	h.recordVoice("delete", err)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Success(c, h.t(c, "voice.deleted"), nil)
}

func (h *Handlers) recordVoice(op string, err error) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.RecordVoiceOperation(op, status)
}

// readVoiceUpload 取 audio 字段的文件，没有时退回 file 字段或第一个文件
func readVoiceUpload(c *gin.Context) (narration.CreateVoiceInput, error) {
	var in narration.CreateVoiceInput
	form, err := c.MultipartForm()
	if err != nil {
		return in, apperrors.WrapWithCode(err, apperrors.CodeValidation, "multipart form required")
	}

	fh := pickFile(form, "audio", "file")
	if fh == nil {
		return in, apperrors.WithCode(apperrors.CodeValidation, "audio file is required")
	}
	if fh.Size > maxSampleSize {
		return in, apperrors.WithCodef(apperrors.CodeValidation, "audio file exceeds %d bytes", maxSampleSize)
	}
	f, err := fh.Open()
	if err != nil {
		return in, apperrors.WrapWithCode(err, apperrors.CodeValidation, "read audio file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxSampleSize+1))
	if err != nil {
		return in, apperrors.WrapWithCode(err, apperrors.CodeValidation, "read audio file")
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	in.Name = strings.TrimSpace(c.PostForm("name"))
	in.Language = strings.TrimSpace(c.PostForm("language"))
	in.DurationSeconds = cast.ToInt64(c.PostForm("duration"))
	in.SizeBytes = cast.ToInt64(c.PostForm("size"))
	in.FileName = fh.Filename
	in.MimeType = mimeType
	in.Audio = data
	return in, nil
}

func pickFile(form *multipart.Form, fields ...string) *multipart.FileHeader {
	for _, name := range fields {
		if files := form.File[name]; len(files) > 0 {
			return files[0]
		}
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}
