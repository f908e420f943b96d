package handlers

import (
	"errors"
	"net/http"

	"TinyTales/internal/narration"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/logger"
	"TinyTales/pkg/middleware"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorKeys = map[int]string{
	apperrors.CodeValidation:         "error.validation",
	apperrors.CodeUnauthorized:       "error.unauthorized",
	apperrors.CodeNotFound:           "error.not_found",
	apperrors.CodeConflict:           "error.conflict",
	apperrors.CodePersistence:        "error.persistence",
	apperrors.CodeUpstreamGeneration: "error.upstream_generation",
	apperrors.CodeUpstreamSynthesis:  "error.upstream_synthesis",
	apperrors.CodeStorage:            "error.storage",
}

// t 翻译 key，c 为 nil 时用默认语言
func (h *Handlers) t(c *gin.Context, key string) string {
	if h.i18n == nil {
		return key
	}
	lang := "en"
	if c != nil {
		lang = middleware.Lang(c)
	}
	return h.i18n.T(lang, key, nil)
}

// abortWithError 按错误码输出状态码和本地化消息，流水线错误附带失败阶段
func (h *Handlers) abortWithError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.HTTPStatus(err)

	key, ok := errorKeys[code]
	if !ok {
		key = "error.internal"
	}
	if errors.Is(err, narration.ErrNoVoice) {
		key = "error.no_voice"
	}

	stage := ""
	var se *narration.StageError
	if errors.As(err, &se) {
		stage = se.Stage.String()
	}

	detail := ""
	if status == http.StatusBadRequest {
		detail = apperrors.GetMessage(err)
	}
	if status >= http.StatusInternalServerError {
		logFailure(c, stage, code, err)
	}
	response.AbortWithDetail(c, status, h.t(c, key), detail, stage)
}

func logFailure(c *gin.Context, stage string, code int, err error) {
	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.String("stage", stage),
		zap.Int("code", code),
		zap.Error(err),
		zap.NamedError("cause", apperrors.Cause(unwrapStage(err))),
		zap.String("stack", apperrors.GetStack(err)),
	}
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		for _, kv := range ae.Context {
			fields = append(fields, zap.String(kv.Key, kv.Value))
		}
	}
	logger.Error("request failed", fields...)
}

func unwrapStage(err error) error {
	var se *narration.StageError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}
