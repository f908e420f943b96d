package handlers

import (
	"TinyTales/internal/narration"
	"TinyTales/pkg/constants"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
)

type generateContentRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// 同步生成一段音频故事
func (h *Handlers) handleGenerateContent(c *gin.Context) {
	var req generateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abortWithError(c, apperrors.WrapWithCode(err, apperrors.CodeValidation, "invalid request body"))
		return
	}

	result, err := h.service.GenerateContent(c.Request.Context(), narration.GenerateRequest{
		UserID:   c.GetString(constants.UserField),
		Prompt:   req.Prompt,
		Language: req.Language,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Success(c, h.t(c, "content.created"), result)
}

func (h *Handlers) handleListContent(c *gin.Context) {
	items, err := h.service.ListContent(c.Request.Context(), c.GetString(constants.UserField))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Success(c, h.t(c, "content.listed"), items)
}

func (h *Handlers) handleDeleteContent(c *gin.Context) {
	err := h.service.DeleteContent(c.Request.Context(), c.Param("id"), c.GetString(constants.UserField))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	response.Success(c, h.t(c, "content.deleted"), nil)
}
