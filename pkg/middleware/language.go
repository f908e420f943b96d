package middleware

import (
	"TinyTales/pkg/constants"
	"TinyTales/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// LanguageMiddleware 按 ?lang= 与 Accept-Language 选出响应语言
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18nSupport.Match(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(constants.LangField, lang)
		c.Next()
	}
}

// Lang 当前请求的语言，未设置时为 en
func Lang(c *gin.Context) string {
	if lang := c.GetString(constants.LangField); lang != "" {
		return lang
	}
	return "en"
}
