package i18n

import (
	"embed"
	"encoding/json"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"TinyTales/pkg/logger"

	"go.uber.org/zap"
)

//go:embed locales/*.json
var localeFS embed.FS

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle  *i18n.Bundle
	tags    []language.Tag
	matcher language.Matcher
}

// NewI18nSupport 加载内置语言包，defaultLang 为兜底语言
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	tags := []language.Tag{def}
	for _, entry := range entries {
		p := path.Join("locales", entry.Name())
		buf, err := localeFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		mf, err := bundle.ParseMessageFileBytes(buf, p)
		if err != nil {
			return nil, err
		}
		if mf.Tag != def {
			tags = append(tags, mf.Tag)
		}
	}

	return &I18nSupport{
		bundle:  bundle,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

// Match 从候选语言（query 参数、Accept-Language）中选出支持的语言
func (i *I18nSupport) Match(candidates ...string) string {
	_, idx := language.MatchStrings(i.matcher, candidates...)
	base, _ := i.tags[idx].Base()
	return base.String()
}

// T 获取翻译文本
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Debug("missing translation", zap.String("key", key), zap.String("lang", languageTag), zap.Error(err))
		return key
	}
	return translation
}
