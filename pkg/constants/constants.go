package constants

// gin.Context 中使用的键
const (
	DbField        = "_tinytales_db"
	UserField      = "user_id"
	PrincipalField = "_tinytales_principal"
	LangField      = "lang"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAuthorization  = "Authorization"
)
