package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"TinyTales/pkg/constants"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Principal 已认证的调用方
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Claims 认证服务签发的访问令牌
type Claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	Name string `json:"name,omitempty"`
}

var errMissingToken = errors.New("missing bearer token")

// AuthMiddleware 校验 HS256 Bearer 令牌，sub 作为用户 ID
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return func(c *gin.Context) {
		p, err := parsePrincipal(parser, key, c.GetHeader(constants.HeaderAuthorization))
		if err != nil {
			response.AbortWithStatus(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Set(constants.UserField, p.UserID)
		c.Set(constants.PrincipalField, p)
		c.Next()
	}
}

func parsePrincipal(parser *jwt.Parser, key []byte, header string) (Principal, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Principal{}, errMissingToken
	}
	var claims Claims
	_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" {
		return Principal{}, jwt.ErrTokenInvalidSubject
	}
	return Principal{UserID: claims.Subject, Email: claims.Email, Name: claims.UserMetadata.Name}, nil
}

// CurrentPrincipal 取 AuthMiddleware 写入的调用方
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(constants.PrincipalField)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// IssueToken 用同一密钥签发令牌，供本地调试与测试使用
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        p.Email,
		UserMetadata: UserMetadata{Name: p.Name},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
