package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// 业务错误码，前三位对应 HTTP 状态
const (
	CodeValidation         = 40001
	CodeUnauthorized       = 40101
	CodeNotFound           = 40401
	CodeConflict           = 40901
	CodePersistence        = 50001
	CodeUpstreamGeneration = 50201
	CodeUpstreamSynthesis  = 50202
	CodeStorage            = 50203
)

// 哨兵错误，errors.Is 按 Code 匹配
var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrPersistence        = &Error{Code: CodePersistence, Message: "persistence error"}
	ErrUpstreamGeneration = &Error{Code: CodeUpstreamGeneration, Message: "upstream generation error"}
	ErrUpstreamSynthesis  = &Error{Code: CodeUpstreamSynthesis, Message: "upstream synthesis error"}
	ErrStorage            = &Error{Code: CodeStorage, Message: "storage error"}
)

// Error represents a custom error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同 Code 即视为同类错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == 0 {
		return false
	}
	return e.Code == t.Code
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return WithCode(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with message; the code of a wrapped *Error is kept
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// WrapWithCode 包装底层错误并指定错误码
func WrapWithCode(err error, code int, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}
	newErr := e.clone()
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return newErr
}

// 复制一份，避免修改原始错误
func (e *Error) clone() *Error {
	c := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context)),
	}
	copy(c.Context, e.Context)
	return c
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	// 去掉 goroutine 头和 captureStack / 构造函数自身
	if len(lines) > 5 {
		lines = lines[5:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// GetCode returns the first non-zero code in the error chain
func GetCode(err error) int {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Code != 0 {
				return e.Code
			}
			err = e.Err
			continue
		}
		return 0
	}
	return 0
}

// GetMessage returns the error message
func GetMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// GetStack returns the error stack trace
func GetStack(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Stack
	}
	return ""
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Cause returns the underlying error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// HTTPStatus 把业务错误码映射成 HTTP 状态码
func HTTPStatus(err error) int {
	code := GetCode(err)
	if code == 0 {
		return http.StatusInternalServerError
	}
	status := code / 100
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
