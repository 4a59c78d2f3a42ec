package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yeisme/casevault/pkg/internal/model"
)

// 领域错误.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("ledger was modified concurrently")
	ErrStorage    = errors.New("storage failure")
	ErrTooLarge   = errors.New("file exceeds maximum upload size")
)

// ValidationError 请求校验失败，Fields 为字段到原因的映射.
type ValidationError struct {
	Message string
	Fields  map[string]string
	// TooLarge 为 true 时表示有文件超过大小上限.
	TooLarge bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is 让 errors.Is 可以匹配 ErrValidation 与 ErrTooLarge.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.TooLarge && target == ErrTooLarge)
}

// NotFoundError 资源不存在.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// Is 匹配 ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewValidationError 构造单字段校验错误.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("The %s field %s.", field, reason),
		Fields:  map[string]string{field: reason},
	}
}

func ownerNotFound(kind model.OwnerKind) error {
	return &NotFoundError{Message: kind.Label() + " not found"}
}

func fileNotFound() error {
	return &NotFoundError{Message: "File not found"}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// MapHTTPStatus 将领域错误转换为 HTTP 状态码.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody 返回对外的错误响应体，内部错误不暴露细节.
func ErrorBody(err error) map[string]any {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return map[string]any{"message": ve.Message, "errors": ve.Fields}
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		return map[string]any{"message": nf.Message}
	}

	if errors.Is(err, ErrConflict) {
		return map[string]any{"message": "The record was modified concurrently, please retry."}
	}

	return map[string]any{"message": "Internal server error."}
}
