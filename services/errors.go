package services

import (
	"errors"
	"fmt"
)

// ErrorCode тип ошибки, который транспорт переводит в статус ответа.
type ErrorCode string

const (
	CodeUnauthenticated    ErrorCode = "unauthenticated"
	CodePermissionDenied   ErrorCode = "permission_denied"
	CodeNotFound           ErrorCode = "not_found"
	CodeInvalidArgument    ErrorCode = "invalid_argument"
	CodeFailedPrecondition ErrorCode = "failed_precondition"
	CodeInternal           ErrorCode = "internal"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewError(code ErrorCode, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapInternal оборачивает ошибку хранилища. Уже типизированные ошибки не трогает.
func WrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Code: CodeInternal, Message: op, Err: err}
}

// CodeOf возвращает код ошибки; нетипизированные ошибки считаются internal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
