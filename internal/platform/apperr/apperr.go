package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

// 共通エラーコード（必要に応じて追加）
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeNotAllowed       Code = "NOT_ALLOWED"
	CodeConflict         Code = "CONFLICT"
	CodePendingPenalties Code = "PENDING_PENALTIES"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInternal         Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NotFound(msg string) error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NotAllowed(msg string) error {
	return &Error{Code: CodeNotAllowed, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Code: CodeConflict, Message: msg}
}

func PendingPenalties(msg string) error {
	return &Error{Code: CodePendingPenalties, Message: msg}
}

func InvalidArgument(msg string) error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

func Internal(msg string) error {
	return &Error{Code: CodeInternal, Message: msg}
}

// CodeOf returns the domain code carried by err, CodeInternal otherwise.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotAllowed:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodePendingPenalties:
		return http.StatusUnprocessableEntity
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ---------- HTTP error body ----------

type DTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) DTO {
	var d DTO
	d.Error.Code = code
	d.Error.Message = msg
	return d
}

func FromErr(err error) DTO {
	var ae *Error
	if errors.As(err, &ae) {
		return Body(ae.Code, ae.Message)
	}
	return Body(CodeInternal, err.Error())
}
