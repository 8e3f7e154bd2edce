package domain

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	CodeValidation   ErrCode = "validation_error"
	CodeNotFound     ErrCode = "not_found"
	CodeForbidden    ErrCode = "forbidden"
	CodeConflict     ErrCode = "conflict"
	CodeUnauthorized ErrCode = "unauthorized"
	CodeUnavailable  ErrCode = "unavailable"
)

type AppError struct {
	Code    ErrCode
	Message string
	Meta    map[string]string
}

func (e *AppError) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Meta)
}

func ErrValidation(msg string) error { return &AppError{Code: CodeValidation, Message: msg} }
func ErrValidationMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeValidation, Message: msg, Meta: meta}
}
func ErrNotFound(msg string) error { return &AppError{Code: CodeNotFound, Message: msg} }
func ErrNotFoundMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeNotFound, Message: msg, Meta: meta}
}
func ErrForbidden(msg string) error { return &AppError{Code: CodeForbidden, Message: msg} }
func ErrConflict(msg string) error  { return &AppError{Code: CodeConflict, Message: msg} }
func ErrConflictMeta(msg string, meta map[string]string) error {
	return &AppError{Code: CodeConflict, Message: msg, Meta: meta}
}
func ErrUnauthorized(msg string) error { return &AppError{Code: CodeUnauthorized, Message: msg} }

// ErrUnavailable marks an infrastructure failure that survived the storage retry.
func ErrUnavailable(msg string) error { return &AppError{Code: CodeUnavailable, Message: msg} }

// CodeOf returns the AppError code carried by err, or "" for foreign errors.
func CodeOf(err error) ErrCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsCode(err error, code ErrCode) bool { return CodeOf(err) == code }

const MsgCapacityExhausted = "capacity exhausted"

func ErrCapacityExhausted() error {
	return &AppError{Code: CodeConflict, Message: MsgCapacityExhausted}
}

func IsCapacityExhausted(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == CodeConflict && ae.Message == MsgCapacityExhausted
}
