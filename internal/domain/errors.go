package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")
	ErrStoreUnavailable  = errors.New("store unavailable")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrValidation          = errors.New("validation failed")
	ErrOrderClosed         = errors.New("order is closed")
	ErrForbidden           = errors.New("forbidden")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type InvalidTransitionError struct {
	From OrderStatusType
	To   OrderStatusType
}

func NewInvalidTransitionError(from, to OrderStatusType) error {
	return &InvalidTransitionError{From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// FailedUpload файл, который не удалось загрузить. Повторная загрузка с тем же Key попадает в тот же объект.
type FailedUpload struct {
	FileName string
	Key      string
	Err      error
}

// PartialUploadError часть файлов не загрузилась. Загруженные файлы уже привязаны к заказу,
// повторять нужно только Failed.
type PartialUploadError struct {
	Failed []FailedUpload
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("failed to upload %d file(s): %s", len(e.Failed), strings.Join(e.FailedFiles(), ", "))
}

// FailedFiles имена файлов, которые не удалось загрузить. Одинаковые имена не схлопываются.
func (e *PartialUploadError) FailedFiles() []string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.FileName)
	}
	sort.Strings(names)
	return names
}
