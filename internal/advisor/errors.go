package advisor

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrNoJSON        = errors.New("model response contains no json object")
)

type StatusCodeError struct {
	Code int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{Code: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("Unexpected status code %d", e.Code)
}
