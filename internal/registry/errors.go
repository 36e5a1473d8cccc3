package registry

import (
	"errors"
	"time"
)

// ErrSkip сообщает, что элемент обработать невозможно и повторы бессмысленны.
var ErrSkip = errors.New("skip item")

// RetryError сообщает, что запрос нужно повторить после паузы After.
type RetryError struct {
	After time.Duration
	Err   error
}

func (e *RetryError) Error() string {
	if e.Err != nil {
		return "retry after " + e.After.String() + ": " + e.Err.Error()
	}
	return "retry after " + e.After.String()
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// NewRetryError создает RetryError с паузой after.
func NewRetryError(after time.Duration, err error) *RetryError {
	return &RetryError{After: after, Err: err}
}

// IsRetryError проверяет, является ли ошибка повторяемой, и возвращает паузу.
func IsRetryError(err error) (*RetryError, bool) {
	var retryErr *RetryError
	if errors.As(err, &retryErr) {
		return retryErr, true
	}
	return nil, false
}
