package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrService matches every *ServiceError via errors.Is.
var ErrService = errors.New("embedding service error")

// ServiceError reports a failed or malformed exchange with the embedding service.
type ServiceError struct {
	Op        string
	Status    int // HTTP status, 0 when no response was received
	Retryable bool
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("embedding %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports true for ErrService.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

// IsRetryable reports whether err is a ServiceError worth retrying.
func IsRetryable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Retryable
}

func malformed(format string, args ...any) *ServiceError {
	return &ServiceError{Op: "decode", Err: fmt.Errorf(format, args...)}
}

// transportError classifies a failure to get any response at all.
func transportError(err error) *ServiceError {
	return &ServiceError{Op: "request", Retryable: isTimeout(err), Err: err}
}

func statusError(status int, body string) *ServiceError {
	return &ServiceError{
		Op:        "request",
		Status:    status,
		Retryable: status == 429 || status >= 500,
		Err:       errors.New(body),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
