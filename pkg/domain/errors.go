package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by every layer. Callers match them with errors.Is;
// concrete errors wrap one of these with context.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageFault       = errors.New("storage fault")
	ErrIndexInconsistency = errors.New("index inconsistency")
)

// Invalidf wraps ErrInvalidArgument with a formatted message.
func Invalidf(format string, args ...interface{}) error {
	return wrapf(ErrInvalidArgument, format, args...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return wrapf(ErrNotFound, format, args...)
}

// StorageFaultf wraps ErrStorageFault with a formatted message.
func StorageFaultf(format string, args ...interface{}) error {
	return wrapf(ErrStorageFault, format, args...)
}

func wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
