package native

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	ErrCodeClosedRealm           ErrorCode = "CLOSED_REALM"
	ErrCodeNotInWriteTransaction ErrorCode = "NOT_IN_WRITE_TRANSACTION"
	ErrCodeWrongTransactionState ErrorCode = "WRONG_TRANSACTION_STATE"
	ErrCodeInvalidatedObject     ErrorCode = "INVALIDATED_OBJECT"
	ErrCodeKeyNotFound           ErrorCode = "KEY_NOT_FOUND"
	ErrCodeKeyAlreadyUsed        ErrorCode = "KEY_ALREADY_USED"
	ErrCodeNoSuchTable           ErrorCode = "NO_SUCH_TABLE"
	ErrCodeNoSuchColumn          ErrorCode = "NO_SUCH_COLUMN"
	ErrCodeSchemaMismatch        ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeFileInUse             ErrorCode = "FILE_IN_USE"
	ErrCodeIllegalOperation      ErrorCode = "ILLEGAL_OPERATION"
	ErrCodeIndexOutOfBounds      ErrorCode = "INDEX_OUT_OF_BOUNDS"
)

// Error is an engine error. Layers above translate the codes they have a
// better message for and pass the rest through unchanged.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err if it is (or wraps) an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code, true
	}
	return "", false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
