// Package nativeerr translates storage engine errors into the dberr
// taxonomy.
package nativeerr

import (
	"errors"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
)

// Translate replaces native errors that have a more specific meaning at
// this layer. Anything else, including uniqueness violations, is returned
// unchanged.
func Translate(op string, err error) error {
	var ne *native.Error
	if !errors.As(err, &ne) {
		return err
	}
	switch ne.Code {
	case native.ErrCodeClosedRealm:
		return dberr.NewClosedError(op)
	case native.ErrCodeNotInWriteTransaction:
		return &dberr.StateError{Op: op, Message: dberr.MsgNotInWrite}
	case native.ErrCodeInvalidatedObject:
		return &dberr.StateError{Op: op, Message: dberr.MsgInvalidObject}
	case native.ErrCodeWrongTransactionState:
		return &dberr.StateError{Op: op, Message: ne.Message}
	}
	return err
}
