package database

import (
	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/dberr/nativeerr"
	"github.com/roach88/strata/internal/native"
)

// BeginTransaction opens a write transaction. Transactions do not nest.
func (d *Database) BeginTransaction() error {
	const op = "begin transaction"
	if err := d.check(op); err != nil {
		return err
	}
	err := d.native.BeginTransaction()
	if native.HasCode(err, native.ErrCodeWrongTransactionState) {
		return &dberr.StateError{Op: op, Message: dberr.MsgAlreadyInTx}
	}
	return nativeerr.Translate(op, err)
}

// CommitTransaction commits the open write transaction.
func (d *Database) CommitTransaction() error {
	const op = "commit transaction"
	if err := d.check(op); err != nil {
		return err
	}
	err := d.native.CommitTransaction()
	if native.HasCode(err, native.ErrCodeWrongTransactionState) {
		return &dberr.StateError{Op: op, Message: dberr.MsgNotInTx}
	}
	return nativeerr.Translate(op, err)
}

// CancelTransaction discards every write since BeginTransaction.
func (d *Database) CancelTransaction() error {
	const op = "cancel transaction"
	if err := d.check(op); err != nil {
		return err
	}
	err := d.native.CancelTransaction()
	if native.HasCode(err, native.ErrCodeWrongTransactionState) {
		return &dberr.StateError{Op: op, Message: dberr.MsgNotInTx}
	}
	return nativeerr.Translate(op, err)
}

// IsInTransaction reports whether a write transaction is open.
func (d *Database) IsInTransaction() bool { return d.native.InTransaction() }

// Write runs fn inside a write transaction and commits if it returns nil.
// If fn fails or panics the transaction is rolled back first, and fn's
// error (or panic) propagates unchanged.
func (d *Database) Write(fn func() error) error {
	_, err := WriteResult(d, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// WriteResult is Write for callbacks that produce a value.
func WriteResult[T any](d *Database, fn func() (T, error)) (result T, err error) {
	if err = d.BeginTransaction(); err != nil {
		return result, err
	}
	committed := false
	defer func() {
		if committed || !d.native.InTransaction() {
			return
		}
		if cerr := d.native.CancelTransaction(); cerr != nil {
			d.logger.Warn("rollback failed", "error", cerr)
		}
	}()

	result, err = fn()
	if err != nil {
		var zero T
		return zero, err
	}
	if err = d.CommitTransaction(); err != nil {
		var zero T
		return zero, err
	}
	committed = true
	return result, nil
}
