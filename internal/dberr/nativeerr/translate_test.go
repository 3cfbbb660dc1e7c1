package nativeerr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		code native.ErrorCode
		want string
	}{
		{native.ErrCodeClosedRealm, "get: " + dberr.MsgClosed},
		{native.ErrCodeNotInWriteTransaction, "get: " + dberr.MsgNotInWrite},
		{native.ErrCodeInvalidatedObject, "get: " + dberr.MsgInvalidObject},
		{native.ErrCodeWrongTransactionState, "get: already open"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := Translate("get", fmt.Errorf("wrapped: %w", &native.Error{Code: tt.code, Message: "already open"}))
			assert.True(t, dberr.IsStateError(err))
			assert.EqualError(t, err, tt.want)
		})
	}

	dup := &native.Error{Code: native.ErrCodeKeyAlreadyUsed, Message: "dup"}
	assert.Same(t, dup, Translate("create", dup), "uniqueness violations pass through")

	plain := fmt.Errorf("disk full")
	assert.Same(t, plain, Translate("create", plain))
}
