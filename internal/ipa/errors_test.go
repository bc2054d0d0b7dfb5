package ipa

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRPCError(t *testing.T) {
	tests := []struct {
		name         string
		rpcErr       *RPCError
		objectType   string
		wantNil      bool
		wantCategory ErrorCategory
		wantMessage  string
		wantField    string
	}{
		{
			name:    "nil error",
			rpcErr:  nil,
			wantNil: true,
		},
		{
			name:         "not found",
			rpcErr:       &RPCError{Code: CodeNotFound, Name: "NotFound", Message: "jdoe: user not found"},
			objectType:   "user",
			wantCategory: ErrorCategoryNotFound,
			wantMessage:  "ipa user does not exist",
		},
		{
			name:         "duplicate entry",
			rpcErr:       &RPCError{Code: CodeDuplicateEntry, Name: "DuplicateEntry"},
			objectType:   "group",
			wantCategory: ErrorCategoryAlreadyExists,
			wantMessage:  "ipa group already exists",
		},
		{
			name: "validation error",
			rpcErr: &RPCError{
				Code: CodeValidationError,
				Name: "ValidationError",
				Data: map[string]any{"name": "mail", "error": "invalid e-mail format"},
			},
			objectType:   "user",
			wantCategory: ErrorCategoryInvalidField,
			wantMessage:  "invalid ipa variable: mail",
			wantField:    "mail",
		},
		{
			name:       "empty modlist",
			rpcErr:     &RPCError{Code: CodeEmptyModlist, Name: "EmptyModlist"},
			objectType: "user",
			wantNil:    true,
		},
		{
			name:         "unmapped code",
			rpcErr:       &RPCError{Code: 2100, Name: "ACIError"},
			objectType:   "user",
			wantCategory: ErrorCategoryUnhandled,
			wantMessage:  "unhandled ipa error 2100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRPCError("user_show", tt.objectType, tt.rpcErr)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var ipaErr *IPAError
			require.True(t, errors.As(err, &ipaErr))
			assert.Equal(t, tt.wantCategory, ipaErr.Category)
			assert.Equal(t, tt.wantMessage, ipaErr.Message)
			assert.Equal(t, tt.rpcErr.Code, ipaErr.Code)
			assert.Equal(t, tt.wantField, ipaErr.Field)
			assert.Contains(t, err.Error(), tt.wantMessage)
		})
	}
}

func TestIPAError_Error(t *testing.T) {
	tests := []struct {
		name   string
		ipaErr *IPAError
		want   string
	}{
		{
			name:   "local validation error",
			ipaErr: NewMissingVariableError("user_add", "user"),
			want:   "IPA user_add failed - missing variable: user",
		},
		{
			name: "error with code and server message",
			ipaErr: &IPAError{
				Operation: "group_show",
				Code:      CodeNotFound,
				Message:   "ipa group does not exist",
				ServerMsg: "admins2: group not found",
			},
			want: "IPA group_show failed (code 4001) - ipa group does not exist - server: admins2: group not found",
		},
		{
			name: "message only",
			ipaErr: &IPAError{
				Message: "no search options specified",
			},
			want: "no search options specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ipaErr.Error())
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	notFound := NewRPCError("user_show", "user", &RPCError{Code: CodeNotFound})
	exists := NewRPCError("group_add", "group", &RPCError{Code: CodeDuplicateEntry})
	invalid := NewInvalidVariableError("user_add", "email")
	unhandled := NewUnhandledFailureError("group_add_user", "permission denied")
	auth := NewAuthenticationError("login_password", errors.New("login rejected: invalid-password"))
	conn := NewConnectionError("user_show", errors.New("dial tcp: connection refused"))

	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsNotFoundError(exists))

	assert.True(t, IsAlreadyExistsError(exists))
	assert.False(t, IsAlreadyExistsError(notFound))

	assert.True(t, IsInvalidFieldError(invalid))
	assert.True(t, IsInvalidFieldError(NewNoSearchOptionsError("user_find")))

	assert.True(t, IsUnhandledError(unhandled))
	assert.True(t, IsAuthenticationError(auth))
	assert.True(t, IsConnectionError(conn))

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("reading user: %w", notFound)
	assert.True(t, IsNotFoundError(wrapped))

	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(errors.New("plain error")))
	assert.Equal(t, ErrorCategory(""), GetErrorCategory(errors.New("plain error")))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("op", nil))

	original := &IPAError{Category: ErrorCategoryNotFound, Message: "ipa user does not exist"}
	wrapped := WrapError("user_show", original)
	assert.Same(t, original, wrapped)
	assert.Equal(t, "user_show", original.Operation)

	plain := errors.New("unexpected EOF")
	wrapped = WrapError("user_find", plain)
	assert.True(t, IsConnectionError(wrapped))
	assert.ErrorIs(t, wrapped, plain)
}

func TestMemberFailureErrors(t *testing.T) {
	err := NewMemberNotFoundError("group_add_user", "user")
	assert.Equal(t, "ipa user not found", err.Message)
	assert.True(t, IsNotFoundError(err))

	err = NewUnhandledFailureError("group_remove_user", "insufficient access")
	assert.Equal(t, "unhandled ipa error: insufficient access", err.Message)
}
