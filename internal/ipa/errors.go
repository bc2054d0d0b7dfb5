package ipa

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents different categories of IPA errors.
type ErrorCategory string

const (
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryAlreadyExists  ErrorCategory = "already_exists"
	ErrorCategoryInvalidField   ErrorCategory = "invalid_field"
	ErrorCategoryUnhandled      ErrorCategory = "unhandled"
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
)

// FreeIPA error codes with special handling.
const (
	CodeValidationError = 3009
	CodeNotFound        = 4001
	CodeDuplicateEntry  = 4002
	CodeEmptyModlist    = 4202
)

// IPAError provides categorized error information for IPA operations.
type IPAError struct {
	Operation  string        // The RPC method or local operation that failed
	Category   ErrorCategory // Error category
	Code       int           // FreeIPA error code (0 for local errors)
	ObjectType string        // "user" or "group" when the error concerns an object
	Field      string        // Offending field for invalid_field errors
	Message    string        // Human-readable message
	ServerMsg  string        // Server-provided message
	Cause      error         // Underlying error
}

func (e *IPAError) Error() string {
	var parts []string

	if e.Operation != "" {
		if e.Code > 0 {
			parts = append(parts, fmt.Sprintf("IPA %s failed (code %d)", e.Operation, e.Code))
		} else {
			parts = append(parts, fmt.Sprintf("IPA %s failed", e.Operation))
		}
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	if len(parts) == 0 && e.Cause != nil {
		return e.Cause.Error()
	}

	return strings.Join(parts, " - ")
}

func (e *IPAError) Unwrap() error {
	return e.Cause
}

// GetCategory returns the error category.
func (e *IPAError) GetCategory() ErrorCategory {
	return e.Category
}

// NewRPCError maps a server error onto an IPAError. objectType names the object
// the call is about and is used in not-found and already-exists messages.
// A nil error or EmptyModlist (4202) yields nil.
func NewRPCError(operation, objectType string, rpcErr *RPCError) error {
	if rpcErr == nil {
		return nil
	}

	ipaErr := &IPAError{
		Operation:  operation,
		Code:       rpcErr.Code,
		ObjectType: objectType,
		ServerMsg:  rpcErr.Message,
	}

	switch rpcErr.Code {
	case CodeEmptyModlist:
		return nil
	case CodeNotFound:
		ipaErr.Category = ErrorCategoryNotFound
		ipaErr.Message = fmt.Sprintf("ipa %s does not exist", objectType)
	case CodeDuplicateEntry:
		ipaErr.Category = ErrorCategoryAlreadyExists
		ipaErr.Message = fmt.Sprintf("ipa %s already exists", objectType)
	case CodeValidationError:
		ipaErr.Category = ErrorCategoryInvalidField
		ipaErr.Field = rpcErr.DataName()
		ipaErr.Message = fmt.Sprintf("invalid ipa variable: %s", ipaErr.Field)
	default:
		ipaErr.Category = ErrorCategoryUnhandled
		ipaErr.Message = fmt.Sprintf("unhandled ipa error %d", rpcErr.Code)
	}

	return ipaErr
}

// checkResponse maps the error carried by resp, if any.
func checkResponse(operation, objectType string, resp *Response) error {
	if resp == nil {
		return nil
	}
	return NewRPCError(operation, objectType, resp.Error)
}

// NewMissingVariableError reports a required argument that was empty.
func NewMissingVariableError(operation, field string) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryInvalidField,
		Field:     field,
		Message:   fmt.Sprintf("missing variable: %s", field),
	}
}

// NewInvalidVariableError reports an argument that failed local validation.
func NewInvalidVariableError(operation, field string) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryInvalidField,
		Field:     field,
		Message:   fmt.Sprintf("invalid variable: %s", field),
	}
}

// NewNoSearchOptionsError reports a find call without any criteria.
func NewNoSearchOptionsError(operation string) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryInvalidField,
		Message:   "no search options specified",
	}
}

// NewMemberNotFoundError reports a membership change naming a member that does not exist.
func NewMemberNotFoundError(operation, memberType string) *IPAError {
	return &IPAError{
		Operation:  operation,
		Category:   ErrorCategoryNotFound,
		ObjectType: memberType,
		Message:    fmt.Sprintf("ipa %s not found", memberType),
	}
}

// NewUnhandledFailureError reports a membership failure text that is not understood.
func NewUnhandledFailureError(operation, text string) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryUnhandled,
		Message:   fmt.Sprintf("unhandled ipa error: %s", text),
	}
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(operation string, err error) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryConnection,
		Message:   err.Error(),
		Cause:     err,
	}
}

// NewAuthenticationError wraps a rejected login.
func NewAuthenticationError(operation string, err error) *IPAError {
	return &IPAError{
		Operation: operation,
		Category:  ErrorCategoryAuthentication,
		Message:   err.Error(),
		Cause:     err,
	}
}

// WrapError wraps an error with operation context.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ipaErr *IPAError
	if errors.As(err, &ipaErr) {
		if ipaErr.Operation == "" {
			ipaErr.Operation = operation
		}
		return err
	}

	return NewConnectionError(operation, err)
}

// GetErrorCategory returns the category of an error, or "" when err is not an IPAError.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var ipaErr *IPAError
	if errors.As(err, &ipaErr) {
		return ipaErr.GetCategory()
	}

	return ""
}

// IsNotFoundError checks if an error indicates a "not found" condition.
func IsNotFoundError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryNotFound
}

// IsAlreadyExistsError checks if an error indicates a duplicate entry.
func IsAlreadyExistsError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAlreadyExists
}

// IsInvalidFieldError checks if an error indicates a missing or invalid argument.
func IsInvalidFieldError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryInvalidField
}

// IsUnhandledError checks if an error carries a code or failure text with no mapping.
func IsUnhandledError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryUnhandled
}

// IsAuthenticationError checks if an error indicates an authentication problem.
func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}

// IsConnectionError checks if an error indicates a transport problem.
func IsConnectionError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryConnection
}
