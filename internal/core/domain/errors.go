package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a semantic error category. The set is closed: callers
// switch on codes instead of parsing provider-specific strings.
type ErrorCode string

const (
	CodeProviderNotFound     ErrorCode = "PROVIDER_NOT_FOUND"
	CodeAccountNotFound      ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeDomainNotFound       ErrorCode = "DOMAIN_NOT_FOUND"
	CodeRecordNotFound       ErrorCode = "RECORD_NOT_FOUND"
	CodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	CodeRecordExists         ErrorCode = "RECORD_EXISTS"
	CodeQuotaExceeded        ErrorCode = "QUOTA_EXCEEDED"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeDomainLocked         ErrorCode = "DOMAIN_LOCKED"
	CodePermissionDenied     ErrorCode = "PERMISSION_DENIED"
	CodeInvalidParameter     ErrorCode = "INVALID_PARAMETER"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeNetworkError         ErrorCode = "NETWORK_ERROR"
	CodeParseError           ErrorCode = "PARSE_ERROR"
	CodeSerializationError   ErrorCode = "SERIALIZATION_ERROR"
	CodeCredentialValidation ErrorCode = "CREDENTIAL_VALIDATION"
	CodeMigrationRequired    ErrorCode = "MIGRATION_REQUIRED"
	CodeMigrationFailed      ErrorCode = "MIGRATION_FAILED"
	CodeUnsupportedVersion   ErrorCode = "UNSUPPORTED_FILE_VERSION"
	CodeNoAccountsSelected   ErrorCode = "NO_ACCOUNTS_SELECTED"
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeImportExportError    ErrorCode = "IMPORT_EXPORT_ERROR"
	CodeStorageError         ErrorCode = "STORAGE_ERROR"
	CodeCredentialError      ErrorCode = "CREDENTIAL_ERROR"
	CodeAPIError             ErrorCode = "API_ERROR"
)

// Error is the single error type crossing service boundaries. Provider modules
// translate raw API codes into one of these; everything above the provider
// layer matches on Code only.
type Error struct {
	Code       ErrorCode
	Provider   ProviderKind
	Domain     string
	RecordName string
	// Param is the canonical field name for CodeInvalidParameter: one of
	// name, value, type, ttl, priority, proxied, line, domain, general.
	Param      string
	Detail     string
	Raw        string
	RetryAfter time.Duration
	// Fields carries per-field messages for CodeCredentialValidation.
	Fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	switch {
	case e.Param != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Param, e.Detail)
	case e.Detail != "" && e.Provider != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Provider, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	case e.Provider != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Provider)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is(err, &Error{Code: ...}) match on code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Transient reports whether the retry helper may re-issue the failed request.
func (e *Error) Transient() bool {
	switch e.Code {
	case CodeNetworkError, CodeTimeout, CodeRateLimited:
		return true
	}
	return false
}

// E builds an Error with the given code and a formatted detail.
func E(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a coded error, preserving the chain for errors.Is.
func Wrap(code ErrorCode, err error, detail string) *Error {
	return &Error{Code: code, Detail: detail, cause: err}
}

// CodeOf extracts the semantic code from an error chain, or CodeAPIError when
// the chain carries no *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeAPIError
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func ErrAccountNotFound(id string) *Error {
	return &Error{Code: CodeAccountNotFound, Detail: id}
}

func ErrProviderNotFound(accountID string) *Error {
	return &Error{Code: CodeProviderNotFound, Detail: accountID}
}

func ErrInvalidCredentials(provider ProviderKind, raw string) *Error {
	return &Error{Code: CodeInvalidCredentials, Provider: provider, Raw: raw}
}

func ErrInvalidParameter(provider ProviderKind, param, detail string) *Error {
	return &Error{Code: CodeInvalidParameter, Provider: provider, Param: param, Detail: detail}
}

func ErrCredentialValidation(fields map[string]string) *Error {
	return &Error{Code: CodeCredentialValidation, Fields: fields, Detail: "credential validation failed"}
}
