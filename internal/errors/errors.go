// Package errors defines the structured error types used across fastkit.
//
// Every failure crossing a package boundary is a *FastkitError carrying a
// category, a stable code, and optional context, so callers can match on
// kind instead of parsing messages.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeManifest ErrorType = "manifest"
	ErrorTypeBackend  ErrorType = "backend"
	ErrorTypeInstall  ErrorType = "install"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeRollback ErrorType = "rollback"
	ErrorTypeInternal ErrorType = "internal"
)

// Stable error codes.
const (
	ErrCodeTemplateNotFound   = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateSyntax     = "ERR_TEMPLATE_SYNTAX"
	ErrCodeDestinationExists  = "ERR_DESTINATION_EXISTS"
	ErrCodeUnsupportedBackend = "ERR_UNSUPPORTED_BACKEND"
	ErrCodeManifestGeneration = "ERR_MANIFEST_GENERATION"
	ErrCodeDependencyInstall  = "ERR_DEPENDENCY_INSTALL"
	ErrCodeEnvironmentCreate  = "ERR_ENVIRONMENT_CREATE"
	ErrCodeTimeout            = "ERR_TIMEOUT"
	ErrCodeRollbackFailed     = "ERR_ROLLBACK_FAILED"
	ErrCodeInvalidName        = "ERR_INVALID_NAME"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeCommandRejected    = "ERR_COMMAND_REJECTED"
	ErrCodeInternal           = "ERR_INTERNAL"
)

// FastkitError is a structured error type with context.
type FastkitError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
	// Path is the file or directory the error refers to, when applicable.
	Path string
}

// Error implements the error interface.
func (e *FastkitError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *FastkitError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so callers can compare against sentinel
// constructors without caring about message wording.
func (e *FastkitError) Is(target error) bool {
	var t *FastkitError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *FastkitError) WithContext(key string, value interface{}) *FastkitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches a filesystem path to the error.
func (e *FastkitError) WithPath(path string) *FastkitError {
	e.Path = path

	return e
}

// HasCode reports whether err is a *FastkitError with the given code.
func HasCode(err error, code string) bool {
	var fe *FastkitError
	if errors.As(err, &fe) {
		return fe.Code == code
	}

	return false
}

// Wrap wraps an error into a FastkitError, preserving an existing one as cause.
func Wrap(err error, errType ErrorType, code, message string) *FastkitError {
	if err == nil {
		return nil
	}

	return &FastkitError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Error creation functions

// TemplateNotFound reports a missing template root or unknown template id.
func TemplateNotFound(id string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeTemplate,
		Code:    ErrCodeTemplateNotFound,
		Message: "template not found: " + id,
	}
}

// TemplateSyntax reports unresolved placeholders in a template file.
func TemplateSyntax(path string, tokens []string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeTemplate,
		Code:    ErrCodeTemplateSyntax,
		Message: "unresolved placeholder(s): " + strings.Join(tokens, ", "),
		Path:    path,
	}
}

// DestinationExists reports a non-empty destination with overwrite disabled.
func DestinationExists(path string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeIO,
		Code:    ErrCodeDestinationExists,
		Message: "destination already exists and is not empty",
		Path:    path,
	}
}

// UnsupportedBackend reports an unknown backend identifier.
func UnsupportedBackend(id string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeBackend,
		Code:    ErrCodeUnsupportedBackend,
		Message: "unsupported backend: " + id,
	}
}

// ManifestGeneration reports a required manifest key that cannot be produced.
func ManifestGeneration(backend, message string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeManifest,
		Code:    ErrCodeManifestGeneration,
		Message: message,
		Context: map[string]interface{}{"backend": backend},
	}
}

// DependencyInstall reports a nonzero install exit code. The tail of the
// combined subprocess output is embedded for diagnostics; the full capture
// stays on the ExecutionResult.
func DependencyInstall(backend string, exitCode int, outputTail string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeInstall,
		Code:    ErrCodeDependencyInstall,
		Message: fmt.Sprintf("dependency installation failed (exit %d)\n%s", exitCode, outputTail),
		Context: map[string]interface{}{"backend": backend, "exit_code": exitCode},
	}
}

// EnvironmentCreate reports a nonzero exit while preparing an environment.
func EnvironmentCreate(backend string, exitCode int, outputTail string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeBackend,
		Code:    ErrCodeEnvironmentCreate,
		Message: fmt.Sprintf("environment creation failed (exit %d)\n%s", exitCode, outputTail),
		Context: map[string]interface{}{"backend": backend, "exit_code": exitCode},
	}
}

// Timeout reports a backend or test subprocess exceeding its deadline.
func Timeout(operation string, cause error) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeInstall,
		Code:    ErrCodeTimeout,
		Message: "operation timed out: " + operation,
		Cause:   cause,
	}
}

// RollbackFailed reports a cleanup failure. This error is always fatal and
// must never be swallowed.
func RollbackFailed(path string, cause error) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeRollback,
		Code:    ErrCodeRollbackFailed,
		Message: "rollback failed, manual cleanup required",
		Path:    path,
		Cause:   cause,
	}
}

// InvalidName reports a project or route name that is not identifier-like.
func InvalidName(kind, name, reason string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeInvalidName,
		Message: fmt.Sprintf("invalid %s name %q: %s", kind, name, reason),
	}
}

// ConfigInvalid reports a configuration value that fails validation.
func ConfigInvalid(message string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
	}
}

// CommandRejected reports a subprocess command outside the allowlist.
func CommandRejected(command string) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeBackend,
		Code:    ErrCodeCommandRejected,
		Message: "command not permitted: " + command,
	}
}

// Internal reports an unexpected failure.
func Internal(message string, cause error) *FastkitError {
	return &FastkitError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}
