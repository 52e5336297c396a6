package errors

import (
	"errors"
	"fmt"

	"github.com/mcncl/serdegen/parsec"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrInputTooLarge   = errors.New("input exceeds the configured size limit")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: pass a file argument or pipe data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrUnknownType     = errors.New("unknown type reference")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrInvalidDefault  = errors.New("invalid default value")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeAnalysis   ErrorType = "analysis"
	ErrorTypeDescriptor ErrorType = "descriptor"
	ErrorTypeGenerate   ErrorType = "generate"
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewInputError creates a new error related to reading input
func NewInputError(message string, err error) *AppError {
	return newError(ErrorTypeInput, message, err)
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return newError(ErrorTypeParsing, message, err)
}

// NewAnalysisError creates a new error related to inferring descriptors
// from sample documents or schemas
func NewAnalysisError(message string, err error) *AppError {
	return newError(ErrorTypeAnalysis, message, err)
}

// NewDescriptorError creates a new error for an invalid type descriptor
func NewDescriptorError(message string, err error) *AppError {
	return newError(ErrorTypeDescriptor, message, err)
}

// NewGenerateError creates a new error related to code generation
func NewGenerateError(message string, err error) *AppError {
	return newError(ErrorTypeGenerate, message, err)
}

// NewFormatError creates a new error related to code formatting
func NewFormatError(message string, err error) *AppError {
	return newError(ErrorTypeFormat, message, err)
}

// NewOutputError creates a new error related to writing output
func NewOutputError(message string, err error) *AppError {
	return newError(ErrorTypeOutput, message, err)
}

// FromFailure wraps a parse failure as a parsing error. The message carries
// the line and column of the failure.
func FromFailure(source string, f *parsec.Failure) *AppError {
	line, column := f.Position()
	return NewParsingError(
		fmt.Sprintf("%s:%d:%d: %s", source, line, column, f.Description()),
		fmt.Errorf("%w: %w", ErrInvalidJSON, f),
	)
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		var failure *parsec.Failure
		if errors.As(appErr.Err, &failure) && failure.Input() != "" {
			msg = msg + "\n" + failure.Pretty()
		}
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", msg)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", msg)
		case ErrorTypeAnalysis:
			return fmt.Sprintf("Type analysis error: %s", msg)
		case ErrorTypeDescriptor:
			return fmt.Sprintf("Descriptor error: %s", msg)
		case ErrorTypeGenerate:
			return fmt.Sprintf("Code generation error: %s", msg)
		case ErrorTypeFormat:
			return fmt.Sprintf("Code formatting error: %s", msg)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", msg)
		default:
			return fmt.Sprintf("Error: %s", msg)
		}
	}

	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Error: The input is empty. Please provide a JSON document."
	case errors.Is(err, ErrInvalidJSON):
		return "Error: The input contains invalid JSON. Please check the syntax."
	case errors.Is(err, ErrInputTooLarge):
		return "Error: The input is larger than the configured limit. Raise --max-input to accept it."
	case errors.Is(err, ErrFileNotFound):
		return "Error: The specified file could not be found. Please check the file path."
	case errors.Is(err, ErrFileEmpty):
		return "Error: The specified file is empty."
	case errors.Is(err, ErrNoInput):
		return "Error: No input provided. Please pass a file argument or pipe data to stdin."
	case errors.Is(err, ErrInvalidFilePath):
		return "Error: Invalid file path. Please provide a valid file path."
	case errors.Is(err, ErrUnknownType):
		return "Error: A descriptor refers to a type that is not declared."
	}

	return fmt.Sprintf("Error: %v", err)
}
