package forthic

import (
	"fmt"
	"strings"
)

// CodeLocation represents a location in Forthic source code.
// StartPos/EndPos index into the source string; EndPos is exclusive.
type CodeLocation struct {
	Source   string
	Line     int
	Column   int
	StartPos int
	EndPos   int
}

func (l CodeLocation) String() string {
	if l.Source == "" {
		return fmt.Sprintf("line %d, col %d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
}

// ForthicError is the base error type for all Forthic errors.
// Carries the offending source text, a human-readable note, an optional
// location, and an optional wrapped cause.
type ForthicError struct {
	Message  string
	Forthic  string
	Location *CodeLocation
	Cause    error
}

func (e *ForthicError) Error() string {
	var parts []string

	parts = append(parts, e.Message)

	if e.Location != nil {
		parts = append(parts, fmt.Sprintf("at %s", e.Location))
	}

	if e.Forthic != "" {
		parts = append(parts, fmt.Sprintf("in: %s", e.Forthic))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Cause))
	}

	return strings.Join(parts, "\n  ")
}

func (e *ForthicError) Unwrap() error {
	return e.Cause
}

// base lets every error type that embeds *ForthicError surface it for
// formatting without reflection
func (e *ForthicError) base() *ForthicError {
	return e
}

// NewForthicError creates a new ForthicError
func NewForthicError(message string) *ForthicError {
	return &ForthicError{
		Message: message,
	}
}

// WithLocation adds location information to the error
func (e *ForthicError) WithLocation(loc *CodeLocation) *ForthicError {
	e.Location = loc
	return e
}

// WithForthic adds the Forthic code snippet to the error
func (e *ForthicError) WithForthic(forthic string) *ForthicError {
	e.Forthic = forthic
	return e
}

// WithCause adds a causal error
func (e *ForthicError) WithCause(cause error) *ForthicError {
	e.Cause = cause
	return e
}

// UnknownWordError represents an attempt to execute an unknown word
type UnknownWordError struct {
	*ForthicError
	Word string
}

func NewUnknownWordError(word string) *UnknownWordError {
	return &UnknownWordError{
		ForthicError: NewForthicError(fmt.Sprintf("Unknown word: %s", word)),
		Word:         word,
	}
}

// UnknownModuleError represents an attempt to use an unknown module
type UnknownModuleError struct {
	*ForthicError
	Module string
}

func NewUnknownModuleError(module string) *UnknownModuleError {
	return &UnknownModuleError{
		ForthicError: NewForthicError(fmt.Sprintf("Unknown module: %s", module)),
		Module:       module,
	}
}

// UnknownTokenError represents a token kind with no dispatch handler.
// Unreachable for well-formed input.
type UnknownTokenError struct {
	*ForthicError
	Token string
}

func NewUnknownTokenError(token string) *UnknownTokenError {
	return &UnknownTokenError{
		ForthicError: NewForthicError(fmt.Sprintf("Unknown type of token: %s", token)),
		Token:        token,
	}
}

// StackUnderflowError represents an attempt to pop from an empty stack
type StackUnderflowError struct {
	*ForthicError
}

func NewStackUnderflowError() *StackUnderflowError {
	return &StackUnderflowError{
		ForthicError: NewForthicError("Stack underflow"),
	}
}

// WordExecutionError represents an error raised while executing a sub-word
// of a user definition. Location holds the call site; DefinitionLocation
// holds where the failing sub-word was compiled.
type WordExecutionError struct {
	*ForthicError
	Word               string
	DefinitionLocation *CodeLocation
}

func NewWordExecutionError(word string, err error) *WordExecutionError {
	return &WordExecutionError{
		ForthicError: NewForthicError(fmt.Sprintf("Error executing word: %s", word)).WithCause(err),
		Word:         word,
	}
}

// WithDefinitionLocation records the definition-site location
func (e *WordExecutionError) WithDefinitionLocation(loc *CodeLocation) *WordExecutionError {
	e.DefinitionLocation = loc
	return e
}

// GetDefinitionLocation returns the definition-site location
func (e *WordExecutionError) GetDefinitionLocation() *CodeLocation {
	return e.DefinitionLocation
}

// MissingSemicolonError represents a missing semicolon in a definition
type MissingSemicolonError struct {
	*ForthicError
}

func NewMissingSemicolonError() *MissingSemicolonError {
	return &MissingSemicolonError{
		ForthicError: NewForthicError("Missing semicolon (;) to end definition"),
	}
}

// ExtraSemicolonError represents an extra semicolon outside a definition
type ExtraSemicolonError struct {
	*ForthicError
}

func NewExtraSemicolonError() *ExtraSemicolonError {
	return &ExtraSemicolonError{
		ForthicError: NewForthicError("Extra semicolon (;) outside of definition"),
	}
}

// InvalidWordNameError represents a forbidden character in a definition or
// memo name
type InvalidWordNameError struct {
	*ForthicError
}

func NewInvalidWordNameError(note string) *InvalidWordNameError {
	if note == "" {
		note = "Invalid word name"
	}
	return &InvalidWordNameError{
		ForthicError: NewForthicError(note),
	}
}

// InvalidVariableNameError represents an invalid variable name
type InvalidVariableNameError struct {
	*ForthicError
	VarName string
}

func NewInvalidVariableNameError(varName string) *InvalidVariableNameError {
	return &InvalidVariableNameError{
		ForthicError: NewForthicError(fmt.Sprintf("Invalid variable name: %s", varName)),
		VarName:      varName,
	}
}

// UnterminatedStringError represents EOS inside a quoted string
type UnterminatedStringError struct {
	*ForthicError
}

func NewUnterminatedStringError() *UnterminatedStringError {
	return &UnterminatedStringError{
		ForthicError: NewForthicError("Unterminated string"),
	}
}

// InvalidInputPositionError represents tokenizer position arithmetic underflow
type InvalidInputPositionError struct {
	*ForthicError
}

func NewInvalidInputPositionError() *InvalidInputPositionError {
	return &InvalidInputPositionError{
		ForthicError: NewForthicError("Invalid input position"),
	}
}

// ModuleError represents an error raised while running a module's top-level
// code
type ModuleError struct {
	*ForthicError
	Module string
}

func NewModuleError(module string, message string) *ModuleError {
	return &ModuleError{
		ForthicError: NewForthicError(fmt.Sprintf("Module error in %s: %s", module, message)),
		Module:       module,
	}
}

// TooManyAttemptsError represents a recovery loop that exceeded its
// max-attempt cap
type TooManyAttemptsError struct {
	*ForthicError
	NumAttempts int
	MaxAttempts int
}

func NewTooManyAttemptsError(numAttempts int, maxAttempts int) *TooManyAttemptsError {
	return &TooManyAttemptsError{
		ForthicError: NewForthicError(fmt.Sprintf("Too many recovery attempts: %d of %d", numAttempts, maxAttempts)),
		NumAttempts:  numAttempts,
		MaxAttempts:  maxAttempts,
	}
}

// IntentionalStopError represents an intentional stop (not a real error).
// It bypasses per-word error handlers and the recovery loop.
type IntentionalStopError struct {
	*ForthicError
}

func NewIntentionalStopError(message string) *IntentionalStopError {
	return &IntentionalStopError{
		ForthicError: NewForthicError(message),
	}
}

// IsIntentionalStop reports whether err is, or wraps, an IntentionalStopError
func IsIntentionalStop(err error) bool {
	for err != nil {
		if _, ok := err.(*IntentionalStopError); ok {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// ============================================================================
// Error Description Formatting
// ============================================================================

// caretLine renders spaces and carets spanning [StartPos, EndPos) under the
// offending token
func caretLine(loc *CodeLocation) string {
	width := loc.EndPos - loc.StartPos
	if width < 1 {
		width = 1
	}
	indent := loc.Column - 1
	if indent < 0 {
		indent = 0
	}
	return strings.Repeat(" ", indent) + strings.Repeat("^", width)
}

// codeExcerpt returns the source lines up to and including the location's line
func codeExcerpt(forthic string, loc *CodeLocation) string {
	lines := strings.Split(forthic, "\n")
	lineNum := loc.Line
	if lineNum > len(lines) {
		lineNum = len(lines)
	}
	if lineNum < 1 {
		lineNum = 1
	}
	return strings.Join(lines[:lineNum], "\n")
}

func describeLocation(loc *CodeLocation) string {
	result := fmt.Sprintf("line %d", loc.Line)
	if loc.Source != "" {
		result += fmt.Sprintf(" in %s", loc.Source)
	}
	return result
}

// GetErrorDescription formats an error against its source code with a caret
// line under the offending token. A WordExecutionError renders both the
// definition-site and the call-site spans.
func GetErrorDescription(forthic string, err error) string {
	fe, ok := err.(interface{ base() *ForthicError })
	if !ok {
		return err.Error()
	}
	base := fe.base()

	if forthic == "" || base.Location == nil {
		return base.Message
	}

	if wordErr, ok := err.(*WordExecutionError); ok && wordErr.DefinitionLocation != nil {
		defLoc := wordErr.DefinitionLocation
		callLoc := base.Location
		return fmt.Sprintf(
			"%s at %s:\n```\n%s\n%s\n```\nCalled from %s:\n```\n%s\n%s\n```",
			base.Message,
			describeLocation(defLoc),
			codeExcerpt(forthic, defLoc),
			caretLine(defLoc),
			describeLocation(callLoc),
			codeExcerpt(forthic, callLoc),
			caretLine(callLoc),
		)
	}

	return fmt.Sprintf(
		"%s at %s:\n```\n%s\n%s\n```",
		base.Message,
		describeLocation(base.Location),
		codeExcerpt(forthic, base.Location),
		caretLine(base.Location),
	)
}
