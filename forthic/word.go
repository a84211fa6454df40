package forthic

import "reflect"

// Word - Base class for all executable words in Forthic
//
// A word is the fundamental unit of execution in Forthic. When interpreted,
// it performs an action (typically manipulating the stack or control flow).
// All concrete word types must override the Execute method.
type Word interface {
	Execute(interp *Interpreter) error
	GetName() string
	GetString() string
	GetLocation() *CodeLocation
	SetLocation(location *CodeLocation)
	AddErrorHandler(handler WordErrorHandler)
	RemoveErrorHandler(handler WordErrorHandler)
	ClearErrorHandlers()
	GetErrorHandlers() []WordErrorHandler
}

// WordErrorHandler is a function that handles errors during word execution
// Returns nil if error was handled, or returns error if it should propagate
type WordErrorHandler func(error, Word, *Interpreter) error

// BaseWord provides default implementation of Word interface
type BaseWord struct {
	name          string
	str           string
	location      *CodeLocation
	errorHandlers []WordErrorHandler
}

// NewBaseWord creates a new BaseWord
func NewBaseWord(name string) *BaseWord {
	return &BaseWord{
		name:          name,
		str:           name,
		location:      nil,
		errorHandlers: make([]WordErrorHandler, 0),
	}
}

func (w *BaseWord) Execute(interp *Interpreter) error {
	return NewForthicError("Must override Word.Execute")
}

func (w *BaseWord) GetName() string {
	return w.name
}

func (w *BaseWord) GetString() string {
	return w.str
}

func (w *BaseWord) GetLocation() *CodeLocation {
	return w.location
}

func (w *BaseWord) SetLocation(location *CodeLocation) {
	w.location = location
}

func (w *BaseWord) AddErrorHandler(handler WordErrorHandler) {
	w.errorHandlers = append(w.errorHandlers, handler)
}

// RemoveErrorHandler removes a previously added handler. Funcs aren't
// comparable in Go, so handlers are matched by code pointer; a handler
// must be removed with the same func value it was added with.
func (w *BaseWord) RemoveErrorHandler(handler WordErrorHandler) {
	target := reflect.ValueOf(handler).Pointer()
	for i, h := range w.errorHandlers {
		if reflect.ValueOf(h).Pointer() == target {
			w.errorHandlers = append(w.errorHandlers[:i], w.errorHandlers[i+1:]...)
			return
		}
	}
}

func (w *BaseWord) ClearErrorHandlers() {
	w.errorHandlers = make([]WordErrorHandler, 0)
}

func (w *BaseWord) GetErrorHandlers() []WordErrorHandler {
	// Return a copy
	result := make([]WordErrorHandler, len(w.errorHandlers))
	copy(result, w.errorHandlers)
	return result
}

// TryErrorHandlers tries error handlers in registration order.
// Returns nil if a handler returned without error, otherwise the original
// error. Intentional stops bypass the handler list entirely.
func (w *BaseWord) TryErrorHandlers(err error, word Word, interp *Interpreter) error {
	if IsIntentionalStop(err) {
		return err
	}

	for _, handler := range w.errorHandlers {
		handlerErr := handler(err, word, interp)
		if handlerErr == nil {
			// Handler succeeded, error is handled
			return nil
		}
		// Handler failed, try next one
	}
	// No handler succeeded
	return err
}

// callWord executes a word, converting panics that carry error values
// (typed ForthicErrors raised by StackPop, StackPeek and ModuleStackPop) back into
// ordinary error returns so they rejoin the error pipeline.
func callWord(word Word, interp *Interpreter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return word.Execute(interp)
}

// ============================================================================
// Concrete Word Types
// ============================================================================

// PushValueWord - Word that pushes a value onto the stack
type PushValueWord struct {
	*BaseWord
	value interface{}
}

// NewPushValueWord creates a new PushValueWord
func NewPushValueWord(name string, value interface{}) *PushValueWord {
	return &PushValueWord{
		BaseWord: NewBaseWord(name),
		value:    value,
	}
}

func (w *PushValueWord) Execute(interp *Interpreter) error {
	interp.StackPush(w.value)
	return nil
}

// GetValue returns the wrapped value
func (w *PushValueWord) GetValue() interface{} {
	return w.value
}

// ModuleWord - Host-handler word. Wraps a host-supplied callback and
// consults the word's error-handler list on failure.
type ModuleWord struct {
	*BaseWord
	handler func(*Interpreter) error
}

// NewModuleWord creates a new ModuleWord
func NewModuleWord(name string, handler func(*Interpreter) error) *ModuleWord {
	return &ModuleWord{
		BaseWord: NewBaseWord(name),
		handler:  handler,
	}
}

func (w *ModuleWord) Execute(interp *Interpreter) error {
	err := w.callHandler(interp)
	if err == nil {
		return nil
	}
	if IsIntentionalStop(err) {
		return err
	}
	if handledErr := w.TryErrorHandlers(err, w, interp); handledErr == nil {
		return nil
	}
	return err
}

func (w *ModuleWord) callHandler(interp *Interpreter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return w.handler(interp)
}

// DefinitionWord - Word defined by a sequence of other words
//
// Any failure of a sub-word is wrapped in a WordExecutionError that carries
// both the call-site location (the outer tokenizer's current token) and the
// definition-site location (recorded on the sub-word at compile time).
type DefinitionWord struct {
	*BaseWord
	words []Word
}

// NewDefinitionWord creates a new DefinitionWord
func NewDefinitionWord(name string, words []Word) *DefinitionWord {
	return &DefinitionWord{
		BaseWord: NewBaseWord(name),
		words:    words,
	}
}

// AddWord appends a sub-word to the definition
func (w *DefinitionWord) AddWord(word Word) {
	w.words = append(w.words, word)
}

func (w *DefinitionWord) GetWords() []Word {
	return w.words
}

func (w *DefinitionWord) Execute(interp *Interpreter) error {
	for _, word := range w.words {
		err := callWord(word, interp)
		if err != nil {
			var callLocation *CodeLocation
			if tokenizer := interp.tokenizerOrNil(); tokenizer != nil {
				callLocation = tokenizer.GetTokenLocation()
			}
			wordErr := NewWordExecutionError(w.name, err).
				WithDefinitionLocation(word.GetLocation())
			wordErr.WithLocation(callLocation)
			return wordErr
		}
	}
	return nil
}
