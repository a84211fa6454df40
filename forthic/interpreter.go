package forthic

import (
	"fmt"
	"sort"
	"time"
)

// LiteralHandler tries to parse a string as a literal value
// Returns value and true if successful, nil and false otherwise
type LiteralHandler func(string) (interface{}, bool)

// ErrorHandler is an error-recovery callback invoked between attempts of a
// Run executed with recovery. Returning an error aborts the recovery loop.
type ErrorHandler func(error, *Interpreter) error

// WordCount is one entry of the profiler's word histogram
type WordCount struct {
	Word  string
	Count int
}

// ProfileTimestamp is a labeled profiler timestamp
type ProfileTimestamp struct {
	Label  string
	TimeMs float64
}

// Interpreter - Core Forthic interpreter
//
// Core interpreter that tokenizes and executes Forthic code.
// Manages the data stack, module stack, and execution context.
type Interpreter struct {
	stack            *Stack
	appModule        *Module
	moduleStack      []*Module
	registeredMods   map[string]*Module
	tokenizerStack   []*Tokenizer
	previousToken    *Token
	handleError      ErrorHandler
	maxAttempts      int
	isCompiling      bool
	isMemoDefinition bool
	curDefinition    *DefinitionWord

	// Debug support
	stringLocation *CodeLocation

	// Profiling support
	wordCounts  map[string]int
	isProfiling bool
	timestamps  []ProfileTimestamp

	// Literal handlers: the standard chain, then custom handlers in
	// registration order
	standardLiterals []LiteralHandler
	customLiterals   []LiteralHandler

	timezoneName string
	timezone     *time.Location
}

// NewInterpreter creates a new Interpreter in the UTC timezone and imports
// the provided modules unprefixed
func NewInterpreter(modules ...*Module) *Interpreter {
	interp := &Interpreter{
		stack:          NewStack(),
		appModule:      NewModule(""),
		moduleStack:    make([]*Module, 0),
		registeredMods: make(map[string]*Module),
		tokenizerStack: make([]*Tokenizer, 0),
		maxAttempts:    3,
		wordCounts:     make(map[string]int),
		timestamps:     make([]ProfileTimestamp, 0),
		customLiterals: make([]LiteralHandler, 0),
		timezoneName:   "UTC",
		timezone:       time.UTC,
	}

	// Set app module's interpreter
	interp.appModule.SetInterp(interp)

	// Initialize module stack with app module
	interp.moduleStack = append(interp.moduleStack, interp.appModule)

	// Register standard literal handlers
	interp.registerStandardLiterals()

	// Import provided modules (unprefixed)
	for _, module := range modules {
		interp.ImportModule(module, "")
	}

	return interp
}

// ============================================================================
// Configuration
// ============================================================================

// GetTimezone returns the interpreter's timezone
func (i *Interpreter) GetTimezone() *time.Location {
	return i.timezone
}

// GetTimezoneName returns the interpreter's timezone name
func (i *Interpreter) GetTimezoneName() string {
	return i.timezoneName
}

// SetTimezone changes the interpreter's timezone and rebinds the standard
// literal chain to it. Custom literal handlers are kept.
func (i *Interpreter) SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return NewForthicError(fmt.Sprintf("Unknown timezone: %s", name)).WithCause(err)
	}
	i.timezoneName = name
	i.timezone = loc
	i.registerStandardLiterals()
	return nil
}

// SetMaxAttempts sets the recovery loop's attempt cap
func (i *Interpreter) SetMaxAttempts(maxAttempts int) {
	i.maxAttempts = maxAttempts
}

// GetMaxAttempts returns the recovery loop's attempt cap
func (i *Interpreter) GetMaxAttempts() int {
	return i.maxAttempts
}

// SetErrorHandler installs the error-recovery callback used by Run
func (i *Interpreter) SetErrorHandler(handler ErrorHandler) {
	i.handleError = handler
}

// GetErrorHandler returns the installed error-recovery callback
func (i *Interpreter) GetErrorHandler() ErrorHandler {
	return i.handleError
}

// Reset empties the data stack, drops app-module variables, resets the
// module stack to just the app module, and clears compilation state.
// Registered modules, word definitions, and memo caches persist.
func (i *Interpreter) Reset() {
	i.stack = NewStack()
	i.appModule.ClearVariables()
	i.moduleStack = []*Module{i.appModule}
	i.isCompiling = false
	i.isMemoDefinition = false
	i.curDefinition = nil
	i.stringLocation = nil
}

// ============================================================================
// Stack Operations
// ============================================================================

// StackPush pushes a value onto the stack
func (i *Interpreter) StackPush(val interface{}) {
	i.stack.Push(val)
}

// StackPop pops a value from the stack. A PositionedString decays to a
// plain string and its location is recorded in the string-location slot;
// any other value clears the slot.
// Panics with a StackUnderflowError if the stack is empty; the panic is
// recovered at the word-execution boundary and rejoins the error pipeline.
func (i *Interpreter) StackPop() interface{} {
	if i.stack.Length() == 0 {
		panic(i.underflowError())
	}
	val, _ := i.stack.Pop()

	i.stringLocation = nil
	if ps, ok := val.(*PositionedString); ok {
		i.stringLocation = ps.GetLocation()
		return ps.String()
	}
	return val
}

// StackPeek peeks at the top of the stack without removing it, decaying a
// PositionedString but leaving the string-location slot untouched
func (i *Interpreter) StackPeek() interface{} {
	if i.stack.Length() == 0 {
		panic(i.underflowError())
	}
	val, _ := i.stack.Peek()
	return DecayValue(val)
}

func (i *Interpreter) underflowError() *StackUnderflowError {
	var loc *CodeLocation
	if tokenizer := i.tokenizerOrNil(); tokenizer != nil {
		loc = tokenizer.GetTokenLocation()
	}
	err := NewStackUnderflowError()
	err.WithForthic(i.GetTopInputString())
	err.WithLocation(loc)
	return err
}

// GetStack returns the stack
func (i *Interpreter) GetStack() *Stack {
	return i.stack
}

// SetStack replaces the stack
func (i *Interpreter) SetStack(stack *Stack) {
	i.stack = stack
}

// GetStringLocation returns the location of the most recently popped
// positioned string, if any
func (i *Interpreter) GetStringLocation() *CodeLocation {
	return i.stringLocation
}

// ============================================================================
// Module Operations
// ============================================================================

// GetAppModule returns the app module
func (i *Interpreter) GetAppModule() *Module {
	return i.appModule
}

// CurModule returns the current module (top of module stack)
func (i *Interpreter) CurModule() *Module {
	return i.moduleStack[len(i.moduleStack)-1]
}

// ModuleStackPush pushes a module onto the module stack
func (i *Interpreter) ModuleStackPush(module *Module) {
	i.moduleStack = append(i.moduleStack, module)
}

// ModuleStackPop pops a module from the module stack
func (i *Interpreter) ModuleStackPop() *Module {
	if len(i.moduleStack) <= 1 {
		panic(NewForthicError("Cannot pop app module from module stack"))
	}
	module := i.moduleStack[len(i.moduleStack)-1]
	i.moduleStack = i.moduleStack[:len(i.moduleStack)-1]
	return module
}

// RegisterModule registers a module with the interpreter
func (i *Interpreter) RegisterModule(module *Module) {
	i.registeredMods[module.name] = module
	module.SetInterp(i)
}

// FindModule finds a registered module by name
func (i *Interpreter) FindModule(name string) (*Module, error) {
	module, ok := i.registeredMods[name]
	if !ok {
		err := NewUnknownModuleError(name)
		err.WithForthic(i.GetTopInputString())
		err.WithLocation(i.stringLocation)
		return nil, err
	}
	return module, nil
}

// UseModules imports registered modules into the app module.
// Each entry is either a module name (imported unprefixed) or an
// [name, prefix] pair.
func (i *Interpreter) UseModules(names []interface{}) error {
	for _, name := range names {
		moduleName := ""
		prefix := ""

		if arr, ok := name.([]interface{}); ok {
			if len(arr) >= 1 {
				moduleName, _ = DecayValue(arr[0]).(string)
			}
			if len(arr) >= 2 {
				prefix, _ = DecayValue(arr[1]).(string)
			}
		} else {
			moduleName, _ = DecayValue(name).(string)
		}

		module, err := i.FindModule(moduleName)
		if err != nil {
			return err
		}

		i.appModule.ImportModule(prefix, module, i)
	}
	return nil
}

// ImportModule registers a module and imports it into the app module
func (i *Interpreter) ImportModule(module *Module, prefix string) {
	i.RegisterModule(module)
	i.appModule.ImportModule(prefix, module, i)
}

// ImportModules registers and imports modules without prefixes
func (i *Interpreter) ImportModules(modules []*Module) {
	for _, module := range modules {
		i.ImportModule(module, "")
	}
}

// RunModuleCode executes a module's Forthic source with the module pushed
// as the current module. Failures are wrapped in a ModuleError carrying the
// module name.
func (i *Interpreter) RunModuleCode(module *Module) error {
	i.ModuleStackPush(module)

	moduleLocation := &CodeLocation{Source: module.name, Line: 1, Column: 1}
	if err := i.RunAt(module.GetForthicCode(), moduleLocation); err != nil {
		moduleErr := NewModuleError(module.name, err.Error())
		moduleErr.WithCause(err)
		moduleErr.WithForthic(i.GetTopInputString())
		moduleErr.WithLocation(i.stringLocation)
		return moduleErr
	}

	i.ModuleStackPop()
	return nil
}

// ============================================================================
// Tokenizer Operations
// ============================================================================

// GetTokenizer returns the active tokenizer (top of the tokenizer stack)
func (i *Interpreter) GetTokenizer() *Tokenizer {
	return i.tokenizerStack[len(i.tokenizerStack)-1]
}

func (i *Interpreter) tokenizerOrNil() *Tokenizer {
	if len(i.tokenizerStack) == 0 {
		return nil
	}
	return i.tokenizerStack[len(i.tokenizerStack)-1]
}

// GetTopInputString returns the outermost source being run
func (i *Interpreter) GetTopInputString() string {
	if len(i.tokenizerStack) == 0 {
		return ""
	}
	return i.tokenizerStack[0].GetInputString()
}

// ============================================================================
// Literal Handlers
// ============================================================================

// registerStandardLiterals binds the standard literal chain to the
// interpreter's timezone. Order matters: more specific handlers first.
func (i *Interpreter) registerStandardLiterals() {
	i.standardLiterals = []LiteralHandler{
		ToBool,
		ToFloat,
		ToZonedDateTime(i.timezone),
		ToLiteralDate(i.timezone),
		ToTime,
		ToInt,
	}
}

// RegisterLiteralHandler adds a custom literal handler. Custom handlers are
// tried in registration order after the standard chain.
func (i *Interpreter) RegisterLiteralHandler(handler LiteralHandler) {
	i.customLiterals = append(i.customLiterals, handler)
}

// UnregisterLiteralHandler removes a custom literal handler previously
// added with RegisterLiteralHandler. Handlers are matched by code pointer.
func (i *Interpreter) UnregisterLiteralHandler(handler LiteralHandler) {
	target := literalHandlerPointer(handler)
	for idx, h := range i.customLiterals {
		if literalHandlerPointer(h) == target {
			i.customLiterals = append(i.customLiterals[:idx], i.customLiterals[idx+1:]...)
			return
		}
	}
}

// findLiteralWord tries to parse a string as a literal. A fresh
// PushValueWord is built on every successful parse; nothing caches.
func (i *Interpreter) findLiteralWord(name string) Word {
	for _, handler := range i.standardLiterals {
		value, ok := handler(name)
		if ok {
			return NewPushValueWord(name, value)
		}
	}
	for _, handler := range i.customLiterals {
		value, ok := handler(name)
		if ok {
			return NewPushValueWord(name, value)
		}
	}
	return nil
}

// ============================================================================
// Find Word
// ============================================================================

// FindWord finds a word by name.
// Searches the module stack from top to bottom, then the literal chain.
func (i *Interpreter) FindWord(name string) (Word, error) {
	// 1. Check module stack (from top to bottom)
	for j := len(i.moduleStack) - 1; j >= 0; j-- {
		module := i.moduleStack[j]
		word := module.FindWord(name)
		if word != nil {
			return word, nil
		}
	}

	// 2. Check literal handlers
	word := i.findLiteralWord(name)
	if word != nil {
		return word, nil
	}

	// 3. Not found
	err := NewUnknownWordError(name)
	err.WithForthic(i.GetTopInputString())
	err.WithLocation(i.stringLocation)
	return nil, err
}

// ============================================================================
// Profiling
// ============================================================================

// StartProfiling starts counting word executions and clears prior data
func (i *Interpreter) StartProfiling() {
	i.isProfiling = true
	i.wordCounts = make(map[string]int)
	i.timestamps = make([]ProfileTimestamp, 0)
}

// StopProfiling stops counting word executions
func (i *Interpreter) StopProfiling() {
	i.isProfiling = false
}

// CountWord counts a word execution. The increment happens before the word
// is executed so counts stay consistent on error.
func (i *Interpreter) CountWord(word Word) {
	if !i.isProfiling {
		return
	}
	i.wordCounts[word.GetName()]++
}

// WordHistogram returns word execution counts sorted descending
func (i *Interpreter) WordHistogram() []WordCount {
	result := make([]WordCount, 0, len(i.wordCounts))
	for name, count := range i.wordCounts {
		result = append(result, WordCount{Word: name, Count: count})
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].Count > result[b].Count
	})
	return result
}

// AddTimestamp records a labeled profiling timestamp
func (i *Interpreter) AddTimestamp(label string) {
	timeMs := float64(time.Now().UnixNano()) / 1e6
	i.timestamps = append(i.timestamps, ProfileTimestamp{Label: label, TimeMs: timeMs})
}

// ProfileTimestamps returns the recorded timestamps in insertion order
func (i *Interpreter) ProfileTimestamps() []ProfileTimestamp {
	result := make([]ProfileTimestamp, len(i.timestamps))
	copy(result, i.timestamps)
	return result
}

// ============================================================================
// Main Execution
// ============================================================================

// Run executes Forthic code
func (i *Interpreter) Run(code string) error {
	return i.RunAt(code, nil)
}

// RunAt executes Forthic code with a reference location offsetting every
// token's position (used for nested includes and module source)
func (i *Interpreter) RunAt(code string, referenceLocation *CodeLocation) error {
	tokenizer := NewTokenizer(code, referenceLocation, false)
	i.tokenizerStack = append(i.tokenizerStack, tokenizer)

	var err error
	if i.handleError != nil {
		err = i.executeWithRecovery()
	} else {
		err = i.continueRun()
	}

	i.tokenizerStack = i.tokenizerStack[:len(i.tokenizerStack)-1]
	return err
}

// executeWithRecovery runs the active tokenizer, invoking the installed
// error handler and retrying on failure, up to maxAttempts times.
// Intentional stops are never recovered.
func (i *Interpreter) executeWithRecovery() error {
	numAttempts := 0
	for {
		numAttempts++
		if numAttempts > i.maxAttempts {
			err := NewTooManyAttemptsError(numAttempts, i.maxAttempts)
			err.WithForthic(i.GetTopInputString())
			return err
		}

		err := i.continueRun()
		if err == nil {
			return nil
		}
		if IsIntentionalStop(err) {
			return err
		}
		if handlerErr := i.handleError(err, i); handlerErr != nil {
			return handlerErr
		}
	}
}

// continueRun fetches and dispatches tokens from the active tokenizer
// until EOS
func (i *Interpreter) continueRun() error {
	return i.runWithTokenizer(i.GetTokenizer())
}

func (i *Interpreter) runWithTokenizer(tokenizer *Tokenizer) error {
	for {
		token, err := tokenizer.NextToken()
		if err != nil {
			return err
		}

		err = i.handleToken(token)
		if err != nil {
			return err
		}

		if token.Type == TOKEN_EOS {
			break
		}

		i.previousToken = token
	}
	return nil
}

// ============================================================================
// Token Handling
// ============================================================================

// handleToken dispatches token to appropriate handler
func (i *Interpreter) handleToken(token *Token) error {
	switch token.Type {
	case TOKEN_STRING:
		return i.handleStringToken(token)
	case TOKEN_COMMENT:
		return i.handleCommentToken(token)
	case TOKEN_START_ARRAY:
		return i.handleStartArrayToken(token)
	case TOKEN_END_ARRAY:
		return i.handleEndArrayToken(token)
	case TOKEN_START_MODULE:
		return i.handleStartModuleToken(token)
	case TOKEN_END_MODULE:
		return i.handleEndModuleToken(token)
	case TOKEN_START_DEF:
		return i.handleStartDefinitionToken(token)
	case TOKEN_START_MEMO:
		return i.handleStartMemoToken(token)
	case TOKEN_END_DEF:
		return i.handleEndDefinitionToken(token)
	case TOKEN_DOT_SYMBOL:
		return i.handleDotSymbolToken(token)
	case TOKEN_WORD:
		return i.handleWordToken(token)
	case TOKEN_EOS:
		if i.isCompiling {
			err := NewMissingSemicolonError()
			err.WithForthic(i.GetTopInputString())
			if i.previousToken != nil {
				err.WithLocation(i.previousToken.Location)
			}
			return err
		}
		return nil
	default:
		err := NewUnknownTokenError(token.String)
		err.WithForthic(i.GetTopInputString())
		err.WithLocation(token.Location)
		return err
	}
}

// handleStringToken pushes the string with its source location attached
func (i *Interpreter) handleStringToken(token *Token) error {
	value := NewPositionedString(token.String, token.Location)
	return i.handleWord(NewPushValueWord("<string>", value), token.Location)
}

// handleDotSymbolToken pushes the symbol text as a positioned string
func (i *Interpreter) handleDotSymbolToken(token *Token) error {
	value := NewPositionedString(token.String, token.Location)
	return i.handleWord(NewPushValueWord("<dot-symbol>", value), token.Location)
}

// handleCommentToken handles comments (no-op)
func (i *Interpreter) handleCommentToken(token *Token) error {
	return nil
}

// handleStartArrayToken pushes the token itself as the array sentinel
func (i *Interpreter) handleStartArrayToken(token *Token) error {
	word := NewPushValueWord("<start_array_token>", token)
	return i.handleWord(word, token.Location)
}

// handleEndArrayToken handles ]
func (i *Interpreter) handleEndArrayToken(token *Token) error {
	word := NewEndArrayWord()
	return i.handleWord(word, token.Location)
}

// handleStartModuleToken handles {
// Module tokens are immediate (execute during compilation, so the compiler
// sees the new module as the lookup target) and also compiled, so that
// re-executing the definition reproduces the module switch.
func (i *Interpreter) handleStartModuleToken(token *Token) error {
	word := NewStartModuleWord(token.String)

	if i.isCompiling && i.curDefinition != nil {
		i.curDefinition.AddWord(word)
	}

	i.CountWord(word)
	return callWord(word, i)
}

// handleEndModuleToken handles } (immediate and compiled, like {)
func (i *Interpreter) handleEndModuleToken(token *Token) error {
	word := NewEndModuleWord()

	if i.isCompiling && i.curDefinition != nil {
		i.curDefinition.AddWord(word)
	}

	i.CountWord(word)
	return callWord(word, i)
}

// handleStartDefinitionToken handles :
func (i *Interpreter) handleStartDefinitionToken(token *Token) error {
	if i.isCompiling {
		err := NewMissingSemicolonError()
		err.WithForthic(i.GetTopInputString())
		if i.previousToken != nil {
			err.WithLocation(i.previousToken.Location)
		}
		return err
	}
	i.curDefinition = NewDefinitionWord(token.String, nil)
	i.isCompiling = true
	i.isMemoDefinition = false
	return nil
}

// handleStartMemoToken handles @:
func (i *Interpreter) handleStartMemoToken(token *Token) error {
	if i.isCompiling {
		err := NewMissingSemicolonError()
		err.WithForthic(i.GetTopInputString())
		if i.previousToken != nil {
			err.WithLocation(i.previousToken.Location)
		}
		return err
	}
	i.curDefinition = NewDefinitionWord(token.String, nil)
	i.isCompiling = true
	i.isMemoDefinition = true
	return nil
}

// handleEndDefinitionToken handles ;
func (i *Interpreter) handleEndDefinitionToken(token *Token) error {
	if !i.isCompiling || i.curDefinition == nil {
		err := NewExtraSemicolonError()
		err.WithForthic(i.GetTopInputString())
		err.WithLocation(token.Location)
		return err
	}

	if i.isMemoDefinition {
		i.CurModule().AddMemoWords(i.curDefinition)
	} else {
		i.CurModule().AddWord(i.curDefinition)
	}

	i.isCompiling = false
	return nil
}

// handleWordToken handles word tokens
func (i *Interpreter) handleWordToken(token *Token) error {
	word, err := i.FindWord(token.String)
	if err != nil {
		return err
	}
	return i.handleWord(word, token.Location)
}

// handleWord compiles a word into the open definition, or executes it
func (i *Interpreter) handleWord(word Word, location *CodeLocation) error {
	if i.isCompiling && i.curDefinition != nil {
		word.SetLocation(location)
		i.curDefinition.AddWord(word)
		return nil
	}

	i.CountWord(word)
	return callWord(word, i)
}

// ============================================================================
// Interpreter Duplication
// ============================================================================

// DupInterpreter produces a new interpreter from an existing one: the app
// module is deep-copied with prefix imports rebuilt, the data stack is
// cloned, the registered-modules map is shared by reference, and the error
// handler is carried over. Memo caches and the tokenizer stack are not
// duplicated.
func DupInterpreter(interp *Interpreter) *Interpreter {
	result := NewInterpreter()

	result.timezoneName = interp.timezoneName
	result.timezone = interp.timezone
	result.registerStandardLiterals()

	result.appModule = interp.appModule.Copy(result)
	result.appModule.SetInterp(result)
	result.moduleStack = []*Module{result.appModule}

	result.stack = interp.stack.Dup()

	result.registeredMods = interp.registeredMods

	if interp.handleError != nil {
		result.handleError = interp.handleError
	}

	return result
}

// ============================================================================
// Special Word Types
// ============================================================================

// StartModuleWord handles module creation and switching
type StartModuleWord struct {
	*BaseWord
}

// NewStartModuleWord creates a new StartModuleWord
func NewStartModuleWord(name string) *StartModuleWord {
	return &StartModuleWord{
		BaseWord: NewBaseWord(name),
	}
}

func (w *StartModuleWord) Execute(interp *Interpreter) error {
	// Empty name refers to app module
	if w.name == "" {
		interp.ModuleStackPush(interp.GetAppModule())
		return nil
	}

	// Push the module if the current module already knows it, otherwise
	// create a new one
	module := interp.CurModule().FindModule(w.name)
	if module == nil {
		module = NewModule(w.name)
		interp.CurModule().RegisterModule(w.name, w.name, module)

		// If we're at the app module, also register with interpreter
		if interp.CurModule().name == "" {
			interp.RegisterModule(module)
		}
	}

	interp.ModuleStackPush(module)
	return nil
}

// EndModuleWord pops the current module
type EndModuleWord struct {
	*BaseWord
}

// NewEndModuleWord creates a new EndModuleWord
func NewEndModuleWord() *EndModuleWord {
	return &EndModuleWord{
		BaseWord: NewBaseWord("}"),
	}
}

func (w *EndModuleWord) Execute(interp *Interpreter) error {
	interp.ModuleStackPop()
	return nil
}

// EndArrayWord collects items down to the START_ARRAY sentinel into an array
type EndArrayWord struct {
	*BaseWord
}

// NewEndArrayWord creates a new EndArrayWord
func NewEndArrayWord() *EndArrayWord {
	return &EndArrayWord{
		BaseWord: NewBaseWord("]"),
	}
}

func (w *EndArrayWord) Execute(interp *Interpreter) error {
	items := make([]interface{}, 0)
	for {
		item := interp.StackPop()

		if token, ok := item.(*Token); ok && token.Type == TOKEN_START_ARRAY {
			break
		}

		items = append(items, item)
	}

	// Reverse the items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	interp.StackPush(items)
	return nil
}
