package forthic

import "strings"

// Module - Container for words, variables, and imported modules
//
// Modules provide namespacing and code organization in Forthic.
// Each module maintains its own dictionary of words, variables, and imported modules.
//
// Features:
// - Word and variable management (latest added word shadows earlier ones)
// - Module importing with optional prefixes
// - Exportable word lists for controlled visibility
// - Module duplication for isolated execution contexts
type Module struct {
	words          []Word
	exportable     []string
	variables      map[string]*Variable
	modules        map[string]*Module
	modulePrefixes map[string]map[string]bool // module_name -> set of prefixes
	name           string
	forthicCode    string
	interp         *Interpreter
}

// NewModule creates a new Module
func NewModule(name string, forthicCode ...string) *Module {
	code := ""
	if len(forthicCode) > 0 {
		code = forthicCode[0]
	}

	return &Module{
		words:          make([]Word, 0),
		exportable:     make([]string, 0),
		variables:      make(map[string]*Variable),
		modules:        make(map[string]*Module),
		modulePrefixes: make(map[string]map[string]bool),
		name:           name,
		forthicCode:    code,
		interp:         nil,
	}
}

// GetName returns the module's name
func (m *Module) GetName() string {
	return m.name
}

// GetForthicCode returns the module's Forthic source, if it was created
// from source
func (m *Module) GetForthicCode() string {
	return m.forthicCode
}

// SetInterp sets the interpreter for this module
func (m *Module) SetInterp(interp *Interpreter) {
	m.interp = interp
}

// GetInterp returns the interpreter for this module
func (m *Module) GetInterp() (*Interpreter, error) {
	if m.interp == nil {
		return nil, NewModuleError(m.name, "Module has no interpreter")
	}
	return m.interp, nil
}

// ============================================================================
// Duplication Methods
// ============================================================================

// Dup creates a shallow duplicate of the module: word list and exports are
// copied, variables are cloned, submodules are shared
func (m *Module) Dup() *Module {
	result := NewModule(m.name, m.forthicCode)

	result.words = make([]Word, len(m.words))
	copy(result.words, m.words)

	result.exportable = make([]string, len(m.exportable))
	copy(result.exportable, m.exportable)

	for key, variable := range m.variables {
		result.variables[key] = variable.Dup()
	}

	for key, module := range m.modules {
		result.modules[key] = module
	}

	return result
}

// Copy creates a copy of the module used by interpreter duplication. After
// cloning, import_module is re-applied for each recorded prefix so the
// execute-wrappers of prefixed imports are faithfully rebuilt.
func (m *Module) Copy(interp *Interpreter) *Module {
	result := m.Dup()

	for moduleName, prefixes := range m.modulePrefixes {
		module := m.modules[moduleName]
		for prefix := range prefixes {
			result.ImportModule(prefix, module, interp)
		}
	}

	return result
}

// ============================================================================
// Module Management
// ============================================================================

// FindModule finds a registered submodule by name
func (m *Module) FindModule(name string) *Module {
	return m.modules[name]
}

// RegisterModule records a submodule under its name and accumulates the
// prefix it was imported under
func (m *Module) RegisterModule(moduleName string, prefix string, module *Module) {
	m.modules[moduleName] = module

	if m.modulePrefixes[moduleName] == nil {
		m.modulePrefixes[moduleName] = make(map[string]bool)
	}
	m.modulePrefixes[moduleName][prefix] = true
}

// ImportModule imports a module's exportable words into this module.
// With an empty prefix the words are added directly; otherwise each word is
// wrapped in an ExecuteWord renamed to "prefix.name".
func (m *Module) ImportModule(prefix string, module *Module, interp *Interpreter) {
	newModule := module.Dup()

	words := newModule.ExportableWords()
	for _, word := range words {
		if prefix == "" {
			m.AddWord(word)
		} else {
			prefixedWord := NewExecuteWord(prefix+"."+word.GetName(), word)
			m.AddWord(prefixedWord)
		}
	}

	m.RegisterModule(module.name, prefix, newModule)
}

// ============================================================================
// Word Management
// ============================================================================

// AddWord adds a word to the module
func (m *Module) AddWord(word Word) {
	m.words = append(m.words, word)
}

// AddMemoWords wraps a word in a memo and adds it along with its ! and !@
// refresh variants
func (m *Module) AddMemoWords(word Word) *ModuleMemoWord {
	memoWord := NewModuleMemoWord(word)
	m.words = append(m.words, memoWord)
	m.words = append(m.words, NewModuleMemoBangWord(memoWord))
	m.words = append(m.words, NewModuleMemoBangAtWord(memoWord))
	return memoWord
}

// AddExportable adds word names to the exportable list
func (m *Module) AddExportable(names []string) {
	m.exportable = append(m.exportable, names...)
}

// AddExportableWord adds a word and marks it as exportable
func (m *Module) AddExportableWord(word Word) {
	m.words = append(m.words, word)
	m.exportable = append(m.exportable, word.GetName())
}

// AddModuleWord creates a host-handler word and marks it as exportable
func (m *Module) AddModuleWord(wordName string, handler func(*Interpreter) error) *ModuleWord {
	word := NewModuleWord(wordName, handler)
	m.AddExportableWord(word)
	return word
}

// ExportableWords returns all words whose names are in the export set
func (m *Module) ExportableWords() []Word {
	result := make([]Word, 0)
	exportableMap := make(map[string]bool)
	for _, name := range m.exportable {
		exportableMap[name] = true
	}

	for _, word := range m.words {
		if exportableMap[word.GetName()] {
			result = append(result, word)
		}
	}

	return result
}

// FindWord finds a word by name (checks words then variables)
func (m *Module) FindWord(name string) Word {
	word := m.FindDictionaryWord(name)
	if word != nil {
		return word
	}

	return m.FindVariable(name)
}

// FindDictionaryWord finds a word in the word dictionary
// Searches from end to beginning (last added word wins)
func (m *Module) FindDictionaryWord(wordName string) Word {
	for i := len(m.words) - 1; i >= 0; i-- {
		w := m.words[i]
		if w.GetName() == wordName {
			return w
		}
	}
	return nil
}

// FindVariable finds a variable and returns a PushValueWord that pushes the
// Variable handle itself
func (m *Module) FindVariable(varName string) Word {
	variable, ok := m.variables[varName]
	if ok {
		return NewPushValueWord(varName, variable)
	}
	return nil
}

// ============================================================================
// Variable Management
// ============================================================================

// AddVariable adds a variable to the module if it doesn't already exist.
// Names starting with "__" are reserved and rejected.
func (m *Module) AddVariable(name string, value interface{}) error {
	if strings.HasPrefix(name, "__") {
		return NewInvalidVariableNameError(name)
	}
	if m.variables[name] == nil {
		m.variables[name] = NewVariable(name, value)
	}
	return nil
}

// GetVariable returns a variable by name
func (m *Module) GetVariable(name string) *Variable {
	return m.variables[name]
}

// ClearVariables drops all variables from the module
func (m *Module) ClearVariables() {
	m.variables = make(map[string]*Variable)
}

// ============================================================================
// Additional Word Types for Module System
// ============================================================================

// ExecuteWord - Wrapper word that executes another word under a renamed
// external name. Used for prefixed module imports (e.g., prefix.word).
type ExecuteWord struct {
	*BaseWord
	targetWord Word
}

// NewExecuteWord creates a new ExecuteWord
func NewExecuteWord(name string, targetWord Word) *ExecuteWord {
	return &ExecuteWord{
		BaseWord:   NewBaseWord(name),
		targetWord: targetWord,
	}
}

func (w *ExecuteWord) Execute(interp *Interpreter) error {
	return w.targetWord.Execute(interp)
}

// ModuleMemoWord - Memoized word that caches its single top-of-stack result
type ModuleMemoWord struct {
	*BaseWord
	word     Word
	hasValue bool
	value    interface{}
}

// NewModuleMemoWord creates a new ModuleMemoWord
func NewModuleMemoWord(word Word) *ModuleMemoWord {
	return &ModuleMemoWord{
		BaseWord: NewBaseWord(word.GetName()),
		word:     word,
		hasValue: false,
		value:    nil,
	}
}

// Refresh re-executes the wrapped word and caches the top of the stack
func (w *ModuleMemoWord) Refresh(interp *Interpreter) error {
	err := w.word.Execute(interp)
	if err != nil {
		return err
	}
	w.value = interp.StackPop()
	w.hasValue = true
	return nil
}

func (w *ModuleMemoWord) Execute(interp *Interpreter) error {
	if !w.hasValue {
		err := w.Refresh(interp)
		if err != nil {
			return err
		}
	}
	interp.StackPush(w.value)
	return nil
}

// ModuleMemoBangWord - Forces refresh of a memoized word (the "name!" variant)
type ModuleMemoBangWord struct {
	*BaseWord
	memoWord *ModuleMemoWord
}

// NewModuleMemoBangWord creates a new ModuleMemoBangWord
func NewModuleMemoBangWord(memoWord *ModuleMemoWord) *ModuleMemoBangWord {
	return &ModuleMemoBangWord{
		BaseWord: NewBaseWord(memoWord.GetName() + "!"),
		memoWord: memoWord,
	}
}

func (w *ModuleMemoBangWord) Execute(interp *Interpreter) error {
	return w.memoWord.Refresh(interp)
}

// ModuleMemoBangAtWord - Refreshes a memoized word and pushes its value
// (the "name!@" variant)
type ModuleMemoBangAtWord struct {
	*BaseWord
	memoWord *ModuleMemoWord
}

// NewModuleMemoBangAtWord creates a new ModuleMemoBangAtWord
func NewModuleMemoBangAtWord(memoWord *ModuleMemoWord) *ModuleMemoBangAtWord {
	return &ModuleMemoBangAtWord{
		BaseWord: NewBaseWord(memoWord.GetName() + "!@"),
		memoWord: memoWord,
	}
}

func (w *ModuleMemoBangAtWord) Execute(interp *Interpreter) error {
	err := w.memoWord.Refresh(interp)
	if err != nil {
		return err
	}
	interp.StackPush(w.memoWord.value)
	return nil
}
