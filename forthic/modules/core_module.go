package modules

import (
	"strings"

	"github.com/forthix/forthic-core/forthic"
)

// CoreModule provides the host-side words the interpreter core expects:
// variable binding, exports, module imports, nested interpretation, word
// options, and profiling.
type CoreModule struct {
	*forthic.Module
}

// NewCoreModule creates a new core module
func NewCoreModule() *CoreModule {
	m := &CoreModule{
		Module: forthic.NewModule("core", ""),
	}
	m.registerWords()
	return m
}

func (m *CoreModule) registerWords() {
	// Stack operations
	m.AddModuleWord("POP", m.pop)
	m.AddModuleWord("DUP", m.dup)
	m.AddModuleWord("SWAP", m.swap)

	// Variable operations
	m.AddModuleWord("VARIABLES", m.variables)
	m.AddModuleWord("!", m.set)
	m.AddModuleWord("@", m.get)
	m.AddModuleWord("!@", m.setGet)

	// Module operations
	m.AddModuleWord("EXPORT", m.exportWord)
	m.AddModuleWord("USE-MODULES", m.useModules)

	// Execution
	m.AddModuleWord("INTERPRET", m.interpret)

	// Control flow
	m.AddModuleWord("IDENTITY", m.identity)
	m.AddModuleWord("NOP", m.nop)
	m.AddModuleWord("NULL", m.null)

	// Options
	m.AddModuleWord("~>", m.toOptions)

	// Profiling
	m.AddModuleWord("PROFILE-START", m.profileStart)
	m.AddModuleWord("PROFILE-END", m.profileEnd)
	m.AddModuleWord("PROFILE-TIMESTAMP", m.profileTimestamp)
	m.AddModuleWord("PROFILE-DATA", m.profileData)
}

// getOrCreateVariable gets or creates a variable in the current module,
// validating the name
func getOrCreateVariable(interp *forthic.Interpreter, name string) (*forthic.Variable, error) {
	curModule := interp.CurModule()

	variable := curModule.GetVariable(name)
	if variable == nil {
		if err := curModule.AddVariable(name, nil); err != nil {
			return nil, err
		}
		variable = curModule.GetVariable(name)
	}

	return variable, nil
}

// popVariable resolves a popped stack value to a Variable: either the
// handle itself or a name to auto-create
func popVariable(interp *forthic.Interpreter) (*forthic.Variable, error) {
	value := interp.StackPop()

	if varName, ok := value.(string); ok {
		return getOrCreateVariable(interp, varName)
	}
	if variable, ok := value.(*forthic.Variable); ok {
		return variable, nil
	}
	return nil, forthic.NewInvalidVariableNameError(forthic.ConvertToString(value))
}

// ========================================
// Stack Operations
// ========================================

func (m *CoreModule) pop(interp *forthic.Interpreter) error {
	interp.StackPop()
	return nil
}

func (m *CoreModule) dup(interp *forthic.Interpreter) error {
	a := interp.StackPop()
	interp.StackPush(a)
	interp.StackPush(a)
	return nil
}

func (m *CoreModule) swap(interp *forthic.Interpreter) error {
	b := interp.StackPop()
	a := interp.StackPop()
	interp.StackPush(b)
	interp.StackPush(a)
	return nil
}

// ========================================
// Variable Operations
// ========================================

func (m *CoreModule) variables(interp *forthic.Interpreter) error {
	varnames := interp.StackPop()
	curModule := interp.CurModule()

	if arr, ok := varnames.([]interface{}); ok {
		for _, v := range arr {
			varName, ok := forthic.DecayValue(v).(string)
			if !ok {
				continue
			}
			if strings.HasPrefix(varName, "__") {
				return forthic.NewInvalidVariableNameError(varName)
			}
			if err := curModule.AddVariable(varName, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *CoreModule) set(interp *forthic.Interpreter) error {
	variable, err := popVariable(interp)
	if err != nil {
		return err
	}
	value := interp.StackPop()

	variable.SetValue(value)
	return nil
}

func (m *CoreModule) get(interp *forthic.Interpreter) error {
	variable, err := popVariable(interp)
	if err != nil {
		return err
	}

	interp.StackPush(variable.GetValue())
	return nil
}

func (m *CoreModule) setGet(interp *forthic.Interpreter) error {
	variable, err := popVariable(interp)
	if err != nil {
		return err
	}
	value := interp.StackPop()

	variable.SetValue(value)
	interp.StackPush(variable.GetValue())
	return nil
}

// ========================================
// Module Operations
// ========================================

func (m *CoreModule) exportWord(interp *forthic.Interpreter) error {
	names := interp.StackPop()
	if arr, ok := names.([]interface{}); ok {
		strNames := make([]string, 0, len(arr))
		for _, name := range arr {
			if str, ok := forthic.DecayValue(name).(string); ok {
				strNames = append(strNames, str)
			}
		}
		interp.CurModule().AddExportable(strNames)
	}
	return nil
}

func (m *CoreModule) useModules(interp *forthic.Interpreter) error {
	names := interp.StackPop()
	if names == nil {
		return nil
	}
	if arr, ok := names.([]interface{}); ok {
		return interp.UseModules(arr)
	}
	return nil
}

// ========================================
// Execution
// ========================================

func (m *CoreModule) interpret(interp *forthic.Interpreter) error {
	str := interp.StackPop()
	if str == nil {
		return nil
	}
	if code, ok := str.(string); ok {
		return interp.Run(code)
	}
	return nil
}

// ========================================
// Control Flow
// ========================================

func (m *CoreModule) identity(interp *forthic.Interpreter) error {
	return nil
}

func (m *CoreModule) nop(interp *forthic.Interpreter) error {
	return nil
}

func (m *CoreModule) null(interp *forthic.Interpreter) error {
	interp.StackPush(nil)
	return nil
}

// ========================================
// Options
// ========================================

func (m *CoreModule) toOptions(interp *forthic.Interpreter) error {
	array := interp.StackPop()
	opts, err := forthic.NewWordOptions(array)
	if err != nil {
		return err
	}
	interp.StackPush(opts)
	return nil
}

// ========================================
// Profiling
// ========================================

func (m *CoreModule) profileStart(interp *forthic.Interpreter) error {
	interp.StartProfiling()
	return nil
}

func (m *CoreModule) profileEnd(interp *forthic.Interpreter) error {
	interp.StopProfiling()
	return nil
}

func (m *CoreModule) profileTimestamp(interp *forthic.Interpreter) error {
	label := interp.StackPop()
	interp.AddTimestamp(forthic.ConvertToString(label))
	return nil
}

func (m *CoreModule) profileData(interp *forthic.Interpreter) error {
	histogram := interp.WordHistogram()
	wordCounts := make([]interface{}, 0, len(histogram))
	for _, entry := range histogram {
		wordCounts = append(wordCounts, map[string]interface{}{
			"word":  entry.Word,
			"count": int64(entry.Count),
		})
	}

	stamps := interp.ProfileTimestamps()
	timestamps := make([]interface{}, 0, len(stamps))
	for _, ts := range stamps {
		timestamps = append(timestamps, map[string]interface{}{
			"label":   ts.Label,
			"time_ms": ts.TimeMs,
		})
	}

	interp.StackPush(map[string]interface{}{
		"word_counts": wordCounts,
		"timestamps":  timestamps,
	})
	return nil
}
