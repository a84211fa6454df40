package forthic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pushValueHandler(val interface{}) func(*Interpreter) error {
	return func(interp *Interpreter) error {
		interp.StackPush(val)
		return nil
	}
}

func TestModule_NewestWordWins(t *testing.T) {
	m := NewModule("m")
	m.AddWord(NewPushValueWord("W", int64(1)))
	m.AddWord(NewPushValueWord("W", int64(2)))

	word := m.FindDictionaryWord("W")
	assert.NotNil(t, word)
	assert.Equal(t, int64(2), word.(*PushValueWord).GetValue())
}

func TestModule_Exportable(t *testing.T) {
	m := NewModule("m")
	m.AddWord(NewPushValueWord("PRIVATE", int64(1)))
	m.AddExportableWord(NewPushValueWord("PUBLIC", int64(2)))

	words := m.ExportableWords()
	assert.Equal(t, 1, len(words))
	assert.Equal(t, "PUBLIC", words[0].GetName())
}

func TestModule_ImportUnprefixed(t *testing.T) {
	source := NewModule("source")
	source.AddModuleWord("GREET", pushValueHandler("hi"))

	target := NewModule("target")
	interp := NewInterpreter()
	target.ImportModule("", source, interp)

	word := target.FindWord("GREET")
	assert.NotNil(t, word)
	assert.Equal(t, "GREET", word.GetName())
}

func TestModule_ImportPrefixed(t *testing.T) {
	source := NewModule("source")
	source.AddModuleWord("GREET", pushValueHandler("hi"))

	target := NewModule("target")
	interp := NewInterpreter()
	target.ImportModule("src", source, interp)

	// The prefixed name resolves through an execute-wrapper
	word := target.FindWord("src.GREET")
	assert.NotNil(t, word)
	assert.IsType(t, &ExecuteWord{}, word)

	// The bare name is not added
	assert.Nil(t, target.FindWord("GREET"))

	// The wrapper delegates to the target word
	err := word.Execute(interp)
	assert.NoError(t, err)
	assert.Equal(t, "hi", interp.StackPop())
}

func TestModule_ImportRecordsPrefix(t *testing.T) {
	source := NewModule("source")
	target := NewModule("target")
	interp := NewInterpreter()

	target.ImportModule("a", source, interp)
	target.ImportModule("b", source, interp)

	assert.True(t, target.modulePrefixes["source"]["a"])
	assert.True(t, target.modulePrefixes["source"]["b"])
}

func TestModule_OnlyExportableWordsImported(t *testing.T) {
	source := NewModule("source")
	source.AddWord(NewPushValueWord("HIDDEN", int64(1)))
	source.AddExportableWord(NewPushValueWord("SHOWN", int64(2)))

	target := NewModule("target")
	interp := NewInterpreter()
	target.ImportModule("", source, interp)

	assert.NotNil(t, target.FindWord("SHOWN"))
	assert.Nil(t, target.FindWord("HIDDEN"))
}

func TestModule_FindVariableReturnsHandle(t *testing.T) {
	m := NewModule("m")
	assert.NoError(t, m.AddVariable("x", int64(10)))

	word := m.FindWord("x")
	assert.NotNil(t, word)

	// The lookup pushes the Variable handle, not its contents
	interp := NewInterpreter()
	assert.NoError(t, word.Execute(interp))
	variable, ok := interp.StackPop().(*Variable)
	assert.True(t, ok)
	assert.Equal(t, int64(10), variable.GetValue())

	// Mutations through the handle are visible in the module
	variable.SetValue(int64(20))
	assert.Equal(t, int64(20), m.GetVariable("x").GetValue())
}

func TestModule_DictionaryWordShadowsVariable(t *testing.T) {
	m := NewModule("m")
	assert.NoError(t, m.AddVariable("x", int64(1)))
	m.AddWord(NewPushValueWord("x", int64(2)))

	word := m.FindWord("x")
	assert.IsType(t, &PushValueWord{}, word)
	assert.Equal(t, int64(2), word.(*PushValueWord).GetValue())
}

func TestModule_AddVariableRejectsDunderNames(t *testing.T) {
	m := NewModule("m")
	err := m.AddVariable("__hidden", nil)
	assert.Error(t, err)
	assert.IsType(t, &InvalidVariableNameError{}, err)
	assert.Nil(t, m.GetVariable("__hidden"))
}

func TestModule_AddVariableKeepsExisting(t *testing.T) {
	m := NewModule("m")
	assert.NoError(t, m.AddVariable("x", int64(1)))
	assert.NoError(t, m.AddVariable("x", int64(99)))
	assert.Equal(t, int64(1), m.GetVariable("x").GetValue())
}

func TestModule_DupClonesVariables(t *testing.T) {
	m := NewModule("m")
	assert.NoError(t, m.AddVariable("x", int64(1)))

	dup := m.Dup()
	dup.GetVariable("x").SetValue(int64(2))

	assert.Equal(t, int64(1), m.GetVariable("x").GetValue())
	assert.Equal(t, int64(2), dup.GetVariable("x").GetValue())
}

func TestModule_CopyRebuildsPrefixedImports(t *testing.T) {
	source := NewModule("source")
	source.AddModuleWord("ONE", pushValueHandler(int64(1)))

	target := NewModule("target")
	interp := NewInterpreter()
	target.ImportModule("p", source, interp)

	copied := target.Copy(interp)

	word := copied.FindWord("p.ONE")
	assert.NotNil(t, word)
	assert.NoError(t, word.Execute(interp))
	assert.Equal(t, int64(1), interp.StackPop())
}

func TestModule_AddMemoWordsAddsVariants(t *testing.T) {
	m := NewModule("m")
	inner := NewPushValueWord("K", int64(42))
	memo := m.AddMemoWords(inner)

	assert.Equal(t, "K", memo.GetName())
	assert.NotNil(t, m.FindDictionaryWord("K"))
	assert.NotNil(t, m.FindDictionaryWord("K!"))
	assert.NotNil(t, m.FindDictionaryWord("K!@"))
}

func TestModule_GetInterp(t *testing.T) {
	m := NewModule("m")
	_, err := m.GetInterp()
	assert.Error(t, err)

	interp := NewInterpreter()
	m.SetInterp(interp)
	got, err := m.GetInterp()
	assert.NoError(t, err)
	assert.Same(t, interp, got)
}
