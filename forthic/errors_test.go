package forthic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForthicError_Formatting(t *testing.T) {
	err := NewForthicError("Something broke").
		WithLocation(&CodeLocation{Line: 2, Column: 3}).
		WithForthic("1 2 BROKEN")

	msg := err.Error()
	assert.Contains(t, msg, "Something broke")
	assert.Contains(t, msg, "line 2, col 3")
	assert.Contains(t, msg, "1 2 BROKEN")
}

func TestForthicError_Unwrap(t *testing.T) {
	cause := NewForthicError("inner")
	err := NewForthicError("outer").WithCause(cause)
	assert.Same(t, cause, err.Unwrap())
}

func TestIsIntentionalStop(t *testing.T) {
	stop := NewIntentionalStopError("halt")
	assert.True(t, IsIntentionalStop(stop))

	wrapped := NewForthicError("wrapper").WithCause(stop)
	assert.True(t, IsIntentionalStop(wrapped))

	doubleWrapped := NewWordExecutionError("W", wrapped)
	assert.True(t, IsIntentionalStop(doubleWrapped))

	assert.False(t, IsIntentionalStop(NewForthicError("plain")))
	assert.False(t, IsIntentionalStop(nil))
}

func TestGetErrorDescription_PlainNote(t *testing.T) {
	err := NewUnknownWordError("FOO")
	assert.Equal(t, "Unknown word: FOO", GetErrorDescription("", err))
}

func TestGetErrorDescription_CaretSpan(t *testing.T) {
	source := "1 2 BROKEN"
	err := NewUnknownWordError("BROKEN")
	err.WithLocation(&CodeLocation{Line: 1, Column: 5, StartPos: 4, EndPos: 10})

	desc := GetErrorDescription(source, err)
	assert.Contains(t, desc, "Unknown word: BROKEN")
	assert.Contains(t, desc, "at line 1")
	assert.Contains(t, desc, source)

	// The caret line spans [StartPos, EndPos) under the offending token
	assert.Contains(t, desc, "    ^^^^^^")
}

func TestGetErrorDescription_WordExecutionShowsBothSites(t *testing.T) {
	source := ": BOOM FAIL ;\n1 BOOM"
	err := NewWordExecutionError("BOOM", NewForthicError("boom"))
	err.WithLocation(&CodeLocation{Line: 2, Column: 3, StartPos: 16, EndPos: 20})
	err.WithDefinitionLocation(&CodeLocation{Line: 1, Column: 8, StartPos: 7, EndPos: 11})

	desc := GetErrorDescription(source, err)
	assert.Contains(t, desc, "at line 1")
	assert.Contains(t, desc, "Called from line 2")
	assert.Equal(t, 2, strings.Count(desc, "^^^^"))
}

func TestGetErrorDescription_ModuleSourceNamed(t *testing.T) {
	err := NewUnknownWordError("FOO")
	err.WithLocation(&CodeLocation{Source: "mylib", Line: 1, Column: 1, StartPos: 0, EndPos: 3})

	desc := GetErrorDescription("FOO", err)
	assert.Contains(t, desc, "in mylib")
}

func TestErrorTypes_CarryDetails(t *testing.T) {
	unknownWord := NewUnknownWordError("FOO")
	assert.Equal(t, "FOO", unknownWord.Word)

	unknownModule := NewUnknownModuleError("m")
	assert.Equal(t, "m", unknownModule.Module)

	tooMany := NewTooManyAttemptsError(4, 3)
	assert.Equal(t, 4, tooMany.NumAttempts)
	assert.Equal(t, 3, tooMany.MaxAttempts)

	invalidVar := NewInvalidVariableNameError("__x")
	assert.Equal(t, "__x", invalidVar.VarName)
}
