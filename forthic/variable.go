package forthic

// Variable - Named mutable value container
//
// Variables live in a module's variable map and mutate in place. Looking a
// variable name up as a word pushes the *Variable handle itself, not its
// contents; reads and writes go through explicit host words (`@`, `!`).
// This lets definitions capture storage locations by identity.
type Variable struct {
	name  string
	value interface{}
}

// NewVariable creates a new Variable
func NewVariable(name string, value interface{}) *Variable {
	return &Variable{
		name:  name,
		value: value,
	}
}

// GetName returns the variable's name
func (v *Variable) GetName() string {
	return v.name
}

// SetValue sets the variable's value
func (v *Variable) SetValue(val interface{}) {
	v.value = val
}

// GetValue returns the variable's value
func (v *Variable) GetValue() interface{} {
	return v.value
}

// Dup creates a duplicate of the variable
func (v *Variable) Dup() *Variable {
	return NewVariable(v.name, v.value)
}
