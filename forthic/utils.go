package forthic

import (
	"fmt"
	"reflect"
	"strconv"
)

// ============================================================================
// Type Checking Utilities
// ============================================================================

// IsInt checks if a value can be treated as an integer
func IsInt(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// IsFloat checks if a value can be treated as a float
func IsFloat(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

// IsString checks if a value is a string or a positioned string
func IsString(v interface{}) bool {
	switch v.(type) {
	case string, *PositionedString:
		return true
	default:
		return false
	}
}

// IsBool checks if a value is a boolean
func IsBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

// IsArray checks if a value is a slice/array
func IsArray(v interface{}) bool {
	switch v.(type) {
	case []interface{}:
		return true
	default:
		return false
	}
}

// IsRecord checks if a value is a map/record
func IsRecord(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}:
		return true
	default:
		return false
	}
}

// ============================================================================
// Conversion Utilities
// ============================================================================

// ConvertToInt attempts to convert a value to int64
func ConvertToInt(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

// ConvertToFloat attempts to convert a value to float64
func ConvertToFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case int, int8, int16, int32, int64:
		i, _ := ConvertToInt(val)
		return float64(i), nil
	case uint, uint8, uint16, uint32, uint64:
		i, _ := ConvertToInt(val)
		return float64(i), nil
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// ConvertToString attempts to convert a value to string
func ConvertToString(v interface{}) string {
	if v == nil {
		return "null"
	}

	switch val := v.(type) {
	case string:
		return val
	case *PositionedString:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// literalHandlerPointer identifies a literal handler by its code pointer,
// since funcs aren't comparable
func literalHandlerPointer(h LiteralHandler) uintptr {
	return reflect.ValueOf(h).Pointer()
}
