// Package remote implements the value-serialization contract used when the
// interpreter core is embedded behind an RPC boundary.
//
// Stack values are encoded as the StackValue oneof of the runtime protocol:
//
//	message StackValue {
//	  oneof value {
//	    NullValue          null_value           = 1;
//	    bool               bool_value           = 2;
//	    int64              int_value            = 3;
//	    double             float_value          = 4;
//	    string             string_value         = 5;
//	    ArrayValue         array_value          = 6;
//	    RecordValue        record_value         = 7;
//	    ZonedDateTimeValue zoned_datetime_value = 8;
//	    PlainDateValue     plain_date_value     = 9;
//	    InstantValue       instant_value        = 10;
//	  }
//	}
//
// Zoned datetimes travel as RFC 9557 strings ("<iso>[<IANA>]") and
// deserialize through the zoned-datetime literal handler, so the bracket
// extension round-trips exactly as the language sees it.
package remote

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forthix/forthic-core/forthic"
)

// StackValue field numbers
const (
	fieldNull          = 1
	fieldBool          = 2
	fieldInt           = 3
	fieldFloat         = 4
	fieldString        = 5
	fieldArray         = 6
	fieldRecord        = 7
	fieldZonedDateTime = 8
	fieldPlainDate     = 9
	fieldInstant       = 10
)

// Nested message field numbers
const (
	fieldArrayItems   = 1
	fieldRecordFields = 1
	fieldMapKey       = 1
	fieldMapValue     = 2
	fieldISO8601      = 1
	fieldTimezone     = 2
)

const (
	isoDateLayout     = "2006-01-02"
	isoDateTimeLayout = "2006-01-02T15:04:05-07:00"
)

// Serialize encodes a stack value as a StackValue message
func Serialize(value interface{}) ([]byte, error) {
	return appendStackValue(nil, value)
}

func appendStackValue(buf []byte, value interface{}) ([]byte, error) {
	if value == nil {
		buf = protowire.AppendTag(buf, fieldNull, protowire.BytesType)
		return protowire.AppendBytes(buf, nil), nil
	}

	switch v := value.(type) {
	case bool:
		buf = protowire.AppendTag(buf, fieldBool, protowire.VarintType)
		if v {
			return protowire.AppendVarint(buf, 1), nil
		}
		return protowire.AppendVarint(buf, 0), nil

	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := forthic.ConvertToInt(v)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, fieldInt, protowire.VarintType)
		return protowire.AppendVarint(buf, uint64(n)), nil

	case float32:
		return appendStackValue(buf, float64(v))

	case float64:
		buf = protowire.AppendTag(buf, fieldFloat, protowire.Fixed64Type)
		return protowire.AppendFixed64(buf, math.Float64bits(v)), nil

	case string:
		buf = protowire.AppendTag(buf, fieldString, protowire.BytesType)
		return protowire.AppendString(buf, v), nil

	case *forthic.PositionedString:
		return appendStackValue(buf, v.String())

	case forthic.PlainDate:
		inner := protowire.AppendTag(nil, fieldISO8601, protowire.BytesType)
		inner = protowire.AppendString(inner, v.ISODate())
		buf = protowire.AppendTag(buf, fieldPlainDate, protowire.BytesType)
		return protowire.AppendBytes(buf, inner), nil

	case time.Time:
		return appendDateTime(buf, v)

	case []interface{}:
		inner := []byte{}
		for _, item := range v {
			encoded, err := appendStackValue(nil, item)
			if err != nil {
				return nil, err
			}
			inner = protowire.AppendTag(inner, fieldArrayItems, protowire.BytesType)
			inner = protowire.AppendBytes(inner, encoded)
		}
		buf = protowire.AppendTag(buf, fieldArray, protowire.BytesType)
		return protowire.AppendBytes(buf, inner), nil

	case map[string]interface{}:
		// Deterministic field order keeps encodings comparable
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		inner := []byte{}
		for _, key := range keys {
			encoded, err := appendStackValue(nil, v[key])
			if err != nil {
				return nil, err
			}
			entry := protowire.AppendTag(nil, fieldMapKey, protowire.BytesType)
			entry = protowire.AppendString(entry, key)
			entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, encoded)

			inner = protowire.AppendTag(inner, fieldRecordFields, protowire.BytesType)
			inner = protowire.AppendBytes(inner, entry)
		}
		buf = protowire.AppendTag(buf, fieldRecord, protowire.BytesType)
		return protowire.AppendBytes(buf, inner), nil

	default:
		return nil, fmt.Errorf("unsupported value type: %T", value)
	}
}

// appendDateTime distinguishes zoned datetimes (IANA-named location) from
// instants (UTC or fixed offsets)
func appendDateTime(buf []byte, v time.Time) ([]byte, error) {
	zoneName := v.Location().String()
	if strings.Contains(zoneName, "/") {
		iso := v.Format(isoDateTimeLayout) + "[" + zoneName + "]"

		inner := protowire.AppendTag(nil, fieldISO8601, protowire.BytesType)
		inner = protowire.AppendString(inner, iso)
		inner = protowire.AppendTag(inner, fieldTimezone, protowire.BytesType)
		inner = protowire.AppendString(inner, zoneName)

		buf = protowire.AppendTag(buf, fieldZonedDateTime, protowire.BytesType)
		return protowire.AppendBytes(buf, inner), nil
	}

	inner := protowire.AppendTag(nil, fieldISO8601, protowire.BytesType)
	inner = protowire.AppendString(inner, v.UTC().Format(time.RFC3339))
	buf = protowire.AppendTag(buf, fieldInstant, protowire.BytesType)
	return protowire.AppendBytes(buf, inner), nil
}

// Deserialize decodes a StackValue message back into a stack value
func Deserialize(data []byte) (interface{}, error) {
	num, typ, n := protowire.ConsumeTag(data)
	if n < 0 {
		return nil, fmt.Errorf("malformed stack value: %v", protowire.ParseError(n))
	}
	data = data[n:]

	switch num {
	case fieldNull:
		_, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed null value")
		}
		return nil, nil

	case fieldBool:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed bool value")
		}
		return v != 0, nil

	case fieldInt:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed int value")
		}
		return int64(v), nil

	case fieldFloat:
		v, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed float value")
		}
		return math.Float64frombits(v), nil

	case fieldString:
		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed string value")
		}
		return v, nil

	case fieldArray:
		inner, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed array value")
		}
		return deserializeArray(inner)

	case fieldRecord:
		inner, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed record value")
		}
		return deserializeRecord(inner)

	case fieldZonedDateTime:
		inner, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed zoned datetime value")
		}
		return deserializeZonedDateTime(inner)

	case fieldPlainDate:
		inner, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed plain date value")
		}
		iso, err := consumeStringField(inner, fieldISO8601)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(isoDateLayout, iso)
		if err != nil {
			return nil, fmt.Errorf("invalid plain date %q: %w", iso, err)
		}
		return forthic.NewPlainDate(t.Year(), t.Month(), t.Day(), time.UTC), nil

	case fieldInstant:
		inner, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed instant value")
		}
		iso, err := consumeStringField(inner, fieldISO8601)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, iso)
		if err != nil {
			return nil, fmt.Errorf("invalid instant %q: %w", iso, err)
		}
		return t.UTC(), nil

	default:
		return nil, fmt.Errorf("unknown stack value field %d (wire type %d)", num, typ)
	}
}

func deserializeArray(data []byte) ([]interface{}, error) {
	items := make([]interface{}, 0)
	for len(data) > 0 {
		num, _, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed array value")
		}
		data = data[n:]
		if num != fieldArrayItems {
			return nil, fmt.Errorf("unknown array field %d", num)
		}

		itemData, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed array item")
		}
		data = data[n:]

		item, err := Deserialize(itemData)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func deserializeRecord(data []byte) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for len(data) > 0 {
		num, _, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed record value")
		}
		data = data[n:]
		if num != fieldRecordFields {
			return nil, fmt.Errorf("unknown record field %d", num)
		}

		entryData, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed record entry")
		}
		data = data[n:]

		key, value, err := deserializeRecordEntry(entryData)
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

func deserializeRecordEntry(data []byte) (string, interface{}, error) {
	var key string
	var value interface{}

	for len(data) > 0 {
		num, _, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", nil, fmt.Errorf("malformed record entry")
		}
		data = data[n:]

		field, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return "", nil, fmt.Errorf("malformed record entry field %d", num)
		}
		data = data[n:]

		switch num {
		case fieldMapKey:
			key = string(field)
		case fieldMapValue:
			var err error
			value, err = Deserialize(field)
			if err != nil {
				return "", nil, err
			}
		default:
			return "", nil, fmt.Errorf("unknown record entry field %d", num)
		}
	}
	return key, value, nil
}

// deserializeZonedDateTime feeds the wire string to the zoned-datetime
// literal handler, so the RFC 9557 bracket extension round-trips exactly
// as the language parses it
func deserializeZonedDateTime(data []byte) (interface{}, error) {
	iso, err := consumeStringField(data, fieldISO8601)
	if err != nil {
		return nil, err
	}

	handler := forthic.ToZonedDateTime(time.UTC)
	value, ok := handler(iso)
	if !ok {
		return nil, fmt.Errorf("invalid zoned datetime %q", iso)
	}
	return value, nil
}

// consumeStringField extracts a single string field from a nested message,
// skipping other fields
func consumeStringField(data []byte, fieldNum protowire.Number) (string, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", fmt.Errorf("malformed message")
		}
		data = data[n:]

		if num == fieldNum && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", fmt.Errorf("malformed string field %d", num)
			}
			return v, nil
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return "", fmt.Errorf("malformed field %d", num)
		}
		data = data[n:]
	}
	return "", fmt.Errorf("missing field %d", fieldNum)
}
