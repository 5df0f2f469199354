package metadata

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TypeTag names the runtime type observed for a field value.
type TypeTag string

// Type tags inferred from sample values.
const (
	TypeString    TypeTag = "string"
	TypeInt       TypeTag = "int"
	TypeLong      TypeTag = "long"
	TypeDouble    TypeTag = "double"
	TypeDecimal   TypeTag = "decimal"
	TypeBool      TypeTag = "bool"
	TypeDate      TypeTag = "date"
	TypeObjectID  TypeTag = "objectId"
	TypeObject    TypeTag = "object"
	TypeArray     TypeTag = "array"
	TypeNull      TypeTag = "null"
	TypeBinary    TypeTag = "binary"
	TypeTimestamp TypeTag = "timestamp"
	TypeRegex     TypeTag = "regex"
	TypeUnknown   TypeTag = "unknown"
)

// InferType maps a decoded driver value to its tag.
func InferType(v any) TypeTag {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return TypeNull
	case string, primitive.Symbol:
		return TypeString
	case int32, int:
		return TypeInt
	case int64:
		return TypeLong
	case float64, float32:
		return TypeDouble
	case primitive.Decimal128:
		return TypeDecimal
	case bool:
		return TypeBool
	case primitive.DateTime, time.Time:
		return TypeDate
	case primitive.ObjectID:
		return TypeObjectID
	case bson.D, bson.M, map[string]any:
		return TypeObject
	case bson.A, []any:
		return TypeArray
	case primitive.Binary:
		return TypeBinary
	case primitive.Timestamp:
		return TypeTimestamp
	case primitive.Regex:
		return TypeRegex
	default:
		return TypeUnknown
	}
}

// SampleString renders v for prompts, truncated to SampleMaxLen runes.
// Identifiers and dates use their portable forms.
func SampleString(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "null"
	case string:
		s = val
	case primitive.ObjectID:
		s = val.Hex()
	case primitive.DateTime:
		s = val.Time().UTC().Format(time.RFC3339)
	case time.Time:
		s = val.UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	return truncate(s, SampleMaxLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
