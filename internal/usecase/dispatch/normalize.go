package dispatch

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NormalizeDocument converts driver-native values to portable ones.
func NormalizeDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeValue renders ObjectIDs as 24-hex strings and dates as RFC 3339,
// recursing into documents and arrays.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return t.String()
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(t.Data)
	case primitive.Regex:
		return "/" + t.Pattern + "/" + t.Options
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.Symbol:
		return string(t)
	case primitive.JavaScript:
		return string(t)
	case primitive.MinKey, primitive.MaxKey:
		return fmt.Sprintf("%T", t)
	case primitive.DBPointer:
		return t.DB + "/" + t.Pointer.Hex()
	case bson.M:
		return NormalizeDocument(t)
	case map[string]any:
		return NormalizeDocument(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = NormalizeValue(e.Value)
		}
		return out
	case bson.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	default:
		return v
	}
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, el := range in {
		out[i] = NormalizeValue(el)
	}
	return out
}

// ConvertExtendedJSON replaces {"$oid": hex} with an ObjectID and
// {"$date": ...} with a time, recursing through documents and arrays.
// Ordered documents stay ordered.
func ConvertExtendedJSON(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if raw, ok := t["$oid"]; ok {
				return parseOID(raw)
			}
			if raw, ok := t["$date"]; ok {
				return parseDate(raw)
			}
		}
		out := make(map[string]any, len(t))
		for k, el := range t {
			conv, err := ConvertExtendedJSON(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	case bson.D:
		if len(t) == 1 {
			switch t[0].Key {
			case "$oid":
				return parseOID(t[0].Value)
			case "$date":
				return parseDate(t[0].Value)
			}
		}
		out := make(bson.D, 0, len(t))
		for _, e := range t {
			conv, err := ConvertExtendedJSON(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			out = append(out, bson.E{Key: e.Key, Value: conv})
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			conv, err := ConvertExtendedJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	default:
		return v, nil
	}
}

func parseOID(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("$oid must be a string, got %T", raw)
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, fmt.Errorf("$oid: %w", err)
	}
	return oid, nil
}

func parseDate(raw any) (any, error) {
	switch t := raw.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("$date: %w", err)
		}
		return ts.UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case bson.D:
		if len(t) == 1 && t[0].Key == "$numberLong" {
			return parseDate(map[string]any{"$numberLong": t[0].Value})
		}
	case map[string]any:
		if s, ok := t["$numberLong"].(string); ok {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("$date: %w", err)
			}
			return time.UnixMilli(ms).UTC(), nil
		}
	case time.Time:
		return t, nil
	}
	return nil, fmt.Errorf("$date: unsupported value %T", raw)
}
