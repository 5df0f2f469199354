package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var bareKeyRe = regexp.MustCompile(`([{\s,])([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)

// repairKeys quotes bare identifier keys that follow '{', ',' or whitespace.
func repairKeys(s string) string {
	return bareKeyRe.ReplaceAllString(s, `${1}"${2}":`)
}

var errTrailingData = errors.New("trailing data after value")

// decodeStrict decodes exactly one JSON value. Objects become bson.D in
// source key order and integral numbers become int64.
func decodeStrict(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		return convertNumber(t), nil
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (any, error) {
	doc := bson.D{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		doc = setKey(doc, key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeArray(dec *json.Decoder) (any, error) {
	out := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// setKey appends key, or overwrites it in place when repeated (last wins).
func setKey(doc bson.D, key string, v any) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = v
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: v})
}

func convertNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// toMap flattens the top level of an ordered document. Nested values keep
// their order.
func toMap(doc bson.D) map[string]any {
	out := make(map[string]any, len(doc))
	for _, e := range doc {
		out[e.Key] = e.Value
	}
	return out
}
