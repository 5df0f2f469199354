package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Recovered arguments keep nested objects as bson.D so that key order in
// compound $sort and $project specs survives to the store. Top-level filter
// and stage mappings stay plain maps.

// EncodeJSON renders v as JSON. bson.D values are written as objects in key
// order, plain maps with sorted keys.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case bson.D:
		buf.WriteByte('{')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeEntry(buf, e.Key, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeEntry(buf, k, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case Pipeline:
		return encodeList(buf, len(t), func(i int) any { return t[i] })
	case []map[string]any:
		return encodeList(buf, len(t), func(i int) any { return t[i] })
	case bson.A:
		return encodeList(buf, len(t), func(i int) any { return t[i] })
	case []any:
		return encodeList(buf, len(t), func(i int) any { return t[i] })
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(raw)
		return nil
	}
}

func encodeEntry(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	if err := encodeJSON(buf, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func encodeList(buf *bytes.Buffer, n int, at func(int) any) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSON(buf, at(i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// MarshalJSON keeps the key order of nested bson.D values.
func (c Command) MarshalJSON() ([]byte, error) {
	out := struct {
		Collection string          `json:"collection"`
		Operation  Operation       `json:"operation"`
		Filter     json.RawMessage `json:"filter,omitempty"`
		Pipeline   json.RawMessage `json:"pipeline,omitempty"`
	}{Collection: c.Collection, Operation: c.Operation}

	var err error
	if len(c.Filter) > 0 {
		if out.Filter, err = EncodeJSON(c.Filter); err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
	}
	if len(c.Pipeline) > 0 {
		if out.Pipeline, err = EncodeJSON(c.Pipeline); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	return json.Marshal(out)
}
