// Package codec serializes records to JSON and restores the time values JSON
// flattens to strings.
//
// # Rehydration
//
// After decoding, every top-level string that matches [isoDateTime] and parses as
// RFC 3339 is replaced with a time.Time. Nested objects and arrays are left alone.
// A string field whose content happens to be a timestamp is rehydrated too; that is
// the cost of a schema-less round trip.
//
// Typed decoding ([DecodeInto]) skips rehydration: time fields are parsed from
// their stored text and string fields keep it byte for byte.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Document is a decoded top-level JSON object.
type Document map[string]any

// ErrNotObject is returned when stored bytes are valid JSON but not an object.
var ErrNotObject = errors.New("codec: value is not a JSON object")

// isoDateTime accepts second precision with optional fraction and a mandatory
// zone designator.
var isoDateTime = regexp.MustCompile(
	`^\d{4}-[01]\d-[0-3]\dT[0-2]\d:[0-5]\d:[0-5]\d(\.\d+)?([+-][0-2]\d:[0-5]\d|Z)$`,
)

// Encode marshals v as UTF-8 JSON.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return data, nil
}

// ErrFieldType is returned when a stored field cannot be mapped onto the type of
// its target field.
var ErrFieldType = errors.New("codec: field type mismatch")

// Decode parses a JSON object and rehydrates its date fields.
func Decode(data []byte) (Document, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return Rehydrate(obj), nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// Rehydrate replaces date-like top-level strings in doc with time.Time values.
// doc is modified in place and returned.
func Rehydrate(doc map[string]any) Document {
	for k, v := range doc {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if t, ok := ParseDate(s); ok {
			doc[k] = t
		}
	}
	return Document(doc)
}

// ParseDate reports whether s is a strict ISO-8601 date-time and returns it.
func ParseDate(s string) (time.Time, bool) {
	if !isoDateTime.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ToDocument encodes v and returns its top-level fields as they would be stored.
// Dates stay in their JSON text form.
func ToDocument(v any) (Document, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return Document(obj), nil
}

// Merge overlays the top-level fields of overlay onto a copy of base.
func Merge(base, overlay Document) Document {
	out := make(Document, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Into maps doc onto the struct pointed to by out using json field names.
// A value whose JSON type does not fit its field fails with [ErrFieldType] or a
// parse error; nothing is coerced.
func Into(doc Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numberHook,
			timeToStringHook,
			timeSourceHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return fmt.Errorf("codec: decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return fmt.Errorf("codec: map document: %w", err)
	}
	return nil
}

// DecodeInto decodes a stored JSON object and maps it onto out. Time fields are
// parsed from their stored text.
func DecodeInto(data []byte, out any) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	return Into(Document(obj), out)
}

var (
	numberType = reflect.TypeOf(json.Number(""))
	stringType = reflect.TypeOf("")
	timeType   = reflect.TypeOf(time.Time{})
)

// numberHook turns json.Number into the numeric kind of the target field.
func numberHook(from, to reflect.Type, data any) (any, error) {
	if from != numberType {
		return data, nil
	}
	n := data.(json.Number)
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return n.Int64()
	case reflect.Float32, reflect.Float64:
		return n.Float64()
	case reflect.String:
		return nil, fmt.Errorf("%w: number into %s", ErrFieldType, to)
	default:
		return data, nil
	}
}

// timeToStringHook formats a rehydrated time back to text when the target field is
// a string, so a string that merely looks like a timestamp still decodes.
func timeToStringHook(from, to reflect.Type, data any) (any, error) {
	if from != timeType || to.Kind() != reflect.String {
		return data, nil
	}
	return data.(time.Time).Format(time.RFC3339Nano), nil
}

// timeSourceHook only lets text or an already rehydrated time reach a time.Time
// field.
func timeSourceHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from == stringType || from == timeType {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s into time", ErrFieldType, from)
}
