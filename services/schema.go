package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	errs "youcube/errors"
)

// Message is one decoded inbound payload. Numbers are kept as json.Number
// so integers can be told apart from floats.
type Message map[string]any

// DecodeMessage parses a text frame. Only JSON objects are accepted.
func DecodeMessage(data []byte) (Message, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var msg Message
	if err := decoder.Decode(&msg); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message is not an object")
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after message")
	}
	return msg, nil
}

func (m Message) Action() (string, bool) {
	action, ok := m["action"].(string)
	return action, ok
}

func (m Message) String(name string) string {
	s, _ := m[name].(string)
	return s
}

func (m Message) Int(name string) int64 {
	n, _ := asInt(m[name])
	return n
}

func (m Message) Has(name string) bool {
	v, ok := m[name]
	return ok && v != nil
}

type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "str"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

type Field struct {
	Name     string
	Kind     FieldKind
	Optional bool
}

// Schema is the ordered field contract of one action.
type Schema []Field

// FieldError names the first field that did not match its contract.
type FieldError struct {
	Field    string
	Expected FieldKind
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s must be a %s", e.Field, e.Expected)
}

func (e *FieldError) Unwrap() error {
	return errs.ErrInvalidField
}

// Validate checks fields in order and stops at the first failure.
// An optional field that is absent or null is accepted.
func (s Schema) Validate(msg Message) error {
	for _, field := range s {
		if field.Optional && !msg.Has(field.Name) {
			continue
		}
		if !field.Kind.matches(msg[field.Name]) {
			return &FieldError{Field: field.Name, Expected: field.Kind}
		}
	}
	return nil
}

func (k FieldKind) matches(v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		_, ok := asInt(v)
		return ok
	default:
		return false
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
