package fieldtype

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed resolution errors via errors.Is.
var (
	ErrMissingFieldType = errors.New("fieldtype: missing field type")
	ErrUnknownFieldType = errors.New("fieldtype: unknown field type")
)

// MissingFieldTypeError reports a field spec without a type.
type MissingFieldTypeError struct {
	FieldID string
}

func (e *MissingFieldTypeError) Error() string {
	if e.FieldID == "" {
		return "fieldtype: field type is missing"
	}
	return fmt.Sprintf("fieldtype: field %q has no type", e.FieldID)
}

func (e *MissingFieldTypeError) Is(target error) bool {
	return target == ErrMissingFieldType
}

// UnknownFieldTypeError reports a type name with no registered renderer.
type UnknownFieldTypeError struct {
	FieldID string
	Type    string
	Kind    string
}

func (e *UnknownFieldTypeError) Error() string {
	if e.FieldID == "" {
		return fmt.Sprintf("fieldtype: field type %q (%s) is not registered", e.Type, e.Kind)
	}
	return fmt.Sprintf("fieldtype: field %q uses unregistered type %q (%s)", e.FieldID, e.Type, e.Kind)
}

func (e *UnknownFieldTypeError) Is(target error) bool {
	return target == ErrUnknownFieldType
}
