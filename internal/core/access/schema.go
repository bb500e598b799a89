package access

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iflyair/ifly-backend/internal/core/domain"
)

// FieldType is the wire type of a schema field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldFloat
	FieldBool
	FieldTime
)

// Field declares one serialized field of a resource kind.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// ReadOnly fields are emitted in responses but silently dropped from
	// request bodies (the store or a hook owns them).
	ReadOnly bool
	// Validate is an optional go-playground/validator tag evaluated against
	// the field value, e.g. "email", "gt=0", "oneof=economy business first".
	Validate string
}

// Schema is the serializer shape of a resource kind: which fields exist,
// their types, and their validation rules. Schemas are plain values fixed at
// registration time.
type Schema struct {
	Fields []Field
}

var fieldValidator = validator.New()

// Field looks up a declared field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clean validates a decoded request body against the schema and returns the
// record patch to store. Unknown and read-only fields are dropped. With
// partial set, absent fields are left untouched instead of failing the
// required check.
func (s Schema) Clean(body map[string]any, partial bool) (domain.Record, error) {
	out := domain.Record{}
	verr := &domain.ValidationError{}

	for _, f := range s.Fields {
		raw, present := body[f.Name]
		if f.ReadOnly {
			continue
		}
		if !present || raw == nil {
			if f.Required && !partial {
				verr.Add(f.Name, "this field is required")
			}
			continue
		}

		value, err := coerce(f.Type, raw)
		if err != nil {
			verr.Add(f.Name, err.Error())
			continue
		}
		if f.Validate != "" {
			if err := fieldValidator.Var(value, f.Validate); err != nil {
				verr.Add(f.Name, tagMessage(f.Name, f.Validate, err))
			}
		}
		out[f.Name] = value
	}

	if !verr.Empty() {
		return nil, verr
	}
	return out, nil
}

// CoerceFilter parses a query-parameter value into the field's native type
// for use in equality filters. Unparseable values report false.
func (s Schema) CoerceFilter(name, raw string) (any, bool) {
	f, ok := s.Field(name)
	if !ok {
		return nil, false
	}
	switch f.Type {
	case FieldInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case FieldFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case FieldBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	case FieldTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, false
		}
		return t, true
	default:
		return raw, true
	}
}

// coerce converts a JSON-decoded value into the field's native type.
func coerce(ft FieldType, raw any) (any, error) {
	switch ft {
	case FieldString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil
	case FieldInt:
		switch n := raw.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("must be an integer")
			}
			return int64(n), nil
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
		return nil, fmt.Errorf("must be an integer")
	case FieldFloat:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("must be a number")
	case FieldBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil
	case FieldTime:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be an RFC3339 timestamp")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("must be an RFC3339 timestamp")
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unsupported field type")
}

// tagMessage converts a validator failure into a human-readable message, in
// the same spirit as the transport-level request validator.
func tagMessage(field, tag string, err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		switch fe.Tag() {
		case "email":
			return "must be a valid email"
		case "gt":
			return fmt.Sprintf("must be greater than %s", fe.Param())
		case "gte":
			return fmt.Sprintf("must be at least %s", fe.Param())
		case "min":
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		case "oneof":
			return fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			return fmt.Sprintf("failed validation (%s)", fe.Tag())
		}
	}
	return fmt.Sprintf("failed validation (%s)", tag)
}
