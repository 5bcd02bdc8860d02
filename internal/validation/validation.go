// Package validation turns raw request bodies into typed, validated inputs.
//
// Every Decode* function is pure: it reads the body, checks the rules
// declared on the target struct and returns either the typed value or a
// *Error listing each offending field. Nothing is persisted or logged here.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-api/internal/types"
)

// FieldError describes a single rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when the input does not match its schema.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("field %s %s", f.Field, f.Message))
	}
	return strings.Join(msgs, ", ")
}

// Invalid builds an *Error for one field.
func Invalid(field, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}

// TimestampLayout is the ISO-8601 form accepted for birthDate.
// time.Parse also accepts fractional seconds with this layout.
const TimestampLayout = time.RFC3339

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names ("firstName") instead of Go names ("FirstName").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// DecodeRegister validates a registration payload.
func DecodeRegister(r io.Reader) (types.RegisterInput, error) {
	var in types.RegisterInput
	if err := decodeStruct(r, &in); err != nil {
		return types.RegisterInput{}, err
	}
	return in, nil
}

// DecodeLogin validates a login payload.
func DecodeLogin(r io.Reader) (types.LoginInput, error) {
	var in types.LoginInput
	if err := decodeStruct(r, &in); err != nil {
		return types.LoginInput{}, err
	}
	return in, nil
}

// DecodeStudentCreate validates a student creation payload.
func DecodeStudentCreate(r io.Reader) (types.StudentCreateInput, error) {
	var in types.StudentCreateInput
	if err := decodeStruct(r, &in); err != nil {
		return types.StudentCreateInput{}, err
	}
	return in, nil
}

// studentUpdateRules mirrors StudentCreateInput with every field optional.
// Only fields that were sent with a non-null value end up non-nil.
type studentUpdateRules struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=1"`
	LastName  *string `json:"lastName"  validate:"omitnil,min=1"`
	Email     *string `json:"email"     validate:"omitnil,email"`
	BirthDate *string `json:"birthDate" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
}

// DecodeStudentUpdate validates a partial student payload.
//
// Keys are decoded one by one so that a type error can name its field and
// so that "absent" and "null" stay distinguishable.
func DecodeStudentUpdate(r io.Reader) (types.StudentUpdateInput, error) {
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		return types.StudentUpdateInput{}, err
	}

	var in types.StudentUpdateInput
	fields := []struct {
		name     string
		dst      *types.Optional[string]
		nullable bool
	}{
		{"firstName", &in.FirstName, false},
		{"lastName", &in.LastName, false},
		{"email", &in.Email, false},
		{"birthDate", &in.BirthDate, true},
		{"grade", &in.Grade, true},
	}

	verr := &Error{}
	for _, f := range fields {
		msg, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, f.dst); err != nil {
			verr.Fields = append(verr.Fields, FieldError{Field: f.name, Message: "must be a string"})
			continue
		}
		if f.dst.Null && !f.nullable {
			verr.Fields = append(verr.Fields, FieldError{Field: f.name, Message: "must not be null"})
		}
	}
	if len(verr.Fields) > 0 {
		return types.StudentUpdateInput{}, verr
	}

	rules := studentUpdateRules{
		FirstName: in.FirstName.Ptr(),
		LastName:  in.LastName.Ptr(),
		Email:     in.Email.Ptr(),
		BirthDate: in.BirthDate.Ptr(),
	}
	if err := check(rules); err != nil {
		return types.StudentUpdateInput{}, err
	}
	return in, nil
}

// decodeStruct fills dst from the body. Keys must match a json tag exactly;
// any other key is dropped, the same as DecodeStudentUpdate does.
func decodeStruct(r io.Reader, dst any) error {
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		return err
	}

	known := jsonNames(reflect.TypeOf(dst).Elem())
	for key := range raw {
		if !known[key] {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		filtered, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("validation: re-encode body: %w", err)
		}
		if err := json.Unmarshal(filtered, dst); err != nil {
			return decodeError(err)
		}
	}
	return check(dst)
}

// jsonNames lists the json tag names of a struct type.
func jsonNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool, t.NumField())
	for i := range t.NumField() {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
}

// decodeBody reads exactly one JSON value; trailing data is malformed.
func decodeBody(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return Invalid("body", "request body is too large")
		}
		return Invalid("body", "malformed JSON")
	}
	return nil
}

// decodeError maps decoder failures onto validation errors.
func decodeError(err error) error {
	var (
		typeErr *json.UnmarshalTypeError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return Invalid("body", "request body is empty")
	case errors.As(err, &tooBig):
		return Invalid("body", "request body is too large")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return Invalid("body", "must be a JSON object")
		}
		return Invalid(typeErr.Field, "must be a "+jsonKind(typeErr.Type))
	default:
		return Invalid("body", "malformed JSON")
	}
}

// check runs the struct tags and converts validator output.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}

	out := &Error{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: e.Field(), Message: message(e)})
	}
	return out
}

// message turns one validator.FieldError into plain English.
func message(e validator.FieldError) string {
	switch e.ActualTag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", e.Param())
	case "datetime":
		return "must be an ISO-8601 timestamp"
	default:
		return "is invalid"
	}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	default:
		return "number"
	}
}
