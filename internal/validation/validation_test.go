package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestDecodeRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{name: "valid", body: `{"email":"ana@example.com","name":"Ana","password":"secret123"}`},
		{name: "bad email", body: `{"email":"nope","name":"Ana","password":"secret123"}`, wantFields: []string{"email"}},
		{name: "short name", body: `{"email":"ana@example.com","name":"A","password":"secret123"}`, wantFields: []string{"name"}},
		{name: "long name", body: `{"email":"ana@example.com","name":"` + strings.Repeat("a", 81) + `","password":"secret123"}`, wantFields: []string{"name"}},
		{name: "short password", body: `{"email":"ana@example.com","name":"Ana","password":"short"}`, wantFields: []string{"password"}},
		{name: "long password", body: `{"email":"ana@example.com","name":"Ana","password":"` + strings.Repeat("p", 129) + `"}`, wantFields: []string{"password"}},
		{name: "everything missing", body: `{}`, wantFields: []string{"email", "name", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeRegister(strings.NewReader(tt.body))
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "ana@example.com", in.Email)
				return
			}
			fields := fieldsOf(t, err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestDecodeLogin(t *testing.T) {
	_, err := DecodeLogin(strings.NewReader(`{"email":"ana@example.com","password":"secret123"}`))
	require.NoError(t, err)

	fields := fieldsOf(t, func() error {
		_, err := DecodeLogin(strings.NewReader(`{"email":"ana@example.com","password":"1234"}`))
		return err
	}())
	assert.Equal(t, "must be at least 8 characters long", fields["password"])
}

func TestDecodeBody_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"empty", ``, "body", "request body is empty"},
		{"malformed", `{"email":`, "body", "malformed JSON"},
		{"not an object", `[1,2]`, "body", "must be a JSON object"},
		{"trailing garbage", `{"email":"ana@example.com","name":"Ana","password":"secret123"} garbage`, "body", "malformed JSON"},
		{"two objects", `{"email":"ana@example.com"} {"name":"Ana"}`, "body", "malformed JSON"},
		{"stray brace", `{"email":"ana@example.com","name":"Ana","password":"secret123"}}`, "body", "malformed JSON"},
		{"wrong type", `{"email":"ana@example.com","name":12,"password":"secret123"}`, "name", "must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRegister(strings.NewReader(tt.body))
			fields := fieldsOf(t, err)
			assert.Equal(t, tt.msg, fields[tt.field])
		})
	}
}

func TestDecodeStudentCreate(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		in, err := DecodeStudentCreate(strings.NewReader(`{
			"firstName":"Alice","lastName":"Smith","email":"alice@example.com",
			"birthDate":"2000-01-01T00:00:00.000Z","grade":"5th"}`))
		require.NoError(t, err)
		require.NotNil(t, in.BirthDate)
		assert.Equal(t, "2000-01-01T00:00:00.000Z", *in.BirthDate)
		require.NotNil(t, in.Grade)
		assert.Equal(t, "5th", *in.Grade)
	})

	t.Run("nullable fields may be null or absent", func(t *testing.T) {
		in, err := DecodeStudentCreate(strings.NewReader(`{"firstName":"A","lastName":"B","email":"a@b.io","birthDate":null}`))
		require.NoError(t, err)
		assert.Nil(t, in.BirthDate)
		assert.Nil(t, in.Grade)
	})

	t.Run("bad birthDate and empty names", func(t *testing.T) {
		_, err := DecodeStudentCreate(strings.NewReader(`{"firstName":"","lastName":"","email":"a@b.io","birthDate":"01/02/2000"}`))
		fields := fieldsOf(t, err)
		assert.Equal(t, "is required", fields["firstName"])
		assert.Equal(t, "is required", fields["lastName"])
		assert.Equal(t, "must be an ISO-8601 timestamp", fields["birthDate"])
	})
}

func TestDecodeStudentUpdate(t *testing.T) {
	t.Run("empty patch", func(t *testing.T) {
		in, err := DecodeStudentUpdate(strings.NewReader(`{}`))
		require.NoError(t, err)
		assert.False(t, in.FirstName.Set)
		assert.False(t, in.BirthDate.Set)
	})

	t.Run("null clears nullable fields", func(t *testing.T) {
		in, err := DecodeStudentUpdate(strings.NewReader(`{"birthDate":null,"grade":null}`))
		require.NoError(t, err)
		assert.True(t, in.BirthDate.Set)
		assert.True(t, in.BirthDate.Null)
		assert.True(t, in.Grade.Null)
	})

	t.Run("null rejected for required fields", func(t *testing.T) {
		_, err := DecodeStudentUpdate(strings.NewReader(`{"firstName":null}`))
		assert.Equal(t, "must not be null", fieldsOf(t, err)["firstName"])
	})

	t.Run("present fields are validated", func(t *testing.T) {
		_, err := DecodeStudentUpdate(strings.NewReader(`{"email":"bad","lastName":"","birthDate":"tomorrow"}`))
		fields := fieldsOf(t, err)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "lastName")
		assert.Contains(t, fields, "birthDate")
	})

	t.Run("type errors name the field", func(t *testing.T) {
		_, err := DecodeStudentUpdate(strings.NewReader(`{"grade":7}`))
		assert.Equal(t, "must be a string", fieldsOf(t, err)["grade"])
	})
}

func TestDecode_KeysMatchExactly(t *testing.T) {
	t.Run("create ignores keys in another case", func(t *testing.T) {
		_, err := DecodeStudentCreate(strings.NewReader(`{"FIRSTNAME":"Alice","firstName":"","lastName":"Smith","email":"alice@example.com"}`))
		assert.Equal(t, "is required", fieldsOf(t, err)["firstName"])
	})

	t.Run("create ignores unknown keys", func(t *testing.T) {
		in, err := DecodeStudentCreate(strings.NewReader(`{"firstName":"Alice","lastName":"Smith","email":"alice@example.com","nickname":7}`))
		require.NoError(t, err)
		assert.Equal(t, "Alice", in.FirstName)
	})

	t.Run("update ignores keys in another case", func(t *testing.T) {
		in, err := DecodeStudentUpdate(strings.NewReader(`{"FIRSTNAME":"Alice"}`))
		require.NoError(t, err)
		assert.False(t, in.FirstName.Set)
	})

	t.Run("login ignores keys in another case", func(t *testing.T) {
		_, err := DecodeLogin(strings.NewReader(`{"Email":"ana@example.com","password":"secret123"}`))
		assert.Equal(t, "is required", fieldsOf(t, err)["email"])
	})
}

func TestError_Message(t *testing.T) {
	err := &Error{Fields: []FieldError{{"email", "is required"}, {"name", "is invalid"}}}
	assert.Equal(t, "field email is required, field name is invalid", err.Error())
}
