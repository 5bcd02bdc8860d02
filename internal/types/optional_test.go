package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_DistinguishesAbsentNullAndValue(t *testing.T) {
	var in StudentUpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"grade": null, "firstName": "Ana"}`), &in))

	assert.False(t, in.BirthDate.Set, "absent field must stay unset")
	assert.True(t, in.Grade.Set)
	assert.True(t, in.Grade.Null)
	assert.Nil(t, in.Grade.Ptr())

	assert.True(t, in.FirstName.Set)
	assert.False(t, in.FirstName.Null)
	require.NotNil(t, in.FirstName.Ptr())
	assert.Equal(t, "Ana", *in.FirstName.Ptr())
}

func TestOptional_TypeMismatch(t *testing.T) {
	var in StudentUpdateInput
	err := json.Unmarshal([]byte(`{"lastName": 42}`), &in)
	require.Error(t, err)
}

func TestStudentPatch_IsEmpty(t *testing.T) {
	assert.True(t, StudentPatch{}.IsEmpty())
	assert.False(t, StudentPatch{Grade: Null[string]()}.IsEmpty())

	name := "Bo"
	assert.False(t, StudentPatch{LastName: &name}.IsEmpty())
}

func TestUser_PublicHidesHash(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.io", Name: "Ann", PasswordHash: "$2a$10$xyz"}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$xyz")

	assert.Equal(t, PublicUser{ID: "u1", Email: "a@b.io", Name: "Ann"}, u.Public())
}
