package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name     string `json:"name" validate:"min=2,max=100,personname" message_personname:"Name can only contain letters and spaces"`
	Email    string `json:"email" validate:"required,email" message:"Please provide a valid email address"`
	Password string `json:"password" validate:"min=6,max=128,strongpassword"`
	Role     string `json:"role" validate:"oneof=patient caretaker"`
}

type dose struct {
	Frequency string `json:"frequency" validate:"frequency"`
	Date      string `json:"date" validate:"omitempty,isodate"`
	Internal  string `validate:"max=3"`
}

func valid() signup {
	return signup{Name: "Pat Smith", Email: "pat@example.com", Password: "Secret123", Role: "patient"}
}

func TestGetValidatorSingleton(t *testing.T) {
	assert.Same(t, GetValidator(), GetValidator())
}

func TestValidateStructOK(t *testing.T) {
	s := valid()
	assert.Nil(t, ValidateStruct(&s))
}

func TestValidateStructFieldNamesAndMessages(t *testing.T) {
	s := signup{Name: "P4t", Email: "nope", Password: "secret", Role: "admin"}
	verr := ValidateStruct(&s)
	require.NotNil(t, verr)

	byField := map[string]FieldError{}
	for _, f := range verr.Fields {
		byField[f.Field] = f
	}
	require.Len(t, byField, 4)

	assert.Equal(t, "Name can only contain letters and spaces", byField["name"].Message)
	assert.Equal(t, "P4t", byField["name"].Value)
	assert.Equal(t, "Please provide a valid email address", byField["email"].Message)
	assert.Equal(t, "strongpassword", byField["password"].Tag())
	assert.Equal(t, "role must be one of: patient caretaker", byField["role"].Message)
	assert.True(t, verr.Has("role"))
	assert.False(t, verr.Has("missing"))
	assert.Contains(t, verr.Error(), "email: Please provide a valid email address")
}

func TestValidateStructOneEntryPerField(t *testing.T) {
	s := valid()
	s.Name = "1"
	verr := ValidateStruct(&s)
	require.NotNil(t, verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "min", verr.Fields[0].Tag())
	assert.Equal(t, "name must be at least 2 characters", verr.Fields[0].Message)
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, strongPassword("Secret123"))
	assert.False(t, strongPassword("secret123"))
	assert.False(t, strongPassword("SECRET123"))
	assert.False(t, strongPassword("SecretABC"))
}

func TestCustomTags(t *testing.T) {
	ok := dose{Frequency: "twice_daily", Date: "2024-02-29"}
	assert.Nil(t, ValidateStruct(&ok))

	bad := dose{Frequency: "hourly", Date: "2023-02-29", Internal: "toolong"}
	verr := ValidateStruct(&bad)
	require.NotNil(t, verr)
	assert.True(t, verr.Has("frequency"))
	assert.True(t, verr.Has("date"))
	fe, ok := verr.Lookup("date")
	require.True(t, ok)
	assert.Equal(t, "isodate", fe.Tag())
	assert.Equal(t, "date must be a date in YYYY-MM-DD format", fe.Message)
	// no json tag: the Go field name is reported
	assert.True(t, verr.Has("Internal"))
}
