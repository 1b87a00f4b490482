package utils_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/utils"
)

type memberPayload struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"phone"`
	Role  string `json:"role" validate:"omitempty,oneof=student teacher"`
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	v := utils.NewValidation()

	err := v.Validate.Struct(memberPayload{Name: "  ", Email: "nope", Phone: "abc", Role: "pilot"})
	require.Error(t, err)

	details := v.Details(err)
	require.Equal(t, "this field cannot be blank", details["name"])
	require.Contains(t, details["email"], "valid email")
	require.Equal(t, "must be a valid phone number", details["phone"])
	require.Contains(t, details["role"], "one of")
}

func TestValidationAcceptsValidPayload(t *testing.T) {
	v := utils.NewValidation()

	require.NoError(t, v.Validate.Struct(memberPayload{Name: "Ada", Email: "ada@example.com", Phone: "+62 812-3456-7890"}))
	require.NoError(t, v.Validate.Struct(memberPayload{Name: "Ada", Email: "ada@example.com"}))
	require.Nil(t, v.Details(errors.New("plain")))
}
