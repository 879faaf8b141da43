package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
}

func decodeSignUp(body map[string]interface{}) (signUpRequest, error) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/users/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	var out signUpRequest
	err := DecodeAndValidate(httptest.NewRecorder(), req, &out)
	return out, err
}

// Feature: gift-store, Property: missing required fields are rejected
func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("only complete requests pass", prop.ForAll(
		func(withEmail, withPassword, withName bool) bool {
			body := map[string]interface{}{}
			if withEmail {
				body["email"] = "ana@example.com"
			}
			if withPassword {
				body["password"] = "secret123"
			}
			if withName {
				body["full_name"] = "Ana Lopez"
			}

			_, err := decodeSignUp(body)
			if withEmail && withPassword && withName {
				return err == nil
			}
			return err != nil && IsValidationError(err)
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: gift-store, Property: password length bounds are enforced
func TestProperty_PasswordLengthBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords of 6 to 100 characters pass", prop.ForAll(
		func(length int) bool {
			_, err := decodeSignUp(map[string]interface{}{
				"email":     "ana@example.com",
				"password":  strings.Repeat("x", length),
				"full_name": "Ana",
			})
			if length >= 6 && length <= 100 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(0, 120),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	_, err := decodeSignUp(map[string]interface{}{"email": "not-an-email", "password": "secret123"})
	require.Error(t, err)

	fields := map[string]string{}
	for _, ve := range FormatValidationErrors(err) {
		fields[ve.Field] = ve.Message
	}
	assert.Equal(t, map[string]string{
		"email":     "Invalid email format",
		"full_name": "This field is required",
	}, fields)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader("{"))
	var out signUpRequest
	err := DecodeAndValidate(httptest.NewRecorder(), req, &out)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Empty(t, FormatValidationErrors(err))
}
