package account_test

import (
	"strings"
	"testing"

	"github.com/freekieb7/neurovault-users/internal/account"
	"github.com/freekieb7/neurovault-users/internal/form"
	"github.com/stretchr/testify/assert"
)

func TestSignupFormValidate(t *testing.T) {
	v := form.NewValidator()

	valid := account.SignupForm{Username: "jane.doe", Password1: "long-enough", Password2: "long-enough"}
	assert.False(t, valid.Validate(v).Any())

	mismatch := valid
	mismatch.Password2 = "something-else"
	errs := mismatch.Validate(v)
	assert.Contains(t, errs, "password2")

	badName := valid
	badName.Username = "jane doe"
	assert.Contains(t, badName.Validate(v), "username")

	reserved := valid
	reserved.Username = "edit"
	assert.Contains(t, reserved.Validate(v), "username")

	tooLong := valid
	tooLong.Password1 = strings.Repeat("a", 73)
	tooLong.Password2 = tooLong.Password1
	assert.Contains(t, tooLong.Validate(v), "password1")
}

func TestEditFormApply(t *testing.T) {
	user := account.User{Username: "jane", Email: "old@example.com"}
	edited := account.EditForm{Email: "new@example.com", FirstName: "Jane", LastName: "Doe"}.Apply(user)

	assert.Equal(t, "jane", edited.Username)
	assert.Equal(t, "new@example.com", edited.Email)
	assert.Equal(t, "Jane Doe", edited.FullName())
}
