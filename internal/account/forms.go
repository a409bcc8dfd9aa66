package account

import (
	"net/http"
	"strings"

	"github.com/freekieb7/neurovault-users/internal/form"
)

type SignupForm struct {
	Username  string `form:"username" validate:"required,max=150,username,notreserved"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	Password1 string `form:"password1" validate:"required,min=8,maxbytes=72"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func SignupFormFromRequest(r *http.Request) SignupForm {
	return SignupForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
}

func (f SignupForm) Validate(v *form.Validator) form.Errors {
	return v.Struct(f)
}

type EditForm struct {
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
}

func EditFormFromUser(user User) EditForm {
	return EditForm{Email: user.Email, FirstName: user.FirstName, LastName: user.LastName}
}

func EditFormFromRequest(r *http.Request) EditForm {
	return EditForm{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
	}
}

func (f EditForm) Validate(v *form.Validator) form.Errors {
	return v.Struct(f)
}

// Apply copies the edited fields onto user.
func (f EditForm) Apply(user User) User {
	user.Email = f.Email
	user.FirstName = f.FirstName
	user.LastName = f.LastName
	return user
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func LoginFormFromRequest(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func (f LoginForm) Validate(v *form.Validator) form.Errors {
	return v.Struct(f)
}
