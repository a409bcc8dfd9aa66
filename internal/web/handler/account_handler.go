package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/account"
	"github.com/freekieb7/neurovault-users/internal/form"
	"github.com/freekieb7/neurovault-users/internal/web/middleware"
	"github.com/google/uuid"
)

const (
	templateSignup      = "registration/signup.html"
	templateSignupAjax  = "registration/_signup.html"
	templateLogin       = "registration/login.html"
	templateLoginAjax   = "registration/_login.html"
	templateProfile     = "registration/profile.html"
	templateEditProfile = "registration/edit_profile.html"
)

type AccountService interface {
	CreateUser(ctx context.Context, username, email, password string) (account.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (account.User, error)
	GetUserByUsername(ctx context.Context, username string) (account.User, error)
	UpdateUser(ctx context.Context, user account.User) (account.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (account.User, error)
}

type AccountHandler struct {
	Base
	AccountService AccountService
	Validator      *form.Validator
}

func NewAccountHandler(base Base, accountService AccountService, validator *form.Validator) AccountHandler {
	return AccountHandler{
		Base:           base,
		AccountService: accountService,
		Validator:      validator,
	}
}

func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	publicChain := h.publicChain()
	protectedChain := h.protectedChain()

	mux.Handle("/accounts/create", middleware.Chain(
		publicChain,
		middleware.RateLimitPost(h.Config.RateLimit, h.Config.RateLimit.SignupRequests, h.Logger),
		middleware.AcceptsAjax(templateSignupAjax, h.Logger),
	)(http.HandlerFunc(h.HandleCreateUser)))

	mux.Handle("/accounts/login", middleware.Chain(
		publicChain,
		middleware.RateLimitPost(h.Config.RateLimit, h.Config.RateLimit.LoginRequests, h.Logger),
		middleware.AcceptsAjax(templateLoginAjax, h.Logger),
	)(http.HandlerFunc(h.HandleLogin)))

	mux.Handle("/accounts/logout", publicChain(http.HandlerFunc(h.HandleLogout)))
	mux.Handle("/accounts/profile", publicChain(http.HandlerFunc(h.HandleProfile)))
	mux.Handle("/accounts/profile/{username}", publicChain(http.HandlerFunc(h.HandleProfile)))
	mux.Handle("/accounts/profile/edit", protectedChain(http.HandlerFunc(h.HandleEditProfile)))
}

func (h *AccountHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	templateName := middleware.TemplateName(r.Context(), templateSignup)

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateName, map[string]any{
			"Form":   account.SignupForm{},
			"Errors": form.Errors{},
			"Next":   r.URL.Query().Get("next"),
		})
	case http.MethodPost:
		h.handleCreateUserPost(w, r, templateName)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *AccountHandler) handleCreateUserPost(w http.ResponseWriter, r *http.Request, templateName string) {
	ctx := r.Context()

	f := account.SignupFormFromRequest(r)
	next := r.PostFormValue("next")
	errs := f.Validate(h.Validator)

	if !errs.Any() {
		_, err := h.AccountService.CreateUser(ctx, f.Username, f.Email, f.Password1)
		switch {
		case errors.Is(err, account.ErrUsernameTaken):
			errs.Add("username", account.ErrUsernameTaken.Message)
		case err != nil:
			h.serverError(w, r, "Failed to create user", err)
			return
		default:
			user, err := h.AccountService.AuthenticateUser(ctx, f.Username, f.Password1)
			if err != nil {
				h.serverError(w, r, "Failed to authenticate new user", err)
				return
			}
			if err := h.login(w, r, user); err != nil {
				h.serverError(w, r, "Failed to log in new user", err)
				return
			}

			h.Logger.InfoContext(ctx, "User signed up", "user_id", user.ID)
			http.Redirect(w, r, safeNext(next, routeProfile), http.StatusFound)
			return
		}
	}

	// Passwords are never echoed back.
	f.Password1, f.Password2 = "", ""
	h.render(w, r, http.StatusOK, templateName, map[string]any{
		"Form":   f,
		"Errors": errs,
		"Next":   next,
	})
}

func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	templateName := middleware.TemplateName(r.Context(), templateLogin)

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateName, map[string]any{
			"Form":   account.LoginForm{},
			"Errors": form.Errors{},
			"Next":   r.URL.Query().Get("next"),
		})
	case http.MethodPost:
		h.handleLoginPost(w, r, templateName)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *AccountHandler) handleLoginPost(w http.ResponseWriter, r *http.Request, templateName string) {
	ctx := r.Context()

	f := account.LoginFormFromRequest(r)
	next := r.PostFormValue("next")
	errs := f.Validate(h.Validator)

	if !errs.Any() {
		user, err := h.AccountService.AuthenticateUser(ctx, f.Username, f.Password)
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			h.Logger.WarnContext(ctx, "Invalid login credentials", "username", f.Username)
			errs.Add("", "Please enter a correct username and password. Note that both fields may be case-sensitive.")
		case err != nil:
			h.serverError(w, r, "Failed to authenticate user", err)
			return
		default:
			if err := h.login(w, r, user); err != nil {
				h.serverError(w, r, "Failed to log in user", err)
				return
			}

			h.Logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
			http.Redirect(w, r, safeNext(next, routeProfile), http.StatusFound)
			return
		}
	}

	f.Password = ""
	h.render(w, r, http.StatusOK, templateName, map[string]any{
		"Form":   f,
		"Errors": errs,
		"Next":   next,
	})
}

// login binds user to the session and rotates its token.
func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request, user account.User) error {
	ctx := r.Context()

	sess := h.session(r)
	sess.UserID = user.ID

	sess, err := h.SessionStore.SaveSession(ctx, sess)
	if err != nil {
		return err
	}

	sess, err = h.SessionStore.RegenerateSession(ctx, sess)
	if err != nil {
		return err
	}

	middleware.SetSessionCookie(w, h.Config, sess)
	return nil
}

func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	sess := h.session(r)
	if sess.Token != "" {
		if err := h.SessionStore.DeleteSession(ctx, sess.Token); err != nil {
			h.Logger.ErrorContext(ctx, "Failed to delete session during logout", "error", err)
		}
	}

	middleware.ClearSessionCookie(w, h.Config)
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
}

// HandleProfile shows the named user's profile, or the logged in user's own
// profile when no username is given.
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	username := r.PathValue("username")

	var user account.User
	var err error
	if username == "" {
		sess := h.session(r)
		if !sess.IsAuthenticated() {
			http.Redirect(w, r, middleware.LoginURL(r.URL.Path), http.StatusFound)
			return
		}
		user, err = h.AccountService.GetUserByID(ctx, sess.UserID)
	} else {
		user, err = h.AccountService.GetUserByUsername(ctx, username)
	}

	if errors.Is(err, account.ErrUserNotFound) {
		h.notFound(w, r, "No user found with that username.")
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to load profile", err)
		return
	}

	h.render(w, r, http.StatusOK, templateProfile, map[string]any{
		"User":  user,
		"IsOwn": user.ID == h.userID(r),
	})
}

func (h *AccountHandler) HandleEditProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.AccountService.GetUserByID(ctx, h.userID(r))
	if err != nil {
		h.serverError(w, r, "Failed to load user", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateEditProfile, map[string]any{
			"Form":   account.EditFormFromUser(user),
			"Errors": form.Errors{},
		})
	case http.MethodPost:
		f := account.EditFormFromRequest(r)
		errs := f.Validate(h.Validator)
		if errs.Any() {
			h.render(w, r, http.StatusOK, templateEditProfile, map[string]any{
				"Form":   f,
				"Errors": errs,
			})
			return
		}

		if _, err := h.AccountService.UpdateUser(ctx, f.Apply(user)); err != nil {
			h.serverError(w, r, "Failed to update user", err)
			return
		}

		http.Redirect(w, r, routeProfile, http.StatusFound)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
