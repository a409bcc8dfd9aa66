package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/events"
	"github.com/freekieb7/neurovault-users/internal/form"
	"github.com/freekieb7/neurovault-users/internal/oauth"
	"github.com/google/uuid"
)

const (
	templateApplicationList          = "oauth2_provider/application_list.html"
	templateApplicationRegistration  = "oauth2_provider/application_registration_form.html"
	templateApplicationDetail        = "oauth2_provider/application_detail.html"
	templateApplicationForm          = "oauth2_provider/application_form.html"
	templateApplicationConfirmDelete = "oauth2_provider/application_confirm_delete.html"

	flashApplicationRegistered = "The application has been successfully registered."
	flashApplicationUpdated    = "The application has been successfully updated."
	flashApplicationDeleted    = "The application has been successfully deleted."
)

type ApplicationService interface {
	Create(ctx context.Context, ownerID uuid.UUID, form oauth.ApplicationForm) (oauth.Application, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]oauth.Application, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (oauth.Application, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, app oauth.Application, form oauth.ApplicationForm) (oauth.Application, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

type ApplicationHandler struct {
	Base
	ApplicationService ApplicationService
	Validator          *form.Validator
}

func NewApplicationHandler(base Base, applicationService ApplicationService, validator *form.Validator) ApplicationHandler {
	return ApplicationHandler{
		Base:               base,
		ApplicationService: applicationService,
		Validator:          validator,
	}
}

func (h *ApplicationHandler) RegisterRoutes(mux *http.ServeMux) {
	protectedChain := h.protectedChain()

	mux.Handle(routeApplications, protectedChain(http.HandlerFunc(h.HandleList)))
	mux.Handle("/accounts/applications/register", protectedChain(http.HandlerFunc(h.HandleRegister)))
	mux.Handle("/accounts/applications/{id}", protectedChain(h.OwnerGuard(h.HandleDetail)))
	mux.Handle("/accounts/applications/{id}/edit", protectedChain(h.OwnerGuard(h.HandleUpdate)))
	mux.Handle("/accounts/applications/{id}/delete", protectedChain(h.OwnerGuard(h.HandleDelete)))
}

// OwnerGuard loads the application named by {id} for the requesting user and
// passes it on. Applications of other users are reported as missing.
func (h *ApplicationHandler) OwnerGuard(next func(http.ResponseWriter, *http.Request, oauth.Application)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			h.notFound(w, r, "No application found.")
			return
		}

		app, err := h.ApplicationService.GetByIDAndOwner(r.Context(), id, h.userID(r))
		if errors.Is(err, oauth.ErrApplicationNotFound) {
			h.notFound(w, r, "No application found.")
			return
		}
		if err != nil {
			h.serverError(w, r, "Failed to load application", err)
			return
		}

		next(w, r, app)
	})
}

func (h *ApplicationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	apps, err := h.ApplicationService.ListByOwner(r.Context(), h.userID(r))
	if err != nil {
		h.serverError(w, r, "Failed to list applications", err)
		return
	}

	h.render(w, r, http.StatusOK, templateApplicationList, map[string]any{
		"Applications": apps,
	})
}

func (h *ApplicationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateApplicationRegistration, map[string]any{
			"Form":   oauth.ApplicationForm{ClientType: oauth.ClientTypeConfidential, AuthorizationGrantType: oauth.GrantAuthorizationCode},
			"Errors": form.Errors{},
		})
	case http.MethodPost:
		f := oauth.ApplicationFormFromRequest(r)
		if errs := f.Validate(h.Validator); errs.Any() {
			h.render(w, r, http.StatusOK, templateApplicationRegistration, map[string]any{
				"Form":   f,
				"Errors": errs,
			})
			return
		}

		app, err := h.ApplicationService.Create(r.Context(), h.userID(r), f)
		if err != nil {
			h.serverError(w, r, "Failed to register application", err)
			return
		}

		h.Logger.InfoContext(r.Context(), "Application registered", "application_id", app.ID, "user_id", app.UserID)
		h.redirectWithFlash(w, r, flashApplicationRegistered, routeApplications)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *ApplicationHandler) HandleDetail(w http.ResponseWriter, r *http.Request, app oauth.Application) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	h.render(w, r, http.StatusOK, templateApplicationDetail, map[string]any{
		"Application": app,
	})
}

func (h *ApplicationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request, app oauth.Application) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateApplicationForm, map[string]any{
			"Application": app,
			"Form":        oauth.ApplicationFormFrom(app),
			"Errors":      form.Errors{},
		})
	case http.MethodPost:
		f := oauth.ApplicationFormFromRequest(r)
		if errs := f.Validate(h.Validator); errs.Any() {
			h.render(w, r, http.StatusOK, templateApplicationForm, map[string]any{
				"Application": app,
				"Form":        f,
				"Errors":      errs,
			})
			return
		}

		if _, err := h.ApplicationService.Update(r.Context(), app, f); err != nil {
			if errors.Is(err, oauth.ErrApplicationNotFound) {
				h.notFound(w, r, "No application found.")
				return
			}
			h.serverError(w, r, "Failed to update application", err)
			return
		}

		h.redirectWithFlash(w, r, flashApplicationUpdated, routeApplications)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *ApplicationHandler) HandleDelete(w http.ResponseWriter, r *http.Request, app oauth.Application) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateApplicationConfirmDelete, map[string]any{
			"Application": app,
		})
	case http.MethodPost:
		if err := h.ApplicationService.Delete(r.Context(), app.ID, app.UserID); err != nil {
			if errors.Is(err, oauth.ErrApplicationNotFound) {
				h.notFound(w, r, "No application found.")
				return
			}
			h.serverError(w, r, "Failed to delete application", err)
			return
		}

		events.PublishLogged(r.Context(), h.Events, h.Logger, events.New(events.ApplicationDeleted, app.UserID, app.ID))
		h.redirectWithFlash(w, r, flashApplicationDeleted, routeApplications)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
