package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/freekieb7/neurovault-users/internal/events"
	"github.com/freekieb7/neurovault-users/internal/oauth"
	"github.com/google/uuid"
)

const (
	templateTokenList          = "oauth2_provider/personal_token_list.html"
	templateTokenConfirmDelete = "oauth2_provider/personal_token_confirm_delete.html"

	flashTokenCreated = "The new token has been successfully generated."
	flashTokenDeleted = "The token has been successfully deleted."
)

type TokenService interface {
	ListPersonal(ctx context.Context, userID, applicationID uuid.UUID) ([]oauth.AccessToken, error)
	CreatePersonal(ctx context.Context, userID, applicationID uuid.UUID) (oauth.AccessToken, error)
	GetPersonal(ctx context.Context, id, userID, applicationID uuid.UUID) (oauth.AccessToken, error)
	Revoke(ctx context.Context, id, userID, applicationID uuid.UUID) error
}

// ApplicationExistence reports whether an application is registered.
type ApplicationExistence interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// TokenHandler manages personal access tokens, which are issued against the
// default application.
type TokenHandler struct {
	Base
	TokenService         TokenService
	Applications         ApplicationExistence
	DefaultApplicationID uuid.UUID
}

func NewTokenHandler(base Base, tokenService TokenService, applications ApplicationExistence, defaultApplicationID uuid.UUID) TokenHandler {
	return TokenHandler{
		Base:                 base,
		TokenService:         tokenService,
		Applications:         applications,
		DefaultApplicationID: defaultApplicationID,
	}
}

func (h *TokenHandler) RegisterRoutes(mux *http.ServeMux) {
	protectedChain := h.protectedChain()

	mux.Handle(routeTokens, protectedChain(http.HandlerFunc(h.HandleList)))
	mux.Handle("/accounts/tokens/new", protectedChain(http.HandlerFunc(h.HandleCreate)))
	mux.Handle("/accounts/tokens/{id}/delete", protectedChain(http.HandlerFunc(h.HandleDelete)))
}

func (h *TokenHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	tokens, err := h.TokenService.ListPersonal(r.Context(), h.userID(r), h.DefaultApplicationID)
	if err != nil {
		h.serverError(w, r, "Failed to list tokens", err)
		return
	}

	h.render(w, r, http.StatusOK, templateTokenList, map[string]any{
		"Tokens": tokens,
	})
}

func (h *TokenHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()

	exists, err := h.Applications.Exists(ctx, h.DefaultApplicationID)
	if err != nil {
		h.serverError(w, r, "Failed to load default application", err)
		return
	}
	if !exists {
		h.serverError(w, r, "Default application is not registered", errors.New("application "+h.DefaultApplicationID.String()+" does not exist"))
		return
	}

	token, err := h.TokenService.CreatePersonal(ctx, h.userID(r), h.DefaultApplicationID)
	if err != nil {
		h.serverError(w, r, "Failed to create token", err)
		return
	}

	h.Logger.InfoContext(ctx, "Personal token created", "user_id", token.UserID, "token_id", token.ID)
	h.redirectWithFlash(w, r, flashTokenCreated, routeTokens)
}

func (h *TokenHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := h.userID(r)

	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r, "No token found.")
		return
	}

	token, err := h.TokenService.GetPersonal(ctx, id, userID, h.DefaultApplicationID)
	if errors.Is(err, oauth.ErrTokenNotFound) {
		h.notFound(w, r, "No token found.")
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to load token", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateTokenConfirmDelete, map[string]any{
			"Token": token,
		})
	case http.MethodPost:
		if err := h.TokenService.Revoke(ctx, token.ID, userID, h.DefaultApplicationID); err != nil {
			if errors.Is(err, oauth.ErrTokenNotFound) {
				h.notFound(w, r, "No token found.")
				return
			}
			h.serverError(w, r, "Failed to revoke token", err)
			return
		}

		event := events.New(events.TokenRevoked, userID, h.DefaultApplicationID)
		event.TokenID = token.ID
		events.PublishLogged(ctx, h.Events, h.Logger, event)

		h.redirectWithFlash(w, r, flashTokenDeleted, routeTokens)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
