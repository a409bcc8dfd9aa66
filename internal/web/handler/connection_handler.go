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
	templateConnectionList          = "oauth2_provider/connection_list.html"
	templateConnectionConfirmDelete = "oauth2_provider/connection_confirm_delete.html"

	flashConnectionRevoked = "The application authorization has been successfully revoked."
)

type ConnectionService interface {
	List(ctx context.Context, userID uuid.UUID) ([]oauth.Connection, error)
	FirstForApplication(ctx context.Context, userID, applicationID uuid.UUID) (oauth.Connection, error)
	RevokeAll(ctx context.Context, userID, applicationID uuid.UUID) (int, error)
}

type ConnectionHandler struct {
	Base
	ConnectionService ConnectionService
}

func NewConnectionHandler(base Base, connectionService ConnectionService) ConnectionHandler {
	return ConnectionHandler{
		Base:              base,
		ConnectionService: connectionService,
	}
}

func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	protectedChain := h.protectedChain()

	mux.Handle(routeConnections, protectedChain(http.HandlerFunc(h.HandleList)))
	mux.Handle("/accounts/connections/{id}/delete", protectedChain(http.HandlerFunc(h.HandleDelete)))
}

func (h *ConnectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	connections, err := h.ConnectionService.List(r.Context(), h.userID(r))
	if err != nil {
		h.serverError(w, r, "Failed to list connections", err)
		return
	}

	h.render(w, r, http.StatusOK, templateConnectionList, map[string]any{
		"Connections": connections,
	})
}

// HandleDelete revokes every grant the user gave the application named by {id}.
func (h *ConnectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := h.userID(r)

	applicationID, ok := pathID(r)
	if !ok {
		h.notFound(w, r, oauth.ErrConnectionNotFound.Message)
		return
	}

	connection, err := h.ConnectionService.FirstForApplication(ctx, userID, applicationID)
	if errors.Is(err, oauth.ErrConnectionNotFound) {
		h.notFound(w, r, oauth.ErrConnectionNotFound.Message)
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to load connection", err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, templateConnectionConfirmDelete, map[string]any{
			"Connection": connection,
		})
	case http.MethodPost:
		revoked, err := h.ConnectionService.RevokeAll(ctx, userID, applicationID)
		if err != nil {
			h.Logger.ErrorContext(ctx, "Connection partially revoked", "application_id", applicationID, "revoked", revoked)
			h.serverError(w, r, "Failed to revoke connection", err)
			return
		}

		events.PublishLogged(ctx, h.Events, h.Logger, events.New(events.ConnectionRevoked, userID, applicationID))
		h.redirectWithFlash(w, r, flashConnectionRevoked, routeConnections)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
