package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/watchsync/internal/service/auth"
	"github.com/sharetube/watchsync/internal/stream"
	"github.com/sharetube/watchsync/pkg/rest"
)

type createGuestInput struct {
	Username string `json:"username" validate:"required,max=32"`
}

func (c controller) createGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestInput

	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "createGuest", "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "createGuest", "validate err", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.authService.CreateGuest(r.Context(), &auth.CreateGuestParams{
		Username: req.Username,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "createGuest", "create guest err", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create guest session"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp})
}

func (c controller) getSession(w http.ResponseWriter, r *http.Request) {
	token, ok := rest.BearerToken(r)
	if !ok {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "missing bearer token"})
		return
	}

	resp, err := c.authService.GetSession(r.Context(), token)
	if err != nil {
		c.writeAuthError(w, r, "getSession", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := rest.BearerToken(r)
	if !ok {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "missing bearer token"})
		return
	}

	if err := c.authService.Logout(r.Context(), token); err != nil {
		c.writeAuthError(w, r, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "invalid or expired session"})
		return
	}

	c.logger.ErrorContext(r.Context(), op, "error", err)
	rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.roomService.ListRooms(r.Context())})
}

func (c controller) getStream(w http.ResponseWriter, r *http.Request) {
	d, err := c.streamService.Describe(r.Context())
	if err != nil {
		if errors.Is(err, stream.ErrNotConfigured) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": err.Error()})
			return
		}
		c.logger.WarnContext(r.Context(), "getStream", "error", err)
		rest.WriteJSON(w, http.StatusBadGateway, rest.Envelope{"error": "failed to probe stream"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": d})
}
