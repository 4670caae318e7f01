package http

import (
	"errors"
	"net/http"
	"strings"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	idapp "facility-cloud/internal/identity/application"
	identity "facility-cloud/internal/identity/domain"
)

// UsersHandler provides tenant user management endpoints.
type UsersHandler struct {
	service *idapp.Service
}

// NewUsersHandler constructs a users handler.
func NewUsersHandler(service *idapp.Service) (*UsersHandler, error) {
	if service == nil {
		return nil, errors.New("users handler: nil service")
	}
	return &UsersHandler{service: service}, nil
}

// ServeHTTP handles /api/users and subroutes.
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/users":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/users/invite":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleInvite(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/users/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/users/")
		if id == "" || strings.Contains(id, "/") {
			apihttp.Error(w, http.StatusNotFound, "not found")
			return
		}
		switch r.Method {
		case http.MethodPatch, http.MethodPut:
			h.handleUpdate(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		apihttp.Error(w, http.StatusInternalServerError, "listing users failed")
		return
	}
	if users == nil {
		users = []identity.User{}
	}
	apihttp.JSON(w, http.StatusOK, users)
}

func (h *UsersHandler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if err := apihttp.Decode(r, &req); err != nil {
		apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" || req.Role == "" {
		apihttp.Error(w, http.StatusUnprocessableEntity, "email, name and role are required")
		return
	}
	user, err := h.service.Invite(r.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			apihttp.Error(w, http.StatusBadRequest, "email is already in use")
		case errors.Is(err, auth.ErrUnauthorized):
			apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
		default:
			apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	// The invite token travels in the response so the operator can relay
	// it; it is excluded from every other user serialization.
	apihttp.JSON(w, http.StatusCreated, map[string]any{
		"user":         user,
		"invite_token": user.InviteToken,
	})
}

func (h *UsersHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name   string `json:"name"`
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if err := apihttp.Decode(r, &req); err != nil {
		apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, req.Name, req.Role, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			apihttp.Error(w, http.StatusNotFound, "user not found")
		default:
			apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	apihttp.JSON(w, http.StatusOK, user)
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			apihttp.Error(w, http.StatusNotFound, "user not found")
		case errors.Is(err, auth.ErrUnauthorized):
			apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
		default:
			apihttp.Error(w, http.StatusInternalServerError, "deleting user failed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
