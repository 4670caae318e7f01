package http

import (
	"errors"
	"net/http"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	idapp "facility-cloud/internal/identity/application"
	identity "facility-cloud/internal/identity/domain"
)

// AuthHandler provides login, refresh, logout and profile endpoints.
type AuthHandler struct {
	service *idapp.Service
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service *idapp.Service) (*AuthHandler, error) {
	if service == nil {
		return nil, errors.New("auth handler: nil service")
	}
	return &AuthHandler{service: service}, nil
}

// ServeHTTP handles /api/auth subroutes.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		h.handleLogin(w, r)
	case "/api/auth/refresh":
		h.handleRefresh(w, r)
	case "/api/auth/logout":
		h.handleLogout(w, r)
	case "/api/auth/me":
		h.handleMe(w, r)
	case "/api/auth/accept-invite":
		h.handleAcceptInvite(w, r)
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := apihttp.Decode(r, &req); err != nil {
		apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		apihttp.Error(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			apihttp.Error(w, http.StatusUnauthorized, "incorrect email or password")
		case errors.Is(err, identity.ErrInactive):
			apihttp.Error(w, http.StatusForbidden, "account is not active")
		default:
			apihttp.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	apihttp.JSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "bearer",
		"user":          result.User,
	})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := apihttp.Decode(r, &req); err != nil || req.RefreshToken == "" {
		apihttp.Error(w, http.StatusUnprocessableEntity, "refresh_token is required")
		return
	}
	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, identity.ErrNotFound),
			errors.Is(err, auth.ErrTenantMismatch):
			apihttp.Error(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, identity.ErrInactive):
			apihttp.Error(w, http.StatusForbidden, "account is not active")
		default:
			apihttp.Error(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	apihttp.JSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "bearer",
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.service.Logout(r.Context()); err != nil {
		apihttp.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}
	apihttp.JSON(w, http.StatusOK, map[string]any{"detail": "logged out"})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, err := h.service.Me(r.Context())
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) || errors.Is(err, auth.ErrUnauthorized) {
			apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		apihttp.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	apihttp.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := apihttp.Decode(r, &req); err != nil || req.Token == "" {
		apihttp.Error(w, http.StatusUnprocessableEntity, "token is required")
		return
	}
	user, err := h.service.AcceptInvite(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			apihttp.Error(w, http.StatusNotFound, "invite not found")
		case errors.Is(err, identity.ErrInviteExpired):
			apihttp.Error(w, http.StatusBadRequest, "invite has expired")
		default:
			apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	apihttp.JSON(w, http.StatusOK, user)
}
