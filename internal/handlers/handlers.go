package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brandforge/contentpilot/internal/domain"
	"github.com/brandforge/contentpilot/internal/service"
	"github.com/brandforge/contentpilot/pkg/auth"
	"github.com/brandforge/contentpilot/pkg/config"
	"github.com/brandforge/contentpilot/pkg/logger"
)

type Handlers struct {
	authService     service.AuthService
	businessService service.BusinessService
	config          *config.Config
}

func New(
	authService service.AuthService,
	businessService service.BusinessService,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:     authService,
		businessService: businessService,
		config:          config,
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/send_code", h.SendCode)
	r.Post("/confirm_code", h.ConfirmCode)
	r.Post("/logout", h.Logout)
	r.Post("/refresh", h.Refresh)
	r.Get("/session", h.Session)

	r.Route("/recover", func(r chi.Router) {
		r.Post("/request", h.RecoverRequest)
		r.Post("/verify", h.RecoverVerify)
		r.Post("/reset", h.RecoverReset)
	})

	r.Route("/businesses", func(r chi.Router) {
		r.Use(h.RequireJWT)
		r.Post("/", h.CreateBusiness)
		r.Get("/", h.ListBusinesses)
	})

	return r
}

type claimsKey struct{}

// RequireJWT guards routes that need an authenticated user.
func (h *Handlers) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CODE")
	case errors.Is(err, domain.ErrDuplicateUser):
		writeError(w, http.StatusConflict, err.Error(), "EMAIL_EXISTS")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", "INTERNAL_ERROR")
	}
}
