package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tiancizhuang/apiserver/internal/services"
	"github.com/tiancizhuang/apiserver/internal/session"
	"github.com/tiancizhuang/apiserver/internal/store"
)

const (
	loginPath = "/auth/login"
	indexPath = "/"

	formFieldUsername = "username"
	formFieldPassword = "password"
)

// AuthHandler provides session-based authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *session.Manager
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, sessions *session.Manager) {
	handler := NewAuthHandler(userService, sessions)

	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
	r.Post("/logout", handler.Logout)
	r.With(RequireAuth).Get("/me", handler.Me)
}

// LoadUser resolves the session cookie into the current user before any
// route handler runs. A session naming a user that no longer exists is
// treated as anonymous.
func LoadUser(userService *services.UserService, sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessions.Load(r)
			ctx := withSession(r.Context(), sess)

			if userID, ok := sess.Current(); ok {
				user, err := userService.GetByID(ctx, userID)
				switch {
				case err == nil:
					ctx = withCurrentUser(ctx, user)
				case errors.Is(err, store.ErrNotFound):
				default:
					slog.Error("Failed to load session user", "user_id", userID, "error", err)
					writeError(w, http.StatusInternalServerError, "failed to load user")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth sends anonymous requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			redirect(w, r, loginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormResponse{Fields: []string{formFieldUsername, formFieldPassword}})
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormResponse{Fields: []string{formFieldUsername, formFieldPassword}})
}

// Register creates a new account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	username := strings.TrimSpace(form.Get(formFieldUsername))
	_, err = h.userService.Register(r.Context(), username, form.Get(formFieldPassword))
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, services.ErrDuplicateUsername):
			writeError(w, http.StatusConflict, services.ErrDuplicateUsername.Error())
		default:
			slog.Error("Failed to register user", "username", username, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	redirect(w, r, loginPath)
}

// Login verifies credentials and binds the user to the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	username := strings.TrimSpace(form.Get(formFieldUsername))
	user, err := h.userService.Verify(r.Context(), username, form.Get(formFieldPassword))
	if err != nil {
		var authErr *services.AuthenticationError
		if errors.As(err, &authErr) {
			writeError(w, http.StatusUnauthorized, authErr.Message)
			return
		}
		slog.Error("Failed to authenticate", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	sess := h.session(r)
	sess.Start(user.ID)
	if err := h.sessions.Save(w, sess); err != nil {
		slog.Error("Failed to save session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("User logged in", "user_id", user.ID)
	redirect(w, r, indexPath)
}

// Logout clears the session whether or not anyone was logged in.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	sess.End()
	if err := h.sessions.Save(w, sess); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	redirect(w, r, indexPath)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) session(r *http.Request) *session.Session {
	if sess, ok := sessionFromContext(r.Context()); ok {
		return sess
	}
	return h.sessions.Load(r)
}
