package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vidora-app/vidora/internal/auth"
	"github.com/vidora-app/vidora/internal/media"
	"github.com/vidora-app/vidora/internal/platform/httpx"
	"github.com/vidora-app/vidora/internal/shared"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

const maxMultipartMemory = 10 << 20

// HandlerConfig tunes the HTTP layer of the users module.
type HandlerConfig struct {
	// StagingDir is where multipart avatars land before upload.
	StagingDir string
	// SecureCookies toggles the Secure attribute on auth cookies.
	SecureCookies bool
}

// Handler wires HTTP endpoints for the account lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *auth.Guard
	validator *validator.Validate
	cfg       HandlerConfig
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *auth.Guard, cfg HandlerConfig) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
		cfg:       cfg,
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh-token", h.refreshToken)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Post("/logout", h.logout)
		r.Patch("/change-password", h.changePassword)
	})
}

type registerForm struct {
	UserName string `validate:"required"`
	Email    string `validate:"required,email"`
	FullName string `validate:"required"`
	Password string `validate:"required,min=6"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}
	form := registerForm{
		UserName: r.PostFormValue("userName"),
		Email:    r.PostFormValue("email"),
		FullName: r.PostFormValue("fullName"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrUpload.Error())
		return
	}
	defer func() {
		_ = file.Close()
	}()

	localPath, err := media.StageFile(h.cfg.StagingDir, header.Filename, file)
	if err != nil {
		h.logger.Error("stage avatar", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		UserName:        form.UserName,
		Email:           form.Email,
		FullName:        form.FullName,
		Password:        form.Password,
		AvatarLocalPath: localPath,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.OK(w, http.StatusCreated, user.Profile(), "user registered successfully")
}

type loginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	User         Profile `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}
	identifier := req.UserName
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	httpx.OK(w, http.StatusOK, tokenPayload{
		User:         result.User.Profile(),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "user logged in successfully")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	acc := shared.AccountFromContext(r.Context())
	if acc == nil {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
		return
	}
	if err := h.service.Logout(r.Context(), acc.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.clearAuthCookies(w)
	httpx.OK(w, http.StatusOK, nil, "user logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := httpx.DecodeJSON(r, &req); err == nil {
			token = req.RefreshToken
		}
	}

	result, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	httpx.OK(w, http.StatusOK, tokenPayload{
		User:         result.User.Profile(),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "access token refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	acc := shared.AccountFromContext(r.Context())
	if acc == nil {
		httpx.Error(w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, shared.ErrValidation.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), acc.ID, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "password changed successfully")
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, h.authCookie(auth.AccessTokenCookie, access, 0))
	http.SetCookie(w, h.authCookie(RefreshTokenCookie, refresh, 0))
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.authCookie(auth.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.authCookie(RefreshTokenCookie, "", -1))
}

func (h *Handler) authCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
