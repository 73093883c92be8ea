package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type Handler struct {
	repo          *AdminRepository
	issuer        *TokenIssuer
	secureCookies bool
	logger        *slog.Logger
}

func NewHandler(repo *AdminRepository, issuer *TokenIssuer, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{
		repo:          repo,
		issuer:        issuer,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	existing, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to look up admin", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		h.writeError(w, http.StatusBadRequest, "email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	admin := &domain.Admin{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.repo.Create(r.Context(), admin); err != nil {
		h.logger.Error("failed to create admin", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.issuer.Issue(admin)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setSessionCookie(w, token)
	h.logger.Info("admin registered", "admin_id", admin.ID, "email", admin.Email)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	admin, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to look up admin", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if admin == nil {
		h.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		h.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.issuer.Issue(admin)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setSessionCookie(w, token)
	h.logger.Info("admin logged in", "admin_id", admin.ID)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	admin, err := h.repo.GetByID(r.Context(), claims.AdminID)
	if err != nil {
		h.logger.Error("failed to get admin", "error", err, "admin_id", claims.AdminID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if admin == nil {
		h.writeError(w, http.StatusNotFound, "admin not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "admin": admin})
}

type profileRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleProfile updates the logged-in admin's profile. A password change
// requires the current password to verify first.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin, err := h.repo.GetByID(r.Context(), claims.AdminID)
	if err != nil {
		h.logger.Error("failed to get admin", "error", err, "admin_id", claims.AdminID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if admin == nil {
		h.writeError(w, http.StatusNotFound, "admin not found")
		return
	}

	if req.CurrentPassword != "" && req.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			h.writeError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		admin.PasswordHash = string(hash)
	}

	if req.Name != "" {
		admin.Name = req.Name
	}
	if req.Email != "" {
		admin.Email = req.Email
	}
	if req.Phone != "" {
		admin.Phone = req.Phone
	}

	if err := h.repo.Update(r.Context(), admin); err != nil {
		h.logger.Error("failed to update admin", "error", err, "admin_id", admin.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("admin profile updated", "admin_id", admin.ID)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "admin": admin})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"success": false, "message": message})
}
