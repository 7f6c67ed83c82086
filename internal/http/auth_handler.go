package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"voucher-queue/internal/service"

	"go.uber.org/zap"
)

// AuthHandler 登录处理器
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeFail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		h.logger.Error("Login failed", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeOK(w, loginResponse{Token: token})
}

// RequireAuth validates the bearer token and writes a 401 when it is missing
// or invalid. Handlers guard mutating operations with it.
func (h *AuthHandler) RequireAuth(w http.ResponseWriter, r *http.Request) *service.Claims {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeFail(w, http.StatusUnauthorized, "missing bearer token")
		return nil
	}

	claims, err := h.auth.VerifyToken(token)
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid token")
		return nil
	}
	return claims
}
