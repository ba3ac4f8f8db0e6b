package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/existflow/tasksync/internal/api"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/blake2b"
)

// handleLogin issues a session for an email address. There is no password:
// this is a development server.
func (s *Server) handleLogin(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email is required"})
	}

	ctx := c.Request().Context()
	user, err := s.store.EnsureUser(ctx, email)
	if err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	token, err := s.createSession(c, user.ID)
	if err != nil {
		c.Logger().Error("session error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	c.Logger().Infof("User logged in: %s", email)

	return c.JSON(http.StatusOK, api.LoginResponse{
		ID:    user.ID,
		Email: user.Email,
		Token: token,
	})
}

// createSession creates a new session for a user and returns the raw token
func (s *Server) createSession(c echo.Context, userID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	err := s.store.CreateSession(c.Request().Context(), Session{
		Digest:    tokenDigest(token),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.opts.SessionTTL),
	})
	return token, err
}

// tokenDigest is the lookup key of a session token
func tokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
