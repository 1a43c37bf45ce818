package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wellnessconnect/internal/auth"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/service/account"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req account.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if user.Role == models.RoleStudent {
		h.triage.Invalidate(c.Request.Context(), "student registered")
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"name":           user.Name,
		"role":           user.Role,
		"anonymous_flag": user.Anonymous,
		"created_at":     user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide both email and password"})
		return
	}
	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.auth.SetSessionCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"auth_token": authToken,
		"csrf_token": csrfToken,
		"dashboard":  user.Role.DashboardPath(),
	})
}

func (h *Handler) me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"dashboard": user.Role.DashboardPath(),
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if token, ok := auth.AuthTokenFromContext(c); ok {
		if err := h.auth.RevokeToken(c.Request.Context(), token); err != nil {
			h.fail(c, err, "")
			return
		}
	}
	h.auth.ClearSessionCookies(c)
	c.Status(http.StatusNoContent)
}
