package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) adminDashboard(c *gin.Context) {
	report, err := h.triage.Report(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) deleteUser(c *gin.Context) {
	admin := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if id == admin.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot delete yourself"})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.accounts.Get(ctx, id); err != nil {
		h.fail(c, err, "user not found")
		return
	}
	h.workers.ResetUser(id)
	if err := h.auth.RevokeUserTokens(ctx, id); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.journal.DeleteUser(ctx, id); err != nil {
		h.fail(c, err, "")
		return
	}
	if err := h.accounts.Delete(ctx, id); err != nil {
		h.fail(c, err, "user not found")
		return
	}
	h.triage.Invalidate(ctx, "user deleted")
	c.Status(http.StatusNoContent)
}
