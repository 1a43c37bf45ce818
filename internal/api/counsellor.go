package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wellnessconnect/internal/models"
)

func (h *Handler) counsellorDashboard(c *gin.Context) {
	user := currentUser(c)
	board, err := h.triage.Board(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	appts, err := h.booking.ListForCounsellor(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if appts == nil {
		appts = []*models.Appointment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"high_risk_students":   board.High,
		"medium_risk_students": board.Medium,
		"low_risk_students":    board.Low,
		"appointments":         appts,
	})
}

type statusRequest struct {
	Status models.AppointmentStatus `json:"status" form:"status"`
}

func (h *Handler) updateAppointment(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.booking.UpdateStatus(c.Request.Context(), user.ID, id, req.Status); err != nil {
		h.fail(c, err, "appointment not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *Handler) studentChats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	student, err := h.accounts.GetWithRole(c.Request.Context(), id, models.RoleStudent)
	if err != nil {
		h.fail(c, err, "student not found")
		return
	}
	logs, err := h.journal.ChatHistory(c.Request.Context(), student.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if logs == nil {
		logs = []*models.ChatLog{}
	}
	c.JSON(http.StatusOK, gin.H{
		"student": gin.H{
			"id":                   student.ID,
			"name":                 student.DisplayName(),
			"current_stress_level": student.CurrentStressLevel,
		},
		"chat_logs": logs,
	})
}

func (h *Handler) scheduleSession(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	student, err := h.accounts.GetWithRole(c.Request.Context(), id, models.RoleStudent)
	if err != nil {
		h.fail(c, err, "student not found")
		return
	}
	appt, err := h.booking.Schedule(c.Request.Context(), user.ID, student.ID, req.Date)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, appt)
}
