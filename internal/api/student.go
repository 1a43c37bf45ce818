package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wellnessconnect/internal/chatbot"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/questionnaire"
	"wellnessconnect/internal/risk"
	"wellnessconnect/internal/service/journal"
)

func (h *Handler) studentDashboard(c *gin.Context) {
	user := currentUser(c)
	latest, err := h.journal.LatestAssessment(c.Request.Context(), user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"latest_assessment": latest,
	})
}

type chatRequest struct {
	Message string `json:"message" form:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	user := currentUser(c)
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		c.JSON(http.StatusOK, gin.H{"response": chatbot.EmptyMessageReply, "stress_level": risk.Low})
		return
	}

	stress := chatbot.StressFromMessage(msg)
	text, err := h.companion.Reply(c.Request.Context(), stress, msg)
	if err != nil || text == "" {
		text = chatbot.ResponseFor(stress)
	}

	var reply chatbot.Reply
	err = h.workers.Do(c.Request.Context(), user.ID, func(ctx context.Context) error {
		if err := h.journal.RecordChat(ctx, &models.ChatLog{
			UserID:      user.ID,
			Message:     msg,
			Response:    text,
			StressLevel: stress,
		}); err != nil {
			return err
		}
		final, err := h.updater.Apply(ctx, user, risk.Signals{ChatLabel: stress.String()})
		if err != nil {
			return err
		}
		reply = chatbot.Shape(stress, final, text)
		return nil
	})
	if err != nil {
		h.fail(c, err, "user not found")
		return
	}
	h.triage.Invalidate(c.Request.Context(), "chat")
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) submitAssessment(c *gin.Context) {
	user := currentUser(c)
	var answers questionnaire.Answers
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&answers); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := answers.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		answers = questionnaire.FromForm(c.Request.PostForm)
	}

	phq, gad := questionnaire.Score(answers)
	var final risk.Level
	err := h.workers.Do(c.Request.Context(), user.ID, func(ctx context.Context) error {
		if err := h.journal.RecordAssessment(ctx, &models.Assessment{
			UserID:     user.ID,
			PHQScore:   phq,
			GADScore:   gad,
			TotalScore: questionnaire.Total(phq, gad),
			FinalLevel: journal.FinalLevelFor(phq, gad),
		}); err != nil {
			return err
		}
		var err error
		final, err = h.updater.Apply(ctx, user, risk.Signals{PHQ: phq, GAD: gad})
		return err
	})
	if err != nil {
		h.fail(c, err, "user not found")
		return
	}
	h.triage.Invalidate(c.Request.Context(), "assessment")
	c.JSON(http.StatusOK, gin.H{
		"phq_score":   phq,
		"gad_score":   gad,
		"final_level": final,
	})
}

type dateRequest struct {
	Date string `json:"date" form:"date"`
}

func (h *Handler) requestAppointment(c *gin.Context) {
	user := currentUser(c)
	var req dateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	appt, err := h.booking.Request(c.Request.Context(), user.ID, req.Date)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, appt)
}
