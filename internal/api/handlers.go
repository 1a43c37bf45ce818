package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"wellnessconnect/internal/auth"
	"wellnessconnect/internal/logger"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/risk"
	"wellnessconnect/internal/service/account"
	"wellnessconnect/internal/service/booking"
	"wellnessconnect/internal/service/companion"
	"wellnessconnect/internal/service/journal"
	"wellnessconnect/internal/service/triage"
	"wellnessconnect/internal/worker"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Accounts  *account.Service
	Auth      *auth.Service
	Journal   journal.Journal
	Booking   *booking.Service
	Triage    *triage.Service
	Companion companion.Replier
	Workers   *worker.Manager
	Log       *logger.Logger
}

// Handler wires HTTP routes to the wellness services.
type Handler struct {
	accounts  *account.Service
	auth      *auth.Service
	journal   journal.Journal
	booking   *booking.Service
	triage    *triage.Service
	companion companion.Replier
	workers   *worker.Manager
	updater   *risk.Updater
	log       *logger.Logger
}

func NewHandler(d Deps) *Handler {
	replier := d.Companion
	if replier == nil {
		replier = companion.Canned{}
	}
	return &Handler{
		accounts:  d.Accounts,
		auth:      d.Auth,
		journal:   d.Journal,
		booking:   d.Booking,
		triage:    d.Triage,
		companion: replier,
		workers:   d.Workers,
		updater:   risk.NewUpdater(d.Accounts),
		log:       logger.OrNop(d.Log),
	}
}

// NewRouter builds the engine with the ambient middleware and all routes.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(h.log), gin.Recovery(), CORS(allowedOrigins))
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	authed := api.Group("", h.auth.Middleware(), h.auth.CSRFMiddleware())
	authed.GET("/me", auth.RequireRole(h.accounts), h.me)
	authed.POST("/logout", h.logoutUser)

	student := authed.Group("/student", auth.RequireRole(h.accounts, models.RoleStudent))
	student.GET("/dashboard", h.studentDashboard)
	student.POST("/chat", h.chat)
	student.POST("/assessment", h.submitAssessment)
	student.POST("/appointments", h.requestAppointment)

	counsellor := authed.Group("/counsellor", auth.RequireRole(h.accounts, models.RoleCounsellor))
	counsellor.GET("/dashboard", h.counsellorDashboard)
	counsellor.PATCH("/appointments/:id", h.updateAppointment)
	counsellor.GET("/students/:id/chats", h.studentChats)
	counsellor.POST("/students/:id/appointments", h.scheduleSession)

	admin := authed.Group("/admin", auth.RequireRole(h.accounts, models.RoleAdmin))
	admin.GET("/dashboard", h.adminDashboard)
	admin.DELETE("/users/:id", h.deleteUser)
}

// fail maps service errors onto status codes.
func (h *Handler) fail(c *gin.Context, err error, notFound string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, account.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, booking.ErrInvalidStatus), errors.Is(err, booking.ErrDateRequired), errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNoCounsellor):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", "request_id", requestIDFrom(c), "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) *models.User {
	user, ok := auth.UserFromContext(c)
	if !ok {
		// RequireRole guards every route that calls this
		panic("current user missing from context")
	}
	return user
}
