package availability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	availsvc "github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

type Handler struct {
	service  *availsvc.Service
	validate *validator.Validate
}

func NewHandler(service *availsvc.Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers/:id")
	{
		providers.GET("/schedule", h.GetWeeklySchedule)
		providers.PUT("/schedule", h.ReplaceWeeklySchedule)
		providers.GET("/exceptions", h.GetWeekExceptions)
		providers.PUT("/exceptions", h.ReplaceWeekExceptions)
	}
}

func (h *Handler) GetWeeklySchedule(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid provider ID"})
		return
	}
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}

	schedule, err := h.service.GetWeeklySchedule(c.Request.Context(), providerID, clinicID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, schedule)
}

func (h *Handler) ReplaceWeeklySchedule(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid provider ID"})
		return
	}

	var req model.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}

	if err := h.service.ReplaceWeeklySchedule(c.Request.Context(), providerID, clinicID, req.Blocks); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"replaced": true})
}

func (h *Handler) GetWeekExceptions(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid provider ID"})
		return
	}
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}
	weekStart, err := time.Parse("2006-01-02", c.Query("week_start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid week_start, expected YYYY-MM-DD"})
		return
	}

	exceptions, err := h.service.GetWeekExceptions(c.Request.Context(), providerID, clinicID, weekStart)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, exceptions)
}

func (h *Handler) ReplaceWeekExceptions(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid provider ID"})
		return
	}

	var req model.ReplaceExceptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid week_start, expected YYYY-MM-DD"})
		return
	}

	if err := h.service.ReplaceWeekExceptions(c.Request.Context(), providerID, clinicID, weekStart, req.Blocks); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"replaced": true})
}
